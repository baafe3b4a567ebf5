package dbfile

import (
	"fmt"
	"io"
	"iter"
	"os"
	"strconv"
	"strings"

	"moodb/types"
)

// Database is the top-level record produced by Load and consumed by
// Dump (§3). It is a passive aggregate once Load returns: Dump reads it
// without mutation, and the only mutators are the post-load property
// operations in propresolve.go.
type Database struct {
	VersionString string
	Version       int

	TotalObjects int
	TotalVerbs   int
	TotalPlayers int

	Players       []types.ObjID
	Clocks        []string
	Finalizations []types.Value // v17 only

	Objects     map[types.ObjID]*Object
	AnonObjects []types.ObjID // subset of Objects whose Anon flag is set
	// Recycled records object ids whose slot is a recycled placeholder,
	// so Dump can re-emit the same slot gaps it read.
	Recycled []types.ObjID

	QueuedTasks      []QueuedTask
	SuspendedTasks   []SuspendedTask
	InterruptedTasks []InterruptedTask // v17 only
	Connections      []Connection

	Waifs []types.Waif
}

// AllVerbs walks every verb with attached source code, in ascending
// object-id then index order, pairing each with its owning object id.
// Generalizes the original implementation's all_verbs() generator
// (database.py), which flattens the same per-object verb lists into one
// sequence for callers that don't care which object a verb lives on.
func (db *Database) AllVerbs() iter.Seq2[types.ObjID, *Verb] {
	return func(yield func(types.ObjID, *Verb) bool) {
		for id := types.ObjID(0); id <= maxObjectID(db); id++ {
			obj, ok := db.Objects[id]
			if !ok {
				continue
			}
			for i := range obj.Verbs {
				if obj.Verbs[i].Code == nil {
					continue
				}
				if !yield(id, &obj.Verbs[i]) {
					return
				}
			}
		}
	}
}

// Load parses a database file at path into a Database.
func Load(path string) (*Database, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dbfile: open %s: %w", path, err)
	}
	defer f.Close()
	return LoadReader(f, path)
}

// LoadReader parses a database from an arbitrary reader. filename is
// used only for diagnostics in ParseError.
func LoadReader(r io.Reader, filename string) (*Database, error) {
	lr := newReader(r, filename)

	versionLine, err := lr.readLine()
	if err != nil {
		return nil, err
	}
	version, err := parseVersionLine(lr, versionLine)
	if err != nil {
		return nil, err
	}

	db := &Database{
		VersionString: versionLine,
		Version:       version,
		Objects:       make(map[types.ObjID]*Object),
	}
	c := &loadCtx{r: lr, version: version, db: db}

	switch version {
	case FormatVersion4:
		err = c.loadV4()
	case FormatVersion17:
		err = c.loadV17()
	default:
		err = lr.errf("Unknown db version %d", version)
	}
	if err != nil {
		return nil, err
	}

	if err := db.ResolvePropertyNames(); err != nil {
		return nil, err
	}
	return db, nil
}

func parseVersionLine(r *reader, line string) (int, error) {
	const prefix = "** LambdaMOO Database, Format Version "
	const suffix = " **"
	if !strings.HasPrefix(line, prefix) || !strings.HasSuffix(line, suffix) {
		return 0, r.errf("invalid version header %q", line)
	}
	body := strings.TrimSuffix(strings.TrimPrefix(line, prefix), suffix)
	v, err := strconv.Atoi(body)
	if err != nil {
		return 0, r.errf("invalid version header %q", line)
	}
	return v, nil
}

// loadV4 implements the §4.8 v4 section order: total_objects;
// total_verbs; dummy-string; players; objects; verbs; clocks; task
// queue; suspended tasks; connections.
func (c *loadCtx) loadV4() error {
	db := c.db
	var err error

	totalObjects, err := c.r.readInt()
	if err != nil {
		return err
	}
	db.TotalObjects = int(totalObjects)

	totalVerbs, err := c.r.readInt()
	if err != nil {
		return err
	}
	db.TotalVerbs = int(totalVerbs)

	if _, err = c.r.readLine(); err != nil { // dummy string
		return err
	}

	if err = c.readPlayers(); err != nil {
		return err
	}
	if err = c.readObjectsSection(db.TotalObjects, false); err != nil {
		return err
	}
	if err = c.readVerbsSection(db.TotalVerbs); err != nil {
		return err
	}
	if err = c.readClocks(); err != nil {
		return err
	}
	if db.QueuedTasks, err = c.readQueuedTasks(); err != nil {
		return err
	}
	if db.SuspendedTasks, err = c.readSuspendedTasks(); err != nil {
		return err
	}
	if db.Connections, err = c.readConnections(); err != nil {
		return err
	}
	return nil
}

// loadV17 implements the §4.8 v17 section order: players; pending
// finalizations; clocks; task queue; suspended tasks; interrupted
// tasks; connections; total_objects; objects; anonymous objects;
// total_verbs; verbs.
func (c *loadCtx) loadV17() error {
	db := c.db
	var err error

	if err = c.readPlayers(); err != nil {
		return err
	}
	if db.Finalizations, err = c.readFinalizations(); err != nil {
		return err
	}
	if err = c.readClocks(); err != nil {
		return err
	}
	if db.QueuedTasks, err = c.readQueuedTasks(); err != nil {
		return err
	}
	if db.SuspendedTasks, err = c.readSuspendedTasks(); err != nil {
		return err
	}
	if db.InterruptedTasks, err = c.readInterruptedTasks(); err != nil {
		return err
	}
	if db.Connections, err = c.readConnections(); err != nil {
		return err
	}

	totalObjects, err := c.r.readInt()
	if err != nil {
		return err
	}
	db.TotalObjects = int(totalObjects)
	if err = c.readObjectsSection(db.TotalObjects, true); err != nil {
		return err
	}
	if c.version >= DBVAnon {
		if err = c.readAnonObjectsSection(); err != nil {
			return err
		}
	}

	totalVerbs, err := c.r.readInt()
	if err != nil {
		return err
	}
	db.TotalVerbs = int(totalVerbs)
	if err = c.readVerbsSection(db.TotalVerbs); err != nil {
		return err
	}
	return nil
}

func (c *loadCtx) readPlayers() error {
	count, err := c.r.readInt()
	if err != nil {
		return err
	}
	c.db.TotalPlayers = int(count)
	players := make([]types.ObjID, count)
	for i := range players {
		id, err := c.r.readInt()
		if err != nil {
			return err
		}
		players[i] = types.ObjID(id)
	}
	c.db.Players = players
	return nil
}

func (c *loadCtx) readFinalizations() ([]types.Value, error) {
	count, err := c.readCountTemplate("values pending finalization")
	if err != nil {
		return nil, err
	}
	vals := make([]types.Value, count)
	for i := range vals {
		if vals[i], err = c.decodeValue(); err != nil {
			return nil, err
		}
	}
	return vals, nil
}

func (c *loadCtx) readClocks() error {
	count, err := c.readCountTemplate("clocks")
	if err != nil {
		return err
	}
	clocks := make([]string, count)
	for i := range clocks {
		if clocks[i], err = c.r.readLine(); err != nil {
			return err
		}
	}
	c.db.Clocks = clocks
	return nil
}

// readObjectsSection reads count object blocks, in either v4 or v5+
// shape, storing each non-recycled result and recording recycled slots
// for Dump to re-emit (§8 boundary: recycled objects produce no
// in-memory entry but consume their one-line token).
func (c *loadCtx) readObjectsSection(count int, ng bool) error {
	for i := 0; i < count; i++ {
		var obj *Object
		var err error
		if ng {
			obj, err = c.readObjectV5()
		} else {
			obj, err = c.readObjectV4()
		}
		if err != nil {
			return err
		}
		if obj.Recycled {
			c.db.Recycled = append(c.db.Recycled, obj.ID)
			continue
		}
		c.db.Objects[obj.ID] = obj
	}
	return nil
}

// readAnonObjectsSection reads the v17 anonymous-object chunk sequence
// of §4.8: repeated (count, count×object) groups terminated by a zero
// count.
func (c *loadCtx) readAnonObjectsSection() error {
	for {
		n, err := c.r.readInt()
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		for i := int64(0); i < n; i++ {
			obj, err := c.readObjectV5()
			if err != nil {
				return err
			}
			if obj.Recycled {
				c.db.Recycled = append(c.db.Recycled, obj.ID)
				continue
			}
			obj.Anon = true
			c.db.Objects[obj.ID] = obj
			c.db.AnonObjects = append(c.db.AnonObjects, obj.ID)
		}
	}
}

// readVerbsSection reads the file's separate verb-source section
// (§4.7): count entries of "#<objnum>:<index>" followed by a
// dot-terminated code block, attached to the matching Verb metadata
// already read during the object block.
func (c *loadCtx) readVerbsSection(count int) error {
	for i := 0; i < count; i++ {
		loc, err := c.r.readLine()
		if err != nil {
			return err
		}
		objID, idx, err := parseVerbLocation(loc)
		if err != nil {
			return c.errf("verb location %q: %v", loc, err)
		}
		code, err := c.readCodeBlock()
		if err != nil {
			return err
		}
		if code == nil {
			code = []string{} // an empty program is still attached code
		}
		obj := c.db.Objects[objID]
		if obj == nil {
			return c.errf("verb location %q: object %s not found", loc, objID)
		}
		if idx < 0 || idx >= len(obj.Verbs) {
			return c.errf("verb location %q: index out of range", loc)
		}
		obj.Verbs[idx].Code = code
	}
	return nil
}

func parseVerbLocation(s string) (types.ObjID, int, error) {
	if !strings.HasPrefix(s, "#") {
		return 0, 0, fmt.Errorf("missing '#' prefix")
	}
	rest := s[1:]
	sep := strings.IndexByte(rest, ':')
	if sep < 0 {
		return 0, 0, fmt.Errorf("missing ':' separator")
	}
	objID, err := strconv.ParseInt(rest[:sep], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("bad object id: %w", err)
	}
	idx, err := strconv.Atoi(rest[sep+1:])
	if err != nil {
		return 0, 0, fmt.Errorf("bad verb index: %w", err)
	}
	return types.ObjID(objID), idx, nil
}

// --- Dump ---

// Dump serializes db to sink in its own format version's shape.
func Dump(db *Database, sink io.Writer) error {
	w := newWriter(sink)
	c := newWriteState(w, db.Version, db)

	if err := w.writeLine(db.VersionString); err != nil {
		return err
	}

	var err error
	switch db.Version {
	case FormatVersion4:
		err = c.dumpV4()
	case FormatVersion17:
		err = c.dumpV17()
	default:
		err = fmt.Errorf("dbfile: unknown db version %d", db.Version)
	}
	if err != nil {
		return err
	}
	return w.Flush()
}

func (c *writeState) dumpV4() error {
	db := c.db
	maxID := maxObjectID(db)

	if err := c.w.writeInt(int64(maxID) + 1); err != nil {
		return err
	}
	if err := c.w.writeInt(int64(countVerbs(db))); err != nil {
		return err
	}
	if err := c.w.writeLine(""); err != nil { // dummy
		return err
	}
	if err := c.writePlayers(); err != nil {
		return err
	}
	if err := c.writeObjectsV4(maxID); err != nil {
		return err
	}
	if err := c.writeVerbsSection(); err != nil {
		return err
	}
	if err := c.writeClocks(); err != nil {
		return err
	}
	if err := c.writeQueuedTasks(db.QueuedTasks); err != nil {
		return err
	}
	if err := c.writeSuspendedTasks(db.SuspendedTasks); err != nil {
		return err
	}
	return c.writeConnections(db.Connections)
}

func (c *writeState) dumpV17() error {
	db := c.db
	maxID := maxObjectID(db)

	if err := c.writePlayers(); err != nil {
		return err
	}
	if err := c.writeFinalizations(); err != nil {
		return err
	}
	if err := c.writeClocks(); err != nil {
		return err
	}
	if err := c.writeQueuedTasks(db.QueuedTasks); err != nil {
		return err
	}
	if err := c.writeSuspendedTasks(db.SuspendedTasks); err != nil {
		return err
	}
	if err := c.writeInterruptedTasks(db.InterruptedTasks); err != nil {
		return err
	}
	if err := c.writeConnections(db.Connections); err != nil {
		return err
	}
	if err := c.w.writeInt(int64(maxID) + 1); err != nil {
		return err
	}
	if err := c.writeObjectsV5(maxID); err != nil {
		return err
	}
	if c.version >= DBVAnon {
		if err := c.writeAnonObjects(); err != nil {
			return err
		}
	}
	if err := c.w.writeInt(int64(countVerbs(db))); err != nil {
		return err
	}
	return c.writeVerbsSection()
}

func (c *writeState) writePlayers() error {
	if err := c.w.writeInt(int64(len(c.db.Players))); err != nil {
		return err
	}
	for _, p := range c.db.Players {
		if err := c.w.writeInt(int64(p)); err != nil {
			return err
		}
	}
	return nil
}

func (c *writeState) writeFinalizations() error {
	if err := c.w.writeLine(fmt.Sprintf("%d values pending finalization", len(c.db.Finalizations))); err != nil {
		return err
	}
	for _, v := range c.db.Finalizations {
		if err := c.encodeValue(v); err != nil {
			return err
		}
	}
	return nil
}

func (c *writeState) writeClocks() error {
	if err := c.w.writeLine(fmt.Sprintf("%d clocks", len(c.db.Clocks))); err != nil {
		return err
	}
	for _, cl := range c.db.Clocks {
		if err := c.w.writeLine(cl); err != nil {
			return err
		}
	}
	return nil
}

// writeObjectsV4/writeObjectsV5 emit every slot 0..maxID, substituting a
// recycled placeholder line for slots with no live object, to preserve
// the same slot numbering on a load-dump-load round trip.
func (c *writeState) writeObjectsV4(maxID types.ObjID) error {
	for id := types.ObjID(0); id <= maxID; id++ {
		obj := c.db.Objects[id]
		if obj == nil || obj.Anon {
			if err := c.w.writeLine(fmt.Sprintf("#%d recycled", id)); err != nil {
				return err
			}
			continue
		}
		if err := c.writeObjectV4(obj); err != nil {
			return err
		}
	}
	return nil
}

func (c *writeState) writeObjectsV5(maxID types.ObjID) error {
	for id := types.ObjID(0); id <= maxID; id++ {
		obj := c.db.Objects[id]
		if obj == nil || obj.Anon {
			if err := c.w.writeLine(fmt.Sprintf("#%d recycled", id)); err != nil {
				return err
			}
			continue
		}
		if err := c.writeObjectV5(obj); err != nil {
			return err
		}
	}
	return nil
}

func (c *writeState) writeAnonObjects() error {
	for _, id := range c.db.AnonObjects {
		obj := c.db.Objects[id]
		if obj == nil {
			continue
		}
		if err := c.w.writeInt(1); err != nil {
			return err
		}
		if err := c.writeObjectV5(obj); err != nil {
			return err
		}
	}
	return c.w.writeInt(0)
}

func (c *writeState) writeVerbsSection() error {
	for id, v := range c.db.AllVerbs() {
		if err := c.w.writeLine(fmt.Sprintf("#%d:%d", id, v.Index)); err != nil {
			return err
		}
		if err := c.writeCodeBlock(v.Code); err != nil {
			return err
		}
	}
	return nil
}

func maxObjectID(db *Database) types.ObjID {
	max := types.ObjID(-1)
	for id := range db.Objects {
		if id > max {
			max = id
		}
	}
	for _, id := range db.Recycled {
		if id > max {
			max = id
		}
	}
	return max
}

func countVerbs(db *Database) int {
	n := 0
	for range db.AllVerbs() {
		n++
	}
	return n
}
