package dbfile

import (
	"fmt"
	"strconv"
	"strings"

	"moodb/types"
)

// ActivationHeader is the nine-integer positional record shared by every
// parse-info activation (§4.2's activation_header template). The four
// "unused" columns are preserved byte-for-byte on a read/write round
// trip even though nothing in this codec interprets them.
type ActivationHeader struct {
	This       types.ObjID
	Unused1    int32
	Unused2    int32
	Player     types.ObjID
	Unused3    int32
	Programmer types.ObjID
	Vloc       types.ObjID
	Unused4    int32
	Debug      int32
}

// ParseInfo is an activation in its reduced "parse info" shape: what a
// queued (forked) task carries, and what a full-form Activation embeds
// for its own this/player/programmer/vloc/verb identity.
type ParseInfo struct {
	This     types.Value // present only if version >= DBVThis
	Vloc     types.Value // present only if version >= DBVAnon
	Threaded int32       // present only if version >= DBVThreaded
	Header   ActivationHeader
	Verb     string
	Verbname string
}

// RtEnvVar is one name/value binding of an activation's runtime
// environment.
type RtEnvVar struct {
	Name  string
	Value types.Value
}

// Activation is a full-form VM stack frame (§3, §4.6).
type Activation struct {
	LangVersion int32 // present only if version >= DBVFloat
	Code        []string
	RtEnv       []RtEnvVar
	Stack       []types.Value
	PI          ParseInfo
	Temp        types.Value
	PC          int32
	BiFunc      int32
	Error       int32
	FuncName    string // present only if BiFunc != 0
}

// VM is a suspended or interrupted task's machine state (§3).
// Invariant: len(Stack) == Top+1.
type VM struct {
	Locals         types.Value
	Top            int32
	Vector         int32
	FuncID         int32
	MaxStackframes int32
	Stack          []Activation
}

// QueuedTask is a forked task waiting for its scheduled time (§3, §4.6).
type QueuedTask struct {
	FirstLineno int32
	ID          int64
	ScheduledAt int64
	Unused      int32
	Activation  ParseInfo
	RtEnv       []RtEnvVar
	Code        []string
}

// SuspendedTask is a task parked mid-execution, optionally carrying the
// value that will be delivered to it on resume (§3).
type SuspendedTask struct {
	ID        int64
	StartTime int64
	HasValue  bool
	Value     types.Value
	VM        VM
}

// InterruptedTask is a v17-only record of a task that was aborted with a
// status message rather than suspended cleanly (§3).
type InterruptedTask struct {
	ID     int64
	Status string
	VM     VM
}

// Connection is one entry of the active-connections section (§3).
type Connection struct {
	Who      int64
	Listener int64 // 0 if the section omits listeners
}

// --- rt-env ---

func (c *loadCtx) readRtEnv() ([]RtEnvVar, error) {
	count, err := c.readCountTemplate("variables")
	if err != nil {
		return nil, err
	}
	vars := make([]RtEnvVar, count)
	for i := range vars {
		name, err := c.r.readLine()
		if err != nil {
			return nil, err
		}
		val, err := c.decodeValue()
		if err != nil {
			return nil, err
		}
		vars[i] = RtEnvVar{Name: name, Value: val}
	}
	return vars, nil
}

func (c *writeState) writeRtEnv(vars []RtEnvVar) error {
	if err := c.w.writeLine(fmt.Sprintf("%d variables", len(vars))); err != nil {
		return err
	}
	for _, v := range vars {
		if err := c.w.writeLine(v.Name); err != nil {
			return err
		}
		if err := c.encodeValue(v.Value); err != nil {
			return err
		}
	}
	return nil
}

// --- code block (§4.9) ---

func (c *loadCtx) readCodeBlock() ([]string, error) {
	var lines []string
	for {
		line, err := c.r.readLine()
		if err != nil {
			return nil, err
		}
		if line == "." {
			return lines, nil
		}
		lines = append(lines, line)
	}
}

func (c *writeState) writeCodeBlock(lines []string) error {
	for _, l := range lines {
		if err := c.w.writeLine(l); err != nil {
			return err
		}
	}
	return c.w.writeLine(".")
}

// --- parse-info activation (§4.6) ---

func (c *loadCtx) readParseInfo() (ParseInfo, error) {
	var pi ParseInfo
	if _, err := c.decodeValue(); err != nil { // sentinel, discarded
		return pi, err
	}
	var err error
	if c.version >= DBVThis {
		if pi.This, err = c.decodeValue(); err != nil {
			return pi, err
		}
	}
	if c.version >= DBVAnon {
		if pi.Vloc, err = c.decodeValue(); err != nil {
			return pi, err
		}
	}
	if c.version >= DBVThreaded {
		v, err := c.r.readInt()
		if err != nil {
			return pi, err
		}
		pi.Threaded = int32(v)
	}
	if pi.Header, err = c.readActivationHeader(); err != nil {
		return pi, err
	}
	for i := 0; i < 4; i++ { // No / More / Parse / Infos
		if _, err := c.r.readLine(); err != nil {
			return pi, err
		}
	}
	if pi.Verb, err = c.r.readLine(); err != nil {
		return pi, err
	}
	if pi.Verbname, err = c.r.readLine(); err != nil {
		return pi, err
	}
	return pi, nil
}

func (c *writeState) writeParseInfo(pi ParseInfo) error {
	if err := c.encodeValue(types.NewInt(-111)); err != nil { // sentinel
		return err
	}
	if c.version >= DBVThis {
		if err := c.encodeValue(orNone(pi.This)); err != nil {
			return err
		}
	}
	if c.version >= DBVAnon {
		if err := c.encodeValue(orNone(pi.Vloc)); err != nil {
			return err
		}
	}
	if c.version >= DBVThreaded {
		if err := c.w.writeInt(int64(pi.Threaded)); err != nil {
			return err
		}
	}
	if err := c.writeActivationHeader(pi.Header); err != nil {
		return err
	}
	for _, s := range []string{"No", "More", "Parse", "Infos"} {
		if err := c.w.writeLine(s); err != nil {
			return err
		}
	}
	if err := c.w.writeLine(pi.Verb); err != nil {
		return err
	}
	return c.w.writeLine(pi.Verbname)
}

// parseIntFields parses exactly len(fields) integers, reporting a
// line-numbered ParseError naming the offending field instead of
// silently treating a malformed line as zero.
func (c *loadCtx) parseIntFields(template string, fields []string) ([]int64, error) {
	ints := make([]int64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return nil, c.errf("%s: field %d not an integer: %q", template, i, f)
		}
		ints[i] = v
	}
	return ints, nil
}

func (c *loadCtx) readActivationHeader() (ActivationHeader, error) {
	line, err := c.r.readLine()
	if err != nil {
		return ActivationHeader{}, err
	}
	fields := strings.Fields(line)
	if len(fields) != 9 {
		return ActivationHeader{}, c.errf("activation_header: expected 9 fields, got %d", len(fields))
	}
	ints, err := c.parseIntFields("activation_header", fields)
	if err != nil {
		return ActivationHeader{}, err
	}
	return ActivationHeader{
		This:       types.ObjID(ints[0]),
		Unused1:    int32(ints[1]),
		Unused2:    int32(ints[2]),
		Player:     types.ObjID(ints[3]),
		Unused3:    int32(ints[4]),
		Programmer: types.ObjID(ints[5]),
		Vloc:       types.ObjID(ints[6]),
		Unused4:    int32(ints[7]),
		Debug:      int32(ints[8]),
	}, nil
}

func (c *writeState) writeActivationHeader(h ActivationHeader) error {
	return c.w.writeLine(fmt.Sprintf("%d %d %d %d %d %d %d %d %d",
		h.This, h.Unused1, h.Unused2, h.Player, h.Unused3, h.Programmer, h.Vloc, h.Unused4, h.Debug))
}

func orNone(v types.Value) types.Value {
	if v == nil {
		return types.None{}
	}
	return v
}

// --- full-form activation (§4.6) ---

func (c *loadCtx) readActivation() (Activation, error) {
	var a Activation
	if c.version >= DBVFloat {
		n, err := c.readCountTemplate2("language version")
		if err != nil {
			return a, err
		}
		a.LangVersion = int32(n)
	}
	var err error
	if a.Code, err = c.readCodeBlock(); err != nil {
		return a, err
	}
	if a.RtEnv, err = c.readRtEnv(); err != nil {
		return a, err
	}
	slots, err := c.readCountTemplate("rt_stack slots in use")
	if err != nil {
		return a, err
	}
	a.Stack = make([]types.Value, slots)
	for i := range a.Stack {
		if a.Stack[i], err = c.decodeValue(); err != nil {
			return a, err
		}
	}
	if a.PI, err = c.readParseInfo(); err != nil {
		return a, err
	}
	if a.Temp, err = c.decodeValue(); err != nil {
		return a, err
	}
	line, err := c.r.readLine()
	if err != nil {
		return a, err
	}
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return a, c.errf("pc line: expected 3 fields, got %d", len(fields))
	}
	ints, err := c.parseIntFields("pc line", fields)
	if err != nil {
		return a, err
	}
	a.PC, a.BiFunc, a.Error = int32(ints[0]), int32(ints[1]), int32(ints[2])
	if a.BiFunc != 0 {
		if a.FuncName, err = c.r.readLine(); err != nil {
			return a, err
		}
	}
	return a, nil
}

func (c *writeState) writeActivation(a Activation) error {
	if c.version >= DBVFloat {
		if err := c.w.writeLine(fmt.Sprintf("language version %d", a.LangVersion)); err != nil {
			return err
		}
	}
	if err := c.writeCodeBlock(a.Code); err != nil {
		return err
	}
	if err := c.writeRtEnv(a.RtEnv); err != nil {
		return err
	}
	if err := c.w.writeLine(fmt.Sprintf("%d rt_stack slots in use", len(a.Stack))); err != nil {
		return err
	}
	for _, v := range a.Stack {
		if err := c.encodeValue(v); err != nil {
			return err
		}
	}
	if err := c.writeParseInfo(a.PI); err != nil {
		return err
	}
	if err := c.encodeValue(orNone(a.Temp)); err != nil {
		return err
	}
	if err := c.w.writeLine(fmt.Sprintf("%d %d %d", a.PC, a.BiFunc, a.Error)); err != nil {
		return err
	}
	if a.BiFunc != 0 {
		if err := c.w.writeLine(a.FuncName); err != nil {
			return err
		}
	}
	return nil
}

// --- VM (§4.6) ---

func (c *loadCtx) readVM() (VM, error) {
	var vm VM
	if c.version >= DBVTaskLocal {
		locals, err := c.decodeValue()
		if err != nil {
			return vm, err
		}
		vm.Locals = locals
	} else {
		vm.Locals = types.NewMap(nil)
	}

	line, err := c.r.readLine()
	if err != nil {
		return vm, err
	}
	fields := strings.Fields(line)
	if len(fields) < 4 {
		return vm, c.errf("vm_header: expected 4 fields, got %d", len(fields))
	}
	ints, err := c.parseIntFields("vm_header", fields[:4])
	if err != nil {
		return vm, err
	}
	vm.Top, vm.Vector, vm.FuncID, vm.MaxStackframes = int32(ints[0]), int32(ints[1]), int32(ints[2]), int32(ints[3])

	vm.Stack = make([]Activation, vm.Top+1)
	for i := range vm.Stack {
		if vm.Stack[i], err = c.readActivation(); err != nil {
			return vm, err
		}
	}
	return vm, nil
}

func (c *writeState) writeVM(vm VM) error {
	if c.version >= DBVTaskLocal {
		locals := vm.Locals
		if locals == nil {
			locals = types.NewMap(nil)
		}
		if err := c.encodeValue(locals); err != nil {
			return err
		}
	}
	if err := c.w.writeLine(fmt.Sprintf("%d %d %d %d", vm.Top, vm.Vector, vm.FuncID, vm.MaxStackframes)); err != nil {
		return err
	}
	for _, a := range vm.Stack {
		if err := c.writeActivation(a); err != nil {
			return err
		}
	}
	return nil
}

// --- queued / suspended / interrupted tasks ---

func (c *loadCtx) readQueuedTasks() ([]QueuedTask, error) {
	count, err := c.readCountTemplate("queued tasks")
	if err != nil {
		return nil, err
	}
	tasks := make([]QueuedTask, count)
	for i := range tasks {
		if tasks[i], err = c.readQueuedTask(); err != nil {
			return nil, err
		}
	}
	return tasks, nil
}

func (c *loadCtx) readQueuedTask() (QueuedTask, error) {
	var t QueuedTask
	line, err := c.r.readLine()
	if err != nil {
		return t, err
	}
	fields := strings.Fields(line)
	if len(fields) != 4 {
		return t, c.errf("task_header: expected 4 fields, got %d", len(fields))
	}
	ints, err := c.parseIntFields("task_header", fields)
	if err != nil {
		return t, err
	}
	t.Unused, t.FirstLineno, t.ScheduledAt, t.ID = int32(ints[0]), int32(ints[1]), ints[2], ints[3]

	if t.Activation, err = c.readParseInfo(); err != nil {
		return t, err
	}
	if t.RtEnv, err = c.readRtEnv(); err != nil {
		return t, err
	}
	if t.Code, err = c.readCodeBlock(); err != nil {
		return t, err
	}
	return t, nil
}

func (c *writeState) writeQueuedTasks(tasks []QueuedTask) error {
	if err := c.w.writeLine(fmt.Sprintf("%d queued tasks", len(tasks))); err != nil {
		return err
	}
	for _, t := range tasks {
		if err := c.writeQueuedTask(t); err != nil {
			return err
		}
	}
	return nil
}

func (c *writeState) writeQueuedTask(t QueuedTask) error {
	if err := c.w.writeLine(fmt.Sprintf("%d %d %d %d", t.Unused, t.FirstLineno, t.ScheduledAt, t.ID)); err != nil {
		return err
	}
	if err := c.writeParseInfo(t.Activation); err != nil {
		return err
	}
	if err := c.writeRtEnv(t.RtEnv); err != nil {
		return err
	}
	return c.writeCodeBlock(t.Code)
}

func (c *loadCtx) readSuspendedTasks() ([]SuspendedTask, error) {
	count, err := c.readCountTemplate("suspended tasks")
	if err != nil {
		return nil, err
	}
	tasks := make([]SuspendedTask, count)
	for i := range tasks {
		if tasks[i], err = c.readSuspendedTask(); err != nil {
			return nil, err
		}
	}
	return tasks, nil
}

func (c *loadCtx) readSuspendedTask() (SuspendedTask, error) {
	var t SuspendedTask
	line, err := c.r.readLine()
	if err != nil {
		return t, err
	}
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return t, c.errf("suspended_task_header: expected at least 2 fields, got %d", len(fields))
	}
	ints, err := c.parseIntFields("suspended_task_header", fields[:2])
	if err != nil {
		return t, err
	}
	t.StartTime, t.ID = ints[0], ints[1]
	if len(fields) >= 3 {
		tag, err := strconv.Atoi(fields[2])
		if err != nil {
			return t, c.errf("suspended_task_header: field 2 not an integer: %q", fields[2])
		}
		t.HasValue = true
		if t.Value, err = c.decodeValueTag(tag); err != nil {
			return t, err
		}
	}
	if t.VM, err = c.readVM(); err != nil {
		return t, err
	}
	return t, nil
}

func (c *writeState) writeSuspendedTasks(tasks []SuspendedTask) error {
	if err := c.w.writeLine(fmt.Sprintf("%d suspended tasks", len(tasks))); err != nil {
		return err
	}
	for _, t := range tasks {
		if err := c.writeSuspendedTask(t); err != nil {
			return err
		}
	}
	return nil
}

func (c *writeState) writeSuspendedTask(t SuspendedTask) error {
	if t.HasValue {
		tag := tagOf(t.Value)
		if err := c.w.writeLine(fmt.Sprintf("%d %d %d", t.StartTime, t.ID, tag)); err != nil {
			return err
		}
		if err := c.encodeValueBody(t.Value); err != nil {
			return err
		}
	} else {
		if err := c.w.writeLine(fmt.Sprintf("%d %d", t.StartTime, t.ID)); err != nil {
			return err
		}
	}
	return c.writeVM(t.VM)
}

func (c *loadCtx) readInterruptedTasks() ([]InterruptedTask, error) {
	count, err := c.readCountTemplate("interrupted tasks")
	if err != nil {
		return nil, err
	}
	tasks := make([]InterruptedTask, count)
	for i := range tasks {
		if tasks[i], err = c.readInterruptedTask(); err != nil {
			return nil, err
		}
	}
	return tasks, nil
}

func (c *loadCtx) readInterruptedTask() (InterruptedTask, error) {
	var t InterruptedTask
	line, err := c.r.readLine()
	if err != nil {
		return t, err
	}
	fields := strings.SplitN(strings.TrimSpace(line), " ", 2)
	if len(fields) < 1 || fields[0] == "" {
		return t, c.errf("interrupted_task_header: missing task id")
	}
	id, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return t, c.errf("interrupted_task_header: field 0 not an integer: %q", fields[0])
	}
	t.ID = id
	if len(fields) == 2 {
		t.Status = fields[1]
	}
	if t.VM, err = c.readVM(); err != nil {
		return t, err
	}
	return t, nil
}

func (c *writeState) writeInterruptedTasks(tasks []InterruptedTask) error {
	if err := c.w.writeLine(fmt.Sprintf("%d interrupted tasks", len(tasks))); err != nil {
		return err
	}
	for _, t := range tasks {
		if err := c.w.writeLine(fmt.Sprintf("%d %s", t.ID, t.Status)); err != nil {
			return err
		}
		if err := c.writeVM(t.VM); err != nil {
			return err
		}
	}
	return nil
}

// --- connections ---

func (c *loadCtx) readConnections() ([]Connection, error) {
	line, err := c.r.readLine()
	if err != nil {
		return nil, err
	}
	withListeners := strings.HasSuffix(line, "with listeners")
	countStr := strings.TrimSuffix(strings.TrimSpace(strings.TrimSuffix(line, "with listeners")), "active connections")
	count, err := strconv.Atoi(strings.TrimSpace(countStr))
	if err != nil {
		return nil, c.errf("connection_count: malformed %q", line)
	}
	conns := make([]Connection, count)
	for i := range conns {
		l, err := c.r.readLine()
		if err != nil {
			return nil, err
		}
		fields := strings.Fields(l)
		if len(fields) < 1 {
			return nil, c.errf("connection line: expected at least 1 field, got 0")
		}
		who, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			return nil, c.errf("connection line: field 0 not an integer: %q", fields[0])
		}
		conns[i].Who = who
		if withListeners && len(fields) >= 2 {
			listener, err := strconv.ParseInt(fields[1], 10, 64)
			if err != nil {
				return nil, c.errf("connection line: field 1 not an integer: %q", fields[1])
			}
			conns[i].Listener = listener
		}
	}
	return conns, nil
}

func (c *writeState) writeConnections(conns []Connection) error {
	if err := c.w.writeLine(fmt.Sprintf("%d active connections with listeners", len(conns))); err != nil {
		return err
	}
	for _, conn := range conns {
		if err := c.w.writeLine(fmt.Sprintf("%d %d", conn.Who, conn.Listener)); err != nil {
			return err
		}
	}
	return nil
}

// --- small template helpers ---

// readCountTemplate reads a line of the shape "{count} {suffix}".
func (c *loadCtx) readCountTemplate(suffix string) (int, error) {
	line, err := c.r.readLine()
	if err != nil {
		return 0, err
	}
	trimmed := strings.TrimSuffix(strings.TrimSpace(line), suffix)
	n, err := strconv.Atoi(strings.TrimSpace(trimmed))
	if err != nil {
		return 0, c.errf("expected \"{count} %s\", got %q", suffix, line)
	}
	return n, nil
}

// readCountTemplate2 reads a line of the shape "{prefix} {count}".
func (c *loadCtx) readCountTemplate2(prefix string) (int, error) {
	line, err := c.r.readLine()
	if err != nil {
		return 0, err
	}
	trimmed := strings.TrimPrefix(strings.TrimSpace(line), prefix)
	n, err := strconv.Atoi(strings.TrimSpace(trimmed))
	if err != nil {
		return 0, c.errf("expected \"%s {n}\", got %q", prefix, line)
	}
	return n, nil
}

func tagOf(v types.Value) int {
	switch v.(type) {
	case types.Int:
		return tagInt
	case types.ObjNum:
		return tagObjNum
	case types.Str:
		return tagStr
	case types.Err:
		return tagErr
	case types.List:
		return tagList
	case types.Clear:
		return tagClear
	case types.None:
		return tagNone
	case types.Catch:
		return tagCatch
	case types.Finally:
		return tagFinally
	case types.Float:
		return tagFloat
	case types.Map:
		return tagMap
	case types.Anon:
		return tagAnon
	case types.WaifRef:
		return tagWaif
	case types.Bool:
		return tagBool
	default:
		return tagNone
	}
}

// encodeValueBody writes a value's body only, without its leading type
// tag — used where the tag has already been written as part of a header
// (the suspended task's optional delivered value).
func (c *writeState) encodeValueBody(v types.Value) error {
	switch val := v.(type) {
	case types.Int:
		return c.w.writeInt(val.Val)
	case types.ObjNum:
		return c.w.writeInt(int64(val.ID))
	case types.Str:
		return c.w.writeLine(val.Val)
	case types.Err:
		return c.w.writeInt(int64(val.Code))
	case types.List:
		if err := c.w.writeInt(int64(len(val.Elems))); err != nil {
			return err
		}
		for _, e := range val.Elems {
			if err := c.encodeValue(e); err != nil {
				return err
			}
		}
		return nil
	case types.Catch:
		return c.w.writeInt(int64(val.Target))
	case types.Finally:
		return c.w.writeInt(int64(val.Target))
	case types.Float:
		return c.w.writeFloat(val.Val)
	case types.Map:
		if err := c.w.writeInt(int64(len(val.Pairs))); err != nil {
			return err
		}
		for _, p := range val.Pairs {
			if err := c.encodeValue(p.Key); err != nil {
				return err
			}
			if err := c.encodeValue(p.Val); err != nil {
				return err
			}
		}
		return nil
	case types.Anon:
		return c.w.writeInt(int64(val.ID))
	case types.WaifRef:
		return c.encodeWaif(val)
	case types.Bool:
		if val.Val {
			return c.w.writeInt(1)
		}
		return c.w.writeInt(0)
	default:
		return nil
	}
}
