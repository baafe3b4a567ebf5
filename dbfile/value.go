package dbfile

import (
	"fmt"
	"strconv"
	"strings"

	"moodb/types"
)

// Value type tags, matching the file format exactly (including the
// historical gap at 11).
const (
	tagInt     = 0
	tagObjNum  = 1
	tagStr     = 2
	tagErr     = 3
	tagList    = 4
	tagClear   = 5
	tagNone    = 6
	tagCatch   = 7
	tagFinally = 8
	tagFloat   = 9
	tagMap     = 10
	tagAnon    = 12
	tagWaif    = 13
	tagBool    = 14
)

// loadCtx threads the state a recursive value decode needs: the line
// reader, the feature-version gates in effect, and the Database being
// built (values can register new waif bodies as they are discovered).
type loadCtx struct {
	r       *reader
	version int
	db      *Database
}

func (c *loadCtx) errf(format string, args ...any) error {
	return c.r.errf(format, args...)
}

// decodeValue reads a type tag and dispatches on it.
func (c *loadCtx) decodeValue() (types.Value, error) {
	tag, err := c.r.readInt()
	if err != nil {
		return nil, err
	}
	return c.decodeValueTag(int(tag))
}

// decodeValueTag decodes a value whose tag has already been read (used
// when the tag is embedded in a header line, e.g. a suspended task's
// optional delivered value).
func (c *loadCtx) decodeValueTag(tag int) (types.Value, error) {
	switch tag {
	case tagInt:
		v, err := c.r.readInt()
		if err != nil {
			return nil, err
		}
		return types.NewInt(v), nil

	case tagObjNum:
		v, err := c.r.readInt()
		if err != nil {
			return nil, err
		}
		return types.NewObjNum(types.ObjID(v)), nil

	case tagStr:
		s, err := c.r.readLine()
		if err != nil {
			return nil, err
		}
		return types.NewStr(s), nil

	case tagErr:
		v, err := c.r.readInt()
		if err != nil {
			return nil, err
		}
		return types.NewErr(types.ErrCode(v)), nil

	case tagList:
		count, err := c.r.readInt()
		if err != nil {
			return nil, err
		}
		elems := make([]types.Value, count)
		for i := range elems {
			elems[i], err = c.decodeValue()
			if err != nil {
				return nil, err
			}
		}
		return types.NewList(elems), nil

	case tagClear:
		return types.Clear{}, nil

	case tagNone:
		return types.None{}, nil

	case tagCatch:
		v, err := c.r.readInt()
		if err != nil {
			return nil, err
		}
		return types.Catch{Target: int32(v)}, nil

	case tagFinally:
		v, err := c.r.readInt()
		if err != nil {
			return nil, err
		}
		return types.Finally{Target: int32(v)}, nil

	case tagFloat:
		v, err := c.r.readFloat()
		if err != nil {
			return nil, err
		}
		return types.NewFloat(v), nil

	case tagMap:
		count, err := c.r.readInt()
		if err != nil {
			return nil, err
		}
		pairs := make([]types.Pair, count)
		for i := range pairs {
			k, err := c.decodeValue()
			if err != nil {
				return nil, err
			}
			v, err := c.decodeValue()
			if err != nil {
				return nil, err
			}
			pairs[i] = types.Pair{Key: k, Val: v}
		}
		return types.NewMap(pairs), nil

	case tagAnon:
		v, err := c.r.readInt()
		if err != nil {
			return nil, err
		}
		if v == -1 {
			return nil, c.errf("anonymous object id -1 is reserved")
		}
		return types.NewAnon(types.ObjID(v)), nil

	case tagWaif:
		return c.decodeWaif()

	case tagBool:
		if c.version < DBVBool {
			return nil, c.errf("BOOL value requires format version %d+", DBVBool)
		}
		v, err := c.r.readInt()
		if err != nil {
			return nil, err
		}
		return types.NewBool(v != 0), nil

	default:
		return nil, c.errf("unknown value type tag %d", tag)
	}
}

// decodeWaif implements the waif state machine of §4.9: expect-header,
// read-body (first occurrence only), read-terminator.
func (c *loadCtx) decodeWaif() (types.Value, error) {
	header, err := c.r.readLine()
	if err != nil {
		return nil, err
	}
	flag, indexStr, ok := splitWaifHeader(header)
	if !ok {
		return nil, c.errf("malformed waif header %q", header)
	}
	index64, err := strconv.ParseInt(indexStr, 10, 64)
	if err != nil {
		return nil, c.errf("malformed waif index %q", indexStr)
	}
	index := int(index64)

	switch flag {
	case 'r':
		if index < 0 || index >= len(c.db.Waifs) {
			return nil, c.errf("waif reference %d has no prior definition", index)
		}
		if _, err := c.r.readLine(); err != nil { // terminator
			return nil, err
		}
		return types.NewWaifRef(index), nil

	case 'c':
		class, err := c.r.readInt()
		if err != nil {
			return nil, err
		}
		owner, err := c.r.readInt()
		if err != nil {
			return nil, err
		}
		propdefsLen, err := c.r.readInt()
		if err != nil {
			return nil, err
		}

		byIndex := make(map[int]types.Value)
		for {
			propIdx, err := c.r.readInt()
			if err != nil {
				return nil, err
			}
			if propIdx < 0 || propIdx >= waifMaxProps {
				break
			}
			val, err := c.decodeValue()
			if err != nil {
				return nil, err
			}
			byIndex[int(propIdx)] = val
		}
		if _, err := c.r.readLine(); err != nil { // terminator
			return nil, err
		}

		propValues := make([]types.Value, propdefsLen)
		for i := range propValues {
			if v, ok := byIndex[i]; ok {
				propValues[i] = v
			} else {
				propValues[i] = types.Clear{}
			}
		}

		waif := types.Waif{Class: types.ObjID(class), Owner: types.ObjID(owner), PropValues: propValues}
		if index != len(c.db.Waifs) {
			return nil, c.errf("waif index %d out of sequence (expected %d)", index, len(c.db.Waifs))
		}
		c.db.Waifs = append(c.db.Waifs, waif)
		return types.NewWaifRef(index), nil

	default:
		return nil, c.errf("unknown waif flag %q", string(flag))
	}
}

// waifMaxProps bounds the sparse prop_index loop in a waif body: a
// following index outside [0, 96) terminates the property list.
const waifMaxProps = 96

func splitWaifHeader(s string) (flag byte, rest string, ok bool) {
	s = strings.TrimSpace(s)
	if len(s) == 0 {
		return 0, "", false
	}
	flag = s[0]
	if flag != 'c' && flag != 'r' {
		return 0, "", false
	}
	rest = strings.TrimSpace(s[1:])
	return flag, rest, true
}

// writeState threads the state a recursive value encode needs: the line
// writer, the feature-version gates in effect, the Database being
// written, and the set of waif indices already emitted in full. A waif
// index is only ever written with its body once — on first encounter —
// and as a bare reference thereafter, which is what distinguishes flag
// 'c' from flag 'r'.
type writeState struct {
	w           *writer
	version     int
	db          *Database
	waifWritten map[int]bool
}

func newWriteState(w *writer, version int, db *Database) *writeState {
	return &writeState{w: w, version: version, db: db, waifWritten: make(map[int]bool)}
}

func (c *writeState) encodeValue(v types.Value) error {
	if v == nil {
		v = types.None{}
	}
	switch val := v.(type) {
	case types.Int:
		if err := c.w.writeInt(tagInt); err != nil {
			return err
		}
		return c.w.writeInt(val.Val)

	case types.ObjNum:
		if err := c.w.writeInt(tagObjNum); err != nil {
			return err
		}
		return c.w.writeInt(int64(val.ID))

	case types.Str:
		if err := c.w.writeInt(tagStr); err != nil {
			return err
		}
		return c.w.writeLine(val.Val)

	case types.Err:
		if err := c.w.writeInt(tagErr); err != nil {
			return err
		}
		return c.w.writeInt(int64(val.Code))

	case types.List:
		if err := c.w.writeInt(tagList); err != nil {
			return err
		}
		if err := c.w.writeInt(int64(len(val.Elems))); err != nil {
			return err
		}
		for _, e := range val.Elems {
			if err := c.encodeValue(e); err != nil {
				return err
			}
		}
		return nil

	case types.Clear:
		return c.w.writeInt(tagClear)

	case types.None:
		return c.w.writeInt(tagNone)

	case types.Catch:
		if err := c.w.writeInt(tagCatch); err != nil {
			return err
		}
		return c.w.writeInt(int64(val.Target))

	case types.Finally:
		if err := c.w.writeInt(tagFinally); err != nil {
			return err
		}
		return c.w.writeInt(int64(val.Target))

	case types.Float:
		if err := c.w.writeInt(tagFloat); err != nil {
			return err
		}
		return c.w.writeFloat(val.Val)

	case types.Map:
		if err := c.w.writeInt(tagMap); err != nil {
			return err
		}
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
		if err := c.w.writeInt(tagAnon); err != nil {
			return err
		}
		return c.w.writeInt(int64(val.ID))

	case types.WaifRef:
		if err := c.w.writeInt(tagWaif); err != nil {
			return err
		}
		return c.encodeWaif(val)

	case types.Bool:
		if err := c.w.writeInt(tagBool); err != nil {
			return err
		}
		if val.Val {
			return c.w.writeInt(1)
		}
		return c.w.writeInt(0)

	default:
		return fmt.Errorf("dbfile: unencodable value of type %T", v)
	}
}

func (c *writeState) encodeWaif(ref types.WaifRef) error {
	if ref.Index < 0 || ref.Index >= len(c.db.Waifs) {
		return fmt.Errorf("dbfile: waif reference %d has no body in database", ref.Index)
	}
	if c.waifWritten[ref.Index] {
		if err := c.w.writeLine(fmt.Sprintf("r %d", ref.Index)); err != nil {
			return err
		}
		return c.w.writeLine(".")
	}
	c.waifWritten[ref.Index] = true

	waif := c.db.Waifs[ref.Index]
	if err := c.w.writeLine(fmt.Sprintf("c %d", ref.Index)); err != nil {
		return err
	}
	if err := c.w.writeInt(int64(waif.Class)); err != nil {
		return err
	}
	if err := c.w.writeInt(int64(waif.Owner)); err != nil {
		return err
	}
	if err := c.w.writeInt(int64(len(waif.PropValues))); err != nil {
		return err
	}
	for i, pv := range waif.PropValues {
		if _, isClear := pv.(types.Clear); isClear || pv == nil {
			continue
		}
		if err := c.w.writeInt(int64(i)); err != nil {
			return err
		}
		if err := c.encodeValue(pv); err != nil {
			return err
		}
	}
	if err := c.w.writeInt(-1); err != nil {
		return err
	}
	return c.w.writeLine(".")
}
