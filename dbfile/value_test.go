package dbfile

import (
	"bytes"
	"testing"

	"moodb/types"
)

func roundTripValue(t *testing.T, version int, v types.Value) types.Value {
	t.Helper()
	var buf bytes.Buffer
	w := newWriter(&buf)
	ws := newWriteState(w, version, &Database{Objects: make(map[types.ObjID]*Object)})
	if err := ws.encodeValue(v); err != nil {
		t.Fatalf("encodeValue(%v): %v", v, err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	r := newReader(&buf, "test")
	lc := &loadCtx{r: r, version: version, db: &Database{Objects: make(map[types.ObjID]*Object)}}
	got, err := lc.decodeValue()
	if err != nil {
		t.Fatalf("decodeValue: %v", err)
	}
	return got
}

func TestValueRoundTrip(t *testing.T) {
	cases := []types.Value{
		types.NewInt(42),
		types.NewInt(-17),
		types.NewObjNum(types.ObjID(7)),
		types.NewStr("hello, world"),
		types.NewErr(types.ErrCode(1)),
		types.NewList([]types.Value{types.NewInt(1), types.NewStr("x"), types.Clear{}}),
		types.Clear{},
		types.None{},
		types.Catch{Target: 3},
		types.Finally{Target: 4},
		types.NewFloat(3.25),
		types.NewMap([]types.Pair{{Key: types.NewStr("a"), Val: types.NewInt(1)}}),
		types.NewAnon(types.ObjID(9)),
	}
	for _, v := range cases {
		got := roundTripValue(t, FormatVersion17, v)
		if !got.Equal(v) {
			t.Errorf("round trip of %v (%s): got %v (%s)", v, v.Kind(), got, got.Kind())
		}
	}
}

func TestBoolRoundTripRequiresDBVBool(t *testing.T) {
	got := roundTripValue(t, FormatVersion17, types.NewBool(true))
	if !got.Equal(types.NewBool(true)) {
		t.Fatalf("bool round trip failed: got %v", got)
	}

	r := newReader(bytes.NewBufferString("14\n1\n"), "test")
	lc := &loadCtx{r: r, version: DBVBool - 1, db: &Database{Objects: make(map[types.ObjID]*Object)}}
	if _, err := lc.decodeValue(); err == nil {
		t.Fatal("expected error decoding BOOL below DBVBool, got nil")
	}
}

func TestWaifRoundTripFirstOccurrenceThenReference(t *testing.T) {
	var buf bytes.Buffer
	w := newWriter(&buf)
	db := &Database{Objects: make(map[types.ObjID]*Object)}
	db.Waifs = append(db.Waifs, types.Waif{
		Class:      1,
		Owner:      2,
		PropValues: []types.Value{types.NewInt(5), types.Clear{}, types.NewStr("hi")},
	})
	ws := newWriteState(w, FormatVersion17, db)
	ref := types.NewWaifRef(0)

	if err := ws.encodeValue(ref); err != nil {
		t.Fatalf("encodeValue first occurrence: %v", err)
	}
	if err := ws.encodeValue(ref); err != nil {
		t.Fatalf("encodeValue second occurrence: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	r := newReader(&buf, "test")
	lc := &loadCtx{r: r, version: FormatVersion17, db: &Database{Objects: make(map[types.ObjID]*Object)}}

	first, err := lc.decodeValue()
	if err != nil {
		t.Fatalf("decode first: %v", err)
	}
	firstRef, ok := first.(types.WaifRef)
	if !ok {
		t.Fatalf("expected WaifRef, got %T", first)
	}
	if len(lc.db.Waifs) != 1 {
		t.Fatalf("expected 1 waif registered after first occurrence, got %d", len(lc.db.Waifs))
	}

	second, err := lc.decodeValue()
	if err != nil {
		t.Fatalf("decode second: %v", err)
	}
	secondRef, ok := second.(types.WaifRef)
	if !ok {
		t.Fatalf("expected WaifRef, got %T", second)
	}
	if secondRef.Index != firstRef.Index {
		t.Errorf("reference occurrence index %d != first occurrence index %d", secondRef.Index, firstRef.Index)
	}
	if len(lc.db.Waifs) != 1 {
		t.Fatalf("expected no new waif registered on reference occurrence, got %d total", len(lc.db.Waifs))
	}
}

func TestDecodeAnonRejectsMinusOne(t *testing.T) {
	var buf bytes.Buffer
	w := newWriter(&buf)
	if err := w.writeInt(tagAnon); err != nil {
		t.Fatal(err)
	}
	if err := w.writeInt(-1); err != nil {
		t.Fatal(err)
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}
	r := newReader(&buf, "test")
	lc := &loadCtx{r: r, version: FormatVersion17, db: &Database{Objects: make(map[types.ObjID]*Object)}}
	if _, err := lc.decodeValue(); err == nil {
		t.Fatal("expected error decoding anonymous object id -1, got nil")
	}
}
