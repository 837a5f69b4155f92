package gamedb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDialect(t *testing.T) {
	for in, want := range map[string]Dialect{"p6h": P6H, "T5X": T5X, " t6h ": T6H, "rhost": R7H} {
		d, err := ParseDialect(in)
		require.NoError(t, err)
		assert.Equal(t, want, d)
	}
	_, err := ParseDialect("diku")
	assert.Error(t, err)
	assert.True(t, T6H.Numeric())
	assert.False(t, P6H.Numeric())
}

func TestOptFill(t *testing.T) {
	var o Opt[int]
	donor := Some(5)
	o.Fill(&donor)
	assert.Equal(t, Some(5), o)
	assert.False(t, donor.Ok)

	kept := Some(1)
	other := Some(2)
	kept.Fill(&other)
	assert.Equal(t, 1, kept.V)
	assert.True(t, other.Ok)

	var zero Opt[string]
	assert.Equal(t, "dflt", zero.Or("dflt"))
	zero.Set("")
	v, ok := zero.Get()
	assert.True(t, ok)
	assert.Equal(t, "", v)
}

func TestObjectMerge(t *testing.T) {
	succNum, _ := BuiltinAttrNum(T5X, "SUCC")
	a := NewObject(3)
	a.Name.Set("First")
	a.SetAttr(A_DESC, "mine")

	b := NewObject(3)
	b.Name.Set("Second")
	b.Owner.Set(1)
	b.SetAttr(A_DESC, "theirs")
	b.SetAttr(succNum, "ok")

	db := NewDatabase(T5X)
	assert.False(t, db.AddObject(a))
	assert.True(t, db.AddObject(b))

	got := db.Objects[3]
	assert.Equal(t, "First", got.Name.V)
	assert.Equal(t, DBRef(1), got.Owner.V)
	desc, _ := got.Attr(A_DESC)
	assert.Equal(t, "mine", desc.Value)
	succ, ok := got.Attr(succNum)
	require.True(t, ok)
	assert.Equal(t, "ok", succ.Value)

	assert.Equal(t, "Second", b.Name.V)
	assert.False(t, b.Owner.Ok)
	require.Len(t, b.Attrs, 1)
	assert.Equal(t, "theirs", b.Attrs[0].Value)
}

func TestAttrDefs(t *testing.T) {
	db := NewDatabase(T5X)
	db.AddAttrDef(256, "Foo", 0)
	db.AddAttrDef(256, "Bar", 4)

	require.Len(t, db.AttrNames, 1)
	def, ok := db.AttrDefByName("bar")
	require.True(t, ok)
	assert.Equal(t, 4, def.Flags)
	_, ok = db.AttrDefByName("foo")
	assert.False(t, ok)

	assert.Equal(t, "Bar", db.AttrName(256))
	assert.Equal(t, "DESC", db.AttrName(A_DESC))
	assert.Equal(t, "LSPEECH", db.AttrName(T5XSpeechLock))

	db.AttrNames = []*AttrDef{{Number: 300, Name: "Baz"}}
	db.Reindex()
	_, ok = db.AttrDef(256)
	assert.False(t, ok)
	assert.Equal(t, "Baz", db.AttrName(300))
}

func TestMaxUserAttr(t *testing.T) {
	db := NewDatabase(T6H)
	assert.Equal(t, 0, db.MaxUserAttr())
	db.AddAttrDef(260, "A", 0)
	o := NewObject(0)
	o.SetAttr(270, "x")
	o.SetAttr(A_DESC, "y")
	db.AddObject(o)
	assert.Equal(t, 270, db.MaxUserAttr())
	assert.Equal(t, DBRef(0), db.MaxRef())
}

func TestHeaderWord(t *testing.T) {
	db := NewDatabase(T5X)
	db.Version = 3
	db.Flags = VZone | VLink | VQuoted
	assert.Equal(t, 3|VZone|VLink|VQuoted, db.Header())
	assert.True(t, db.Has(VQuoted))
	assert.False(t, db.Has(VAtrKey))
}

func TestFlagTables(t *testing.T) {
	for _, d := range []Dialect{T5X, T6H, R7H} {
		seen := map[string]bool{}
		for _, b := range FlagBits(d) {
			assert.False(t, seen[b.Name], "%s: duplicate flag %s", d, b.Name)
			seen[b.Name] = true
			assert.Less(t, b.Word, FlagWords(d), "%s: %s", d, b.Name)
			if b.Word == 0 {
				assert.Zero(t, b.Mask&TypeMask, "%s: %s overlaps type bits", d, b.Name)
			}
		}
	}

	w, ok := LookupBit(FlagBits(T5X), "WIZARD")
	require.True(t, ok)
	assert.Equal(t, NamedBit{"WIZARD", 0, FlagWizard}, w)

	assert.Equal(t, uint32(0x00200000), Residual(FlagBits(T5X), 1, 0x00200001, 0))
	assert.Equal(t, uint32(0), Residual(FlagBits(T5X), 0, uint32(TypePlayer)|FlagWizard, TypeMask))
}

func TestBoolExpRefs(t *testing.T) {
	n := NewBinary(BoolAnd,
		NewUnary(BoolIs, NewRef(4)),
		NewBinary(BoolAttr, NewRef(300), NewText("x")))
	assert.Equal(t, []DBRef{4}, n.Refs())
	assert.True(t, n.Equal(NewBinary(BoolAnd,
		NewUnary(BoolIs, NewRef(4)),
		NewBinary(BoolAttr, NewRef(300), NewText("x")))))
	assert.False(t, n.Equal(nil))
}

func TestLockSlots(t *testing.T) {
	assert.True(t, IsLockAttr(T5X, A_LENTER))
	assert.True(t, IsLockAttr(T5X, T5XSpeechLock))
	assert.False(t, IsLockAttr(T6H, T5XSpeechLock))
	assert.False(t, IsLockAttr(T5X, A_DESC))
	num, ok := BuiltinAttrNum(R7H, "ldark")
	require.True(t, ok)
	assert.True(t, IsLockAttr(R7H, num))
}
