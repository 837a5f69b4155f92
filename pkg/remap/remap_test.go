package remap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crystal-mush/omega/pkg/gamedb"
	"github.com/crystal-mush/omega/pkg/penndb"
)

func TestTablesHaveNoOverlappingNames(t *testing.T) {
	tables := map[string]Table{
		"penn flags":      PennFlags,
		"penn powers":     PennPowers,
		"penn lock flags": PennLockFlags,
		"penn attr flags": PennAttrFlags,
	}
	for name, tbl := range tables {
		assert.Empty(t, Overlaps(tbl), name)
	}
}

func TestOverlapsDetectsSubstrings(t *testing.T) {
	tbl := Table{{"QUOTA", 0, 1}, {"NO_QUOTA", 0, 2}, {"BOOT", 0, 4}}
	assert.Equal(t, [][2]string{{"QUOTA", "NO_QUOTA"}}, Overlaps(tbl))
}

func TestFromText(t *testing.T) {
	words := make([]uint32, 3)
	FromText(PennFlags, "wizard Dark colour NO_COMMAND", PennAliases, words)
	assert.Equal(t, uint32(gamedb.FlagWizard|gamedb.FlagDark), words[0])
	assert.Equal(t, uint32(0x00000200|0x00002000), words[1])
	assert.Zero(t, words[2])
}

func TestAliasesApplyToWholeWords(t *testing.T) {
	words := make([]uint32, 2)
	FromText(PennFlags, "TRUST", PennAliases, words)
	assert.Equal(t, uint32(gamedb.FlagInherit), words[0])

	words = make([]uint32, 2)
	FromText(PennFlags, "MISTRUST", PennAliases, words)
	assert.Zero(t, words[0])
}

func TestUnmatched(t *testing.T) {
	got := Unmatched(PennFlags, "WIZARD HEAVY trust ORPHAN", PennAliases)
	assert.Equal(t, []string{"HEAVY", "ORPHAN"}, got)
}

func TestToText(t *testing.T) {
	words := []uint32{gamedb.FlagWizard | gamedb.FlagSeeThru, 0x00000200}
	assert.Equal(t, "TRANSPARENT WIZARD ANSI", ToText(PennFlags, words))
	assert.Equal(t, "", ToText(PennFlags, []uint32{0, 0}))
}

func TestFlagRemapSymmetry(t *testing.T) {
	for _, tbl := range []Table{PennFlags, PennPowers, PennAttrFlags, PennLockFlags} {
		in := make([]uint32, tbl.Words())
		for w := range in {
			in[w] = 0xffffffff
		}
		out := make([]uint32, len(in))
		FromText(tbl, ToText(tbl, in), nil, out)
		for w := range in {
			assert.Equal(t, in[w]&tbl.Mask(w), out[w])
		}
	}
}

func TestBridgePairsByName(t *testing.T) {
	b := NewBridge(gamedb.R7H, gamedb.T5X, KindFlags)
	ansi, _ := gamedb.LookupBit(gamedb.FlagBits(gamedb.T5X), "ANSI")
	staff, _ := gamedb.LookupBit(gamedb.FlagBits(gamedb.T5X), "STAFF")

	src := []uint32{gamedb.FlagWizard, 0x00080000 | 0x00000100, 0x00000800, 0}
	dst, lost := b.Apply(src, 3)
	assert.Equal(t, uint32(gamedb.FlagWizard), dst[0])
	assert.Equal(t, ansi.Mask, dst[ansi.Word]&ansi.Mask, "ANSICOLOR is renamed onto ANSI")
	assert.NotZero(t, dst[staff.Word]&staff.Mask)
	// ADMIN has no TinyMUX counterpart.
	assert.Equal(t, []uint32{0, 0x00000100, 0, 0}, lost)
}

func TestReverseBridgePairsByName(t *testing.T) {
	cases := []struct {
		to   gamedb.Dialect
		name string
	}{
		{gamedb.R7H, "ANSI"},
		{gamedb.T6H, "MONITOR"},
	}
	for _, tc := range cases {
		mux, ok := gamedb.LookupBit(gamedb.FlagBits(gamedb.T5X), tc.name)
		require.True(t, ok)
		want, ok := gamedb.LookupBit(gamedb.FlagBits(tc.to), tc.name)
		require.True(t, ok)

		src := make([]uint32, gamedb.FlagWords(gamedb.T5X))
		src[mux.Word] = mux.Mask
		dst, lost := NewBridge(gamedb.T5X, tc.to, KindFlags).Apply(src, gamedb.FlagWords(tc.to))
		assert.Equal(t, want.Mask, dst[want.Word], "%s onto %s", tc.name, tc.to)
		assert.Zero(t, lost[mux.Word])
	}
}

func TestBridgeRoundTripKeepsSharedBits(t *testing.T) {
	for _, d := range []gamedb.Dialect{gamedb.T6H, gamedb.R7H} {
		for _, k := range []Kind{KindFlags, KindPowers, KindAttrFlags} {
			there := NewBridge(d, gamedb.T5X, k)
			back := NewBridge(gamedb.T5X, d, k)
			bits := namedBits(d, k)
			src := make([]uint32, gamedb.FlagWords(d))
			for _, b := range bits {
				src[b.Word] |= b.Mask
			}
			mid, _ := there.Apply(src, gamedb.FlagWords(gamedb.T5X))
			out, _ := back.Apply(mid, len(src))
			ren := renames[[2]gamedb.Dialect{d, gamedb.T5X}][k]
			for _, p := range there.Pairs {
				if _, renamed := ren[p.Name]; !renamed {
					assert.NotZero(t, out[p.FromWord]&p.FromMask, "%s %s %s", d, k, p.Name)
				}
			}
		}
	}
}

func TestTypeMaps(t *testing.T) {
	assert.Equal(t, int(gamedb.TypeRoom), PennToMUX.Map(penndb.TypeRoom))
	assert.Equal(t, int(gamedb.TypePlayer), PennToMUX.Map(penndb.TypePlayer))
	assert.Equal(t, NoType, PennToMUX.Map(penndb.TypeGarbage))
	assert.Equal(t, NoType, PennToMUX.Map(3))
	assert.Equal(t, NoType, PennToMUX.Map(99))

	for _, typ := range []int{penndb.TypeRoom, penndb.TypeThing, penndb.TypeExit, penndb.TypePlayer} {
		assert.Equal(t, typ, MUXToPenn.Map(PennToMUX.Map(typ)))
	}
	assert.Equal(t, NoType, NumericTypes(gamedb.T6H, gamedb.T5X).Map(int(gamedb.TypeZone)))
	assert.Equal(t, 3, NumericTypes(gamedb.T5X, gamedb.T5X).Map(3))
}

func TestPennLockAttrs(t *testing.T) {
	n, ok := PennLockAttr("basic")
	require.True(t, ok)
	assert.Equal(t, gamedb.A_LOCK, n)

	typ, ok := PennLockType(gamedb.A_LENTER)
	require.True(t, ok)
	assert.Equal(t, "Enter", typ)

	_, ok = PennLockAttr("Zone")
	assert.False(t, ok)
}
