package remap

import "github.com/crystal-mush/omega/pkg/gamedb"

// Kind selects which family of words a bridge carries.
type Kind int

const (
	KindFlags Kind = iota
	KindPowers
	KindAttrFlags
)

func (k Kind) String() string {
	switch k {
	case KindFlags:
		return "flags"
	case KindPowers:
		return "powers"
	case KindAttrFlags:
		return "attribute flags"
	}
	return "unknown"
}

func namedBits(d gamedb.Dialect, k Kind) []gamedb.NamedBit {
	switch k {
	case KindFlags:
		return gamedb.FlagBits(d)
	case KindPowers:
		return gamedb.PowerBits(d)
	case KindAttrFlags:
		return gamedb.AttrFlagBits(d)
	}
	return nil
}

// Pair moves one source bit onto one destination bit.
type Pair struct {
	Name     string
	FromWord int
	FromMask uint32
	ToWord   int
	ToMask   uint32
}

// Bridge maps the words of one numeric dialect onto another's.
type Bridge struct {
	From, To gamedb.Dialect
	Kind     Kind
	Pairs    []Pair
}

// renames lists source names filed under a different destination name,
// keyed by source dialect, destination dialect and kind. The renames fold two
// source bits onto one TinyMUX bit, so they only run toward TinyMUX: RhostMUSH
// and TinyMUSH both have ANSI and MONITOR bits of their own, and the reverse
// bridges pair those by name.
var renames = map[[2]gamedb.Dialect]map[Kind]map[string]string{
	{gamedb.R7H, gamedb.T5X}: {
		KindFlags: {"ANSICOLOR": "ANSI"},
	},
	{gamedb.T6H, gamedb.T5X}: {
		KindFlags: {"WATCHER": "MONITOR"},
	},
}

// NewBridge pairs every bit of from's table with the same-named (or renamed)
// bit of to's table. Bits whose name the destination lacks are not paired.
func NewBridge(from, to gamedb.Dialect, k Kind) *Bridge {
	b := &Bridge{From: from, To: to, Kind: k}
	dst := namedBits(to, k)
	ren := renames[[2]gamedb.Dialect{from, to}][k]
	for _, src := range namedBits(from, k) {
		name := src.Name
		if r, ok := ren[name]; ok {
			name = r
		}
		if d, ok := gamedb.LookupBit(dst, name); ok {
			b.Pairs = append(b.Pairs, Pair{
				Name:     src.Name,
				FromWord: src.Word,
				FromMask: src.Mask,
				ToWord:   d.Word,
				ToMask:   d.Mask,
			})
		}
	}
	return b
}

// Apply returns the destination words for src. Bits with no pair are
// returned in lost, indexed by source word.
func (b *Bridge) Apply(src []uint32, dstWords int) (dst []uint32, lost []uint32) {
	dst = make([]uint32, dstWords)
	lost = make([]uint32, len(src))
	copy(lost, src)
	for _, p := range b.Pairs {
		if p.FromWord >= len(src) || p.ToWord >= dstWords {
			continue
		}
		if src[p.FromWord]&p.FromMask != 0 {
			dst[p.ToWord] |= p.ToMask
			lost[p.FromWord] &^= p.FromMask
		}
	}
	return dst, lost
}
