package remap

import (
	"github.com/crystal-mush/omega/pkg/gamedb"
	"github.com/crystal-mush/omega/pkg/penndb"
)

// NoType marks a source type with no destination equivalent. Objects of
// such a type are dropped from the converted database.
const NoType = -1

// TypeMap maps source type codes onto destination codes. Codes outside the
// array map to NoType.
type TypeMap []int

// Map returns the destination code for t.
func (m TypeMap) Map(t int) int {
	if t < 0 || t >= len(m) {
		return NoType
	}
	return m[t]
}

func pennTypeMap(pairs map[int]int, size int) TypeMap {
	m := make(TypeMap, size)
	for i := range m {
		m[i] = NoType
	}
	for from, to := range pairs {
		m[from] = to
	}
	return m
}

var (
	// PennToMUX is indexed by the PennMUSH type bit.
	PennToMUX = pennTypeMap(map[int]int{
		penndb.TypeRoom:   int(gamedb.TypeRoom),
		penndb.TypeThing:  int(gamedb.TypeThing),
		penndb.TypeExit:   int(gamedb.TypeExit),
		penndb.TypePlayer: int(gamedb.TypePlayer),
	}, penndb.TypeGarbage+1)

	// MUXToPenn is indexed by the TinyMUX type code.
	MUXToPenn = TypeMap{
		penndb.TypeRoom, penndb.TypeThing, penndb.TypeExit, penndb.TypePlayer,
		NoType, NoType, NoType, NoType,
	}

	// TinyToMUX drops TinyMUSH zone objects, which TinyMUX does not have.
	TinyToMUX = TypeMap{0, 1, 2, 3, NoType, 5, NoType, NoType}

	MUXToTiny = TypeMap{0, 1, 2, 3, NoType, 5, NoType, NoType}

	RhostToMUX = TypeMap{0, 1, 2, 3, NoType, 5, NoType, NoType}

	MUXToRhost = TypeMap{0, 1, 2, 3, NoType, 5, NoType, NoType}
)

// NumericTypes returns the type map between two numeric dialects.
func NumericTypes(from, to gamedb.Dialect) TypeMap {
	switch {
	case from == gamedb.T6H && to == gamedb.T5X:
		return TinyToMUX
	case from == gamedb.T5X && to == gamedb.T6H:
		return MUXToTiny
	case from == gamedb.R7H && to == gamedb.T5X:
		return RhostToMUX
	case from == gamedb.T5X && to == gamedb.R7H:
		return MUXToRhost
	}
	return TypeMap{0, 1, 2, 3, 4, 5, 6, 7}
}
