package gamedb

import (
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
)

// DBRef is the fundamental object reference type in MUSH.
type DBRef int

const (
	Nothing   DBRef = -1
	Ambiguous DBRef = -2
	Home      DBRef = -3
)

// Dialect identifies one of the flatfile families omega reads and writes.
type Dialect int

const (
	DialectUnknown Dialect = iota
	P6H                    // PennMUSH 1.8 labeled flatfile
	T5X                    // TinyMUX 2.x
	T6H                    // TinyMUSH 3.x
	R7H                    // RhostMUSH
)

func (d Dialect) String() string {
	switch d {
	case P6H:
		return "p6h"
	case T5X:
		return "t5x"
	case T6H:
		return "t6h"
	case R7H:
		return "r7h"
	default:
		return "unknown"
	}
}

// Numeric reports whether the dialect stores flags as bit words rather than
// free text.
func (d Dialect) Numeric() bool {
	return d == T5X || d == T6H || d == R7H
}

// ParseDialect maps a dialect name (case-insensitive) to its Dialect.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "p6h", "penn", "pennmush":
		return P6H, nil
	case "t5x", "mux", "tinymux":
		return T5X, nil
	case "t6h", "tinymush", "mush3":
		return T6H, nil
	case "r7h", "rhost", "rhostmush":
		return R7H, nil
	}
	return DialectUnknown, errors.Newf("unknown dialect %q", s)
}

// Opt is a value with an explicit presence flag. An unset Opt is distinct
// from one holding the zero value.
type Opt[T any] struct {
	V  T
	Ok bool
}

// Some returns an Opt holding v.
func Some[T any](v T) Opt[T] {
	return Opt[T]{V: v, Ok: true}
}

// Set stores v, replacing any previous value.
func (o *Opt[T]) Set(v T) {
	o.V = v
	o.Ok = true
}

// Get returns the value and whether it is present.
func (o Opt[T]) Get() (T, bool) {
	return o.V, o.Ok
}

// Or returns the value if present, def otherwise.
func (o Opt[T]) Or(def T) T {
	if o.Ok {
		return o.V
	}
	return def
}

// Clear drops the value.
func (o *Opt[T]) Clear() {
	var zero T
	o.V = zero
	o.Ok = false
}

// Fill moves donor's value into o when o is unset. The donor is cleared
// either way once its value has been taken.
func (o *Opt[T]) Fill(donor *Opt[T]) {
	if o.Ok || !donor.Ok {
		return
	}
	*o = *donor
	donor.Clear()
}

// ObjectType represents the type of an object in the numeric dialects.
type ObjectType int

const (
	TypeRoom    ObjectType = 0
	TypeThing   ObjectType = 1
	TypeExit    ObjectType = 2
	TypePlayer  ObjectType = 3
	TypeZone    ObjectType = 4
	TypeGarbage ObjectType = 5
)

func (t ObjectType) String() string {
	switch t {
	case TypeRoom:
		return "ROOM"
	case TypeThing:
		return "THING"
	case TypeExit:
		return "EXIT"
	case TypePlayer:
		return "PLAYER"
	case TypeZone:
		return "ZONE"
	case TypeGarbage:
		return "GARBAGE"
	default:
		return "UNKNOWN"
	}
}

const TypeMask = 0x7

// BoolExpType represents the type of a boolean lock expression node.
type BoolExpType int

const (
	BoolIs BoolExpType = iota
	BoolCarry
	BoolIndir
	BoolOwner
	BoolAnd
	BoolOr
	BoolNot
	BoolAttr
	BoolEval
	BoolRef
	BoolText

	// PennMUSH only.
	BoolIndir2 // @#n/LockName
	BoolClass  // class^value
	BoolTrue
	BoolFalse
)

var boolExpNames = [...]string{
	BoolIs:     "IS",
	BoolCarry:  "CARRY",
	BoolIndir:  "INDIRECT",
	BoolOwner:  "OWNER",
	BoolAnd:    "AND",
	BoolOr:     "OR",
	BoolNot:    "NOT",
	BoolAttr:   "ATTR",
	BoolEval:   "EVAL",
	BoolRef:    "REF",
	BoolText:   "TEXT",
	BoolIndir2: "INDIRECT2",
	BoolClass:  "CLASS",
	BoolTrue:   "TRUE",
	BoolFalse:  "FALSE",
}

func (t BoolExpType) String() string {
	if int(t) >= 0 && int(t) < len(boolExpNames) {
		return boolExpNames[t]
	}
	return "UNKNOWN"
}

// Unary reports whether nodes of this type use only Sub1.
func (t BoolExpType) Unary() bool {
	switch t {
	case BoolIs, BoolCarry, BoolIndir, BoolOwner, BoolNot:
		return true
	}
	return false
}

// Binary reports whether nodes of this type use both Sub1 and Sub2.
func (t BoolExpType) Binary() bool {
	switch t {
	case BoolAnd, BoolOr, BoolAttr, BoolEval, BoolIndir2, BoolClass:
		return true
	}
	return false
}

// BoolExp represents a parsed boolean lock expression.
//
// ATTR, EVAL and CLASS hold the attribute (or class) name in Sub1 and the
// pattern in Sub2, both as TEXT leaves; a REF in Sub1 of ATTR/EVAL names the
// attribute by number. INDIRECT2 holds a REF in Sub1 and the lock name as TEXT
// in Sub2.
type BoolExp struct {
	Type  BoolExpType
	Sub1  *BoolExp
	Sub2  *BoolExp
	Thing DBRef  // BoolRef
	Text  string // BoolText
}

func NewRef(ref DBRef) *BoolExp       { return &BoolExp{Type: BoolRef, Thing: ref} }
func NewText(s string) *BoolExp       { return &BoolExp{Type: BoolText, Text: s} }
func NewConst(v bool) *BoolExp {
	if v {
		return &BoolExp{Type: BoolTrue}
	}
	return &BoolExp{Type: BoolFalse}
}

// NewUnary builds an IS/CARRY/INDIRECT/OWNER/NOT node.
func NewUnary(t BoolExpType, sub *BoolExp) *BoolExp {
	return &BoolExp{Type: t, Sub1: sub}
}

// NewBinary builds a two-child node.
func NewBinary(t BoolExpType, a, b *BoolExp) *BoolExp {
	return &BoolExp{Type: t, Sub1: a, Sub2: b}
}

// Equal reports structural equality.
func (b *BoolExp) Equal(o *BoolExp) bool {
	if b == nil || o == nil {
		return b == o
	}
	if b.Type != o.Type || b.Thing != o.Thing || b.Text != o.Text {
		return false
	}
	return b.Sub1.Equal(o.Sub1) && b.Sub2.Equal(o.Sub2)
}

// Walk visits every node in pre-order.
func (b *BoolExp) Walk(fn func(*BoolExp)) {
	if b == nil {
		return
	}
	fn(b)
	b.Sub1.Walk(fn)
	b.Sub2.Walk(fn)
}

// Refs returns every object reference mentioned by the expression,
// excluding attribute numbers on the left of ATTR/EVAL.
func (b *BoolExp) Refs() []DBRef {
	var refs []DBRef
	var visit func(n *BoolExp)
	visit = func(n *BoolExp) {
		if n == nil {
			return
		}
		switch n.Type {
		case BoolRef:
			refs = append(refs, n.Thing)
		case BoolAttr, BoolEval:
			return
		}
		visit(n.Sub1)
		visit(n.Sub2)
	}
	visit(b)
	return refs
}

// SortedRefs returns the keys of an object map in ascending order.
func SortedRefs[V any](m map[DBRef]V) []DBRef {
	refs := make([]DBRef, 0, len(m))
	for ref := range m {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i] < refs[j] })
	return refs
}
