// Package penndb models PennMUSH labeled flatfiles (the P6H dialect) and
// reads and writes them.
package penndb

import (
	"strings"

	"github.com/crystal-mush/omega/pkg/gamedb"
	"github.com/crystal-mush/omega/pkg/lock"
)

// Header flag bits carried in the high part of the +V line.
const (
	DBFNoChatSystem   = 0x00000001
	DBFWarnings       = 0x00000002
	DBFCreationTimes  = 0x00000004
	DBFNoPowers       = 0x00000008
	DBFNewLocks       = 0x00000010
	DBFNewStrings     = 0x00000020
	DBFTypeGarbage    = 0x00000040
	DBFSplitImmortal  = 0x00000080
	DBFNoTemple       = 0x00000100
	DBFLessGarbage    = 0x00000200
	DBFAFVisual       = 0x00000400
	DBFValueIsCost    = 0x00000800
	DBFLinkAnywhere   = 0x00001000
	DBFNoStartupFlag  = 0x00002000
	DBFPanic          = 0x00004000
	DBFAFNoDump       = 0x00008000
	DBFSpiffyLocks    = 0x00010000
	DBFNewFlags       = 0x00020000
	DBFNewPowers      = 0x00040000
	DBFPowersLogged   = 0x00080000
	DBFLabels         = 0x00100000
	DBFSpiffyAFANSI   = 0x00200000
	DBFHearConnect    = 0x00400000
	KnownHeaderFlags  = 0x007fffff
	DefaultHeaderBits = DBFNoChatSystem | DBFWarnings | DBFCreationTimes | DBFNewLocks |
		DBFNewStrings | DBFTypeGarbage | DBFSplitImmortal | DBFNoTemple | DBFLessGarbage |
		DBFAFVisual | DBFValueIsCost | DBFLinkAnywhere | DBFNoStartupFlag | DBFAFNoDump |
		DBFSpiffyLocks | DBFNewFlags | DBFNewPowers | DBFPowersLogged | DBFLabels |
		DBFSpiffyAFANSI | DBFHearConnect
)

// Object types. Unlike the numeric dialects these are single bits.
const (
	TypeRoom    = 0x01
	TypeThing   = 0x02
	TypeExit    = 0x04
	TypePlayer  = 0x08
	TypeGarbage = 0x10
)

// TypeName returns the upper-case name of a type code.
func TypeName(t int) string {
	switch t {
	case TypeRoom:
		return "ROOM"
	case TypeThing:
		return "THING"
	case TypeExit:
		return "EXIT"
	case TypePlayer:
		return "PLAYER"
	case TypeGarbage:
		return "GARBAGE"
	}
	return "UNKNOWN"
}

// FlagInfo is one entry of the +FLAGS LIST or +POWER LIST section.
type FlagInfo struct {
	Name        string
	Letter      string
	Type        string
	Perms       string
	NegatePerms string
}

// PowerInfo shares the flag entry layout.
type PowerInfo = FlagInfo

// FlagAliasInfo maps an alias onto a flag or power name.
type FlagAliasInfo struct {
	Name  string
	Alias string
}

// Lock is one entry of an object's lock list.
type Lock struct {
	Type    string
	Creator gamedb.Opt[gamedb.DBRef]
	Flags   gamedb.Opt[string]
	Derefs  gamedb.Opt[int]
	Key     gamedb.Opt[string]

	exp    *gamedb.BoolExp
	parsed bool
}

// Exp parses the key once and caches the result. An unparsable key is
// reported each time and never cached.
func (l *Lock) Exp() (*gamedb.BoolExp, error) {
	if l.parsed {
		return l.exp, nil
	}
	n, err := lock.Parse(l.Key.V, gamedb.P6H)
	if err != nil {
		return nil, err
	}
	l.exp, l.parsed = n, true
	return n, nil
}

// SetKey replaces the key text and drops the cached expression.
func (l *Lock) SetKey(key string) {
	l.Key.Set(key)
	l.exp, l.parsed = nil, false
}

// Attr is one attribute of an object. Names, not numbers, identify
// attributes in this dialect.
type Attr struct {
	Name   string
	Owner  gamedb.Opt[gamedb.DBRef]
	Flags  gamedb.Opt[string]
	Derefs gamedb.Opt[int]
	Value  gamedb.Opt[string]
}

// Object is one labeled object record.
type Object struct {
	Ref      gamedb.DBRef
	Name     gamedb.Opt[string]
	Location gamedb.Opt[gamedb.DBRef]
	Contents gamedb.Opt[gamedb.DBRef]
	Exits    gamedb.Opt[gamedb.DBRef]
	Next     gamedb.Opt[gamedb.DBRef]
	Parent   gamedb.Opt[gamedb.DBRef]
	Owner    gamedb.Opt[gamedb.DBRef]
	Zone     gamedb.Opt[gamedb.DBRef]
	Pennies  gamedb.Opt[int]
	Type     gamedb.Opt[int]
	Flags    gamedb.Opt[string]
	Powers   gamedb.Opt[string]
	Warnings gamedb.Opt[string]
	Created  gamedb.Opt[int64]
	Modified gamedb.Opt[int64]

	LockCount gamedb.Opt[int]
	Locks     []Lock
	AttrCount gamedb.Opt[int]
	Attrs     []Attr
}

// NewObject returns an empty record for ref.
func NewObject(ref gamedb.DBRef) *Object {
	return &Object{Ref: ref}
}

// Lock returns the lock of the given type, matched case-insensitively.
func (o *Object) Lock(typ string) (*Lock, bool) {
	for i := range o.Locks {
		if strings.EqualFold(o.Locks[i].Type, typ) {
			return &o.Locks[i], true
		}
	}
	return nil, false
}

// Attr returns the named attribute, matched case-insensitively.
func (o *Object) Attr(name string) (*Attr, bool) {
	for i := range o.Attrs {
		if strings.EqualFold(o.Attrs[i].Name, name) {
			return &o.Attrs[i], true
		}
	}
	return nil, false
}

// Merge fills unset fields of o from donor and clears them on the donor.
// Locks and attributes o lacks are moved over.
func (o *Object) Merge(donor *Object) {
	o.Name.Fill(&donor.Name)
	o.Location.Fill(&donor.Location)
	o.Contents.Fill(&donor.Contents)
	o.Exits.Fill(&donor.Exits)
	o.Next.Fill(&donor.Next)
	o.Parent.Fill(&donor.Parent)
	o.Owner.Fill(&donor.Owner)
	o.Zone.Fill(&donor.Zone)
	o.Pennies.Fill(&donor.Pennies)
	o.Type.Fill(&donor.Type)
	o.Flags.Fill(&donor.Flags)
	o.Powers.Fill(&donor.Powers)
	o.Warnings.Fill(&donor.Warnings)
	o.Created.Fill(&donor.Created)
	o.Modified.Fill(&donor.Modified)
	o.LockCount.Fill(&donor.LockCount)
	o.AttrCount.Fill(&donor.AttrCount)

	var keptLocks []Lock
	for _, l := range donor.Locks {
		if _, ok := o.Lock(l.Type); ok {
			keptLocks = append(keptLocks, l)
			continue
		}
		o.Locks = append(o.Locks, l)
	}
	donor.Locks = keptLocks

	var keptAttrs []Attr
	for _, a := range donor.Attrs {
		if _, ok := o.Attr(a.Name); ok {
			keptAttrs = append(keptAttrs, a)
			continue
		}
		o.Attrs = append(o.Attrs, a)
	}
	donor.Attrs = keptAttrs
}

// Database is one PennMUSH flatfile in memory.
type Database struct {
	Version   int
	DBFlags   int
	DBVersion gamedb.Opt[int]
	SavedTime gamedb.Opt[string]

	FlagCount       gamedb.Opt[int]
	FlagList        []FlagInfo
	FlagAliasCount  gamedb.Opt[int]
	FlagAliases     []FlagAliasInfo
	PowerCount      gamedb.Opt[int]
	PowerList       []PowerInfo
	PowerAliasCount gamedb.Opt[int]
	PowerAliases    []FlagAliasInfo

	Size    gamedb.Opt[int]
	Objects map[gamedb.DBRef]*Object
}

// NewDatabase returns an empty database.
func NewDatabase() *Database {
	return &Database{Objects: make(map[gamedb.DBRef]*Object)}
}

// Header returns the +V value.
func (db *Database) Header() int {
	return db.DBFlags<<8 | db.Version&0xff
}

// Has reports whether a header flag is set.
func (db *Database) Has(flag int) bool {
	return db.DBFlags&flag != 0
}

// AddObject stores obj, merging into an existing record with the same ref.
func (db *Database) AddObject(obj *Object) bool {
	if cur, ok := db.Objects[obj.Ref]; ok {
		cur.Merge(obj)
		return true
	}
	db.Objects[obj.Ref] = obj
	return false
}

// Refs returns the object refs in ascending order.
func (db *Database) Refs() []gamedb.DBRef {
	return gamedb.SortedRefs(db.Objects)
}

// MaxRef returns the highest ref in use, or Nothing.
func (db *Database) MaxRef() gamedb.DBRef {
	max := gamedb.Nothing
	for ref := range db.Objects {
		if ref > max {
			max = ref
		}
	}
	return max
}

// Merge folds donor's header fields and objects into db.
func (db *Database) Merge(donor *Database) {
	db.DBVersion.Fill(&donor.DBVersion)
	db.SavedTime.Fill(&donor.SavedTime)
	db.Size.Fill(&donor.Size)
	if len(db.FlagList) == 0 {
		db.FlagList, donor.FlagList = donor.FlagList, nil
		db.FlagCount.Fill(&donor.FlagCount)
	}
	if len(db.FlagAliases) == 0 {
		db.FlagAliases, donor.FlagAliases = donor.FlagAliases, nil
		db.FlagAliasCount.Fill(&donor.FlagAliasCount)
	}
	if len(db.PowerList) == 0 {
		db.PowerList, donor.PowerList = donor.PowerList, nil
		db.PowerCount.Fill(&donor.PowerCount)
	}
	if len(db.PowerAliases) == 0 {
		db.PowerAliases, donor.PowerAliases = donor.PowerAliases, nil
		db.PowerAliasCount.Fill(&donor.PowerAliasCount)
	}
	for _, ref := range donor.Refs() {
		db.AddObject(donor.Objects[ref])
		delete(donor.Objects, ref)
	}
}

// FlagInfo returns the flag list entry for name.
func (db *Database) FlagInfo(name string) (*FlagInfo, bool) {
	return findInfo(db.FlagList, db.FlagAliases, name)
}

// PowerInfo returns the power list entry for name.
func (db *Database) PowerInfo(name string) (*PowerInfo, bool) {
	return findInfo(db.PowerList, db.PowerAliases, name)
}

func findInfo(list []FlagInfo, aliases []FlagAliasInfo, name string) (*FlagInfo, bool) {
	for _, a := range aliases {
		if strings.EqualFold(a.Alias, name) {
			name = a.Name
			break
		}
	}
	for i := range list {
		if strings.EqualFold(list[i].Name, name) {
			return &list[i], true
		}
	}
	return nil, false
}
