package gamedb

import "strings"

// Version flags from db.h, shared by the numeric dialects.
const (
	VMask        = 0x000000ff
	VZone        = 0x00000100
	VLink        = 0x00000200
	VGDBM        = 0x00000400
	VAtrName     = 0x00000800
	VAtrKey      = 0x00001000
	VParent      = 0x00002000
	VAtrMoney    = 0x00008000
	VXFlags      = 0x00010000
	VPowers      = 0x00020000
	V3Flags      = 0x00040000
	VQuoted      = 0x00080000
	VTQuotas     = 0x00100000
	VTimestamps  = 0x00200000
	VVisualAttrs = 0x00400000
	V4Flags      = 0x00800000 // RhostMUSH fourth flag word
)

// KnownVersionFlags returns the header flag bits each numeric dialect
// understands. Anything else in a header is fatal.
func KnownVersionFlags(d Dialect) int {
	base := VZone | VLink | VGDBM | VAtrName | VAtrKey | VParent | VAtrMoney |
		VXFlags | VPowers | V3Flags | VQuoted
	switch d {
	case T5X:
		return base
	case T6H:
		return base | VTQuotas | VTimestamps | VVisualAttrs
	case R7H:
		return base | V4Flags
	}
	return 0
}

// Attribute represents a single attribute on an object. Value is the raw
// stored text, which may carry the packed owner/flags prefix.
type Attribute struct {
	Number int
	Value  string

	// Lock caches the parsed key of a lock-bearing attribute; see lock.AttrLock.
	Lock       *BoolExp
	LockParsed bool
}

// AttrDef represents a user-defined attribute name definition.
type AttrDef struct {
	Number int
	Name   string
	Flags  int
}

// Object represents one record of a numeric-dialect flatfile.
type Object struct {
	Ref      DBRef
	Name     Opt[string]
	Location Opt[DBRef]
	Zone     Opt[DBRef]
	Contents Opt[DBRef]
	Exits    Opt[DBRef]
	Link     Opt[DBRef]
	Next     Opt[DBRef]
	Owner    Opt[DBRef]
	Parent   Opt[DBRef]
	Pennies  Opt[int]
	Flags    [4]Opt[uint32]
	Powers   [2]Opt[uint32]

	AccessTime Opt[int64]
	ModTime    Opt[int64]

	// Lock is the default lock stored in the object header. LockRaw holds the
	// exact bytes it was read from, terminator included.
	Lock    *BoolExp
	LockRaw Opt[string]

	Attrs []Attribute
}

// NewObject returns an empty record for ref.
func NewObject(ref DBRef) *Object {
	return &Object{Ref: ref}
}

// ObjType returns the object type from the first flag word.
func (o *Object) ObjType() ObjectType {
	return ObjectType(o.Flags[0].V & TypeMask)
}

// FlagWord returns flag word i, or zero when absent.
func (o *Object) FlagWord(i int) uint32 {
	return o.Flags[i].V
}

// HasFlag checks a bit in flag word i.
func (o *Object) HasFlag(i int, mask uint32) bool {
	return o.Flags[i].V&mask != 0
}

// IsGoing returns true if the object is marked for destruction.
func (o *Object) IsGoing() bool {
	return o.HasFlag(0, FlagGoing)
}

// Attr returns the attribute with the given number.
func (o *Object) Attr(num int) (*Attribute, bool) {
	for i := range o.Attrs {
		if o.Attrs[i].Number == num {
			return &o.Attrs[i], true
		}
	}
	return nil, false
}

// SetAttr replaces or appends an attribute value.
func (o *Object) SetAttr(num int, value string) {
	if a, ok := o.Attr(num); ok {
		a.Value = value
		a.Lock = nil
		a.LockParsed = false
		return
	}
	o.Attrs = append(o.Attrs, Attribute{Number: num, Value: value})
}

// RemoveAttr deletes an attribute, reporting whether it existed.
func (o *Object) RemoveAttr(num int) bool {
	for i := range o.Attrs {
		if o.Attrs[i].Number == num {
			o.Attrs = append(o.Attrs[:i], o.Attrs[i+1:]...)
			return true
		}
	}
	return false
}

// Merge fills every field of o that is still unset from donor, clearing the
// donor's copy. Attributes whose number o does not carry are moved over.
func (o *Object) Merge(donor *Object) {
	o.Name.Fill(&donor.Name)
	o.Location.Fill(&donor.Location)
	o.Zone.Fill(&donor.Zone)
	o.Contents.Fill(&donor.Contents)
	o.Exits.Fill(&donor.Exits)
	o.Link.Fill(&donor.Link)
	o.Next.Fill(&donor.Next)
	o.Owner.Fill(&donor.Owner)
	o.Parent.Fill(&donor.Parent)
	o.Pennies.Fill(&donor.Pennies)
	for i := range o.Flags {
		o.Flags[i].Fill(&donor.Flags[i])
	}
	for i := range o.Powers {
		o.Powers[i].Fill(&donor.Powers[i])
	}
	o.AccessTime.Fill(&donor.AccessTime)
	o.ModTime.Fill(&donor.ModTime)
	if !o.LockRaw.Ok && donor.LockRaw.Ok {
		o.Lock, donor.Lock = donor.Lock, nil
		o.LockRaw.Fill(&donor.LockRaw)
	}
	var kept []Attribute
	for _, a := range donor.Attrs {
		if _, ok := o.Attr(a.Number); ok {
			kept = append(kept, a)
			continue
		}
		o.Attrs = append(o.Attrs, a)
	}
	donor.Attrs = kept
}

// Database holds one numeric-dialect flatfile in memory.
type Database struct {
	Dialect       Dialect
	Version       int
	Flags         int
	Size          Opt[int]
	NextAttr      Opt[int]
	RecordPlayers Opt[int]
	AttrNames     []*AttrDef
	Objects       map[DBRef]*Object

	defsByNum  map[int]*AttrDef
	defsByName map[string]*AttrDef
}

// NewDatabase creates an empty Database for a numeric dialect.
func NewDatabase(d Dialect) *Database {
	return &Database{
		Dialect:    d,
		Objects:    make(map[DBRef]*Object),
		defsByNum:  make(map[int]*AttrDef),
		defsByName: make(map[string]*AttrDef),
	}
}

// Header returns the version word as written after the header letter.
func (db *Database) Header() int {
	return db.Version&VMask | db.Flags&^VMask
}

// Has reports whether a header flag is set.
func (db *Database) Has(flag int) bool {
	return db.Flags&flag != 0
}

// AddObject stores obj. If the ref is already present the records are
// merged and true is returned.
func (db *Database) AddObject(obj *Object) bool {
	if cur, ok := db.Objects[obj.Ref]; ok {
		cur.Merge(obj)
		return true
	}
	db.Objects[obj.Ref] = obj
	return false
}

// Refs returns object refs in ascending order.
func (db *Database) Refs() []DBRef {
	return SortedRefs(db.Objects)
}

// MaxRef returns the highest ref in use, or Nothing for an empty database.
func (db *Database) MaxRef() DBRef {
	max := Nothing
	for ref := range db.Objects {
		if ref > max {
			max = ref
		}
	}
	return max
}

// AddAttrDef registers a user-defined attribute, replacing any earlier
// definition for the same number.
func (db *Database) AddAttrDef(num int, name string, flags int) *AttrDef {
	if old, ok := db.defsByNum[num]; ok {
		delete(db.defsByName, strings.ToUpper(old.Name))
		old.Name = name
		old.Flags = flags
		db.defsByName[strings.ToUpper(name)] = old
		return old
	}
	def := &AttrDef{Number: num, Name: name, Flags: flags}
	db.AttrNames = append(db.AttrNames, def)
	db.defsByNum[num] = def
	db.defsByName[strings.ToUpper(name)] = def
	return def
}

// Reindex rebuilds the attribute definition lookups after AttrNames has been
// replaced wholesale, e.g. by a snapshot decoder.
func (db *Database) Reindex() {
	db.defsByNum = make(map[int]*AttrDef, len(db.AttrNames))
	db.defsByName = make(map[string]*AttrDef, len(db.AttrNames))
	for _, def := range db.AttrNames {
		db.defsByNum[def.Number] = def
		db.defsByName[strings.ToUpper(def.Name)] = def
	}
}

// AttrDef returns the user definition for num.
func (db *Database) AttrDef(num int) (*AttrDef, bool) {
	def, ok := db.defsByNum[num]
	return def, ok
}

// AttrDefByName looks up a user definition case-insensitively.
func (db *Database) AttrDefByName(name string) (*AttrDef, bool) {
	def, ok := db.defsByName[strings.ToUpper(name)]
	return def, ok
}

// AttrName returns the name for an attribute number, or "" if unknown.
func (db *Database) AttrName(num int) string {
	if def, ok := db.defsByNum[num]; ok {
		return def.Name
	}
	return BuiltinAttrName(db.Dialect, num)
}

// MaxUserAttr returns the highest attribute number >= A_USER_START that is
// defined or used, or 0 if none.
func (db *Database) MaxUserAttr() int {
	max := 0
	for _, def := range db.AttrNames {
		if def.Number >= A_USER_START && def.Number > max {
			max = def.Number
		}
	}
	for _, obj := range db.Objects {
		for _, a := range obj.Attrs {
			if a.Number >= A_USER_START && a.Number > max {
				max = a.Number
			}
		}
	}
	return max
}

// Merge folds donor's header fields and objects into db.
func (db *Database) Merge(donor *Database) {
	db.Size.Fill(&donor.Size)
	db.NextAttr.Fill(&donor.NextAttr)
	db.RecordPlayers.Fill(&donor.RecordPlayers)
	for _, def := range donor.AttrNames {
		if _, ok := db.defsByNum[def.Number]; !ok {
			db.AddAttrDef(def.Number, def.Name, def.Flags)
		}
	}
	for _, ref := range donor.Refs() {
		db.AddObject(donor.Objects[ref])
		delete(donor.Objects, ref)
	}
}
