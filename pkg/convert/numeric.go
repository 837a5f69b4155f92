package convert

import (
	"go.uber.org/zap"

	"github.com/crystal-mush/omega/pkg/attrs"
	"github.com/crystal-mush/omega/pkg/gamedb"
	"github.com/crystal-mush/omega/pkg/lock"
	"github.com/crystal-mush/omega/pkg/remap"
)

// Header flag sets written for converted TinyMUSH and RhostMUSH output.
const (
	TinyHeader = gamedb.VZone | gamedb.VLink | gamedb.VAtrName | gamedb.VAtrKey | gamedb.VParent |
		gamedb.VXFlags | gamedb.V3Flags | gamedb.VPowers | gamedb.VQuoted | gamedb.VTimestamps
	RhostHeader = gamedb.VZone | gamedb.VLink | gamedb.VParent | gamedb.VXFlags | gamedb.V3Flags |
		gamedb.V4Flags | gamedb.VPowers | gamedb.VQuoted
)

// numeric converts between two numeric dialects, one of which is T5X.
type numeric struct {
	src, dst *gamedb.Database
	opts     Options
	log      *zap.Logger
	stats    *Stats
	reg      *attrs.Registry
	text     func(string) string
	types    remap.TypeMap
	locks    lock.Converter

	flags, powers, attrFlags *remap.Bridge
}

func newNumeric(src *gamedb.Database, to gamedb.Dialect, opts Options, log *zap.Logger, stats *Stats) *numeric {
	dst := gamedb.NewDatabase(to)
	switch to {
	case gamedb.T5X:
		dst.Version, dst.Flags = opts.TargetVersion, MUXHeader
	case gamedb.T6H:
		dst.Version, dst.Flags = 1, TinyHeader
	case gamedb.R7H:
		dst.Version, dst.Flags = 1, RhostHeader
	}
	from := src.Dialect
	c := &numeric{
		src:       src,
		dst:       dst,
		opts:      opts,
		log:       log,
		stats:     stats,
		reg:       attrs.NewRegistry(attrs.RegistryConfig{Target: to, Start: opts.AttrStart}),
		text:      pipeline(recoder(utf8Color(from, src.Version), utf8Color(to, dst.Version), opts.StripColor)...),
		types:     remap.NumericTypes(from, to),
		flags:     remap.NewBridge(from, to, remap.KindFlags),
		powers:    remap.NewBridge(from, to, remap.KindPowers),
		attrFlags: remap.NewBridge(from, to, remap.KindAttrFlags),
	}
	c.locks = lock.Converter{
		To: to,
		AttrName: func(num int) (string, bool) {
			name := src.AttrName(num)
			return name, name != ""
		},
	}
	return c
}

func (c *numeric) run() *gamedb.Database {
	players := 0
	for _, ref := range c.src.Refs() {
		c.stats.ObjectsRead++
		obj := c.object(c.src.Objects[ref])
		if obj == nil {
			continue
		}
		if obj.ObjType() == gamedb.TypePlayer {
			players++
		}
		c.dst.AddObject(obj)
		c.stats.ObjectsWritten++
	}

	for _, def := range c.reg.UserDefs() {
		c.dst.AddAttrDef(def.Number, def.Name, def.Flags)
	}
	c.dst.NextAttr.Set(c.reg.Next())
	size := int(c.dst.MaxRef()) + 1
	if n, ok := c.src.Size.Get(); ok && n > size {
		size = n
	}
	c.dst.Size.Set(size)
	c.dst.RecordPlayers.Set(players)
	return c.dst
}

func (c *numeric) object(src *gamedb.Object) *gamedb.Object {
	typ := c.types.Map(int(src.ObjType()))
	if typ == remap.NoType {
		c.log.Warn("dropping object with no equivalent type",
			zap.Int("ref", int(src.Ref)), zap.Stringer("type", src.ObjType()))
		c.stats.ObjectsDropped++
		return nil
	}
	from, to := c.src.Dialect, c.dst.Dialect
	owner := src.Owner.Or(gamedb.Nothing)

	obj := gamedb.NewObject(src.Ref)
	if name, ok := src.Name.Get(); ok {
		obj.Name.Set(c.text(name))
	}
	obj.Location = src.Location
	obj.Zone = src.Zone
	obj.Contents = src.Contents
	obj.Exits = src.Exits
	obj.Link = src.Link
	obj.Next = src.Next
	obj.Owner = src.Owner
	obj.Parent = src.Parent
	for _, o := range []*gamedb.Opt[gamedb.DBRef]{
		&obj.Location, &obj.Zone, &obj.Contents, &obj.Exits, &obj.Link, &obj.Next, &obj.Owner, &obj.Parent,
	} {
		fillRef(o)
	}
	obj.Pennies.Set(src.Pennies.Or(0))

	fw := words(src.Flags[:gamedb.FlagWords(from)])
	fw[0] &^= gamedb.TypeMask
	dw, lost := c.flags.Apply(fw, gamedb.FlagWords(to))
	dw[0] |= uint32(typ)
	c.reportLost(src.Ref, c.flags, lost)
	for i := range dw {
		obj.Flags[i].Set(dw[i])
	}
	pw, lost := c.powers.Apply(words(src.Powers[:]), 2)
	c.reportLost(src.Ref, c.powers, lost)
	obj.Powers[0].Set(pw[0])
	obj.Powers[1].Set(pw[1])

	c.basicLock(obj, src)

	if t, ok := src.ModTime.Get(); ok && to == gamedb.T5X {
		obj.SetAttr(gamedb.T5XModified, formatTime(t))
	}
	if to == gamedb.T6H {
		obj.AccessTime.Set(0)
		obj.ModTime.Set(0)
	}

	for i := range src.Attrs {
		a := &src.Attrs[i]
		if a.Number == gamedb.A_LOCK {
			continue
		}
		if from == gamedb.T5X && to == gamedb.T6H && a.Number == gamedb.T5XModified {
			_, _, v := attrs.Decode(a.Value, owner)
			if t, ok := parseTime(v); ok {
				obj.AccessTime.Set(t)
				obj.ModTime.Set(t)
				continue
			}
		}
		c.attr(obj, owner, a)
	}
	return obj
}

func (c *numeric) reportLost(ref gamedb.DBRef, b *remap.Bridge, lost []uint32) {
	for i, bits := range lost {
		if bits != 0 {
			c.log.Warn(b.Kind.String()+" have no equivalent", zap.Int("ref", int(ref)),
				zap.Stringer("to", b.To), zap.Int("word", i), zap.Uint32("bits", bits))
			c.stats.FlagsLost++
		}
	}
}

// basicLock carries the default lock, which lives either in the object
// header or in the LOCK attribute depending on each side's header flags.
func (c *numeric) basicLock(obj, src *gamedb.Object) {
	exp := src.Lock
	if exp == nil {
		if a, ok := src.Attr(gamedb.A_LOCK); ok {
			n, err := lock.AttrLock(c.src.Dialect, a)
			if err != nil {
				c.dropLock(obj.Ref, gamedb.A_LOCK, err)
				return
			}
			exp = n
		}
	}
	if exp == nil {
		return
	}
	n, err := c.locks.Convert(exp)
	if err != nil {
		c.dropLock(obj.Ref, gamedb.A_LOCK, err)
		return
	}
	c.stats.LocksConverted++
	if !c.dst.Has(gamedb.VAtrKey) {
		obj.Lock = n
		return
	}
	obj.SetAttr(gamedb.A_LOCK, lock.Flatten(n))
}

func (c *numeric) dropLock(ref gamedb.DBRef, attr int, err error) {
	c.log.Warn("dropping lock", zap.Int("ref", int(ref)), zap.Int("attr", attr), zap.Error(err))
	c.stats.LocksDropped++
}

func (c *numeric) attr(obj *gamedb.Object, objOwner gamedb.DBRef, a *gamedb.Attribute) {
	name := c.src.AttrName(a.Number)
	if name == "" {
		c.log.Warn("dropping attribute with no name", zap.Int("ref", int(obj.Ref)), zap.Int("attr", a.Number))
		c.stats.AttrsDropped++
		return
	}
	num, canon, isNew := c.reg.Number(name)
	if canon != name {
		c.stats.AttrsRenamed++
	}
	if isNew {
		if def, ok := c.src.AttrDef(a.Number); ok {
			df, _ := c.attrFlags.Apply([]uint32{uint32(def.Flags)}, 1)
			c.reg.SetFlags(num, int(df[0]))
		}
	}

	owner, flags, value := attrs.Decode(a.Value, objOwner)
	af, _ := c.attrFlags.Apply([]uint32{uint32(flags)}, 1)

	if gamedb.IsLockAttr(c.src.Dialect, a.Number) {
		exp, err := lock.AttrLock(c.src.Dialect, a)
		if err == nil {
			exp, err = c.locks.Convert(exp)
		}
		if err != nil {
			c.dropLock(obj.Ref, a.Number, err)
			return
		}
		c.stats.LocksConverted++
		value = lock.Flatten(exp)
	} else {
		value = c.text(value)
	}
	obj.SetAttr(num, attrs.Encode(owner, int(af[0]), value, objOwner))
}
