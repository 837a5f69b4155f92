package convert

import (
	"strings"

	"go.uber.org/zap"

	"github.com/crystal-mush/omega/pkg/attrs"
	"github.com/crystal-mush/omega/pkg/charset"
	"github.com/crystal-mush/omega/pkg/gamedb"
	"github.com/crystal-mush/omega/pkg/lock"
	"github.com/crystal-mush/omega/pkg/penndb"
	"github.com/crystal-mush/omega/pkg/remap"
)

// PennVersion is the +V version written for converted PennMUSH output.
const PennVersion = 2

// muxOnlyPrefix marks TinyMUX attributes whose names PennMUSH uses for
// something else.
const muxOnlyPrefix = "T5X_"

var pennNames = func() map[string]string {
	m := make(map[string]string, len(remap.PennAttrSynonyms))
	for penn, mux := range remap.PennAttrSynonyms {
		m[mux] = penn
	}
	return m
}()

type muxToPenn struct {
	src   *gamedb.Database
	dst   *penndb.Database
	opts  Options
	log   *zap.Logger
	stats *Stats
	text  func(string) string
	locks lock.Converter

	renamed map[string]bool
}

func newMUXToPenn(src *gamedb.Database, opts Options, log *zap.Logger, stats *Stats) *muxToPenn {
	dst := penndb.NewDatabase()
	dst.Version = PennVersion
	dst.DBFlags = penndb.DefaultHeaderBits
	if opts.SavedTime != "" {
		dst.SavedTime.Set(opts.SavedTime)
	}

	ts := recoder(utf8Color(src.Dialect, src.Version), false, opts.StripColor)
	if opts.ConvertNewlines {
		ts = append(ts, charset.CRLFToLF())
	}
	c := &muxToPenn{
		src:     src,
		dst:     dst,
		opts:    opts,
		log:     log,
		stats:   stats,
		text:    pipeline(ts...),
		renamed: make(map[string]bool, len(remap.PennRenamed)),
	}
	for _, n := range remap.PennRenamed {
		c.renamed[n] = true
	}
	c.locks = lock.Converter{
		To: gamedb.P6H,
		AttrName: func(num int) (string, bool) {
			name := src.AttrName(num)
			return c.pennName(name), name != ""
		},
	}
	return c
}

func (c *muxToPenn) run() *penndb.Database {
	for _, ref := range c.src.Refs() {
		c.stats.ObjectsRead++
		obj := c.object(c.src.Objects[ref])
		if obj == nil {
			continue
		}
		c.dst.AddObject(obj)
		c.stats.ObjectsWritten++
	}
	c.dst.Size.Set(int(c.dst.MaxRef()) + 1)
	return c.dst
}

// pennName maps a TinyMUX attribute name onto the PennMUSH name.
func (c *muxToPenn) pennName(name string) string {
	if penn, ok := pennNames[name]; ok {
		return penn
	}
	if p := strings.ToUpper(c.opts.RenamePrefix); p != "" && strings.HasPrefix(name, p) {
		if rest := name[len(p):]; c.renamed[rest] {
			return rest
		}
	}
	if c.renamed[name] {
		return muxOnlyPrefix + name
	}
	return name
}

func (c *muxToPenn) object(src *gamedb.Object) *penndb.Object {
	typ := remap.MUXToPenn.Map(int(src.ObjType()))
	if typ == remap.NoType {
		c.log.Warn("dropping object with no equivalent type",
			zap.Int("ref", int(src.Ref)), zap.Stringer("type", src.ObjType()))
		c.stats.ObjectsDropped++
		return nil
	}

	owner := src.Owner.Or(gamedb.Nothing)
	obj := penndb.NewObject(src.Ref)
	if name, ok := src.Name.Get(); ok {
		obj.Name.Set(c.text(name))
	}
	obj.Location = src.Location
	obj.Contents = src.Contents
	obj.Next = src.Next
	obj.Parent = src.Parent
	obj.Owner = src.Owner
	obj.Zone = src.Zone
	switch gamedb.ObjectType(src.ObjType()) {
	case gamedb.TypeThing, gamedb.TypePlayer:
		obj.Exits = src.Link
	default:
		obj.Exits = src.Exits
	}
	for _, o := range []*gamedb.Opt[gamedb.DBRef]{
		&obj.Location, &obj.Contents, &obj.Exits, &obj.Next, &obj.Parent, &obj.Owner, &obj.Zone,
	} {
		fillRef(o)
	}
	obj.Pennies.Set(src.Pennies.Or(0))
	obj.Type.Set(typ)

	fw := words(src.Flags[:3])
	fw[0] &^= gamedb.TypeMask
	obj.Flags.Set(remap.ToText(remap.PennFlags, fw))
	c.reportLost(src.Ref, "flags", remap.PennFlags, fw)
	pw := words(src.Powers[:])
	obj.Powers.Set(remap.ToText(remap.PennPowers, pw))
	c.reportLost(src.Ref, "powers", remap.PennPowers, pw)
	obj.Warnings.Set("")

	if src.Lock != nil {
		c.lock(obj, "Basic", owner, 0, src.Lock)
	}
	for i := range src.Attrs {
		c.attr(obj, owner, &src.Attrs[i])
	}
	obj.LockCount.Set(len(obj.Locks))
	obj.AttrCount.Set(len(obj.Attrs))
	return obj
}

func (c *muxToPenn) reportLost(ref gamedb.DBRef, what string, t remap.Table, w []uint32) {
	for i, v := range w {
		if lost := v &^ t.Mask(i); lost != 0 {
			c.log.Warn(what+" have no PennMUSH equivalent",
				zap.Int("ref", int(ref)), zap.Int("word", i), zap.Uint32("bits", lost))
			c.stats.FlagsLost++
		}
	}
}

func (c *muxToPenn) lock(obj *penndb.Object, typ string, creator gamedb.DBRef, flags int, exp *gamedb.BoolExp) {
	n, err := c.locks.Convert(exp)
	if err != nil {
		c.log.Warn("dropping lock", zap.Int("ref", int(obj.Ref)), zap.String("lock", typ), zap.Error(err))
		c.stats.LocksDropped++
		return
	}
	c.stats.LocksConverted++
	l := penndb.Lock{Type: typ}
	l.Creator.Set(creator)
	l.Flags.Set(remap.ToText(remap.PennLockFlags, []uint32{uint32(flags)}))
	l.Derefs.Set(0)
	l.SetKey(lock.Flatten(n))
	obj.Locks = append(obj.Locks, l)
}

func (c *muxToPenn) attr(obj *penndb.Object, objOwner gamedb.DBRef, a *gamedb.Attribute) {
	switch a.Number {
	case gamedb.T5XCreated, gamedb.T5XModified:
		_, _, v := attrs.Decode(a.Value, objOwner)
		if t, ok := parseTime(v); ok {
			if a.Number == gamedb.T5XCreated {
				obj.Created.Set(t)
			} else {
				obj.Modified.Set(t)
			}
			return
		}
	}

	owner, flags, value := attrs.Decode(a.Value, objOwner)
	if gamedb.IsLockAttr(gamedb.T5X, a.Number) {
		typ, ok := remap.PennLockType(a.Number)
		if !ok || (a.Number == gamedb.A_LOCK && len(obj.Locks) > 0 && obj.Locks[0].Type == "Basic") {
			c.log.Warn("dropping lock", zap.Int("ref", int(obj.Ref)), zap.Int("attr", a.Number),
				zap.String("reason", "no PennMUSH lock type"))
			c.stats.LocksDropped++
			return
		}
		exp, err := lock.AttrLock(gamedb.T5X, a)
		if err != nil {
			c.log.Warn("dropping lock", zap.Int("ref", int(obj.Ref)), zap.String("lock", typ), zap.Error(err))
			c.stats.LocksDropped++
			return
		}
		if exp != nil {
			c.lock(obj, typ, owner, flags, exp)
		}
		return
	}

	name := c.src.AttrName(a.Number)
	if name == "" {
		c.log.Warn("dropping attribute with no name", zap.Int("ref", int(obj.Ref)), zap.Int("attr", a.Number))
		c.stats.AttrsDropped++
		return
	}
	penn := c.pennName(name)
	if penn != name && pennNames[name] == "" {
		c.stats.AttrsRenamed++
	}

	pa := penndb.Attr{Name: penn}
	pa.Owner.Set(owner)
	pa.Flags.Set(remap.ToText(remap.PennAttrFlags, []uint32{uint32(flags)}))
	pa.Derefs.Set(0)
	pa.Value.Set(c.text(value))
	obj.Attrs = append(obj.Attrs, pa)
}
