package convert

import (
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/crystal-mush/omega/pkg/attrs"
	"github.com/crystal-mush/omega/pkg/charset"
	"github.com/crystal-mush/omega/pkg/gamedb"
	"github.com/crystal-mush/omega/pkg/lock"
	"github.com/crystal-mush/omega/pkg/penndb"
	"github.com/crystal-mush/omega/pkg/remap"
)

// MUXHeader is the header flag set written for converted TinyMUX output.
const MUXHeader = gamedb.VZone | gamedb.VLink | gamedb.VParent | gamedb.VXFlags |
	gamedb.V3Flags | gamedb.VPowers | gamedb.VQuoted

type pennToMUX struct {
	src   *penndb.Database
	dst   *gamedb.Database
	opts  Options
	log   *zap.Logger
	stats *Stats
	reg   *attrs.Registry
	text  func(string) string
}

func newPennToMUX(src *penndb.Database, opts Options, log *zap.Logger, stats *Stats) *pennToMUX {
	dst := gamedb.NewDatabase(gamedb.T5X)
	dst.Version = opts.TargetVersion
	dst.Flags = MUXHeader

	ts := recoder(false, utf8Color(gamedb.T5X, opts.TargetVersion), opts.StripColor)
	if opts.ConvertNewlines {
		ts = append(ts, charset.LFToCRLF())
	}
	return &pennToMUX{
		src:   src,
		dst:   dst,
		opts:  opts,
		log:   log,
		stats: stats,
		text:  pipeline(ts...),
		reg: attrs.NewRegistry(attrs.RegistryConfig{
			Target:   gamedb.T5X,
			Start:    opts.AttrStart,
			Prefix:   opts.RenamePrefix,
			Renamed:  remap.PennRenamed,
			Synonyms: remap.PennAttrSynonyms,
		}),
	}
}

func (c *pennToMUX) run() *gamedb.Database {
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

func (c *pennToMUX) object(src *penndb.Object) *gamedb.Object {
	typ := remap.PennToMUX.Map(src.Type.Or(-1))
	if typ == remap.NoType {
		c.log.Warn("dropping object with no equivalent type",
			zap.Int("ref", int(src.Ref)), zap.String("type", penndb.TypeName(src.Type.V)))
		c.stats.ObjectsDropped++
		return nil
	}

	owner := src.Owner.Or(gamedb.Nothing)
	obj := gamedb.NewObject(src.Ref)
	if name, ok := src.Name.Get(); ok {
		obj.Name.Set(c.text(name))
	}
	obj.Zone = src.Zone
	obj.Contents = src.Contents
	obj.Next = src.Next
	obj.Owner = src.Owner
	obj.Parent = src.Parent
	obj.Pennies.Set(src.Pennies.Or(0))

	// Things and players keep their home where PennMUSH keeps exits.
	switch gamedb.ObjectType(typ) {
	case gamedb.TypeThing, gamedb.TypePlayer:
		obj.Location = src.Location
		obj.Link = src.Exits
		obj.Exits.Set(gamedb.Nothing)
	default:
		obj.Location = src.Location
		obj.Exits = src.Exits
		obj.Link.Set(gamedb.Nothing)
	}
	fillRef(&obj.Location)
	fillRef(&obj.Zone)
	fillRef(&obj.Contents)
	fillRef(&obj.Exits)
	fillRef(&obj.Next)
	fillRef(&obj.Owner)
	fillRef(&obj.Parent)

	fw := make([]uint32, 3)
	remap.FromText(remap.PennFlags, src.Flags.V, remap.PennAliases, fw)
	fw[0] |= uint32(typ)
	if lost := remap.Unmatched(remap.PennFlags, src.Flags.V, remap.PennAliases); len(lost) > 0 {
		c.log.Warn("flags have no TinyMUX equivalent",
			zap.Int("ref", int(src.Ref)), zap.Strings("flags", lost))
		c.stats.FlagsLost += len(lost)
	}
	pw := make([]uint32, 2)
	remap.FromText(remap.PennPowers, src.Powers.V, remap.PennAliases, pw)
	if lost := remap.Unmatched(remap.PennPowers, src.Powers.V, remap.PennAliases); len(lost) > 0 {
		c.log.Warn("powers have no TinyMUX equivalent",
			zap.Int("ref", int(src.Ref)), zap.Strings("powers", lost))
		c.stats.FlagsLost += len(lost)
	}
	for i := range fw {
		obj.Flags[i].Set(fw[i])
	}
	obj.Powers[0].Set(pw[0])
	obj.Powers[1].Set(pw[1])

	for i := range src.Locks {
		c.lock(obj, owner, &src.Locks[i])
	}
	for _, a := range src.Attrs {
		c.attr(obj, owner, a)
	}
	if t, ok := src.Created.Get(); ok {
		obj.SetAttr(gamedb.T5XCreated, formatTime(t))
	}
	if t, ok := src.Modified.Get(); ok {
		obj.SetAttr(gamedb.T5XModified, formatTime(t))
	}
	return obj
}

func fillRef(o *gamedb.Opt[gamedb.DBRef]) {
	if !o.Ok {
		o.Set(gamedb.Nothing)
	}
}

func (c *pennToMUX) lock(obj *gamedb.Object, owner gamedb.DBRef, l *penndb.Lock) {
	slot, ok := remap.PennLockAttr(l.Type)
	if !ok {
		c.dropLock(obj.Ref, l.Type, errors.Newf("no TinyMUX lock slot for %q", l.Type))
		return
	}
	exp, err := l.Exp()
	if err != nil {
		c.dropLock(obj.Ref, l.Type, err)
		return
	}
	n, err := lock.Convert(exp, gamedb.T5X)
	if err != nil {
		c.dropLock(obj.Ref, l.Type, err)
		return
	}
	if n == nil {
		return
	}
	c.stats.LocksConverted++

	if slot == gamedb.A_LOCK {
		obj.Lock = n
		return
	}
	lw := []uint32{0}
	remap.FromText(remap.PennLockFlags, l.Flags.V, remap.PennAliases, lw)
	creator := l.Creator.Or(owner)
	obj.SetAttr(slot, attrs.Encode(creator, int(lw[0]), lock.Flatten(n), owner))
}

func (c *pennToMUX) dropLock(ref gamedb.DBRef, typ string, err error) {
	c.log.Warn("dropping lock", zap.Int("ref", int(ref)), zap.String("lock", typ), zap.Error(err))
	c.stats.LocksDropped++
}

func (c *pennToMUX) attr(obj *gamedb.Object, owner gamedb.DBRef, a penndb.Attr) {
	num, canon, isNew := c.reg.Number(a.Name)
	if isNew {
		c.log.Debug("new attribute", zap.String("name", canon), zap.Int("num", num))
	}
	if _, syn := remap.PennAttrSynonyms[attrs.Sanitize(a.Name)]; !syn && canon != strings.ToUpper(a.Name) {
		c.stats.AttrsRenamed++
		c.log.Debug("attribute renamed", zap.Int("ref", int(obj.Ref)),
			zap.String("from", a.Name), zap.String("to", canon))
	}
	if gamedb.IsLockAttr(gamedb.T5X, num) {
		if _, taken := obj.Attr(num); taken || (num == gamedb.A_LOCK && obj.Lock != nil) {
			c.log.Warn("attribute collides with a lock", zap.Int("ref", int(obj.Ref)), zap.String("name", a.Name))
			c.stats.AttrsDropped++
			return
		}
	}

	fw := []uint32{0}
	remap.FromText(remap.PennAttrFlags, a.Flags.V, nil, fw)
	value := c.text(a.Value.V)
	obj.SetAttr(num, attrs.Encode(a.Owner.Or(owner), int(fw[0]), value, owner))
}
