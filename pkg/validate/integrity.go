package validate

import (
	"fmt"

	"github.com/crystal-mush/omega/pkg/gamedb"
	"github.com/crystal-mush/omega/pkg/lock"
	"github.com/crystal-mush/omega/pkg/penndb"
)

// maxChain bounds a contents or exits walk.
const maxChain = 50000

// IntegrityChecker performs referential integrity checks on the database.
type IntegrityChecker struct{}

func (c *IntegrityChecker) Name() string { return "integrity" }

func (c *IntegrityChecker) Check(t Target) []Finding {
	switch {
	case t.Numeric != nil:
		return c.numeric(t.Numeric)
	case t.Penn != nil:
		return c.penn(t.Penn)
	}
	return nil
}

// refField is one relational field of an object.
type refField struct {
	name string
	ref  gamedb.Opt[gamedb.DBRef]
	home bool // HOME is a legal value
}

// integrity collects findings for one database behind two lookups.
type integrity struct {
	findings []Finding
	exists   func(gamedb.DBRef) bool
	next     func(gamedb.DBRef) (gamedb.DBRef, bool)
}

func (in *integrity) errorf(ref gamedb.DBRef, format string, args ...any) {
	in.findings = append(in.findings, Finding{
		Category:    CatIntegrityError,
		Severity:    SevError,
		ObjectRef:   ref,
		Description: fmt.Sprintf(format, args...),
	})
}

func (in *integrity) warnf(ref gamedb.DBRef, format string, args ...any) {
	in.findings = append(in.findings, Finding{
		Category:    CatIntegrityWarn,
		Severity:    SevWarning,
		ObjectRef:   ref,
		Description: fmt.Sprintf(format, args...),
	})
}

func (in *integrity) fields(ref gamedb.DBRef, fields []refField) {
	for _, f := range fields {
		target, ok := f.ref.Get()
		if !ok || target == gamedb.Nothing || target == gamedb.Ambiguous {
			continue
		}
		if target == gamedb.Home && f.home {
			continue
		}
		if !in.exists(target) {
			in.errorf(ref, "#%d %s #%d does not exist", ref, f.name, target)
		}
	}
}

func (in *integrity) lockRefs(ref gamedb.DBRef, what string, n *gamedb.BoolExp) {
	for _, target := range n.Refs() {
		if target < 0 {
			continue
		}
		if !in.exists(target) {
			in.warnf(ref, "#%d %s refers to missing #%d", ref, what, target)
		}
	}
}

// chain walks a Next-linked list from head and reports loops.
func (in *integrity) chain(ref gamedb.DBRef, what string, head gamedb.DBRef) {
	visited := make(map[gamedb.DBRef]bool)
	cur := head
	for cur != gamedb.Nothing {
		if visited[cur] {
			in.errorf(ref, "#%d %s chain has loop at #%d", ref, what, cur)
			return
		}
		visited[cur] = true
		next, ok := in.next(cur)
		if !ok {
			return
		}
		cur = next
		if len(visited) > maxChain {
			in.errorf(ref, "#%d %s chain exceeds %d entries", ref, what, maxChain)
			return
		}
	}
}

func (c *IntegrityChecker) numeric(db *gamedb.Database) []Finding {
	in := &integrity{
		exists: func(r gamedb.DBRef) bool { _, ok := db.Objects[r]; return ok },
		next: func(r gamedb.DBRef) (gamedb.DBRef, bool) {
			o, ok := db.Objects[r]
			if !ok {
				return gamedb.Nothing, false
			}
			return o.Next.Or(gamedb.Nothing), true
		},
	}

	for _, ref := range db.Refs() {
		obj := db.Objects[ref]
		if obj.IsGoing() {
			continue
		}
		in.fields(ref, []refField{
			{name: "location", ref: obj.Location, home: true},
			{name: "contents head", ref: obj.Contents},
			{name: "exits head", ref: obj.Exits},
			{name: "next", ref: obj.Next},
			{name: "parent", ref: obj.Parent},
			{name: "zone", ref: obj.Zone},
			{name: "link", ref: obj.Link, home: true},
		})

		if owner, ok := obj.Owner.Get(); ok && owner != gamedb.Nothing {
			if o, ok := db.Objects[owner]; !ok {
				in.errorf(ref, "#%d owner #%d does not exist", ref, owner)
			} else if o.ObjType() != gamedb.TypePlayer && owner != 1 {
				in.warnf(ref, "#%d owner #%d is not a player (type=%s)", ref, owner, o.ObjType())
			}
		}

		in.lockRefs(ref, "default lock", obj.Lock)
		for i := range obj.Attrs {
			a := &obj.Attrs[i]
			if n, err := lock.AttrLock(db.Dialect, a); err == nil && n != nil {
				in.lockRefs(ref, attrLabel(db, a.Number), n)
			}
		}

		if head := obj.Contents.Or(gamedb.Nothing); head != gamedb.Nothing {
			in.chain(ref, "contents", head)
		}
		if head := obj.Exits.Or(gamedb.Nothing); head != gamedb.Nothing {
			in.chain(ref, "exits", head)
		}
	}
	return in.findings
}

func (c *IntegrityChecker) penn(db *penndb.Database) []Finding {
	in := &integrity{
		exists: func(r gamedb.DBRef) bool { _, ok := db.Objects[r]; return ok },
		next: func(r gamedb.DBRef) (gamedb.DBRef, bool) {
			o, ok := db.Objects[r]
			if !ok {
				return gamedb.Nothing, false
			}
			return o.Next.Or(gamedb.Nothing), true
		},
	}

	for _, ref := range db.Refs() {
		obj := db.Objects[ref]
		typ := obj.Type.Or(0)
		if typ == penndb.TypeGarbage {
			continue
		}
		// Exits of a player or thing is its home.
		exitsName := "exits head"
		if typ == penndb.TypePlayer || typ == penndb.TypeThing {
			exitsName = "home"
		}
		in.fields(ref, []refField{
			{name: "location", ref: obj.Location, home: true},
			{name: "contents head", ref: obj.Contents},
			{name: exitsName, ref: obj.Exits, home: true},
			{name: "next", ref: obj.Next},
			{name: "parent", ref: obj.Parent},
			{name: "zone", ref: obj.Zone},
		})

		if owner, ok := obj.Owner.Get(); ok && owner != gamedb.Nothing {
			if o, ok := db.Objects[owner]; !ok {
				in.errorf(ref, "#%d owner #%d does not exist", ref, owner)
			} else if o.Type.Or(0) != penndb.TypePlayer && owner != 1 {
				in.warnf(ref, "#%d owner #%d is not a player (type=%s)", ref, owner, penndb.TypeName(o.Type.Or(0)))
			}
		}

		for i := range obj.Locks {
			l := &obj.Locks[i]
			if n, err := l.Exp(); err == nil {
				in.lockRefs(ref, l.Type+" lock", n)
			}
		}

		if head := obj.Contents.Or(gamedb.Nothing); head != gamedb.Nothing {
			in.chain(ref, "contents", head)
		}
		if typ == penndb.TypeRoom {
			if head := obj.Exits.Or(gamedb.Nothing); head != gamedb.Nothing {
				in.chain(ref, "exits", head)
			}
		}
	}
	return in.findings
}
