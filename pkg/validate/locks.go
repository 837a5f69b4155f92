package validate

import (
	"fmt"

	"github.com/crystal-mush/omega/pkg/attrs"
	"github.com/crystal-mush/omega/pkg/gamedb"
	"github.com/crystal-mush/omega/pkg/lock"
	"github.com/crystal-mush/omega/pkg/penndb"
)

// LockChecker re-serializes every parsed lock and compares the text with
// what the file holds. A difference means a write would change the lock
// text; an unparsable key means the lock cannot be converted.
type LockChecker struct{}

func (c *LockChecker) Name() string { return "locks" }

func (c *LockChecker) Check(t Target) []Finding {
	switch {
	case t.Numeric != nil:
		return c.numeric(t.Numeric)
	case t.Penn != nil:
		return c.penn(t.Penn)
	}
	return nil
}

func unparsable(ref gamedb.DBRef, num int, what, key string, err error) Finding {
	return Finding{
		Category:    CatLocks,
		Severity:    SevWarning,
		ObjectRef:   ref,
		AttrNum:     num,
		AttrName:    what,
		Description: fmt.Sprintf("#%d %s cannot be parsed: %v", ref, what, err),
		Current:     truncate(key, 200),
	}
}

func (c *LockChecker) numeric(db *gamedb.Database) []Finding {
	var findings []Finding
	for _, ref := range db.Refs() {
		obj := db.Objects[ref]

		if raw, ok := obj.LockRaw.Get(); ok {
			if obj.Lock == nil && raw != "\n" {
				if _, err := lock.ParseCanonical(raw); err != nil {
					findings = append(findings, unparsable(ref, 0, "default lock", raw, err))
				}
			} else if canon := lock.Canonical(obj.Lock); canon != raw {
				findings = append(findings, Finding{
					Category:    CatLocks,
					Severity:    SevInfo,
					ObjectRef:   ref,
					Description: fmt.Sprintf("#%d default lock is not in canonical form", ref),
					Current:     truncate(raw, 200),
					Proposed:    truncate(canon, 200),
					Fixable:     true,
					fixFunc:     func() { obj.LockRaw.Clear() },
				})
			}
		}

		objOwner := obj.Owner.Or(ref)
		for i := range obj.Attrs {
			a := &obj.Attrs[i]
			if !gamedb.IsLockAttr(db.Dialect, a.Number) {
				continue
			}
			num := a.Number
			name := attrLabel(db, num)
			owner, flags, key := attrs.Decode(a.Value, objOwner)
			exp, err := lock.AttrLock(db.Dialect, a)
			if err != nil {
				findings = append(findings, unparsable(ref, num, name, key, err))
				continue
			}
			flat := lock.Flatten(exp)
			if flat == key {
				continue
			}
			findings = append(findings, Finding{
				Category:    CatLocks,
				Severity:    SevWarning,
				ObjectRef:   ref,
				AttrNum:     num,
				AttrName:    name,
				Description: fmt.Sprintf("#%d %s does not survive a round trip", ref, name),
				Current:     truncate(key, 200),
				Proposed:    truncate(flat, 200),
				Fixable:     true,
				fixFunc: func() {
					obj.SetAttr(num, attrs.Encode(owner, flags, flat, objOwner))
				},
			})
		}
	}
	return findings
}

func (c *LockChecker) penn(db *penndb.Database) []Finding {
	var findings []Finding
	for _, ref := range db.Refs() {
		obj := db.Objects[ref]
		for i := range obj.Locks {
			l := &obj.Locks[i]
			what := l.Type + " lock"
			exp, err := l.Exp()
			if err != nil {
				findings = append(findings, unparsable(ref, 0, what, l.Key.V, err))
				continue
			}
			flat := lock.Flatten(exp)
			if flat == l.Key.V {
				continue
			}
			typ := l.Type
			findings = append(findings, Finding{
				Category:    CatLocks,
				Severity:    SevWarning,
				ObjectRef:   ref,
				AttrName:    what,
				Description: fmt.Sprintf("#%d %s does not survive a round trip", ref, what),
				Current:     truncate(l.Key.V, 200),
				Proposed:    truncate(flat, 200),
				Fixable:     true,
				fixFunc: func() {
					if cur, ok := obj.Lock(typ); ok {
						cur.SetKey(flat)
					}
				},
			})
		}
	}
	return findings
}
