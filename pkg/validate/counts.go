package validate

import (
	"fmt"
	"strconv"

	"github.com/crystal-mush/omega/pkg/gamedb"
	"github.com/crystal-mush/omega/pkg/penndb"
)

// CountChecker cross-checks every declared count against the list it counts.
type CountChecker struct{}

func (c *CountChecker) Name() string { return "counts" }

func (c *CountChecker) Check(t Target) []Finding {
	switch {
	case t.Numeric != nil:
		return c.numeric(t.Numeric)
	case t.Penn != nil:
		return c.penn(t.Penn)
	}
	return nil
}

// countFinding reports a declared count that disagrees with want. The fix
// stores want.
func countFinding(ref gamedb.DBRef, what string, declared *gamedb.Opt[int], want int, sev Severity) (Finding, bool) {
	got, ok := declared.Get()
	if ok && got == want {
		return Finding{}, false
	}
	cur := "absent"
	if ok {
		cur = strconv.Itoa(got)
	}
	desc := fmt.Sprintf("%s is %s, expected %d", what, cur, want)
	if ref != gamedb.Nothing {
		desc = fmt.Sprintf("#%d %s", ref, desc)
	}
	return Finding{
		Category:    CatCounts,
		Severity:    sev,
		ObjectRef:   ref,
		Description: desc,
		Current:     cur,
		Proposed:    strconv.Itoa(want),
		Fixable:     true,
		fixFunc:     func() { declared.Set(want) },
	}, true
}

func (c *CountChecker) numeric(db *gamedb.Database) []Finding {
	var findings []Finding
	add := func(f Finding, ok bool) {
		if ok {
			findings = append(findings, f)
		}
	}

	if max := db.MaxUserAttr(); max > 0 {
		if next, ok := db.NextAttr.Get(); !ok || next <= max {
			add(countFinding(gamedb.Nothing, "next attribute number (+N)", &db.NextAttr, max+1, SevWarning))
		}
	}

	if size, ok := db.Size.Get(); ok && size <= int(db.MaxRef()) {
		add(countFinding(gamedb.Nothing, "database size (+S)", &db.Size, int(db.MaxRef())+1, SevWarning))
	}

	if db.RecordPlayers.Ok {
		players := 0
		for _, obj := range db.Objects {
			if obj.ObjType() == gamedb.TypePlayer {
				players++
			}
		}
		if db.RecordPlayers.V < players {
			add(countFinding(gamedb.Nothing, "record players (-R)", &db.RecordPlayers, players, SevInfo))
		}
	}
	return findings
}

func (c *CountChecker) penn(db *penndb.Database) []Finding {
	var findings []Finding
	add := func(f Finding, ok bool) {
		if ok {
			findings = append(findings, f)
		}
	}

	if db.FlagCount.Ok || len(db.FlagList) > 0 {
		add(countFinding(gamedb.Nothing, "flag list count", &db.FlagCount, len(db.FlagList), SevWarning))
	}
	if db.FlagAliasCount.Ok || len(db.FlagAliases) > 0 {
		add(countFinding(gamedb.Nothing, "flag alias count", &db.FlagAliasCount, len(db.FlagAliases), SevWarning))
	}
	if db.PowerCount.Ok || len(db.PowerList) > 0 {
		add(countFinding(gamedb.Nothing, "power list count", &db.PowerCount, len(db.PowerList), SevWarning))
	}
	if db.PowerAliasCount.Ok || len(db.PowerAliases) > 0 {
		add(countFinding(gamedb.Nothing, "power alias count", &db.PowerAliasCount, len(db.PowerAliases), SevWarning))
	}
	if size, ok := db.Size.Get(); ok && size <= int(db.MaxRef()) {
		add(countFinding(gamedb.Nothing, "database size (~)", &db.Size, int(db.MaxRef())+1, SevWarning))
	}

	for _, ref := range db.Refs() {
		obj := db.Objects[ref]
		if obj.LockCount.Ok || len(obj.Locks) > 0 {
			add(countFinding(ref, "lock count", &obj.LockCount, len(obj.Locks), SevWarning))
		}
		if obj.AttrCount.Ok || len(obj.Attrs) > 0 {
			add(countFinding(ref, "attribute count", &obj.AttrCount, len(obj.Attrs), SevWarning))
		}
	}
	return findings
}
