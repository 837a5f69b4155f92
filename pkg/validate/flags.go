package validate

import (
	"fmt"
	"strings"

	"github.com/crystal-mush/omega/pkg/gamedb"
	"github.com/crystal-mush/omega/pkg/penndb"
	"github.com/crystal-mush/omega/pkg/remap"
)

// FlagChecker decomposes every flag and power word bit by bit against the
// dialect's named bits and reports what is left over. For PennMUSH it
// reports flag and power names neither the file's own lists nor the
// conversion tables know.
type FlagChecker struct{}

func (c *FlagChecker) Name() string { return "flags" }

func (c *FlagChecker) Check(t Target) []Finding {
	switch {
	case t.Numeric != nil:
		return c.numeric(t.Numeric)
	case t.Penn != nil:
		return c.penn(t.Penn)
	}
	return nil
}

func (c *FlagChecker) numeric(db *gamedb.Database) []Finding {
	var findings []Finding
	flagBits := gamedb.FlagBits(db.Dialect)
	powerBits := gamedb.PowerBits(db.Dialect)

	for _, ref := range db.Refs() {
		obj := db.Objects[ref]
		for w := 0; w < gamedb.FlagWords(db.Dialect); w++ {
			var ignore uint32
			if w == 0 {
				ignore = gamedb.TypeMask
			}
			if f, ok := residualFinding(obj, &obj.Flags[w], "flag", w, flagBits, ignore); ok {
				findings = append(findings, f)
			}
		}
		for w := range obj.Powers {
			if f, ok := residualFinding(obj, &obj.Powers[w], "power", w, powerBits, 0); ok {
				findings = append(findings, f)
			}
		}
	}
	return findings
}

func residualFinding(obj *gamedb.Object, word *gamedb.Opt[uint32], kind string, w int, bits []gamedb.NamedBit, ignore uint32) (Finding, bool) {
	v, ok := word.Get()
	if !ok {
		return Finding{}, false
	}
	extra := gamedb.Residual(bits, w, v, ignore)
	if extra == 0 {
		return Finding{}, false
	}
	return Finding{
		Category:    CatFlags,
		Severity:    SevWarning,
		ObjectRef:   obj.Ref,
		Description: fmt.Sprintf("#%d %s word %d has unknown bits 0x%08x", obj.Ref, kind, w, extra),
		Current:     fmt.Sprintf("0x%08x", v),
		Proposed:    fmt.Sprintf("0x%08x", v&^extra),
		Fixable:     true,
		fixFunc:     func() { word.Set(v &^ extra) },
	}, true
}

func (c *FlagChecker) penn(db *penndb.Database) []Finding {
	var findings []Finding
	for _, ref := range db.Refs() {
		obj := db.Objects[ref]
		if s, ok := obj.Flags.Get(); ok {
			for _, name := range unknownNames(s, remap.PennFlags, db.FlagInfo) {
				findings = append(findings, Finding{
					Category:    CatFlags,
					Severity:    SevWarning,
					ObjectRef:   ref,
					Description: fmt.Sprintf("#%d has unknown flag %s", ref, name),
					Current:     truncate(s, 200),
				})
			}
		}
		if s, ok := obj.Powers.Get(); ok {
			for _, name := range unknownNames(s, remap.PennPowers, db.PowerInfo) {
				findings = append(findings, Finding{
					Category:    CatFlags,
					Severity:    SevWarning,
					ObjectRef:   ref,
					Description: fmt.Sprintf("#%d has unknown power %s", ref, name),
					Current:     truncate(s, 200),
				})
			}
		}
	}
	return findings
}

// unknownNames returns the names in s that match no table entry and that the
// file's own list does not declare.
func unknownNames(s string, table remap.Table, declared func(string) (*penndb.FlagInfo, bool)) []string {
	var out []string
	for _, name := range remap.Unmatched(table, s, remap.PennAliases) {
		if _, ok := declared(strings.ToUpper(name)); ok {
			continue
		}
		out = append(out, name)
	}
	return out
}
