package validate

import (
	"fmt"

	"github.com/crystal-mush/omega/pkg/attrs"
	"github.com/crystal-mush/omega/pkg/gamedb"
)

// AttrNameChecker checks the +A name table of a numeric database: every user
// attribute in use needs a definition, and definitions may not shadow
// built-in numbers.
type AttrNameChecker struct{}

func (c *AttrNameChecker) Name() string { return "attr-names" }

func (c *AttrNameChecker) Check(t Target) []Finding {
	db := t.Numeric
	if db == nil {
		return nil
	}
	var findings []Finding

	for _, def := range db.AttrNames {
		if def.Number < gamedb.A_USER_START {
			findings = append(findings, Finding{
				Category:    CatAttrNames,
				Severity:    SevWarning,
				ObjectRef:   gamedb.Nothing,
				AttrNum:     def.Number,
				AttrName:    def.Name,
				Description: fmt.Sprintf("+A definition %s uses built-in number %d", def.Name, def.Number),
			})
		}
		if clean := attrs.Sanitize(def.Name); clean != def.Name {
			findings = append(findings, Finding{
				Category:    CatAttrNames,
				Severity:    SevInfo,
				ObjectRef:   gamedb.Nothing,
				AttrNum:     def.Number,
				AttrName:    def.Name,
				Description: fmt.Sprintf("attribute name %q is not valid", def.Name),
				Current:     def.Name,
				Proposed:    clean,
				Fixable:     true,
				fixFunc: func() {
					def.Name = clean
					db.Reindex()
				},
			})
		}
	}

	undefined := make(map[int]gamedb.DBRef)
	for _, ref := range db.Refs() {
		for _, a := range db.Objects[ref].Attrs {
			if a.Number < gamedb.A_USER_START {
				continue
			}
			if _, ok := db.AttrDef(a.Number); ok {
				continue
			}
			if _, seen := undefined[a.Number]; !seen {
				undefined[a.Number] = ref
			}
		}
	}
	for num, first := range undefined {
		name := fmt.Sprintf("A_%d", num)
		findings = append(findings, Finding{
			Category:    CatAttrNames,
			Severity:    SevWarning,
			ObjectRef:   first,
			AttrNum:     num,
			Description: fmt.Sprintf("attribute %d is used (first on #%d) but has no +A definition", num, first),
			Proposed:    name,
			Fixable:     true,
			fixFunc:     func() { db.AddAttrDef(num, name, 0) },
		})
	}
	return findings
}
