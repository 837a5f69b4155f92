package validate

import (
	"fmt"

	"github.com/crystal-mush/omega/pkg/attrs"
	"github.com/crystal-mush/omega/pkg/gamedb"
)

// AttrFlagChecker reports attribute flag bits, on packed values and on +A
// definitions, that the dialect does not name. Lock attributes are skipped:
// their packed flags are lock flags.
type AttrFlagChecker struct{}

func (c *AttrFlagChecker) Name() string { return "attr-flags" }

func (c *AttrFlagChecker) Check(t Target) []Finding {
	db := t.Numeric
	if db == nil {
		return nil
	}
	bits := gamedb.AttrFlagBits(db.Dialect)
	var findings []Finding

	for _, def := range db.AttrNames {
		extra := gamedb.Residual(bits, 0, uint32(def.Flags), 0)
		if extra == 0 {
			continue
		}
		findings = append(findings, Finding{
			Category:    CatAttrFlags,
			Severity:    SevInfo,
			ObjectRef:   gamedb.Nothing,
			AttrNum:     def.Number,
			AttrName:    def.Name,
			Description: fmt.Sprintf("+A definition %s has unknown flag bits 0x%x", def.Name, extra),
			Fixable:     true,
			fixFunc:     func() { def.Flags &^= int(extra) },
		})
	}

	for _, ref := range db.Refs() {
		obj := db.Objects[ref]
		if obj.IsGoing() {
			continue
		}
		objOwner := obj.Owner.Or(ref)
		for i := range obj.Attrs {
			a := &obj.Attrs[i]
			if !attrs.IsPacked(a.Value) || gamedb.IsLockAttr(db.Dialect, a.Number) {
				continue
			}
			owner, flags, value := attrs.Decode(a.Value, objOwner)
			extra := gamedb.Residual(bits, 0, uint32(flags), 0)
			if extra == 0 {
				continue
			}
			num := a.Number
			name := attrLabel(db, num)
			findings = append(findings, Finding{
				Category:    CatAttrFlags,
				Severity:    SevInfo,
				ObjectRef:   ref,
				AttrNum:     a.Number,
				AttrName:    name,
				Description: fmt.Sprintf("%s on #%d has unknown flag bits 0x%x", name, ref, extra),
				Current:     truncate(value, 200),
				Fixable:     true,
				fixFunc: func() {
					obj.SetAttr(num, attrs.Encode(owner, flags&^int(extra), value, objOwner))
				},
			})
		}
	}
	return findings
}
