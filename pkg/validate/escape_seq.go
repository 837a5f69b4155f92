package validate

import (
	"fmt"
	"strings"

	"github.com/crystal-mush/omega/pkg/attrs"
	"github.com/crystal-mush/omega/pkg/charset"
	"github.com/crystal-mush/omega/pkg/gamedb"
)

// EscapeSeqChecker detects ESC bytes (0x1b) in a TinyMUX database stored as
// UTF-8. Those files keep color as code points, so a raw escape means text
// was transcoded incompletely. The fix converts the escapes to code points.
type EscapeSeqChecker struct{}

func (c *EscapeSeqChecker) Name() string { return "escape-seq" }

func (c *EscapeSeqChecker) Check(t Target) []Finding {
	db := t.Numeric
	if db == nil || db.Dialect != gamedb.T5X || db.Version < 3 {
		return nil
	}
	var findings []Finding

	for _, ref := range db.Refs() {
		obj := db.Objects[ref]
		if obj.IsGoing() {
			continue
		}
		if name, ok := obj.Name.Get(); ok && strings.IndexByte(name, 0x1b) >= 0 {
			fixed := charset.Apply(charset.ANSIToColor(), name)
			findings = append(findings, Finding{
				Category:    CatEscapeSeq,
				Severity:    SevWarning,
				ObjectRef:   ref,
				Description: fmt.Sprintf("#%d name contains ESC bytes", ref),
				Current:     truncate(name, 200),
				Fixable:     true,
				fixFunc:     func() { obj.Name.Set(fixed) },
			})
		}

		objOwner := obj.Owner.Or(ref)
		for _, attr := range obj.Attrs {
			owner, flags, text := attrs.Decode(attr.Value, objOwner)
			escCount := strings.Count(text, "\x1b")
			if escCount == 0 {
				continue
			}
			num := attr.Number
			name := attrLabel(db, num)
			fixed := charset.Apply(charset.ANSIToColor(), text)
			findings = append(findings, Finding{
				Category:    CatEscapeSeq,
				Severity:    SevWarning,
				ObjectRef:   ref,
				AttrNum:     num,
				AttrName:    name,
				Description: fmt.Sprintf("%d ESC byte(s) in %s on #%d (%s)", escCount, name, ref, truncate(obj.Name.V, 30)),
				Current:     truncate(text, 200),
				Proposed:    truncate(fixed, 200),
				Fixable:     true,
				fixFunc: func() {
					obj.SetAttr(num, attrs.Encode(owner, flags, fixed, objOwner))
				},
			})
		}
	}
	return findings
}
