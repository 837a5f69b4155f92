// Package validate checks a loaded flatfile for consistency before and after
// conversion. Checkers report findings; some findings carry a fix that the
// caller may apply.
package validate

import (
	"fmt"
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/crystal-mush/omega/pkg/gamedb"
	"github.com/crystal-mush/omega/pkg/penndb"
)

// Category classifies the type of finding.
type Category int

const (
	CatHeader         Category = iota // Database-level flags
	CatFlags                          // Unknown flag or power bits
	CatCounts                         // Declared counts that disagree with content
	CatIntegrityError                 // Broken references
	CatIntegrityWarn                  // Suspicious references
	CatAttrNames                      // Attribute name table problems
	CatAttrFlags                      // Unknown attribute flag bits
	CatLocks                          // Lock round-trip drift
	CatEscapeSeq                      // Raw escape sequences
)

var categoryNames = map[Category]string{
	CatHeader:         "header",
	CatFlags:          "flags",
	CatCounts:         "counts",
	CatIntegrityError: "integrity-error",
	CatIntegrityWarn:  "integrity-warning",
	CatAttrNames:      "attr-names",
	CatAttrFlags:      "attr-flags",
	CatLocks:          "locks",
	CatEscapeSeq:      "escape-seq",
}

func (c Category) String() string {
	if s, ok := categoryNames[c]; ok {
		return s
	}
	return "unknown"
}

// Categories returns every category in declaration order.
func Categories() []Category {
	cats := make([]Category, 0, len(categoryNames))
	for c := range categoryNames {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })
	return cats
}

// Severity indicates how serious a finding is.
type Severity int

const (
	SevFatal   Severity = iota // The database cannot be processed
	SevError                   // Must be fixed for correct behavior
	SevWarning                 // Should be reviewed
	SevInfo                    // Informational only
)

func (s Severity) String() string {
	switch s {
	case SevFatal:
		return "fatal"
	case SevError:
		return "error"
	case SevWarning:
		return "warning"
	case SevInfo:
		return "info"
	default:
		return "unknown"
	}
}

// Finding represents a single validation issue detected in the database.
type Finding struct {
	ID          string       `json:"id"`
	Category    Category     `json:"category"`
	Severity    Severity     `json:"severity"`
	ObjectRef   gamedb.DBRef `json:"object_ref"`
	AttrNum     int          `json:"attr_num,omitempty"`
	AttrName    string       `json:"attr_name,omitempty"`
	Description string       `json:"description"`
	Current     string       `json:"current,omitempty"`
	Proposed    string       `json:"proposed,omitempty"`
	Fixable     bool         `json:"fixable"`
	Fixed       bool         `json:"fixed"`
	fixFunc     func()       // called via ApplyFix
}

// Target is the database under validation. Exactly one field is set.
type Target struct {
	Numeric *gamedb.Database
	Penn    *penndb.Database
}

// Dialect returns the dialect of the database held.
func (t Target) Dialect() gamedb.Dialect {
	if t.Penn != nil {
		return gamedb.P6H
	}
	if t.Numeric != nil {
		return t.Numeric.Dialect
	}
	return gamedb.DialectUnknown
}

// Checker is the interface that each validation check implements. A checker
// returns nil for a dialect it has nothing to say about.
type Checker interface {
	Name() string
	Check(t Target) []Finding
}

// Validator orchestrates running all checkers against a database.
type Validator struct {
	checkers []Checker
	target   Target
	findings []Finding
}

// DefaultCheckers returns every built-in checker.
func DefaultCheckers() []Checker {
	return []Checker{
		&HeaderChecker{},
		&FlagChecker{},
		&CountChecker{},
		&IntegrityChecker{},
		&AttrNameChecker{},
		&AttrFlagChecker{},
		&LockChecker{},
		&EscapeSeqChecker{},
	}
}

// New creates a Validator with all built-in checkers registered.
func New(t Target) *Validator {
	return &Validator{target: t, checkers: DefaultCheckers()}
}

// ForNumeric is New for a TinyMUX, TinyMUSH or RhostMUSH database.
func ForNumeric(db *gamedb.Database) *Validator {
	return New(Target{Numeric: db})
}

// ForPenn is New for a PennMUSH database.
func ForPenn(db *penndb.Database) *Validator {
	return New(Target{Penn: db})
}

// Run executes all checkers and returns findings sorted by dbref then attr number.
func (v *Validator) Run() []Finding {
	v.findings = nil
	for _, c := range v.checkers {
		found := c.Check(v.target)
		for i := range found {
			if found[i].ID == "" {
				found[i].ID = fmt.Sprintf("%s-%d", c.Name(), i)
			}
		}
		v.findings = append(v.findings, found...)
	}
	sort.SliceStable(v.findings, func(i, j int) bool {
		if v.findings[i].ObjectRef != v.findings[j].ObjectRef {
			return v.findings[i].ObjectRef < v.findings[j].ObjectRef
		}
		return v.findings[i].AttrNum < v.findings[j].AttrNum
	})
	return v.findings
}

// Findings returns the current findings (after Run has been called).
func (v *Validator) Findings() []Finding {
	return v.findings
}

// Fatal returns the findings that stop processing.
func (v *Validator) Fatal() []Finding {
	var out []Finding
	for _, f := range v.findings {
		if f.Severity == SevFatal {
			out = append(out, f)
		}
	}
	return out
}

// ApplyFix applies a single fix by finding ID. Returns error if not found or not fixable.
func (v *Validator) ApplyFix(id string) error {
	for i := range v.findings {
		if v.findings[i].ID == id {
			if !v.findings[i].Fixable {
				return errors.Newf("finding %s is not fixable", id)
			}
			if v.findings[i].Fixed {
				return errors.Newf("finding %s is already fixed", id)
			}
			if v.findings[i].fixFunc != nil {
				v.findings[i].fixFunc()
				v.findings[i].Fixed = true
			}
			return nil
		}
	}
	return errors.Newf("finding %s not found", id)
}

// ApplyAll applies all fixable findings in the given category. Returns count of fixes applied.
func (v *Validator) ApplyAll(cat Category) int {
	count := 0
	for i := range v.findings {
		f := &v.findings[i]
		if f.Category == cat && f.Fixable && !f.Fixed && f.fixFunc != nil {
			f.fixFunc()
			f.Fixed = true
			count++
		}
	}
	return count
}

// ApplyEverything applies every outstanding fix.
func (v *Validator) ApplyEverything() int {
	count := 0
	for _, cat := range Categories() {
		count += v.ApplyAll(cat)
	}
	return count
}

// Summary returns counts of findings per category.
func (v *Validator) Summary() map[Category]int {
	m := make(map[Category]int)
	for _, f := range v.findings {
		m[f.Category]++
	}
	return m
}

// SummaryBySeverity returns counts of findings per severity.
func (v *Validator) SummaryBySeverity() map[Severity]int {
	m := make(map[Severity]int)
	for _, f := range v.findings {
		m[f.Severity]++
	}
	return m
}

// SummaryByStatus returns counts of fixed vs unfixed findings per category.
func (v *Validator) SummaryByStatus() map[Category][2]int {
	m := make(map[Category][2]int) // [0]=unfixed, [1]=fixed
	for _, f := range v.findings {
		counts := m[f.Category]
		if f.Fixed {
			counts[1]++
		} else {
			counts[0]++
		}
		m[f.Category] = counts
	}
	return m
}

// attrLabel names an attribute of a numeric database for a description.
func attrLabel(db *gamedb.Database, num int) string {
	if name := db.AttrName(num); name != "" {
		return name
	}
	return fmt.Sprintf("A_%d", num)
}

// truncate returns at most max characters of s, adding "..." if truncated.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
