package attrs

import (
	"sort"

	"github.com/crystal-mush/omega/pkg/gamedb"
)

// IllegalChar replaces any character a sanitized name may not contain.
const IllegalChar = 'X'

var (
	initialChars  [256]bool
	continueChars [256]bool
)

func init() {
	for c := 'A'; c <= 'Z'; c++ {
		initialChars[c] = true
		continueChars[c] = true
	}
	initialChars['_'] = true
	for c := '0'; c <= '9'; c++ {
		continueChars[c] = true
	}
	for _, c := range []byte("_-.#'?@`") {
		continueChars[c] = true
	}
}

// ValidInitial reports whether c may start an attribute name.
func ValidInitial(c byte) bool { return initialChars[c] }

// ValidContinuation reports whether c may appear after the first character.
func ValidContinuation(c byte) bool { return continueChars[c] }

// Sanitize uppercases name and replaces each character that its position
// does not allow with IllegalChar. An empty name becomes "X".
func Sanitize(name string) string {
	if name == "" {
		return string(IllegalChar)
	}
	b := []byte(name)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		ok := continueChars[c]
		if i == 0 {
			ok = initialChars[c]
		}
		if !ok {
			c = IllegalChar
		}
		b[i] = c
	}
	return string(b)
}

// RegistryConfig describes how source names map into a target dialect.
type RegistryConfig struct {
	Target gamedb.Dialect

	// Start is the first number handed to a new user attribute.
	Start int

	// Prefix is prepended to names listed in Renamed.
	Prefix string

	// Renamed lists names the target defines with a different meaning.
	Renamed []string

	// Synonyms maps source names onto target built-in names.
	Synonyms map[string]string
}

// Registry assigns target attribute numbers to canonical names for one
// conversion run. Lookups for the same name always return the same number.
type Registry struct {
	cfg      RegistryConfig
	renamed  map[string]bool
	byName   map[string]int
	byNum    map[int]string
	next     int
	assigned []gamedb.AttrDef
	flags    map[int]int
}

// NewRegistry seeds a registry with the target's built-in names.
func NewRegistry(cfg RegistryConfig) *Registry {
	if cfg.Start < gamedb.A_USER_START {
		cfg.Start = gamedb.A_USER_START
	}
	r := &Registry{
		cfg:     cfg,
		renamed: make(map[string]bool, len(cfg.Renamed)),
		byName:  make(map[string]int),
		byNum:   make(map[int]string),
		next:    cfg.Start,
		flags:   make(map[int]int),
	}
	for _, n := range cfg.Renamed {
		r.renamed[Sanitize(n)] = true
	}
	for num, name := range gamedb.BuiltinAttrs(cfg.Target) {
		r.byName[name] = num
		r.byNum[num] = name
	}
	return r
}

// Canonical returns the target name a source name is filed under.
func (r *Registry) Canonical(name string) string {
	canon := Sanitize(name)
	if syn, ok := r.cfg.Synonyms[canon]; ok {
		return syn
	}
	if r.renamed[canon] {
		return Sanitize(r.cfg.Prefix + canon)
	}
	return canon
}

// Number returns the target number for a source name, allocating a user
// number on first sight. isNew is true only for that first allocation.
func (r *Registry) Number(name string) (num int, canonical string, isNew bool) {
	canon := r.Canonical(name)
	if n, ok := r.byName[canon]; ok {
		return n, canon, false
	}
	for {
		if _, used := r.byNum[r.next]; !used {
			break
		}
		r.next++
	}
	n := r.next
	r.next++
	r.byName[canon] = n
	r.byNum[n] = canon
	r.assigned = append(r.assigned, gamedb.AttrDef{Number: n, Name: canon})
	return n, canon, true
}

// SetFlags records the default flags of a user attribute for UserDefs.
func (r *Registry) SetFlags(num, flags int) {
	r.flags[num] = flags
}

// Name returns the name registered for num.
func (r *Registry) Name(num int) (string, bool) {
	name, ok := r.byNum[num]
	return name, ok
}

// Next returns the next number that would be allocated.
func (r *Registry) Next() int {
	return r.next
}

// UserDefs returns the user attributes allocated so far, ordered by number.
func (r *Registry) UserDefs() []gamedb.AttrDef {
	defs := make([]gamedb.AttrDef, len(r.assigned))
	copy(defs, r.assigned)
	for i := range defs {
		defs[i].Flags = r.flags[defs[i].Number]
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Number < defs[j].Number })
	return defs
}
