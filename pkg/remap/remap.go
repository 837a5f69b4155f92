// Package remap holds the static name/mask tables that carry flags, powers,
// lock flags and attribute flags between dialects, and the object type maps.
package remap

import (
	"strings"

	"github.com/crystal-mush/omega/pkg/gamedb"
)

// Entry ties a textual name to one bit of a numeric word.
type Entry struct {
	Name string
	Word int
	Mask uint32
}

// Table is an ordered list of entries. Where two entries share a bit,
// ToText reports the first.
type Table []Entry

// Aliases rewrites whole source words before matching.
type Aliases map[string]string

// Words returns how many numeric words the table addresses.
func (t Table) Words() int {
	n := 0
	for _, e := range t {
		if e.Word+1 > n {
			n = e.Word + 1
		}
	}
	return n
}

// Mask returns the bits of word that some entry covers.
func (t Table) Mask(word int) uint32 {
	var m uint32
	for _, e := range t {
		if e.Word == word {
			m |= e.Mask
		}
	}
	return m
}

// applyAliases uppercases s and replaces every space-separated word found in
// aliases. Aliases never apply inside a longer word.
func applyAliases(s string, aliases Aliases) string {
	fields := strings.Fields(strings.ToUpper(s))
	for i, f := range fields {
		if to, ok := aliases[f]; ok {
			fields[i] = to
		}
	}
	return " " + strings.Join(fields, " ") + " "
}

// FromText ORs into words the mask of every entry whose name occurs in s,
// compared case-insensitively. words must be long enough for the table.
func FromText(t Table, s string, aliases Aliases, words []uint32) {
	src := applyAliases(s, aliases)
	for _, e := range t {
		if strings.Contains(src, strings.ToUpper(e.Name)) {
			words[e.Word] |= e.Mask
		}
	}
}

// Unmatched returns the words of s, after aliasing, that no entry of t
// occurs in.
func Unmatched(t Table, s string, aliases Aliases) []string {
	var out []string
	for _, f := range strings.Fields(applyAliases(s, aliases)) {
		hit := false
		for _, e := range t {
			if strings.Contains(f, strings.ToUpper(e.Name)) {
				hit = true
				break
			}
		}
		if !hit {
			out = append(out, f)
		}
	}
	return out
}

// ToText lists the names of the bits set in words, scanning each word from
// bit 0 upwards, separated by single spaces.
func ToText(t Table, words []uint32) string {
	var names []string
	for w, v := range words {
		for bit := 0; bit < 32; bit++ {
			mask := uint32(1) << bit
			if v&mask == 0 {
				continue
			}
			for _, e := range t {
				if e.Word == w && e.Mask == mask {
					names = append(names, e.Name)
					break
				}
			}
		}
	}
	return strings.Join(names, " ")
}

// Overlaps returns pairs of entry names where one is a substring of the
// other. A table used with FromText must have none.
func Overlaps(t Table) [][2]string {
	var out [][2]string
	for i, a := range t {
		for j, b := range t {
			if i == j || a.Name == b.Name {
				continue
			}
			if strings.Contains(strings.ToUpper(b.Name), strings.ToUpper(a.Name)) {
				out = append(out, [2]string{a.Name, b.Name})
			}
		}
	}
	return out
}

// FromNamedBits builds a table from a dialect's named-bit list.
func FromNamedBits(bits []gamedb.NamedBit) Table {
	t := make(Table, len(bits))
	for i, b := range bits {
		t[i] = Entry{Name: b.Name, Word: b.Word, Mask: b.Mask}
	}
	return t
}
