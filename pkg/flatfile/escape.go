package flatfile

import (
	"strings"

	"github.com/crystal-mush/omega/pkg/gamedb"
)

// unescape returns the byte a backslash escape stands for. Unknown escapes
// yield the escaped byte itself.
func unescape(d gamedb.Dialect, c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 'r':
		return '\r'
	case 't':
		return '\t'
	case 'e':
		if d == gamedb.T5X {
			return 0x1b
		}
	}
	return c
}

// escapeSet lists, per byte, the escape written for it inside quotes.
type escapeSet [256]string

func newEscapeSet(pairs ...string) *escapeSet {
	var e escapeSet
	e['"'] = `\"`
	e['\\'] = `\\`
	for i := 0; i+1 < len(pairs); i += 2 {
		e[pairs[i][0]] = pairs[i+1]
	}
	return &e
}

var (
	t5xV1Escapes = newEscapeSet("\n", `\n`, "\r", `\r`, "\x1b", `\e`)
	t5xEscapes   = newEscapeSet("\n", `\n`, "\r", `\r`, "\t", `\t`, "\x1b", `\e`)
	t6hEscapes   = newEscapeSet("\n", `\n`, "\r", `\r`, "\t", `\t`)
	r7hEscapes   = newEscapeSet("\n", `\n`, "\r", `\r`)
)

// escapesFor returns the escape set of a dialect at a given version.
func escapesFor(d gamedb.Dialect, version int) *escapeSet {
	switch d {
	case gamedb.T5X:
		if version < 2 {
			return t5xV1Escapes
		}
		return t5xEscapes
	case gamedb.T6H:
		return t6hEscapes
	}
	return r7hEscapes
}

// quote produces a quoted string with the escapes of set e.
func (e *escapeSet) quote(s string) string {
	var buf strings.Builder
	buf.Grow(len(s) + 2)
	buf.WriteByte('"')
	for i := 0; i < len(s); i++ {
		if esc := e[s[i]]; esc != "" {
			buf.WriteString(esc)
			continue
		}
		buf.WriteByte(s[i])
	}
	buf.WriteByte('"')
	return buf.String()
}

// QuoteString quotes s the way dialect d at version writes strings.
func QuoteString(d gamedb.Dialect, version int, s string) string {
	return escapesFor(d, version).quote(s)
}
