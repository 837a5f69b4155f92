// Package attrs holds the attribute value codec, the attribute name
// sanitizer and the per-run attribute name registry.
package attrs

import (
	"strconv"
	"strings"

	"github.com/crystal-mush/omega/pkg/gamedb"
)

// Sentinel introduces a packed "owner:flags:" prefix on a stored value.
const Sentinel = '\x01'

// Encode packs an attribute value. A value owned by its object's owner with
// no flags is stored as is, unless it already starts with the sentinel, in
// which case it must be packed to survive decoding.
func Encode(owner gamedb.DBRef, flags int, value string, objOwner gamedb.DBRef) string {
	if owner == objOwner && flags == 0 && (value == "" || value[0] != Sentinel) {
		return value
	}
	var b strings.Builder
	b.Grow(len(value) + 16)
	b.WriteByte(Sentinel)
	b.WriteString(strconv.Itoa(int(owner)))
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(flags))
	b.WriteByte(':')
	b.WriteString(value)
	return b.String()
}

// Decode unpacks a stored value. Without a well-formed prefix the whole text
// is the value and owner/flags default to objOwner and zero.
func Decode(raw string, objOwner gamedb.DBRef) (owner gamedb.DBRef, flags int, value string) {
	if raw == "" || raw[0] != Sentinel {
		return objOwner, 0, raw
	}
	rest := raw[1:]
	i := strings.IndexByte(rest, ':')
	if i < 0 {
		return objOwner, 0, raw
	}
	o, err := strconv.Atoi(rest[:i])
	if err != nil {
		return objOwner, 0, raw
	}
	rest = rest[i+1:]
	j := strings.IndexByte(rest, ':')
	if j < 0 {
		return objOwner, 0, raw
	}
	f, err := strconv.Atoi(rest[:j])
	if err != nil {
		return objOwner, 0, raw
	}
	return gamedb.DBRef(o), f, rest[j+1:]
}

// IsPacked reports whether raw carries a well-formed owner/flags prefix.
func IsPacked(raw string) bool {
	_, _, v := Decode(raw, gamedb.Nothing)
	return len(v) != len(raw)
}
