package attrs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crystal-mush/omega/pkg/gamedb"
)

func TestEncodeIdentity(t *testing.T) {
	assert.Equal(t, "hello", Encode(5, 0, "hello", 5))
	assert.Equal(t, "", Encode(5, 0, "", 5))
}

func TestEncodePacked(t *testing.T) {
	assert.Equal(t, "\x017:0:hello", Encode(7, 0, "hello", 5))
	assert.Equal(t, "\x015:12:hello", Encode(5, 12, "hello", 5))
	assert.Equal(t, "\x01-1:0:x", Encode(gamedb.Nothing, 0, "x", 5))
}

func TestEncodeSentinelValueIsPacked(t *testing.T) {
	enc := Encode(5, 0, "\x01odd", 5)
	require.Equal(t, "\x015:0:\x01odd", enc)

	owner, flags, value := Decode(enc, 5)
	assert.Equal(t, gamedb.DBRef(5), owner)
	assert.Equal(t, 0, flags)
	assert.Equal(t, "\x01odd", value)
}

func TestDecodeLiteral(t *testing.T) {
	cases := []string{
		"plain",
		"",
		"\x01",
		"\x01abc",
		"\x0112",
		"\x0112:x:y",
		"\x01a:0:y",
	}
	for _, raw := range cases {
		owner, flags, value := Decode(raw, 9)
		assert.Equal(t, gamedb.DBRef(9), owner, "raw %q", raw)
		assert.Equal(t, 0, flags, "raw %q", raw)
		assert.Equal(t, raw, value, "raw %q", raw)
		assert.False(t, IsPacked(raw) && raw != "", "raw %q", raw)
	}
}

func TestCodecRoundTrip(t *testing.T) {
	cases := []struct {
		owner gamedb.DBRef
		flags int
		value string
	}{
		{3, 0, "same owner"},
		{4, 0, "other owner"},
		{3, 0x40, "flagged"},
		{-1, -2, "negative"},
		{3, 0, "with:colons:inside"},
		{3, 0, "\x01sentinel"},
		{3, 0, ""},
	}
	for _, tc := range cases {
		owner, flags, value := Decode(Encode(tc.owner, tc.flags, tc.value, 3), 3)
		assert.Equal(t, tc.owner, owner)
		assert.Equal(t, tc.flags, flags)
		assert.Equal(t, tc.value, value)
	}
}
