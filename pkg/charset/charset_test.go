package charset

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/transform"
)

func TestLatin1ToUTF8(t *testing.T) {
	assert.Equal(t, "café", Apply(Latin1ToUTF8(), "caf\xe9"))
	assert.Equal(t, "€5", Apply(Latin1ToUTF8(), "\x805"))
	assert.Equal(t, "plain", Apply(Latin1ToUTF8(), "plain"))
}

func TestUTF8ToLatin1(t *testing.T) {
	assert.Equal(t, "caf\xe9", Apply(UTF8ToLatin1(), "café"))
	assert.Equal(t, "\x80", Apply(UTF8ToLatin1(), "€"))
	assert.Equal(t, "a?b", Apply(UTF8ToLatin1(), "a世b"))
	assert.Equal(t, "ab", Apply(UTF8ToLatin1(), "a\xffb"))
	assert.Equal(t, "a", Apply(UTF8ToLatin1(), "a\xc3"))
}

func TestLatin1RoundTrip(t *testing.T) {
	var all []byte
	for b := 0; b < 256; b++ {
		all = append(all, byte(b))
	}
	wide := Apply(Latin1ToUTF8(), string(all))
	assert.Equal(t, string(all), Apply(UTF8ToLatin1(), wide))
}

func TestANSIToColor(t *testing.T) {
	cases := map[string]string{
		"\x1b[1mhi\x1b[0m":    "\uF501hi\uF500",
		"\x1b[1;31mred":       "\uF501\uF601red",
		"\x1b[44mbg":          "\uF704bg",
		"\x1b[mx":             "\uF500x",
		"\x1b[38;5;200mx":     "x",
		"\x1b[1;99mx":         "\uF501x",
		"\x1b[2Jclear":        "clear",
		"esc\x1b":             "esc",
		"\x1b[4;5;7mz":        "\uF504\uF505\uF507z",
		"no escapes at all":   "no escapes at all",
		"a\x1b[1;2;31mred":    "a\uF501\uF601red",
		"\x1b[2;31mx":         "\uF601x",
		"\x1b[1;38;5;200;4mx": "\uF501\uF504x",
		"\x1b[48;2;1;2;3;1mx": "\uF501x",
	}
	for in, want := range cases {
		assert.Equal(t, want, Apply(ANSIToColor(), in), "input %q", in)
	}
}

func TestColorToANSI(t *testing.T) {
	assert.Equal(t, "\x1b[1m\x1b[31mred\x1b[0m", Apply(ColorToANSI(), "\uF501\uF601red\uF500"))
	assert.Equal(t, "é世", Apply(ColorToANSI(), "é世"))
	assert.Equal(t, "ab", Apply(ColorToANSI(), "a\xffb"))
}

func TestUpgradeDowngrade(t *testing.T) {
	src := "\x1b[1mcaf\xe9\x1b[0m"
	up := Apply(Upgrade(), src)
	assert.Equal(t, "\uF501café\uF500", up)
	assert.Equal(t, src, Apply(Downgrade(), up))
}

func TestStripFilters(t *testing.T) {
	assert.Equal(t, "hi", Apply(StripColor(), "\uF501hi\uF500"))
	assert.Equal(t, "hi there", Apply(StripANSI(), "\x1b[1;31mhi\x1b[0m there"))
}

func TestNewlineFilters(t *testing.T) {
	assert.Equal(t, "a\nb\rc\n", Apply(CRLFToLF(), "a\r\nb\rc\r\n"))
	assert.Equal(t, "a\r\nb\r\nc\r", Apply(LFToCRLF(), "a\nb\r\nc\r"))
}

func TestStreamingAcrossBuffers(t *testing.T) {
	// Long enough that sequences straddle the transform package's buffers.
	unit := "x\x1b[1;31mé\x1b[0m"
	src := strings.Repeat(unit, 2000)
	want := strings.Repeat("x\uF501\uF601é\uF500", 2000)

	got, _, err := transform.String(ANSIToColor(), src)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	back, _, err := transform.String(ColorToANSI(), got)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("x\x1b[1m\x1b[31mé\x1b[0m", 2000), back)
}

func TestMachineClasses(t *testing.T) {
	assert.Less(t, colorToANSI.numClasses(), 16)
	assert.Less(t, utf8ToLatin1.numClasses(), 256)
	assert.Panics(t, func() {
		compile([][]rule{{{in: "ab", out: "1"}, {in: "abc", out: "2"}}})
	})
}

func TestIsColor(t *testing.T) {
	assert.True(t, IsColor(ColorReset))
	assert.True(t, IsColor(ColorBGBase+7))
	assert.False(t, IsColor('a'))
	assert.False(t, IsColor(0xF800))
}
