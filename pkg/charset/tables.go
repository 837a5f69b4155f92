package charset

import (
	"strconv"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Color code points understood by TinyMUX 2.7 and later.
const (
	ColorReset     = '\uF500'
	ColorHilite    = '\uF501'
	ColorUnderline = '\uF504'
	ColorBlink     = '\uF505'
	ColorInverse   = '\uF507'
	ColorFGBase    = '\uF600'
	ColorBGBase    = '\uF700'

	colorFirst = ColorReset
	colorLast  = ColorBGBase + 0xFF
)

// IsColor reports whether r is one of the private-use color code points.
func IsColor(r rune) bool {
	return r >= colorFirst && r <= colorLast
}

// latin1 maps each Latin-1 byte to its UTF-8 encoding. 0x80-0x9F follow
// Windows-1252.
var latin1 [256]string

// sgrColors maps SGR parameters to color code points.
var sgrColors = map[string]rune{}

var (
	utf8ToLatin1 *machine
	ansiToColor  *machine
	colorToANSI  *machine
	ansiOnly     *machine
	crlfToLF     *machine
	lfToCRLF     *machine
)

func init() {
	for b := 0; b < 256; b++ {
		r := charmap.Windows1252.DecodeByte(byte(b))
		if r == utf8.RuneError {
			r = rune(b)
		}
		latin1[b] = string(r)
	}

	sgrColors["0"] = ColorReset
	sgrColors["1"] = ColorHilite
	sgrColors["4"] = ColorUnderline
	sgrColors["5"] = ColorBlink
	sgrColors["7"] = ColorInverse
	for n := 0; n < 8; n++ {
		sgrColors[strconv.Itoa(30+n)] = ColorFGBase + rune(n)
		sgrColors[strconv.Itoa(40+n)] = ColorBGBase + rune(n)
	}

	var toLatin1 []rule
	for b := 0x80; b < 256; b++ {
		toLatin1 = append(toLatin1, rule{in: latin1[b], out: string([]byte{byte(b)})})
	}
	utf8ToLatin1 = compile([][]rule{toLatin1})

	// Mode 0 is plain text; mode 1 is inside an SGR sequence after a ';'.
	var plain, params, back []rule
	plain = append(plain, rule{in: "\x1b[m", out: string(ColorReset)})
	for p, r := range sgrColors {
		cp := string(r)
		plain = append(plain,
			rule{in: "\x1b[" + p + "m", out: cp},
			rule{in: "\x1b[" + p + ";", out: cp, then: 1})
		params = append(params,
			rule{in: p + "m", out: cp},
			rule{in: p + ";", out: cp, then: 1})
		back = append(back, rule{in: cp, out: "\x1b[" + p + "m"})
	}
	ansiToColor = compile([][]rule{plain, params})
	colorToANSI = compile([][]rule{back})
	ansiOnly = compile([][]rule{nil, nil})

	crlfToLF = compile([][]rule{{{in: "\r\n", out: "\n"}}})
	lfToCRLF = compile([][]rule{{{in: "\r\n", out: "\r\n"}, {in: "\n", out: "\r\n"}}})
}
