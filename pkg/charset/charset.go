// Package charset converts attribute text between the encodings the
// dialects store: Latin-1 with raw ANSI escapes, and UTF-8 carrying color as
// private-use code points.
package charset

import (
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// maxEscape bounds how far an unrecognized escape sequence is scanned for
// its final byte.
const maxEscape = 32

// Latin1ToUTF8 returns a transformer that widens Latin-1 text to UTF-8.
func Latin1ToUTF8() transform.Transformer {
	return latin1Decoder{}
}

type latin1Decoder struct{ transform.NopResetter }

func (latin1Decoder) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for nSrc < len(src) {
		s := latin1[src[nSrc]]
		if nDst+len(s) > len(dst) {
			return nDst, nSrc, transform.ErrShortDst
		}
		nDst += copy(dst[nDst:], s)
		nSrc++
	}
	return nDst, nSrc, nil
}

// UTF8ToLatin1 returns a transformer that narrows UTF-8 to Latin-1. Code
// points with no Latin-1 byte become '?'; malformed bytes are dropped.
func UTF8ToLatin1() transform.Transformer {
	return newFST(utf8ToLatin1, passASCII)
}

// ANSIToColor returns a transformer that replaces SGR escape sequences with
// color code points, one per parameter. Other escape sequences are dropped.
func ANSIToColor() transform.Transformer {
	return newFST(ansiToColor, dropEscapes)
}

// ColorToANSI returns a transformer that expands color code points to SGR
// escape sequences. Malformed UTF-8 is dropped.
func ColorToANSI() transform.Transformer {
	return newFST(colorToANSI, passRunes)
}

// StripANSI returns a transformer that removes every escape sequence.
func StripANSI() transform.Transformer {
	return newFST(ansiOnly, dropEscapes)
}

// StripColor returns a transformer that removes color code points.
func StripColor() transform.Transformer {
	return runes.Remove(runes.Predicate(IsColor))
}

// CRLFToLF returns a transformer that turns "\r\n" into "\n". Lone carriage
// returns are kept.
func CRLFToLF() transform.Transformer {
	return newFST(crlfToLF, copyByte)
}

// LFToCRLF returns a transformer that turns bare "\n" into "\r\n".
func LFToCRLF() transform.Transformer {
	return newFST(lfToCRLF, copyByte)
}

// Upgrade converts Latin-1 text with ANSI escapes to UTF-8 with color code
// points.
func Upgrade() transform.Transformer {
	return transform.Chain(Latin1ToUTF8(), ANSIToColor())
}

// Downgrade is the inverse of Upgrade.
func Downgrade() transform.Transformer {
	return transform.Chain(ColorToANSI(), UTF8ToLatin1())
}

// Apply runs t over s. The transformers in this package never fail, so an
// error can only come from a caller-supplied transformer; s is then
// returned unchanged.
func Apply(t transform.Transformer, s string) string {
	if s == "" {
		return s
	}
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func copyByte(src []byte, atEOF bool, mode int) (string, int, int, bool) {
	return string(src[:1]), 1, mode, false
}

func passASCII(src []byte, atEOF bool, mode int) (string, int, int, bool) {
	if src[0] < utf8.RuneSelf {
		return string(src[:1]), 1, mode, false
	}
	if !utf8.FullRune(src) && !atEOF {
		return "", 0, mode, true
	}
	r, size := utf8.DecodeRune(src)
	if r == utf8.RuneError && size <= 1 {
		return "", 1, mode, false
	}
	return "?", size, mode, false
}

func passRunes(src []byte, atEOF bool, mode int) (string, int, int, bool) {
	if src[0] < utf8.RuneSelf {
		return string(src[:1]), 1, mode, false
	}
	if !utf8.FullRune(src) && !atEOF {
		return "", 0, mode, true
	}
	r, size := utf8.DecodeRune(src)
	if r == utf8.RuneError && size <= 1 {
		return "", 1, mode, false
	}
	return string(src[:size]), size, mode, false
}

// dropEscapes copies plain bytes and discards escape sequences the machine
// did not recognize. In mode 1 the machine is inside an SGR parameter list,
// and only the unrecognized parameter is dropped so the ones after it still
// match. Extended colors (38;5;n, 48;2;r;g;b) are dropped whole.
func dropEscapes(src []byte, atEOF bool, mode int) (string, int, int, bool) {
	start := 0
	if mode == 0 {
		if src[0] != 0x1b {
			return string(src[:1]), 1, 0, false
		}
		if len(src) < 2 {
			if !atEOF {
				return "", 0, mode, true
			}
			return "", 1, 0, false
		}
		if src[1] != '[' {
			return "", 1, 0, false
		}
		start = 2
	}
	need, fields, from := 1, 0, start
	for i := start; i < len(src) && i < maxEscape; i++ {
		c := src[i]
		if c >= 0x40 && c <= 0x7e {
			return "", i + 1, 0, false
		}
		if c != ';' {
			continue
		}
		field := string(src[from:i])
		from = i + 1
		fields++
		switch {
		case fields == 1 && (field == "38" || field == "48"):
			need = 2
		case fields == 2 && need == 2 && field == "5":
			need = 3
		case fields == 2 && need == 2 && field == "2":
			need = 5
		}
		if fields >= need {
			return "", i + 1, 1, false
		}
	}
	if !atEOF && len(src) < maxEscape {
		return "", 0, mode, true
	}
	if mode == 0 {
		return "", 1, 0, false
	}
	return "", 0, 0, false
}
