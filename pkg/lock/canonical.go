package lock

import (
	"io"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/crystal-mush/omega/pkg/gamedb"
)

// ReadCanonical reads one header lock, terminator included, from r. It
// returns the expression (nil when unlocked) and the exact bytes consumed.
func ReadCanonical(r io.ByteScanner) (*gamedb.BoolExp, string, error) {
	c := &canonReader{r: r}
	n, err := c.sub()
	if err != nil {
		return nil, c.raw.String(), err
	}
	b, err := c.next()
	if err != nil {
		return nil, c.raw.String(), errors.Wrap(ErrParse, "unterminated header lock")
	}
	if b != '\n' {
		return nil, c.raw.String(), errors.Wrapf(ErrParse, "unexpected %q after header lock", b)
	}
	return n, c.raw.String(), nil
}

// ParseCanonical parses a complete canonical lock held in a string.
func ParseCanonical(s string) (*gamedb.BoolExp, error) {
	sr := strings.NewReader(s)
	n, _, err := ReadCanonical(sr)
	if err != nil {
		return nil, err
	}
	if sr.Len() != 0 {
		return nil, errors.Wrapf(ErrParse, "trailing text after header lock %q", s)
	}
	return n, nil
}

type canonReader struct {
	r   io.ByteScanner
	raw strings.Builder
}

func (c *canonReader) peek() (byte, error) {
	b, err := c.r.ReadByte()
	if err != nil {
		return 0, err
	}
	if err := c.r.UnreadByte(); err != nil {
		return 0, err
	}
	return b, nil
}

func (c *canonReader) next() (byte, error) {
	b, err := c.r.ReadByte()
	if err != nil {
		return 0, err
	}
	c.raw.WriteByte(b)
	return b, nil
}

func (c *canonReader) expect(want byte) error {
	b, err := c.next()
	if err != nil {
		return errors.Wrapf(ErrParse, "expected %q, got end of input", want)
	}
	if b != want {
		return errors.Wrapf(ErrParse, "expected %q, got %q", want, b)
	}
	return nil
}

// until consumes bytes up to (not including) any byte in stops.
func (c *canonReader) until(stops string) (string, error) {
	var s strings.Builder
	for {
		b, err := c.peek()
		if err != nil {
			return "", errors.Wrap(ErrParse, "unexpected end of input in header lock")
		}
		if strings.IndexByte(stops, b) >= 0 {
			return s.String(), nil
		}
		c.next()
		s.WriteByte(b)
	}
}

func (c *canonReader) optionalNewline() {
	if b, err := c.peek(); err == nil && b == '\n' {
		c.next()
	}
}

func (c *canonReader) sub() (*gamedb.BoolExp, error) {
	ch, err := c.peek()
	if err != nil {
		return nil, errors.Wrap(ErrParse, "unexpected end of input in header lock")
	}

	switch ch {
	case '\n':
		return nil, nil

	case '-':
		// Obsolete NOTHING key.
		if _, err := c.until("\n"); err != nil {
			return nil, err
		}
		return nil, nil

	case '(':
		c.next()
		op, err := c.peek()
		if err != nil {
			return nil, errors.Wrap(ErrParse, "unexpected end of input in header lock")
		}
		if t, ok := prefixOps[op]; ok {
			c.next()
			s, err := c.operand()
			if err != nil {
				return nil, err
			}
			if err := c.expect(')'); err != nil {
				return nil, err
			}
			return gamedb.NewUnary(t, s), nil
		}
		left, err := c.operand()
		if err != nil {
			return nil, err
		}
		b, err := c.next()
		if err != nil {
			return nil, errors.Wrap(ErrParse, "unexpected end of input in header lock")
		}
		var t gamedb.BoolExpType
		switch b {
		case AndToken:
			t = gamedb.BoolAnd
		case OrToken:
			t = gamedb.BoolOr
		default:
			return nil, errors.Wrapf(ErrParse, "unexpected operator %q in header lock", b)
		}
		right, err := c.operand()
		if err != nil {
			return nil, err
		}
		if err := c.expect(')'); err != nil {
			return nil, err
		}
		return gamedb.NewBinary(t, left, right), nil
	}

	if ch >= '0' && ch <= '9' {
		digits, _ := c.until(":/\n()&|")
		n := 0
		for i := 0; i < len(digits); i++ {
			if digits[i] < '0' || digits[i] > '9' {
				return nil, errors.Wrapf(ErrParse, "malformed number %q in header lock", digits)
			}
			n = n*10 + int(digits[i]-'0')
		}
		return c.maybeAttr(gamedb.NewRef(gamedb.DBRef(n)))
	}

	word, err := c.until(":/\n()&|")
	if err != nil {
		return nil, err
	}
	if word == "" {
		return nil, errors.Wrapf(ErrParse, "unexpected %q in header lock", ch)
	}
	return c.maybeAttr(gamedb.NewText(word))
}

// operand is sub with an empty result treated as an error.
func (c *canonReader) operand() (*gamedb.BoolExp, error) {
	n, err := c.sub()
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, errors.Wrap(ErrParse, "missing operand in header lock")
	}
	return n, nil
}

func (c *canonReader) maybeAttr(left *gamedb.BoolExp) (*gamedb.BoolExp, error) {
	sep, err := c.peek()
	if err != nil || (sep != ':' && sep != '/') {
		return left, nil
	}
	c.next()
	value, err := c.until("\n)&|")
	if err != nil {
		return nil, err
	}
	if sep == '/' {
		c.optionalNewline()
		return gamedb.NewBinary(gamedb.BoolEval, left, gamedb.NewText(value)), nil
	}
	if left.Type != gamedb.BoolText {
		c.optionalNewline()
	}
	return gamedb.NewBinary(gamedb.BoolAttr, left, gamedb.NewText(value)), nil
}
