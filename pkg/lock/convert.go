package lock

import (
	"github.com/cockroachdb/errors"

	"github.com/crystal-mush/omega/pkg/attrs"
	"github.com/crystal-mush/omega/pkg/gamedb"
)

// Converter rewrites a lock expression for a target dialect.
type Converter struct {
	To gamedb.Dialect

	// AttrName resolves attribute numbers on the left of ATTR/EVAL nodes to
	// names. Numbers are only meaningful inside the source dialect, so when
	// set, resolved numbers become TEXT in the output.
	AttrName func(num int) (string, bool)
}

// Convert rewrites n for dialect to. See Converter.Convert.
func Convert(n *gamedb.BoolExp, to gamedb.Dialect) (*gamedb.BoolExp, error) {
	c := Converter{To: to}
	return c.Convert(n)
}

// Convert returns a new tree equivalent to n in the target dialect. TRUE and
// FALSE fold to the TEXT "1" and "0" where the target has no boolean
// constants. Class tests and double indirection fail with ErrUnsupported
// where the target lacks them. No node of n is shared with the result.
func (c *Converter) Convert(n *gamedb.BoolExp) (*gamedb.BoolExp, error) {
	if n == nil {
		return nil, nil
	}
	syn := SyntaxFor(c.To)

	sub1, err := c.Convert(n.Sub1)
	if err != nil {
		return nil, err
	}
	sub2, err := c.Convert(n.Sub2)
	if err != nil {
		return nil, err
	}

	switch n.Type {
	case gamedb.BoolTrue, gamedb.BoolFalse:
		if syn.Booleans {
			return &gamedb.BoolExp{Type: n.Type}, nil
		}
		if n.Type == gamedb.BoolTrue {
			return gamedb.NewText("1"), nil
		}
		return gamedb.NewText("0"), nil

	case gamedb.BoolClass:
		if !syn.ClassTests {
			return nil, errors.Wrapf(ErrUnsupported, "class test %s for %s", Flatten(n), c.To)
		}

	case gamedb.BoolIndir2:
		if !syn.Indirect2 {
			return nil, errors.Wrapf(ErrUnsupported, "double indirect %s for %s", Flatten(n), c.To)
		}

	case gamedb.BoolAttr, gamedb.BoolEval:
		if sub1 != nil && sub1.Type == gamedb.BoolRef && c.AttrName != nil {
			if name, ok := c.AttrName(int(sub1.Thing)); ok {
				sub1 = gamedb.NewText(name)
			}
		}
	}

	return &gamedb.BoolExp{
		Type:  n.Type,
		Sub1:  sub1,
		Sub2:  sub2,
		Thing: n.Thing,
		Text:  n.Text,
	}, nil
}

// AttrLock returns the parsed key held by a lock-bearing attribute of dialect
// d, parsing and caching it on first use. Values carrying an owner/flags
// prefix are decoded first. Attributes in other slots yield nil, nil.
func AttrLock(d gamedb.Dialect, a *gamedb.Attribute) (*gamedb.BoolExp, error) {
	if !gamedb.IsLockAttr(d, a.Number) {
		return nil, nil
	}
	if a.LockParsed {
		return a.Lock, nil
	}
	_, _, key := attrs.Decode(a.Value, gamedb.Nothing)
	n, err := Parse(key, d)
	if err != nil {
		return nil, err
	}
	a.Lock = n
	a.LockParsed = true
	return n, nil
}
