package lock

import (
	"strconv"
	"strings"

	"github.com/crystal-mush/omega/pkg/gamedb"
)

var prefixChars = map[gamedb.BoolExpType]byte{
	gamedb.BoolNot:   NotToken,
	gamedb.BoolIs:    IsToken,
	gamedb.BoolCarry: CarryToken,
	gamedb.BoolOwner: OwnerToken,
	gamedb.BoolIndir: IndirToken,
}

// Flatten renders n in key form on a single line. Parentheses appear only
// where the right-recursive grammar would otherwise group differently, so
// Flatten(Parse(k)) == k for any k Flatten produced.
func Flatten(n *gamedb.BoolExp) string {
	var b strings.Builder
	flatten(&b, n)
	return b.String()
}

func isLogic(n *gamedb.BoolExp) bool {
	return n != nil && (n.Type == gamedb.BoolAnd || n.Type == gamedb.BoolOr)
}

func flattenGrouped(b *strings.Builder, n *gamedb.BoolExp, group bool) {
	if group {
		b.WriteByte('(')
		flatten(b, n)
		b.WriteByte(')')
		return
	}
	flatten(b, n)
}

func flatten(b *strings.Builder, n *gamedb.BoolExp) {
	if n == nil {
		return
	}
	switch n.Type {
	case gamedb.BoolAnd:
		flattenGrouped(b, n.Sub1, isLogic(n.Sub1))
		b.WriteByte(AndToken)
		flattenGrouped(b, n.Sub2, n.Sub2 != nil && n.Sub2.Type == gamedb.BoolOr)
	case gamedb.BoolOr:
		flattenGrouped(b, n.Sub1, n.Sub1 != nil && n.Sub1.Type == gamedb.BoolOr)
		b.WriteByte(OrToken)
		flatten(b, n.Sub2)
	case gamedb.BoolNot, gamedb.BoolIs, gamedb.BoolCarry, gamedb.BoolOwner, gamedb.BoolIndir:
		b.WriteByte(prefixChars[n.Type])
		flattenGrouped(b, n.Sub1, isLogic(n.Sub1))
	case gamedb.BoolAttr:
		leaf(b, n.Sub1)
		b.WriteByte(':')
		leaf(b, n.Sub2)
	case gamedb.BoolEval:
		leaf(b, n.Sub1)
		b.WriteByte('/')
		leaf(b, n.Sub2)
	case gamedb.BoolClass:
		leaf(b, n.Sub1)
		b.WriteByte('^')
		leaf(b, n.Sub2)
	case gamedb.BoolIndir2:
		b.WriteByte(IndirToken)
		flatten(b, n.Sub1)
		b.WriteByte('/')
		leaf(b, n.Sub2)
	case gamedb.BoolRef:
		b.WriteByte('#')
		b.WriteString(strconv.Itoa(int(n.Thing)))
	case gamedb.BoolText:
		b.WriteString(n.Text)
	case gamedb.BoolTrue:
		b.WriteString("#TRUE")
	case gamedb.BoolFalse:
		b.WriteString("#FALSE")
	}
}

// leaf prints the operand of ATTR/EVAL/CLASS. Attribute numbers are written
// bare, without the '#' of an object reference.
func leaf(b *strings.Builder, n *gamedb.BoolExp) {
	if n == nil {
		return
	}
	switch n.Type {
	case gamedb.BoolRef:
		b.WriteString(strconv.Itoa(int(n.Thing)))
	case gamedb.BoolText:
		b.WriteString(n.Text)
	default:
		flatten(b, n)
	}
}

// Canonical renders n in the header form of the numeric dialects, including
// the terminating newline. A nil lock is a lone newline.
//
// ATTR leaves are followed by a newline unless their attribute is named by
// TEXT; EVAL leaves always are. Older servers emit exactly this and
// comparisons against their output depend on it.
func Canonical(n *gamedb.BoolExp) string {
	var b strings.Builder
	canonical(&b, n)
	b.WriteByte('\n')
	return b.String()
}

func canonical(b *strings.Builder, n *gamedb.BoolExp) {
	if n == nil {
		return
	}
	switch n.Type {
	case gamedb.BoolAnd, gamedb.BoolOr:
		b.WriteByte('(')
		canonical(b, n.Sub1)
		if n.Type == gamedb.BoolAnd {
			b.WriteByte(AndToken)
		} else {
			b.WriteByte(OrToken)
		}
		canonical(b, n.Sub2)
		b.WriteByte(')')
	case gamedb.BoolNot, gamedb.BoolIs, gamedb.BoolCarry, gamedb.BoolOwner, gamedb.BoolIndir:
		b.WriteByte('(')
		b.WriteByte(prefixChars[n.Type])
		canonical(b, n.Sub1)
		b.WriteByte(')')
	case gamedb.BoolAttr:
		canonical(b, n.Sub1)
		b.WriteByte(':')
		canonical(b, n.Sub2)
		if n.Sub1 == nil || n.Sub1.Type != gamedb.BoolText {
			b.WriteByte('\n')
		}
	case gamedb.BoolEval:
		canonical(b, n.Sub1)
		b.WriteByte('/')
		canonical(b, n.Sub2)
		b.WriteByte('\n')
	case gamedb.BoolRef:
		b.WriteString(strconv.Itoa(int(n.Thing)))
	case gamedb.BoolText:
		b.WriteString(n.Text)
	default:
		flatten(b, n)
	}
}
