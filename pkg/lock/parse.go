// Package lock parses, prints and converts lock (boolean key) expressions.
//
// Two textual forms exist. The key form is the single-line text players type
// and that lock attributes store, e.g. "=#1|(WIZARD:yes&!#5)". The canonical
// form is the parenthesized, partly multi-line encoding the numeric dialects
// write into object headers.
package lock

import (
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/crystal-mush/omega/pkg/gamedb"
)

var (
	// ErrParse marks a key that could not be parsed. Callers treat the lock
	// as absent.
	ErrParse = errors.New("malformed lock key")

	// ErrUnsupported marks a construct the target dialect cannot express.
	ErrUnsupported = errors.New("lock construct has no equivalent in target dialect")
)

// Lock expression token characters.
const (
	NotToken   = '!'
	AndToken   = '&'
	OrToken    = '|'
	IndirToken = '@'
	CarryToken = '+'
	IsToken    = '='
	OwnerToken = '$'
)

// Syntax lists the optional constructs a dialect's key language accepts.
type Syntax struct {
	Booleans   bool // #TRUE, #FALSE
	ClassTests bool // FLAG^WIZARD
	Indirect2  bool // @#10/Enter
}

// SyntaxFor returns the key syntax of a dialect.
func SyntaxFor(d gamedb.Dialect) Syntax {
	if d == gamedb.P6H {
		return Syntax{Booleans: true, ClassTests: true, Indirect2: true}
	}
	return Syntax{}
}

// Parse parses a key-form lock for dialect d. An empty key yields nil, nil.
// Malformed input yields nil and an error wrapping ErrParse; a partial tree
// is never returned.
func Parse(key string, d gamedb.Dialect) (*gamedb.BoolExp, error) {
	if strings.TrimSpace(key) == "" {
		return nil, nil
	}
	p := &keyParser{s: key, syn: SyntaxFor(d)}
	n, err := p.expr()
	if err != nil {
		return nil, err
	}
	p.skipSpaces()
	if p.pos != len(p.s) {
		return nil, p.errorf("unexpected %q", p.s[p.pos])
	}
	return n, nil
}

type keyParser struct {
	s   string
	pos int
	syn Syntax
}

func (p *keyParser) errorf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrParse, "offset %d in %q: "+format, append([]interface{}{p.pos, p.s}, args...)...)
}

func (p *keyParser) peek() byte {
	if p.pos < len(p.s) {
		return p.s[p.pos]
	}
	return 0
}

// skipSpaces steps over blanks between tokens.
func (p *keyParser) skipSpaces() {
	for p.pos < len(p.s) && p.s[p.pos] == ' ' {
		p.pos++
	}
}

// E -> T ('|' E)?
func (p *keyParser) expr() (*gamedb.BoolExp, error) {
	left, err := p.term()
	if err != nil {
		return nil, err
	}
	p.skipSpaces()
	if p.peek() != OrToken {
		return left, nil
	}
	p.pos++
	right, err := p.expr()
	if err != nil {
		return nil, err
	}
	return gamedb.NewBinary(gamedb.BoolOr, left, right), nil
}

// T -> F ('&' T)?
func (p *keyParser) term() (*gamedb.BoolExp, error) {
	left, err := p.factor()
	if err != nil {
		return nil, err
	}
	p.skipSpaces()
	if p.peek() != AndToken {
		return left, nil
	}
	p.pos++
	right, err := p.term()
	if err != nil {
		return nil, err
	}
	return gamedb.NewBinary(gamedb.BoolAnd, left, right), nil
}

var prefixOps = map[byte]gamedb.BoolExpType{
	NotToken:   gamedb.BoolNot,
	IsToken:    gamedb.BoolIs,
	CarryToken: gamedb.BoolCarry,
	OwnerToken: gamedb.BoolOwner,
	IndirToken: gamedb.BoolIndir,
}

// F -> ('!' | '=' | '+' | '$' | '@') F | A
func (p *keyParser) factor() (*gamedb.BoolExp, error) {
	p.skipSpaces()
	op, ok := prefixOps[p.peek()]
	if !ok {
		return p.atom()
	}
	p.pos++
	sub, err := p.factor()
	if err != nil {
		return nil, err
	}
	if op == gamedb.BoolIndir && sub.Type == gamedb.BoolRef && p.peek() == '/' && p.syn.Indirect2 {
		p.pos++
		name := p.scan("&|()")
		if name == "" {
			return nil, p.errorf("missing lock name after '/'")
		}
		return gamedb.NewBinary(gamedb.BoolIndir2, sub, gamedb.NewText(name)), nil
	}
	return gamedb.NewUnary(op, sub), nil
}

func (p *keyParser) atom() (*gamedb.BoolExp, error) {
	switch c := p.peek(); c {
	case 0, AndToken, OrToken, ')':
		return nil, p.errorf("missing operand")
	case '(':
		p.pos++
		n, err := p.expr()
		if err != nil {
			return nil, err
		}
		p.skipSpaces()
		if p.peek() != ')' {
			return nil, p.errorf("missing ')'")
		}
		p.pos++
		return n, nil
	case '#':
		return p.ref()
	}

	stops := ":/&|()"
	if p.syn.ClassTests {
		stops += "^"
	}
	word := strings.TrimRight(p.scan(stops), " ")
	if word == "" {
		return nil, p.errorf("unexpected %q", p.peek())
	}
	var t gamedb.BoolExpType
	switch p.peek() {
	case ':':
		t = gamedb.BoolAttr
	case '/':
		t = gamedb.BoolEval
	case '^':
		t = gamedb.BoolClass
	default:
		return gamedb.NewText(word), nil
	}
	p.pos++
	value := strings.TrimSpace(p.scan("&|)"))
	return gamedb.NewBinary(t, gamedb.NewText(word), gamedb.NewText(value)), nil
}

func (p *keyParser) ref() (*gamedb.BoolExp, error) {
	rest := p.s[p.pos:]
	if p.syn.Booleans {
		for _, kw := range []string{"#TRUE", "#FALSE"} {
			if strings.HasPrefix(rest, kw) && !isWordByte(byteAt(rest, len(kw))) {
				p.pos += len(kw)
				return gamedb.NewConst(kw == "#TRUE"), nil
			}
		}
	}
	p.pos++ // '#'
	start := p.pos
	if p.peek() == '-' {
		p.pos++
	}
	n := 0
	digits := 0
	for p.pos < len(p.s) && p.s[p.pos] >= '0' && p.s[p.pos] <= '9' {
		n = n*10 + int(p.s[p.pos]-'0')
		p.pos++
		digits++
	}
	if digits == 0 {
		p.pos = start
		return nil, p.errorf("malformed object reference")
	}
	if p.s[start] == '-' {
		n = -n
	}
	return gamedb.NewRef(gamedb.DBRef(n)), nil
}

// scan consumes bytes up to (not including) any byte in stops.
func (p *keyParser) scan(stops string) string {
	start := p.pos
	for p.pos < len(p.s) && strings.IndexByte(stops, p.s[p.pos]) < 0 {
		p.pos++
	}
	return p.s[start:p.pos]
}

func byteAt(s string, i int) byte {
	if i < len(s) {
		return s[i]
	}
	return 0
}

func isWordByte(c byte) bool {
	return c == '_' || (c >= '0' && c <= '9') || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}
