package lock

import (
	"bufio"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crystal-mush/omega/pkg/gamedb"
)

func TestParseFlattenRoundTrip(t *testing.T) {
	keys := []string{
		"#1",
		"#-1",
		"!#1",
		"=#1",
		"+#5",
		"$#5",
		"@#5",
		"=#1|WIZARD:yes",
		"(#1|#2)&#3",
		"#1&(#2|#3)",
		"#1&#2&#3",
		"(#1&#2)&#3",
		"(#1|#2)|#3",
		"#1|#2&#3",
		"!(#1|#2)",
		"!!#4",
		"FOO/bar*",
		"sex:m*",
		"Bob",
	}
	for _, k := range keys {
		n, err := Parse(k, gamedb.T5X)
		require.NoError(t, err, "key %q", k)
		require.NotNil(t, n, "key %q", k)
		assert.Equal(t, k, Flatten(n), "key %q", k)
	}
}

func TestParseP6HExtensions(t *testing.T) {
	cases := map[string]gamedb.BoolExpType{
		"#TRUE":       gamedb.BoolTrue,
		"#FALSE":      gamedb.BoolFalse,
		"FLAG^WIZARD": gamedb.BoolClass,
		"@#10/Enter":  gamedb.BoolIndir2,
	}
	for k, want := range cases {
		n, err := Parse(k, gamedb.P6H)
		require.NoError(t, err, "key %q", k)
		assert.Equal(t, want, n.Type, "key %q", k)
		assert.Equal(t, k, Flatten(n))
	}

	n, err := Parse("!#TRUE|#TRUEX", gamedb.P6H)
	assert.Error(t, err)
	assert.Nil(t, n)

	_, err = Parse("#TRUE", gamedb.T5X)
	assert.True(t, errors.Is(err, ErrParse))

	n, err = Parse("FLAG^WIZARD", gamedb.T5X)
	require.NoError(t, err)
	assert.Equal(t, gamedb.BoolText, n.Type)
}

func TestParsePrecedence(t *testing.T) {
	n, err := Parse("#1|#2&#3", gamedb.T5X)
	require.NoError(t, err)
	want := gamedb.NewBinary(gamedb.BoolOr,
		gamedb.NewRef(1),
		gamedb.NewBinary(gamedb.BoolAnd, gamedb.NewRef(2), gamedb.NewRef(3)))
	assert.True(t, want.Equal(n))

	n, err = Parse("(#1&#2)|#3", gamedb.T5X)
	require.NoError(t, err)
	assert.Equal(t, "#1&#2|#3", Flatten(n))
	again, err := Parse(Flatten(n), gamedb.T5X)
	require.NoError(t, err)
	assert.True(t, n.Equal(again))
}

func TestParseEmpty(t *testing.T) {
	n, err := Parse("", gamedb.T5X)
	assert.NoError(t, err)
	assert.Nil(t, n)

	n, err = Parse("   ", gamedb.T5X)
	assert.NoError(t, err)
	assert.Nil(t, n)
}

func TestParseSkipsBlanks(t *testing.T) {
	cases := map[string]string{
		"#1 | #2":          "#1|#2",
		"=#1 & !#5":        "=#1&!#5",
		" #1":              "#1",
		"#1 ":              "#1",
		"( #1 | #2 ) & #3": "(#1|#2)&#3",
		"sex : m*":         "sex:m*",
		"Bob | #2":         "Bob|#2",
	}
	for k, want := range cases {
		n, err := Parse(k, gamedb.T5X)
		require.NoError(t, err, "key %q", k)
		assert.Equal(t, want, Flatten(n), "key %q", k)
	}

	n, err := Parse(" #1", gamedb.T5X)
	require.NoError(t, err)
	assert.Equal(t, gamedb.BoolRef, n.Type)

	_, err = Parse("#1 & ", gamedb.T5X)
	assert.True(t, errors.Is(err, ErrParse))
}

func TestParseMalformed(t *testing.T) {
	for _, k := range []string{"#1&", "(#1", "#1)", "&#1", "#abc", "#1|", "!", "()", "#-"} {
		n, err := Parse(k, gamedb.T5X)
		assert.Nil(t, n, "key %q", k)
		assert.True(t, errors.Is(err, ErrParse), "key %q: %v", k, err)
	}
}

func TestCanonicalWriter(t *testing.T) {
	cases := []struct {
		n    *gamedb.BoolExp
		want string
	}{
		{nil, "\n"},
		{gamedb.NewRef(7), "7\n"},
		{gamedb.NewBinary(gamedb.BoolAnd, gamedb.NewRef(1), gamedb.NewRef(2)), "(1&2)\n"},
		{gamedb.NewUnary(gamedb.BoolNot, gamedb.NewRef(3)), "(!3)\n"},
		{gamedb.NewUnary(gamedb.BoolIs, gamedb.NewRef(5)), "(=5)\n"},
		{gamedb.NewBinary(gamedb.BoolAttr, gamedb.NewText("WIZARD"), gamedb.NewText("yes")), "WIZARD:yes\n"},
		{gamedb.NewBinary(gamedb.BoolAttr, gamedb.NewRef(42), gamedb.NewText("x")), "42:x\n\n"},
		{gamedb.NewBinary(gamedb.BoolEval, gamedb.NewText("FOO"), gamedb.NewText("1")), "FOO/1\n\n"},
		{gamedb.NewUnary(gamedb.BoolNot,
			gamedb.NewBinary(gamedb.BoolAnd, gamedb.NewRef(1), gamedb.NewRef(2))), "(!(1&2))\n"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Canonical(tc.n))
	}
}

func TestCanonicalRoundTrip(t *testing.T) {
	trees := []*gamedb.BoolExp{
		gamedb.NewRef(7),
		gamedb.NewBinary(gamedb.BoolOr,
			gamedb.NewBinary(gamedb.BoolEval, gamedb.NewText("F"), gamedb.NewText("1")),
			gamedb.NewRef(3)),
		gamedb.NewBinary(gamedb.BoolAnd,
			gamedb.NewBinary(gamedb.BoolAttr, gamedb.NewRef(42), gamedb.NewText("x*")),
			gamedb.NewUnary(gamedb.BoolCarry, gamedb.NewRef(9))),
		gamedb.NewUnary(gamedb.BoolOwner,
			gamedb.NewBinary(gamedb.BoolAttr, gamedb.NewText("SEX"), gamedb.NewText("m*"))),
		gamedb.NewUnary(gamedb.BoolIndir, gamedb.NewRef(12)),
	}
	for _, n := range trees {
		s := Canonical(n)
		got, err := ParseCanonical(s)
		require.NoError(t, err, "canonical %q", s)
		assert.True(t, n.Equal(got), "canonical %q", s)
		assert.Equal(t, s, Canonical(got))
	}
}

func TestReadCanonicalRaw(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("(1&42:x\n)\nrest"))
	n, raw, err := ReadCanonical(r)
	require.NoError(t, err)
	assert.Equal(t, "(1&42:x\n)\n", raw)
	assert.Equal(t, gamedb.BoolAnd, n.Type)

	rest, _ := r.ReadString(0)
	assert.Equal(t, "rest", rest)
}

func TestReadCanonicalEmptyAndObsolete(t *testing.T) {
	n, raw, err := ReadCanonical(bufio.NewReader(strings.NewReader("\nnext")))
	require.NoError(t, err)
	assert.Nil(t, n)
	assert.Equal(t, "\n", raw)

	n, raw, err = ReadCanonical(bufio.NewReader(strings.NewReader("-1\n")))
	require.NoError(t, err)
	assert.Nil(t, n)
	assert.Equal(t, "-1\n", raw)
}

func TestReadCanonicalMalformed(t *testing.T) {
	for _, s := range []string{"", "(1&2\n", "(1^2)\n", "(1&)\n", "(1&2)", "7x\n"} {
		_, err := ParseCanonical(s)
		assert.True(t, errors.Is(err, ErrParse), "input %q: %v", s, err)
	}
}

func TestConvertFoldsBooleans(t *testing.T) {
	src, err := Parse("#TRUE|!#FALSE", gamedb.P6H)
	require.NoError(t, err)

	got, err := Convert(src, gamedb.T5X)
	require.NoError(t, err)
	assert.Equal(t, "1|!0", Flatten(got))

	same, err := Convert(src, gamedb.P6H)
	require.NoError(t, err)
	assert.True(t, src.Equal(same))
}

func TestConvertUnsupported(t *testing.T) {
	for _, k := range []string{"FLAG^WIZARD", "#1|@#10/Enter"} {
		src, err := Parse(k, gamedb.P6H)
		require.NoError(t, err)
		got, err := Convert(src, gamedb.T5X)
		assert.Nil(t, got)
		assert.True(t, errors.Is(err, ErrUnsupported), "key %q", k)
	}
}

func TestConvertResolvesAttrNumbers(t *testing.T) {
	src := gamedb.NewBinary(gamedb.BoolAttr, gamedb.NewRef(300), gamedb.NewText("x"))
	c := Converter{To: gamedb.P6H, AttrName: func(num int) (string, bool) {
		if num == 300 {
			return "FOO", true
		}
		return "", false
	}}
	got, err := c.Convert(src)
	require.NoError(t, err)
	assert.Equal(t, "FOO:x", Flatten(got))
	assert.Equal(t, gamedb.BoolRef, src.Sub1.Type)
}

func TestConvertDoesNotShareNodes(t *testing.T) {
	src, err := Parse("=#1&(#2|WIZARD:yes)", gamedb.T5X)
	require.NoError(t, err)
	got, err := Convert(src, gamedb.T6H)
	require.NoError(t, err)
	require.True(t, src.Equal(got))

	seen := map[*gamedb.BoolExp]bool{}
	src.Walk(func(n *gamedb.BoolExp) { seen[n] = true })
	got.Walk(func(n *gamedb.BoolExp) {
		assert.False(t, seen[n], "node %s shared", n.Type)
	})
}

func TestAttrLock(t *testing.T) {
	a := &gamedb.Attribute{Number: gamedb.A_LENTER, Value: "#1|#2"}
	n, err := AttrLock(gamedb.T5X, a)
	require.NoError(t, err)
	assert.Equal(t, "#1|#2", Flatten(n))
	assert.True(t, a.LockParsed)
	assert.Same(t, n, a.Lock)

	packed := &gamedb.Attribute{Number: gamedb.A_LUSE, Value: "\x015:0:#3"}
	n, err = AttrLock(gamedb.T5X, packed)
	require.NoError(t, err)
	assert.Equal(t, "#3", Flatten(n))

	plain := &gamedb.Attribute{Number: gamedb.A_DESC, Value: "#1"}
	n, err = AttrLock(gamedb.T5X, plain)
	assert.NoError(t, err)
	assert.Nil(t, n)

	bad := &gamedb.Attribute{Number: gamedb.A_LENTER, Value: "#1&"}
	_, err = AttrLock(gamedb.T5X, bad)
	assert.True(t, errors.Is(err, ErrParse))
	assert.False(t, bad.LockParsed)
}
