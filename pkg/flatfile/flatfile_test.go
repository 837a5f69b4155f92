package flatfile

import (
	"bytes"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/crystal-mush/omega/pkg/gamedb"
	"github.com/crystal-mush/omega/pkg/lock"
)

// ^A stands for the \x01 attribute prefix byte.
const t5xDump = `+X992003
+S3
+N257
-R1
+A256
"0:MYATTR"
!0
"Limbo"
-1
-1
1
-1
-1
-1

1
-1
0
0
0
0
0
0
>6
"A \"dark\" place.\r\nWith\ttabs and \e[1mcolor\e[0m."
<
!1
"Wizard"
0
-1
2
-1
0
-1
((=1)|WIZARD:yes)
1
-1
1000
19
0
0
0
0
>5
"XXhashedpw"
>256
"^A1:64:custom"
<
!2
"Thing"
1
-1
-1
-1
1
-1
42:frob*

1
-1
10
1
0
0
0
0
<
***END OF DUMP***
`

const t6hDump = `+T3095297
+S1
+N256
-R0
!0
"Limbo"
-1
-1
-1
-1
-1
-1
1
-1
0
0
0
0
0
0
1700000000
1700000001
>42
"#1|#2"
>6
"line1\nline2\ttab \\ backslash"
<
***END OF DUMP***
`

const r7hDump = `+V9380609
+S1
+N256
!0
"Room"
-1
-1
-1
-1
-1
-1

1
-1
0
0
0
0
4194304
0
0
]6
"desc\r\nline	tab"
<
***END OF DUMP***
`

func parse(t *testing.T, d gamedb.Dialect, text string) *gamedb.Database {
	t.Helper()
	db, err := Parse(strings.NewReader(text), d, zaptest.NewLogger(t))
	require.NoError(t, err)
	return db
}

func write(t *testing.T, db *gamedb.Database) string {
	t.Helper()
	var out bytes.Buffer
	require.NoError(t, Write(&out, db))
	return out.String()
}

func TestRoundTrip(t *testing.T) {
	cases := []struct {
		d    gamedb.Dialect
		text string
	}{
		{gamedb.T5X, strings.ReplaceAll(t5xDump, "^A", "\x01")},
		{gamedb.T6H, t6hDump},
		{gamedb.R7H, r7hDump},
	}
	for _, tc := range cases {
		t.Run(tc.d.String(), func(t *testing.T) {
			db := parse(t, tc.d, tc.text)
			assert.Equal(t, tc.text, write(t, db))
		})
	}
}

func TestParseT5X(t *testing.T) {
	db := parse(t, gamedb.T5X, strings.ReplaceAll(t5xDump, "^A", "\x01"))

	assert.Equal(t, 3, db.Version)
	assert.True(t, db.Has(gamedb.VQuoted))
	assert.Equal(t, gamedb.Some(3), db.Size)
	assert.Equal(t, gamedb.Some(257), db.NextAttr)
	assert.Equal(t, gamedb.Some(1), db.RecordPlayers)
	assert.Equal(t, "MYATTR", db.AttrName(256))
	require.Len(t, db.Objects, 3)

	limbo := db.Objects[0]
	assert.Equal(t, gamedb.Some("Limbo"), limbo.Name)
	assert.Equal(t, gamedb.Some(gamedb.Nothing), limbo.Location)
	assert.Equal(t, gamedb.Some(gamedb.DBRef(1)), limbo.Contents)
	assert.Nil(t, limbo.Lock)
	assert.Equal(t, gamedb.Some("\n"), limbo.LockRaw)
	desc, ok := limbo.Attr(gamedb.A_DESC)
	require.True(t, ok)
	assert.Equal(t, "A \"dark\" place.\r\nWith\ttabs and \x1b[1mcolor\x1b[0m.", desc.Value)

	wiz := db.Objects[1]
	assert.Equal(t, gamedb.TypePlayer, wiz.ObjType())
	assert.True(t, wiz.HasFlag(0, gamedb.FlagWizard))
	assert.Equal(t, gamedb.Some(1000), wiz.Pennies)
	assert.Equal(t, "=#1|WIZARD:yes", lock.Flatten(wiz.Lock))

	thing := db.Objects[2]
	assert.Equal(t, gamedb.BoolAttr, thing.Lock.Type)
	assert.Equal(t, gamedb.Some("42:frob*\n\n"), thing.LockRaw)
}

func TestParseT6HAttributeLocks(t *testing.T) {
	db := parse(t, gamedb.T6H, t6hDump)
	obj := db.Objects[0]
	assert.False(t, obj.LockRaw.Ok)
	assert.Equal(t, gamedb.Some(int64(1700000001)), obj.ModTime)

	a, ok := obj.Attr(gamedb.A_LOCK)
	require.True(t, ok)
	n, err := lock.AttrLock(gamedb.T6H, a)
	require.NoError(t, err)
	assert.Equal(t, "#1|#2", lock.Flatten(n))
}

func TestParseR7HFourthWord(t *testing.T) {
	db := parse(t, gamedb.R7H, r7hDump)
	obj := db.Objects[0]
	assert.Equal(t, gamedb.Some(uint32(0x00400000)), obj.Flags[3])
	desc, ok := obj.Attr(gamedb.A_DESC)
	require.True(t, ok)
	assert.Equal(t, "desc\r\nline\ttab", desc.Value)
}

func TestChangedHeaderLockIsRewritten(t *testing.T) {
	db := parse(t, gamedb.T5X, strings.ReplaceAll(t5xDump, "^A", "\x01"))
	db.Objects[1].Lock = gamedb.NewUnary(gamedb.BoolNot, gamedb.NewRef(2))

	out := write(t, db)
	assert.Contains(t, out, "\n(!2)\n1\n")
	assert.NotContains(t, out, "WIZARD:yes")
}

func TestUnparsableHeaderLockKeptVerbatim(t *testing.T) {
	text := "+X8961\n!0\nLimbo\n-1\n-1\n-1\n-1\n-1\n-1\n(1&\n1\n-1\n0\n0\n<\n***END OF DUMP***\n"
	core, logs := observer.New(zapcore.WarnLevel)
	db, err := Parse(strings.NewReader(text), gamedb.T5X, zap.New(core))
	require.NoError(t, err)

	obj := db.Objects[0]
	assert.Nil(t, obj.Lock)
	assert.Equal(t, gamedb.Some("(1&\n"), obj.LockRaw)
	assert.Equal(t, gamedb.Some(gamedb.DBRef(1)), obj.Owner)
	assert.Equal(t, 1, logs.FilterMessage("unparsable header lock kept verbatim").Len())
	assert.Equal(t, text, write(t, db))
}

func TestUnknownHeaderFlags(t *testing.T) {
	text := "+X16643\n!0\nLimbo\n-1\n-1\n-1\n-1\n-1\n\n1\n0\n0\n<\n***END OF DUMP***\n"
	db := parse(t, gamedb.T5X, text)
	assert.Equal(t, 0x4000, UnknownFlags(db))

	err := Write(&bytes.Buffer{}, db)
	assert.True(t, errors.Is(err, ErrUnknownFlags))
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		d    gamedb.Dialect
		text string
	}{
		{gamedb.T5X, "+T3095297\n***END OF DUMP***\n"},
		{gamedb.T5X, "+X992003\n"},
		{gamedb.T5X, "+X992003\n***END OF DUMP\n"},
		{gamedb.T5X, "+X992003\n!0\n\"unterminated\n"},
		{gamedb.T6H, "+T3095297\n!x\n"},
		{gamedb.T6H, "?\n"},
	}
	for _, tc := range cases {
		_, err := Parse(strings.NewReader(tc.text), tc.d, zaptest.NewLogger(t))
		assert.True(t, errors.Is(err, ErrFormat), "input %q: %v", tc.text, err)
	}

	_, err := Parse(strings.NewReader(""), gamedb.P6H, nil)
	assert.Error(t, err)
}

func TestQuoteString(t *testing.T) {
	s := "a\"b\\c\nd\re\tf\x1bg"
	assert.Equal(t, `"a\"b\\c\nd\re\tf\eg"`, QuoteString(gamedb.T5X, 3, s))
	assert.Equal(t, "\"a\\\"b\\\\c\\nd\\re\tf\\eg\"", QuoteString(gamedb.T5X, 1, s))
	assert.Equal(t, "\"a\\\"b\\\\c\\nd\\re\\tf\x1bg\"", QuoteString(gamedb.T6H, 1, s))
	assert.Equal(t, "\"a\\\"b\\\\c\\nd\\re\tf\x1bg\"", QuoteString(gamedb.R7H, 1, s))
}

func TestUnquotedStrings(t *testing.T) {
	db := gamedb.NewDatabase(gamedb.T5X)
	db.Version = 1
	db.Flags = gamedb.VZone | gamedb.VLink | gamedb.VParent
	obj := gamedb.NewObject(0)
	obj.Name.Set("Plain")
	obj.SetAttr(gamedb.A_DESC, "no quotes")
	db.AddObject(obj)

	out := write(t, db)
	assert.Contains(t, out, "!0\nPlain\n")
	assert.Contains(t, out, ">6\nno quotes\n<\n")

	again := parse(t, gamedb.T5X, out)
	assert.Equal(t, out, write(t, again))
}
