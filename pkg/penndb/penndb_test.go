package penndb

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
)

const sampleDump = `+V369112578
dbversion 5
savedtime "Sat Oct 03 12:00:00 2026"
+FLAGS LIST
flagcount 1
 name "WIZARD"
  letter "W"
  type "ANY"
  perms "trusted royalty log"
  negate_perms "trusted royalty"
+FLAG ALIASES
flagaliascount 1
 name "WIZARD"
  alias "WIZ"
+POWER LIST
flagcount 1
 name "Builder"
  letter ""
  type "ANY"
  perms "wizard log"
  negate_perms "wizard"
+POWER ALIASES
flagaliascount 0
~2
!0
name "Room Zero"
location #-1
contents #1
exits #-1
next #-1
parent #-1
lockcount 0
owner #1
zone #-1
pennies 0
type 1
flags ""
powers ""
warnings ""
created 1700000000
modified 1700000001
attrcount 1
 name "DESCRIBE"
  owner #1
  flags "no_command"
  derefs 0
  value "A plain room.
It has \"quotes\" and a \\ backslash."
!1
name "One"
location #0
contents #-1
exits #0
next #-1
parent #-1
lockcount 1
 type "Basic"
  creator #1
  flags ""
  derefs 0
  key "=#1"
owner #1
zone #-1
pennies 150
type 8
flags "WIZARD CONNECTED"
powers "Builder"
warnings ""
created 1700000000
modified 1700000002
attrcount 0
***END OF DUMP***
`

func TestRoundTrip(t *testing.T) {
	db, err := Parse(strings.NewReader(sampleDump), zaptest.NewLogger(t))
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, Write(&out, db))
	assert.Equal(t, sampleDump, out.String())
}

func TestParseFields(t *testing.T) {
	db, err := Parse(strings.NewReader(sampleDump), zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.Equal(t, 2, db.Version)
	assert.True(t, db.Has(DBFLabels))
	assert.Equal(t, gamedb.Some(5), db.DBVersion)
	assert.Equal(t, gamedb.Some(2), db.Size)
	require.Len(t, db.FlagList, 1)
	assert.Equal(t, "W", db.FlagList[0].Letter)

	info, ok := db.FlagInfo("wiz")
	require.True(t, ok)
	assert.Equal(t, "WIZARD", info.Name)
	_, ok = db.PowerInfo("builder")
	assert.True(t, ok)

	require.Len(t, db.Objects, 2)
	room := db.Objects[0]
	assert.Equal(t, gamedb.Some(TypeRoom), room.Type)
	assert.Equal(t, gamedb.Some(gamedb.Nothing), room.Location)
	desc, ok := room.Attr("describe")
	require.True(t, ok)
	assert.Equal(t, "A plain room.\nIt has \"quotes\" and a \\ backslash.", desc.Value.V)
	assert.Equal(t, gamedb.Some("no_command"), desc.Flags)

	one := db.Objects[1]
	assert.Equal(t, "WIZARD CONNECTED", one.Flags.V)
	basic, ok := one.Lock("basic")
	require.True(t, ok)
	exp, err := basic.Exp()
	require.NoError(t, err)
	assert.Equal(t, gamedb.BoolIs, exp.Type)
	assert.Equal(t, gamedb.DBRef(1), exp.Sub1.Thing)
}

func TestLockKeyCache(t *testing.T) {
	l := Lock{Type: "Basic"}
	l.SetKey("#1&")
	_, err := l.Exp()
	assert.Error(t, err)

	l.SetKey("#TRUE")
	exp, err := l.Exp()
	require.NoError(t, err)
	assert.Equal(t, gamedb.BoolTrue, exp.Type)

	l.SetKey("#2")
	exp, err = l.Exp()
	require.NoError(t, err)
	assert.Equal(t, gamedb.BoolRef, exp.Type)
}

func TestAbsentFieldsAreNotWritten(t *testing.T) {
	db := NewDatabase()
	db.Version = 2
	db.DBFlags = DBFLabels
	obj := NewObject(3)
	obj.Name.Set("Bare")
	obj.Type.Set(TypeThing)
	db.AddObject(obj)

	var out bytes.Buffer
	require.NoError(t, Write(&out, db))
	want := "+V268435458\n!3\nname \"Bare\"\ntype 2\n***END OF DUMP***\n"
	assert.Equal(t, want, out.String())
}

func TestDuplicateObjectsMerge(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	in := "+V2\n!4\nname \"First\"\n!4\nname \"Second\"\nowner #1\n***END OF DUMP***\n"
	db, err := Parse(strings.NewReader(in), zap.New(core))
	require.NoError(t, err)

	obj := db.Objects[4]
	assert.Equal(t, "First", obj.Name.V)
	assert.Equal(t, gamedb.Some(gamedb.DBRef(1)), obj.Owner)
	assert.Equal(t, 1, logs.FilterMessage("duplicate object merged").Len())
}

func TestParseErrors(t *testing.T) {
	cases := []string{
		"+V2\n!1\nname \"x\"\n",
		"+V2\n***END OF DUMP\n",
		"+Vx\n***END OF DUMP***\n",
		"+V2\n!1\nname \"unterminated\n",
		"+V2\n+FLAGS LIST\nflagcount -1\n***END OF DUMP***\n",
		"+V2\n+FLAG ALIASES\nflagaliascount -3\n***END OF DUMP***\n",
		"+V2\n!1\nname \"x\"\nattrcount -1\n***END OF DUMP***\n",
	}
	for _, in := range cases {
		_, err := Parse(strings.NewReader(in), zaptest.NewLogger(t))
		assert.True(t, errors.Is(err, ErrFormat), "input %q: %v", in, err)
	}
}

func TestObjectMerge(t *testing.T) {
	a := NewObject(1)
	a.Attrs = []Attr{{Name: "DESC", Value: gamedb.Some("a")}}
	b := NewObject(1)
	b.Flags.Set("WIZARD")
	b.Attrs = []Attr{{Name: "desc", Value: gamedb.Some("b")}, {Name: "SEX", Value: gamedb.Some("m")}}
	b.Locks = []Lock{{Type: "Basic"}}

	a.Merge(b)
	assert.Equal(t, gamedb.Some("WIZARD"), a.Flags)
	assert.False(t, b.Flags.Ok)
	require.Len(t, a.Attrs, 2)
	assert.Equal(t, "a", a.Attrs[0].Value.V)
	assert.Len(t, a.Locks, 1)
	require.Len(t, b.Attrs, 1)
	assert.Empty(t, b.Locks)
}
