package upgrade

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/crystal-mush/omega/pkg/attrs"
	"github.com/crystal-mush/omega/pkg/crypt"
	"github.com/crystal-mush/omega/pkg/gamedb"
	"github.com/crystal-mush/omega/pkg/lock"
)

func oldMUX() *gamedb.Database {
	db := gamedb.NewDatabase(gamedb.T5X)
	db.Version = 2
	db.Flags = gamedb.VZone | gamedb.VLink | gamedb.VParent
	db.AddAttrDef(256, "NOTE", 0)

	wiz := gamedb.NewObject(1)
	wiz.Name.Set("Caf\xe9")
	wiz.Owner.Set(1)
	wiz.Flags[0].Set(uint32(gamedb.TypePlayer))
	wiz.SetAttr(gamedb.A_PASS, "potrzebie")
	wiz.SetAttr(gamedb.A_DESC, "\x1b[1mbold\x1b[0m")
	wiz.SetAttr(256, attrs.Encode(3, 0, "na\xefve", 1))
	db.AddObject(wiz)

	hashed := gamedb.NewObject(2)
	hashed.Name.Set("Hashed")
	hashed.Owner.Set(2)
	hashed.Flags[0].Set(uint32(gamedb.TypePlayer))
	hashed.Flags[1].Set(4)
	hashed.SetAttr(gamedb.A_PASS, "XXq2wVhS2GBlI")
	db.AddObject(hashed)
	return db
}

func TestUpgradeMUX(t *testing.T) {
	db := oldMUX()
	stats, err := Upgrade(db, Options{}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.Equal(t, CurrentMUXVersion, db.Version)
	assert.Equal(t, MUXHeader, db.Flags&MUXHeader)
	assert.True(t, db.Has(gamedb.VZone), "existing header flags kept")

	wiz := db.Objects[1]
	assert.Equal(t, gamedb.Some("Café"), wiz.Name)
	desc, ok := wiz.Attr(gamedb.A_DESC)
	require.True(t, ok)
	assert.Equal(t, "\uF501bold\uF500", desc.Value)

	note, ok := wiz.Attr(256)
	require.True(t, ok)
	owner, flags, value := attrs.Decode(note.Value, 1)
	assert.Equal(t, gamedb.DBRef(3), owner)
	assert.Zero(t, flags)
	assert.Equal(t, "naïve", value)

	pass, _ := wiz.Attr(gamedb.A_PASS)
	assert.Equal(t, "potrzebie", pass.Value, "passwords untouched without the option")

	assert.Equal(t, gamedb.Some(uint32(0)), wiz.Flags[1])
	assert.Equal(t, gamedb.Some(uint32(0)), wiz.Flags[2])
	assert.False(t, wiz.Flags[3].Ok)
	assert.Equal(t, gamedb.Some(uint32(0)), wiz.Powers[0])
	assert.Equal(t, gamedb.Some(uint32(4)), db.Objects[2].Flags[1])

	assert.Equal(t, 2, stats.Objects)
	assert.Equal(t, 3, stats.Recoded)
}

func TestUpgradeHashesPasswords(t *testing.T) {
	db := oldMUX()
	core, logs := observer.New(zapcore.WarnLevel)
	stats, err := Upgrade(db, Options{HashPasswords: true}, zap.New(core))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.PasswordsHash)
	assert.Zero(t, logs.FilterMessage("password hash does not verify, plaintext kept").Len())

	pass, _ := db.Objects[1].Attr(gamedb.A_PASS)
	assert.True(t, crypt.IsHashed(pass.Value))
	assert.True(t, crypt.CheckPassword("potrzebie", pass.Value))
	assert.False(t, crypt.CheckPassword("wrong", pass.Value))

	kept, _ := db.Objects[2].Attr(gamedb.A_PASS)
	assert.Equal(t, "XXq2wVhS2GBlI", kept.Value)
}

func TestUpgradeCurrentMUXIsNoop(t *testing.T) {
	db := oldMUX()
	db.Version = 3
	_, err := Upgrade(db, Options{}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, gamedb.Some("Caf\xe9"), db.Objects[1].Name)
}

func TestUpgradeTinyMovesHeaderLock(t *testing.T) {
	db := gamedb.NewDatabase(gamedb.T6H)
	db.Version = 1
	db.Flags = gamedb.VZone | gamedb.VLink | gamedb.VAtrName

	locked := gamedb.NewObject(0)
	locked.Pennies.Set(10)
	want := gamedb.NewBinary(gamedb.BoolOr, gamedb.NewRef(1), gamedb.NewUnary(gamedb.BoolNot, gamedb.NewRef(2)))
	locked.Lock = want
	locked.LockRaw.Set("(1|(!2))\n")
	db.AddObject(locked)

	open := gamedb.NewObject(1)
	open.LockRaw.Set("\n")
	db.AddObject(open)

	shadowed := gamedb.NewObject(2)
	shadowed.Lock = gamedb.NewRef(0)
	shadowed.SetAttr(gamedb.A_LOCK, "#1")
	db.AddObject(shadowed)

	stats, err := Upgrade(db, Options{}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.True(t, db.Has(gamedb.VAtrKey))
	assert.Equal(t, 1, stats.LocksMoved)

	a, ok := db.Objects[0].Attr(gamedb.A_LOCK)
	require.True(t, ok)
	assert.Equal(t, "#1|!#2", a.Value)
	exp, err := lock.AttrLock(gamedb.T6H, a)
	require.NoError(t, err)
	assert.True(t, exp.Equal(want))
	assert.Nil(t, db.Objects[0].Lock)
	assert.False(t, db.Objects[0].LockRaw.Ok)
	assert.Equal(t, gamedb.Some(10), db.Objects[0].Pennies)

	_, ok = db.Objects[1].Attr(gamedb.A_LOCK)
	assert.False(t, ok)

	kept, _ := db.Objects[2].Attr(gamedb.A_LOCK)
	assert.Equal(t, "#1", kept.Value)
	assert.Nil(t, db.Objects[2].Lock)
}

func TestUpgradeTinyRejectsUnparsableLock(t *testing.T) {
	db := gamedb.NewDatabase(gamedb.T6H)
	obj := gamedb.NewObject(0)
	obj.LockRaw.Set("(1&\n")
	db.AddObject(obj)

	_, err := Upgrade(db, Options{}, zaptest.NewLogger(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, lock.ErrParse))
}

func TestUpgradeUnsupported(t *testing.T) {
	for _, d := range []gamedb.Dialect{gamedb.R7H, gamedb.P6H} {
		_, err := Upgrade(gamedb.NewDatabase(d), Options{}, zaptest.NewLogger(t))
		assert.True(t, errors.Is(err, ErrUnsupported), d.String())
	}
}
