// Package upgrade brings a numeric-dialect database up to the current
// flatfile version of its own server without changing dialect.
package upgrade

import (
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/crystal-mush/omega/pkg/attrs"
	"github.com/crystal-mush/omega/pkg/charset"
	"github.com/crystal-mush/omega/pkg/crypt"
	"github.com/crystal-mush/omega/pkg/gamedb"
	"github.com/crystal-mush/omega/pkg/lock"
)

// ErrUnsupported is returned for dialects without an upgrade path.
var ErrUnsupported = errors.New("upgrade not supported")

// CurrentMUXVersion is the TinyMUX flatfile version an upgrade produces.
const CurrentMUXVersion = 3

// MUXHeader holds the header flags every upgraded TinyMUX file carries.
const MUXHeader = gamedb.VQuoted | gamedb.VXFlags | gamedb.V3Flags | gamedb.VPowers

// Options tune an upgrade.
type Options struct {
	// HashPasswords replaces plaintext PASS attributes with DES hashes.
	HashPasswords bool
}

// Stats counts what an upgrade changed.
type Stats struct {
	Objects       int
	Recoded       int
	PasswordsHash int
	LocksMoved    int
}

// Upgrade rewrites db in place. TinyMUX files older than version 3 are
// transcoded to UTF-8 with color code points; TinyMUSH files get their
// header locks moved into the LOCK attribute.
func Upgrade(db *gamedb.Database, opts Options, log *zap.Logger) (*Stats, error) {
	if log == nil {
		log = zap.NewNop()
	}
	stats := &Stats{}
	switch db.Dialect {
	case gamedb.T5X:
		return stats, upgradeMUX(db, opts, log, stats)
	case gamedb.T6H:
		return stats, upgradeTiny(db, log, stats)
	}
	return nil, errors.Wrapf(ErrUnsupported, "dialect %s", db.Dialect)
}

func upgradeMUX(db *gamedb.Database, opts Options, log *zap.Logger, stats *Stats) error {
	if db.Version >= CurrentMUXVersion {
		log.Info("database already current", zap.Int("version", db.Version))
		if opts.HashPasswords {
			hashPasswords(db, log, stats)
		}
		return nil
	}
	log.Info("upgrading t5x database",
		zap.Int("from", db.Version), zap.Int("to", CurrentMUXVersion))

	recode := charset.Upgrade()
	text := func(s string) string {
		out := charset.Apply(recode, s)
		if out != s {
			stats.Recoded++
		}
		return out
	}

	for _, def := range db.AttrNames {
		def.Name = text(def.Name)
	}
	db.Reindex()

	for _, ref := range db.Refs() {
		obj := db.Objects[ref]
		stats.Objects++
		if name, ok := obj.Name.Get(); ok {
			obj.Name.Set(text(name))
		}
		for i := 0; i < 3; i++ {
			if !obj.Flags[i].Ok {
				obj.Flags[i].Set(0)
			}
		}
		for i := range obj.Powers {
			if !obj.Powers[i].Ok {
				obj.Powers[i].Set(0)
			}
		}
		objOwner := obj.Owner.Or(obj.Ref)
		for i := range obj.Attrs {
			a := &obj.Attrs[i]
			owner, flags, value := attrs.Decode(a.Value, objOwner)
			recoded := text(value)
			if recoded == value {
				continue
			}
			a.Value = attrs.Encode(owner, flags, recoded, objOwner)
			a.Lock = nil
			a.LockParsed = false
		}
	}

	db.Version = CurrentMUXVersion
	db.Flags |= MUXHeader
	if opts.HashPasswords {
		hashPasswords(db, log, stats)
	}
	return nil
}

// hashPasswords replaces every plaintext player password with its hash.
func hashPasswords(db *gamedb.Database, log *zap.Logger, stats *Stats) {
	for _, ref := range db.Refs() {
		obj := db.Objects[ref]
		if obj.ObjType() != gamedb.TypePlayer {
			continue
		}
		a, ok := obj.Attr(gamedb.A_PASS)
		if !ok {
			continue
		}
		owner, flags, pw := attrs.Decode(a.Value, obj.Owner.Or(obj.Ref))
		if pw == "" || crypt.IsHashed(pw) {
			continue
		}
		hash, err := crypt.Hash(pw)
		if err != nil {
			log.Warn("cannot hash password", zap.Int("ref", int(ref)), zap.Error(err))
			continue
		}
		if !crypt.CheckPassword(pw, hash) {
			log.Warn("password hash does not verify, plaintext kept", zap.Int("ref", int(ref)))
			continue
		}
		obj.SetAttr(gamedb.A_PASS, attrs.Encode(owner, flags, hash, obj.Owner.Or(obj.Ref)))
		stats.PasswordsHash++
		log.Debug("hashed plaintext password", zap.Int("ref", int(ref)))
	}
}

func upgradeTiny(db *gamedb.Database, log *zap.Logger, stats *Stats) error {
	if db.Has(gamedb.VAtrKey) {
		log.Info("database already current")
		return nil
	}
	for _, ref := range db.Refs() {
		obj := db.Objects[ref]
		stats.Objects++
		if obj.Lock == nil {
			if raw, ok := obj.LockRaw.Get(); ok && raw != "\n" {
				if _, err := lock.ParseCanonical(raw); err != nil {
					return errors.Wrapf(err, "object #%d: header lock cannot move to LOCK", ref)
				}
			}
			obj.LockRaw.Clear()
			continue
		}
		if _, ok := obj.Attr(gamedb.A_LOCK); ok {
			log.Warn("header lock shadowed by LOCK attribute, keeping attribute",
				zap.Int("ref", int(ref)))
		} else {
			obj.SetAttr(gamedb.A_LOCK, lock.Flatten(obj.Lock))
			stats.LocksMoved++
		}
		obj.Lock = nil
		obj.LockRaw.Clear()
	}
	db.Flags |= gamedb.VAtrKey
	return nil
}
