// Package boltstore keeps a snapshot of a converted database in a bbolt
// file: header values in a meta bucket, objects keyed by big-endian dbref,
// and attribute definitions keyed by number. A snapshot can be loaded back
// for verification or inspection.
package boltstore

import (
	"strings"

	"github.com/cockroachdb/errors"
	bbolt "go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/crystal-mush/omega/pkg/convert"
	"github.com/crystal-mush/omega/pkg/gamedb"
	"github.com/crystal-mush/omega/pkg/penndb"
)

const batchSize = 1000

// Store wraps one bbolt snapshot file.
type Store struct {
	bolt *bbolt.DB
	log  *zap.Logger
}

// Open opens or creates a bbolt file and ensures all buckets exist.
func Open(path string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "boltstore: open %s", path)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "boltstore: create buckets")
	}
	return &Store{bolt: db, log: log}, nil
}

// Close closes the underlying bbolt database.
func (s *Store) Close() error {
	if s.bolt != nil {
		return s.bolt.Close()
	}
	return nil
}

// Path returns the filesystem path of the underlying bbolt database.
func (s *Store) Path() string {
	if s.bolt != nil {
		return s.bolt.Path()
	}
	return ""
}

// HasData reports whether the snapshot holds any objects.
func (s *Store) HasData() bool {
	hasData := false
	s.bolt.View(func(tx *bbolt.Tx) error {
		hasData = tx.Bucket(bucketObjects).Stats().KeyN > 0
		return nil
	})
	return hasData
}

// reset empties every bucket so a new snapshot replaces the old one.
func (s *Store) reset() error {
	return s.bolt.Update(func(tx *bbolt.Tx) error {
		for _, name := range allBuckets {
			if err := tx.DeleteBucket(name); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
				return err
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return err
			}
		}
		return nil
	})
}

// Save replaces the snapshot with db.
func (s *Store) Save(db convert.DB) error {
	if err := s.reset(); err != nil {
		return errors.Wrap(err, "boltstore: reset")
	}
	switch {
	case db.Dialect == gamedb.P6H && db.Penn != nil:
		return s.savePenn(db.Penn)
	case db.Dialect.Numeric() && db.Numeric != nil:
		return s.saveNumeric(db.Numeric)
	}
	return errors.Newf("boltstore: nothing to save for %s", db.Dialect)
}

func putOpt(b *bbolt.Bucket, key []byte, o gamedb.Opt[int]) error {
	if !o.Ok {
		return nil
	}
	return b.Put(key, intToKey(o.V))
}

func getOpt(b *bbolt.Bucket, key []byte) gamedb.Opt[int] {
	if v := b.Get(key); v != nil {
		return gamedb.Some(keyToInt(v))
	}
	return gamedb.Opt[int]{}
}

func (s *Store) saveNumeric(db *gamedb.Database) error {
	err := s.bolt.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMeta)
		if err := b.Put(keyDialect, []byte(db.Dialect.String())); err != nil {
			return err
		}
		if err := b.Put(keyVersion, intToKey(db.Version)); err != nil {
			return err
		}
		if err := b.Put(keyFlags, intToKey(db.Flags)); err != nil {
			return err
		}
		if err := putOpt(b, keySize, db.Size); err != nil {
			return err
		}
		if err := putOpt(b, keyNextAttr, db.NextAttr); err != nil {
			return err
		}
		if err := putOpt(b, keyRecordPlayers, db.RecordPlayers); err != nil {
			return err
		}

		defs := tx.Bucket(bucketAttrDefs)
		for _, def := range db.AttrNames {
			data, err := encode(def)
			if err != nil {
				return errors.Wrapf(err, "encode attrdef %d", def.Number)
			}
			if err := defs.Put(intToKey(def.Number), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "boltstore: save meta")
	}

	refs := db.Refs()
	for start := 0; start < len(refs); start += batchSize {
		end := min(start+batchSize, len(refs))
		err := s.bolt.Update(func(tx *bbolt.Tx) error {
			objs := tx.Bucket(bucketObjects)
			players := tx.Bucket(bucketPlayers)
			for _, ref := range refs[start:end] {
				obj := db.Objects[ref]
				data, err := encode(obj)
				if err != nil {
					return errors.Wrapf(err, "encode #%d", ref)
				}
				if err := objs.Put(refToKey(ref), data); err != nil {
					return err
				}
				if obj.ObjType() == gamedb.TypePlayer && !obj.IsGoing() && obj.Name.V != "" {
					if err := players.Put([]byte(strings.ToLower(obj.Name.V)), refToKey(ref)); err != nil {
						return err
					}
				}
			}
			return nil
		})
		if err != nil {
			return errors.Wrapf(err, "boltstore: save objects at batch %d", start/batchSize)
		}
	}

	s.log.Info("snapshot saved",
		zap.String("path", s.Path()),
		zap.Stringer("dialect", db.Dialect),
		zap.Int("objects", len(refs)),
		zap.Int("attr_defs", len(db.AttrNames)))
	return nil
}

func (s *Store) savePenn(db *penndb.Database) error {
	err := s.bolt.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMeta)
		if err := b.Put(keyDialect, []byte(gamedb.P6H.String())); err != nil {
			return err
		}
		data, err := encode(pennHeader(db))
		if err != nil {
			return errors.Wrap(err, "encode header")
		}
		return b.Put(keyPennHeader, data)
	})
	if err != nil {
		return errors.Wrap(err, "boltstore: save meta")
	}

	refs := db.Refs()
	for start := 0; start < len(refs); start += batchSize {
		end := min(start+batchSize, len(refs))
		err := s.bolt.Update(func(tx *bbolt.Tx) error {
			objs := tx.Bucket(bucketObjects)
			players := tx.Bucket(bucketPlayers)
			for _, ref := range refs[start:end] {
				obj := db.Objects[ref]
				data, err := encode(obj)
				if err != nil {
					return errors.Wrapf(err, "encode #%d", ref)
				}
				if err := objs.Put(refToKey(ref), data); err != nil {
					return err
				}
				if obj.Type.V == penndb.TypePlayer && obj.Name.V != "" {
					if err := players.Put([]byte(strings.ToLower(obj.Name.V)), refToKey(ref)); err != nil {
						return err
					}
				}
			}
			return nil
		})
		if err != nil {
			return errors.Wrapf(err, "boltstore: save objects at batch %d", start/batchSize)
		}
	}

	s.log.Info("snapshot saved",
		zap.String("path", s.Path()),
		zap.Stringer("dialect", gamedb.P6H),
		zap.Int("objects", len(refs)))
	return nil
}

// Load reads the whole snapshot back.
func (s *Store) Load() (convert.DB, error) {
	var name string
	s.bolt.View(func(tx *bbolt.Tx) error {
		name = string(tx.Bucket(bucketMeta).Get(keyDialect))
		return nil
	})
	if name == "" {
		return convert.DB{}, errors.New("boltstore: snapshot is empty")
	}
	d, err := gamedb.ParseDialect(name)
	if err != nil {
		return convert.DB{}, errors.Wrap(err, "boltstore: snapshot dialect")
	}
	if d == gamedb.P6H {
		db, err := s.loadPenn()
		if err != nil {
			return convert.DB{}, err
		}
		return convert.PennDB(db), nil
	}
	db, err := s.loadNumeric(d)
	if err != nil {
		return convert.DB{}, err
	}
	return convert.NumericDB(db), nil
}

func (s *Store) loadNumeric(d gamedb.Dialect) (*gamedb.Database, error) {
	db := gamedb.NewDatabase(d)
	err := s.bolt.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMeta)
		if v := b.Get(keyVersion); v != nil {
			db.Version = keyToInt(v)
		}
		if v := b.Get(keyFlags); v != nil {
			db.Flags = keyToInt(v)
		}
		db.Size = getOpt(b, keySize)
		db.NextAttr = getOpt(b, keyNextAttr)
		db.RecordPlayers = getOpt(b, keyRecordPlayers)

		err := tx.Bucket(bucketAttrDefs).ForEach(func(k, v []byte) error {
			def, err := decode[gamedb.AttrDef](v)
			if err != nil {
				return errors.Wrapf(err, "decode attrdef %d", keyToInt(k))
			}
			db.AttrNames = append(db.AttrNames, def)
			return nil
		})
		if err != nil {
			return err
		}

		return tx.Bucket(bucketObjects).ForEach(func(k, v []byte) error {
			obj, err := decode[gamedb.Object](v)
			if err != nil {
				return errors.Wrapf(err, "decode #%d", keyToRef(k))
			}
			db.Objects[obj.Ref] = obj
			return nil
		})
	})
	if err != nil {
		return nil, errors.Wrap(err, "boltstore: load")
	}
	db.Reindex()

	s.log.Debug("snapshot loaded",
		zap.String("path", s.Path()),
		zap.Int("objects", len(db.Objects)),
		zap.Int("attr_defs", len(db.AttrNames)))
	return db, nil
}

func (s *Store) loadPenn() (*penndb.Database, error) {
	var db *penndb.Database
	err := s.bolt.View(func(tx *bbolt.Tx) error {
		h, err := decode[penndb.Database](tx.Bucket(bucketMeta).Get(keyPennHeader))
		if err != nil {
			return errors.Wrap(err, "decode header")
		}
		db = h
		db.Objects = make(map[gamedb.DBRef]*penndb.Object)

		return tx.Bucket(bucketObjects).ForEach(func(k, v []byte) error {
			obj, err := decode[penndb.Object](v)
			if err != nil {
				return errors.Wrapf(err, "decode #%d", keyToRef(k))
			}
			db.Objects[obj.Ref] = obj
			return nil
		})
	})
	if err != nil {
		return nil, errors.Wrap(err, "boltstore: load")
	}
	s.log.Debug("snapshot loaded", zap.String("path", s.Path()), zap.Int("objects", len(db.Objects)))
	return db, nil
}

// LookupPlayer finds a player by name, ignoring case.
func (s *Store) LookupPlayer(name string) (gamedb.DBRef, bool) {
	ref, ok := gamedb.Nothing, false
	s.bolt.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(bucketPlayers).Get([]byte(strings.ToLower(name))); v != nil {
			ref, ok = keyToRef(v), true
		}
		return nil
	})
	return ref, ok
}
