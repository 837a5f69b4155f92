package boltstore

import (
	"bytes"
	"encoding/gob"

	"github.com/crystal-mush/omega/pkg/gamedb"
	"github.com/crystal-mush/omega/pkg/penndb"
)

func init() {
	gob.Register(gamedb.Object{})
	gob.Register(gamedb.BoolExp{})
	gob.Register(gamedb.Attribute{})
	gob.Register(gamedb.AttrDef{})
	gob.Register(penndb.Object{})
	gob.Register(penndb.Database{})
}

// encode serializes a value to bytes using gob.
func encode[T any](v *T) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decode deserializes bytes produced by encode.
func decode[T any](data []byte) (*T, error) {
	var v T
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&v); err != nil {
		return nil, err
	}
	return &v, nil
}

// pennHeader copies the header part of a PennMUSH database, without objects.
func pennHeader(db *penndb.Database) *penndb.Database {
	h := *db
	h.Objects = nil
	return &h
}
