package flatfile

import (
	"fmt"
	"io"
	"os"

	"github.com/cockroachdb/errors"

	"github.com/crystal-mush/omega/pkg/gamedb"
	"github.com/crystal-mush/omega/pkg/lock"
)

// Write writes the database to w in its dialect's flatfile format. Which
// object fields appear is governed by the header flags.
func Write(w io.Writer, db *gamedb.Database) error {
	if !db.Dialect.Numeric() {
		return errors.Newf("flatfile: cannot write %s", db.Dialect)
	}
	if bad := UnknownFlags(db); bad != 0 {
		return errors.Wrapf(ErrUnknownFlags, "0x%x in %s header", bad, db.Dialect)
	}
	wr := &writer{
		w:       w,
		db:      db,
		escapes: escapesFor(db.Dialect, db.Version),
		quoted:  db.Has(gamedb.VQuoted),
	}

	wr.writef("+%c%d\n", HeaderLetter(db.Dialect), db.Header())
	if v, ok := db.Size.Get(); ok {
		wr.writef("+S%d\n", v)
	}
	if v, ok := db.NextAttr.Get(); ok {
		wr.writef("+N%d\n", v)
	}
	if v, ok := db.RecordPlayers.Get(); ok {
		wr.writef("-R%d\n", v)
	}
	for _, def := range db.AttrNames {
		wr.writef("+A%d\n%s\n", def.Number, wr.str(fmt.Sprintf("%d:%s", def.Flags, def.Name)))
	}

	for _, ref := range db.Refs() {
		wr.writeObject(db.Objects[ref])
		if wr.err != nil {
			return errors.Wrapf(wr.err, "writing object #%d", ref)
		}
	}

	wr.writef("%s\n", endOfDump)
	return wr.err
}

// Save writes the database to a file path.
func Save(path string, db *gamedb.Database) error {
	// Write to temp file first, then rename for atomicity
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}

	if err := Write(f, db); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return err
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.Wrap(err, "close temp file")
	}

	if err := os.Rename(tmpPath, path); err != nil {
		// On Windows, may need to remove target first
		os.Remove(path)
		if err := os.Rename(tmpPath, path); err != nil {
			return errors.Wrap(err, "rename temp to final")
		}
	}
	return nil
}

type writer struct {
	w       io.Writer
	db      *gamedb.Database
	escapes *escapeSet
	quoted  bool
	err     error
}

func (wr *writer) writef(format string, args ...interface{}) {
	if wr.err != nil {
		return
	}
	_, wr.err = fmt.Fprintf(wr.w, format, args...)
}

func (wr *writer) str(s string) string {
	if !wr.quoted {
		return s
	}
	return wr.escapes.quote(s)
}

func (wr *writer) ref(o gamedb.Opt[gamedb.DBRef]) {
	wr.writef("%d\n", o.Or(gamedb.Nothing))
}

func (wr *writer) word(o gamedb.Opt[uint32]) {
	wr.writef("%d\n", o.V)
}

func (wr *writer) writeObject(obj *gamedb.Object) {
	db := wr.db
	wr.writef("!%d\n", obj.Ref)

	if !db.Has(gamedb.VGDBM) || !db.Has(gamedb.VAtrName) {
		wr.writef("%s\n", wr.str(obj.Name.V))
	}
	wr.ref(obj.Location)
	if db.Has(gamedb.VZone) {
		wr.ref(obj.Zone)
	}
	wr.ref(obj.Contents)
	wr.ref(obj.Exits)
	if db.Has(gamedb.VLink) {
		wr.ref(obj.Link)
	}
	wr.ref(obj.Next)
	if !db.Has(gamedb.VAtrKey) {
		wr.writef("%s", HeaderLock(obj))
	}
	wr.ref(obj.Owner)
	if db.Has(gamedb.VParent) {
		wr.ref(obj.Parent)
	}
	if !db.Has(gamedb.VAtrMoney) {
		wr.writef("%d\n", obj.Pennies.V)
	}

	wr.word(obj.Flags[0])
	if db.Has(gamedb.VXFlags) {
		wr.word(obj.Flags[1])
	}
	if db.Has(gamedb.V3Flags) {
		wr.word(obj.Flags[2])
	}
	if db.Dialect == gamedb.R7H && db.Has(gamedb.V4Flags) {
		wr.word(obj.Flags[3])
	}
	if db.Has(gamedb.VPowers) {
		wr.word(obj.Powers[0])
		wr.word(obj.Powers[1])
	}
	if db.Has(gamedb.VTimestamps) {
		wr.writef("%d\n%d\n", obj.AccessTime.V, obj.ModTime.V)
	}

	marker := '>'
	if db.Dialect == gamedb.R7H {
		marker = ']'
	}
	for _, attr := range obj.Attrs {
		if attr.Number <= 0 {
			continue
		}
		wr.writef("%c%d\n%s\n", marker, attr.Number, wr.str(attr.Value))
	}
	wr.writef("<\n")
}

// HeaderLock returns the text written for an object's header lock. The bytes
// read from the source are reused while they still describe obj.Lock.
func HeaderLock(obj *gamedb.Object) string {
	if raw, ok := obj.LockRaw.Get(); ok {
		n, err := lock.ParseCanonical(raw)
		if err == nil && n.Equal(obj.Lock) {
			return raw
		}
		if err != nil && obj.Lock == nil {
			return raw
		}
	}
	return lock.Canonical(obj.Lock)
}
