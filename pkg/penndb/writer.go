package penndb

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/crystal-mush/omega/pkg/gamedb"
)

// Write serializes db in labeled form. Only present fields are written, in
// the fixed order PennMUSH itself uses.
func Write(w io.Writer, db *Database) error {
	wr := &writer{w: w}

	wr.writef("+V%d\n", db.Header())
	if v, ok := db.DBVersion.Get(); ok {
		wr.writef("dbversion %d\n", v)
	}
	if v, ok := db.SavedTime.Get(); ok {
		wr.writef("savedtime %s\n", quoteString(v))
	}
	if db.FlagCount.Ok || len(db.FlagList) > 0 {
		wr.writef("+FLAGS LIST\n")
		wr.writeFlagList(db.FlagList)
	}
	if db.FlagAliasCount.Ok || len(db.FlagAliases) > 0 {
		wr.writef("+FLAG ALIASES\n")
		wr.writeAliasList(db.FlagAliases)
	}
	if db.PowerCount.Ok || len(db.PowerList) > 0 {
		wr.writef("+POWER LIST\n")
		wr.writeFlagList(db.PowerList)
	}
	if db.PowerAliasCount.Ok || len(db.PowerAliases) > 0 {
		wr.writef("+POWER ALIASES\n")
		wr.writeAliasList(db.PowerAliases)
	}
	if v, ok := db.Size.Get(); ok {
		wr.writef("~%d\n", v)
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

// Save writes db to path through a temporary file.
func Save(path string, db *Database) error {
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
		return errors.Wrap(err, "rename temp to final")
	}
	return nil
}

type writer struct {
	w   io.Writer
	err error
}

func (wr *writer) writef(format string, args ...interface{}) {
	if wr.err != nil {
		return
	}
	_, wr.err = fmt.Fprintf(wr.w, format, args...)
}

func (wr *writer) writeFlagList(list []FlagInfo) {
	wr.writef("flagcount %d\n", len(list))
	for _, f := range list {
		wr.writef(" name %s\n", quoteString(f.Name))
		wr.writef("  letter %s\n", quoteString(f.Letter))
		wr.writef("  type %s\n", quoteString(f.Type))
		wr.writef("  perms %s\n", quoteString(f.Perms))
		wr.writef("  negate_perms %s\n", quoteString(f.NegatePerms))
	}
}

func (wr *writer) writeAliasList(list []FlagAliasInfo) {
	wr.writef("flagaliascount %d\n", len(list))
	for _, a := range list {
		wr.writef(" name %s\n", quoteString(a.Name))
		wr.writef("  alias %s\n", quoteString(a.Alias))
	}
}

func (wr *writer) str(label string, o gamedb.Opt[string]) {
	if v, ok := o.Get(); ok {
		wr.writef("%s %s\n", label, quoteString(v))
	}
}

func (wr *writer) ref(label string, o gamedb.Opt[gamedb.DBRef]) {
	if v, ok := o.Get(); ok {
		wr.writef("%s #%d\n", label, v)
	}
}

func (wr *writer) num(label string, o gamedb.Opt[int]) {
	if v, ok := o.Get(); ok {
		wr.writef("%s %d\n", label, v)
	}
}

func (wr *writer) num64(label string, o gamedb.Opt[int64]) {
	if v, ok := o.Get(); ok {
		wr.writef("%s %d\n", label, v)
	}
}

func (wr *writer) writeObject(obj *Object) {
	wr.writef("!%d\n", obj.Ref)
	wr.str("name", obj.Name)
	wr.ref("location", obj.Location)
	wr.ref("contents", obj.Contents)
	wr.ref("exits", obj.Exits)
	wr.ref("next", obj.Next)
	wr.ref("parent", obj.Parent)

	if obj.LockCount.Ok || len(obj.Locks) > 0 {
		wr.writef("lockcount %d\n", len(obj.Locks))
		for _, l := range obj.Locks {
			wr.writef(" type %s\n", quoteString(l.Type))
			wr.ref("  creator", l.Creator)
			wr.str("  flags", l.Flags)
			wr.num("  derefs", l.Derefs)
			wr.str("  key", l.Key)
		}
	}

	wr.ref("owner", obj.Owner)
	wr.ref("zone", obj.Zone)
	wr.num("pennies", obj.Pennies)
	wr.num("type", obj.Type)
	wr.str("flags", obj.Flags)
	wr.str("powers", obj.Powers)
	wr.str("warnings", obj.Warnings)
	wr.num64("created", obj.Created)
	wr.num64("modified", obj.Modified)

	if obj.AttrCount.Ok || len(obj.Attrs) > 0 {
		wr.writef("attrcount %d\n", len(obj.Attrs))
		for _, a := range obj.Attrs {
			wr.writef(" name %s\n", quoteString(a.Name))
			wr.ref("  owner", a.Owner)
			wr.str("  flags", a.Flags)
			wr.num("  derefs", a.Derefs)
			wr.str("  value", a.Value)
		}
	}
}

// quoteString quotes s, escaping only '"' and '\'. Newlines are written raw.
func quoteString(s string) string {
	var buf strings.Builder
	buf.Grow(len(s) + 2)
	buf.WriteByte('"')
	for i := 0; i < len(s); i++ {
		if s[i] == '"' || s[i] == '\\' {
			buf.WriteByte('\\')
		}
		buf.WriteByte(s[i])
	}
	buf.WriteByte('"')
	return buf.String()
}
