// Package convert builds a database of one dialect from a database of
// another. TinyMUX (T5X) is the hub: PennMUSH, TinyMUSH and RhostMUSH each
// convert to and from it directly, and every other pair goes through it.
package convert

import (
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/text/transform"

	"github.com/crystal-mush/omega/pkg/charset"
	"github.com/crystal-mush/omega/pkg/gamedb"
	"github.com/crystal-mush/omega/pkg/penndb"
)

// DB is one loaded flatfile. Penn is set for P6H, Numeric for the others.
type DB struct {
	Dialect gamedb.Dialect
	Penn    *penndb.Database
	Numeric *gamedb.Database
}

// PennDB wraps a PennMUSH database.
func PennDB(db *penndb.Database) DB {
	return DB{Dialect: gamedb.P6H, Penn: db}
}

// NumericDB wraps a numeric-family database.
func NumericDB(db *gamedb.Database) DB {
	return DB{Dialect: db.Dialect, Numeric: db}
}

func (db DB) check() error {
	if db.Dialect == gamedb.P6H && db.Penn == nil {
		return errors.New("convert: p6h database missing")
	}
	if db.Dialect.Numeric() && db.Numeric == nil {
		return errors.Newf("convert: %s database missing", db.Dialect)
	}
	if db.Dialect == gamedb.DialectUnknown {
		return errors.New("convert: unknown source dialect")
	}
	return nil
}

// Options tune a conversion run.
type Options struct {
	// AttrStart is the first number given to user attributes.
	AttrStart int

	// RenamePrefix is prepended to PennMUSH attribute names that TinyMUX
	// uses for something else.
	RenamePrefix string

	// TargetVersion is the TinyMUX flatfile version written. Version 3
	// stores UTF-8 with color code points; older versions store Latin-1.
	TargetVersion int

	// StripColor removes color from converted text.
	StripColor bool

	// ConvertNewlines translates between "\n" (PennMUSH) and "\r\n".
	ConvertNewlines bool

	// SavedTime is written as the savedtime of PennMUSH output when set.
	SavedTime string
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		AttrStart:       gamedb.A_USER_START,
		RenamePrefix:    "P6H_",
		TargetVersion:   3,
		ConvertNewlines: true,
	}
}

// Stats counts what a conversion did.
type Stats struct {
	ObjectsRead    int
	ObjectsWritten int
	ObjectsDropped int
	LocksConverted int
	LocksDropped   int
	AttrsRenamed   int
	AttrsDropped   int
	FlagsLost      int
}

func (s *Stats) add(o *Stats) {
	s.ObjectsRead += o.ObjectsRead
	s.ObjectsWritten += o.ObjectsWritten
	s.ObjectsDropped += o.ObjectsDropped
	s.LocksConverted += o.LocksConverted
	s.LocksDropped += o.LocksDropped
	s.AttrsRenamed += o.AttrsRenamed
	s.AttrsDropped += o.AttrsDropped
	s.FlagsLost += o.FlagsLost
}

// Convert returns a new database of dialect to holding src's content. src is
// not modified apart from lock parse caches.
func Convert(src DB, to gamedb.Dialect, opts Options, log *zap.Logger) (DB, *Stats, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := src.check(); err != nil {
		return DB{}, nil, err
	}
	if opts.AttrStart < gamedb.A_USER_START {
		opts.AttrStart = gamedb.A_USER_START
	}
	if opts.TargetVersion == 0 {
		opts.TargetVersion = 3
	}
	from := src.Dialect
	stats := &Stats{}

	switch {
	case to == gamedb.DialectUnknown:
		return DB{}, nil, errors.New("convert: unknown target dialect")

	case from == to:
		return DB{}, nil, errors.Newf("convert: source and target are both %s", to)

	case from == gamedb.P6H && to == gamedb.T5X:
		c := newPennToMUX(src.Penn, opts, log, stats)
		return NumericDB(c.run()), stats, nil

	case from == gamedb.T5X && to == gamedb.P6H:
		c := newMUXToPenn(src.Numeric, opts, log, stats)
		return PennDB(c.run()), stats, nil

	case from.Numeric() && to.Numeric() && (from == gamedb.T5X || to == gamedb.T5X):
		c := newNumeric(src.Numeric, to, opts, log, stats)
		return NumericDB(c.run()), stats, nil
	}

	log.Info("converting through t5x", zap.Stringer("from", from), zap.Stringer("to", to))
	hub := opts
	hub.StripColor = false
	mid, first, err := Convert(src, gamedb.T5X, hub, log)
	if err != nil {
		return DB{}, nil, err
	}
	out, second, err := Convert(mid, to, opts, log)
	if err != nil {
		return DB{}, nil, err
	}
	stats.add(first)
	stats.add(second)
	// The hub's objects are counted once, on the way in.
	stats.ObjectsRead -= second.ObjectsRead
	stats.ObjectsWritten -= first.ObjectsWritten
	return out, stats, nil
}

// pipeline composes text transformers into a string function.
func pipeline(ts ...transform.Transformer) func(string) string {
	var kept []transform.Transformer
	for _, t := range ts {
		if t != nil {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		return func(s string) string { return s }
	}
	t := transform.Chain(kept...)
	return func(s string) string { return charset.Apply(t, s) }
}

// utf8Color reports whether a numeric database stores UTF-8 with color code
// points rather than Latin-1 with ANSI escapes.
func utf8Color(d gamedb.Dialect, version int) bool {
	return d == gamedb.T5X && version >= 3
}

// recoder returns the text conversion between two storage encodings.
func recoder(fromUTF8, toUTF8, stripColor bool) []transform.Transformer {
	var ts []transform.Transformer
	switch {
	case !fromUTF8 && toUTF8:
		ts = append(ts, charset.Upgrade())
	case fromUTF8 && !toUTF8:
		ts = append(ts, charset.Downgrade())
	}
	if stripColor {
		if toUTF8 {
			ts = append(ts, charset.StripColor())
		} else {
			ts = append(ts, charset.StripANSI())
		}
	}
	return ts
}

// timeLayout is how TinyMUX stores the CREATED and MODIFIED attributes.
const timeLayout = time.ANSIC

func formatTime(sec int64) string {
	return time.Unix(sec, 0).UTC().Format(timeLayout)
}

func parseTime(s string) (int64, bool) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return 0, false
	}
	return t.Unix(), true
}

func words(opts []gamedb.Opt[uint32]) []uint32 {
	out := make([]uint32, len(opts))
	for i, o := range opts {
		out[i] = o.V
	}
	return out
}
