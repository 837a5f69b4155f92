package driver

import (
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/crystal-mush/omega/pkg/gamedb"
)

// ErrMode marks a mode argument that names no known operation.
var ErrMode = errors.New("unknown mode")

// Mode is one operation of the converter.
//
//	t5x           read and write TinyMUX unchanged
//	t5x-upgrade   upgrade a TinyMUX database in place, then write it
//	p6h2t5x       convert PennMUSH to TinyMUX
type Mode struct {
	From    gamedb.Dialect
	To      gamedb.Dialect
	Upgrade bool
}

// ParseMode reads a mode argument. Dialect names follow gamedb.ParseDialect.
func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))

	if base, ok := strings.CutSuffix(s, "-upgrade"); ok {
		d, err := gamedb.ParseDialect(base)
		if err != nil {
			return Mode{}, errors.Wrapf(ErrMode, "%q", s)
		}
		return Mode{From: d, To: d, Upgrade: true}, nil
	}

	if from, to, ok := strings.Cut(s, "2"); ok {
		src, err1 := gamedb.ParseDialect(from)
		dst, err2 := gamedb.ParseDialect(to)
		if err1 != nil || err2 != nil {
			return Mode{}, errors.Wrapf(ErrMode, "%q", s)
		}
		if src == dst {
			return Mode{}, errors.Wrapf(ErrMode, "%q converts %s to itself", s, src)
		}
		return Mode{From: src, To: dst}, nil
	}

	d, err := gamedb.ParseDialect(s)
	if err != nil {
		return Mode{}, errors.Wrapf(ErrMode, "%q", s)
	}
	return Mode{From: d, To: d}, nil
}

// Converts reports whether the mode changes dialect.
func (m Mode) Converts() bool {
	return m.From != m.To
}

func (m Mode) String() string {
	switch {
	case m.Upgrade:
		return m.From.String() + "-upgrade"
	case m.Converts():
		return m.From.String() + "2" + m.To.String()
	}
	return m.From.String()
}

// Modes lists the canonical mode names for usage text.
func Modes() []string {
	dialects := []gamedb.Dialect{gamedb.P6H, gamedb.T5X, gamedb.T6H, gamedb.R7H}
	var out []string
	for _, d := range dialects {
		out = append(out, Mode{From: d, To: d}.String())
	}
	for _, d := range []gamedb.Dialect{gamedb.T5X, gamedb.T6H} {
		out = append(out, Mode{From: d, To: d, Upgrade: true}.String())
	}
	for _, from := range dialects {
		for _, to := range dialects {
			if from != to {
				out = append(out, Mode{From: from, To: to}.String())
			}
		}
	}
	return out
}
