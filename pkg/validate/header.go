package validate

import (
	"fmt"

	"github.com/crystal-mush/omega/pkg/gamedb"
	"github.com/crystal-mush/omega/pkg/penndb"
)

// HeaderChecker rejects database flag bits the dialect does not define. Such
// a file was written by an unknown server version and cannot be converted.
type HeaderChecker struct{}

func (c *HeaderChecker) Name() string { return "header" }

func (c *HeaderChecker) Check(t Target) []Finding {
	var unknown int
	switch {
	case t.Numeric != nil:
		unknown = t.Numeric.Flags &^ gamedb.VMask &^ gamedb.KnownVersionFlags(t.Numeric.Dialect)
	case t.Penn != nil:
		unknown = t.Penn.DBFlags &^ penndb.KnownHeaderFlags
	}
	if unknown == 0 {
		return nil
	}
	return []Finding{{
		Category:    CatHeader,
		Severity:    SevFatal,
		ObjectRef:   gamedb.Nothing,
		Description: fmt.Sprintf("unknown %s database flags 0x%x", t.Dialect(), unknown),
	}}
}
