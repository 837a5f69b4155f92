// Package driver runs one converter invocation: read a flatfile, validate
// it, upgrade or convert it, validate the result, then write it along with
// the optional report, snapshot and metrics outputs.
package driver

import (
	"io"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/crystal-mush/omega/pkg/archive"
	"github.com/crystal-mush/omega/pkg/boltstore"
	"github.com/crystal-mush/omega/pkg/config"
	"github.com/crystal-mush/omega/pkg/convert"
	"github.com/crystal-mush/omega/pkg/flatfile"
	"github.com/crystal-mush/omega/pkg/gamedb"
	"github.com/crystal-mush/omega/pkg/metrics"
	"github.com/crystal-mush/omega/pkg/penndb"
	"github.com/crystal-mush/omega/pkg/upgrade"
	"github.com/crystal-mush/omega/pkg/validate"
)

// ErrFatal marks a run stopped by a fatal validation finding.
var ErrFatal = errors.New("fatal validation failure")

// Options control one run.
type Options struct {
	Convert convert.Options
	Upgrade upgrade.Options

	// AutoFix applies every fixable finding of the target before writing.
	AutoFix bool

	// Optional outputs; empty paths are skipped.
	Report      string
	Bolt        string
	MetricsFile string

	// Archive names a directory that receives a bundle of the run's files.
	// ConfigFile is included in it when set.
	Archive    string
	ConfigFile string
}

// OptionsFromConfig maps a loaded configuration onto run options.
func OptionsFromConfig(c *config.Config) Options {
	return Options{
		Convert:     c.ConvertOptions(),
		Upgrade:     c.UpgradeOptions(),
		AutoFix:     c.AutoFix,
		Report:      c.Report,
		Bolt:        c.Bolt,
		MetricsFile: c.MetricsFile,
		Archive:     c.Archive,
	}
}

// Result is what a run produced.
type Result struct {
	Mode      Mode
	Source    convert.DB
	Target    convert.DB
	Converted *convert.Stats
	Upgraded  *upgrade.Stats
	Reports   []*validate.Report
	Fixed     int
}

// Driver carries the logger and metrics of a run.
type Driver struct {
	opts    Options
	log     *zap.Logger
	metrics *metrics.Metrics
}

// New creates a driver. A nil logger discards output.
func New(opts Options, log *zap.Logger) *Driver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Driver{opts: opts, log: log, metrics: metrics.New()}
}

// Metrics exposes the run metrics.
func (d *Driver) Metrics() *metrics.Metrics {
	return d.metrics
}

// Run processes the file pair in, out. The report and metrics outputs are
// written even when the run fails; the snapshot and bundle only when it
// succeeds.
func (d *Driver) Run(mode Mode, in, out string) (*Result, error) {
	started := time.Now()
	d.metrics.RunInfo(mode.String(), mode.From.String(), mode.To.String())
	d.log.Info("run starting",
		zap.Stringer("mode", mode),
		zap.String("in", in),
		zap.String("out", out))

	res, err := d.run(mode, in, out)

	if res != nil && d.opts.Report != "" {
		err = errors.CombineErrors(err, writeReport(d.opts.Report, res.Reports))
	}
	if err == nil && d.opts.Bolt != "" {
		err = d.snapshot(res.Target)
	}
	d.metrics.Finish(started, err == nil)
	if d.opts.MetricsFile != "" {
		err = errors.CombineErrors(err, d.metrics.WriteTextfile(d.opts.MetricsFile))
	}
	if err == nil && d.opts.Archive != "" {
		err = d.bundle(mode, in, out, res)
	}

	if err != nil {
		d.log.Error("run failed", zap.Stringer("mode", mode), zap.Error(err))
		return res, err
	}
	d.log.Info("run complete",
		zap.Stringer("mode", mode),
		zap.Int("objects", objectCount(res.Target)),
		zap.Duration("elapsed", time.Since(started)))
	return res, nil
}

func (d *Driver) run(mode Mode, in, out string) (*Result, error) {
	src, err := d.load(mode.From, in)
	if err != nil {
		return nil, err
	}
	res, err := d.Transform(mode, src)
	if err != nil {
		return res, err
	}
	if err := save(out, res.Target); err != nil {
		return res, err
	}
	d.metrics.ObserveWritten(objectCount(res.Target))
	d.log.Info("flatfile written", zap.String("path", out), zap.Stringer("dialect", res.Target.Dialect))
	return res, nil
}

// Process is Run over streams, without the file outputs.
func (d *Driver) Process(mode Mode, r io.Reader, w io.Writer) (*Result, error) {
	src, err := d.parse(mode.From, r)
	if err != nil {
		return nil, err
	}
	res, err := d.Transform(mode, src)
	if err != nil {
		return res, err
	}
	if err := write(w, res.Target); err != nil {
		return res, err
	}
	d.metrics.ObserveWritten(objectCount(res.Target))
	return res, nil
}

// Transform validates src, upgrades or converts it, and validates the
// result. A fatal finding on either side stops it with ErrFatal.
func (d *Driver) Transform(mode Mode, src convert.DB) (*Result, error) {
	res := &Result{Mode: mode, Source: src}

	if err := d.check(res, "source", src); err != nil {
		return res, err
	}

	target := src
	switch {
	case mode.Upgrade:
		if src.Numeric == nil {
			return res, errors.Wrapf(upgrade.ErrUnsupported, "%s", src.Dialect)
		}
		stats, err := upgrade.Upgrade(src.Numeric, d.opts.Upgrade, d.log)
		if err != nil {
			return res, err
		}
		res.Upgraded = stats
		d.metrics.ObserveUpgrade(stats)
	case mode.Converts():
		out, stats, err := convert.Convert(src, mode.To, d.opts.Convert, d.log)
		if err != nil {
			return res, err
		}
		target = out
		res.Converted = stats
		d.metrics.ObserveConvert(stats)
		d.log.Info("converted",
			zap.Stringer("from", mode.From),
			zap.Stringer("to", mode.To),
			zap.Int("objects", stats.ObjectsWritten),
			zap.Int("dropped", stats.ObjectsDropped),
			zap.Int("locks_dropped", stats.LocksDropped))
	}
	res.Target = target

	return res, d.check(res, "target", target)
}

// check validates one stage, applying fixes to the target when asked.
func (d *Driver) check(res *Result, stage string, db convert.DB) error {
	v := validator(db)
	findings := v.Run()
	d.metrics.ObserveFindings(stage, findings)
	d.logFindings(stage, findings)

	if stage == "target" && d.opts.AutoFix {
		res.Fixed = v.ApplyEverything()
		d.metrics.ObserveFixes(stage, res.Fixed)
		if res.Fixed > 0 {
			d.log.Info("fixes applied", zap.String("stage", stage), zap.Int("count", res.Fixed))
		}
	}
	res.Reports = append(res.Reports, validate.GenerateReport(v, stage))

	if fatal := v.Fatal(); len(fatal) > 0 {
		return errors.Wrapf(ErrFatal, "%s %s: %s", stage, db.Dialect, fatal[0].Description)
	}
	return nil
}

func (d *Driver) logFindings(stage string, findings []validate.Finding) {
	for _, f := range findings {
		fields := []zap.Field{
			zap.String("stage", stage),
			zap.String("id", f.ID),
			zap.Stringer("category", f.Category),
			zap.Int("ref", int(f.ObjectRef)),
			zap.String("finding", f.Description),
		}
		switch f.Severity {
		case validate.SevFatal:
			d.log.Error("validation", fields...)
		case validate.SevError, validate.SevWarning:
			d.log.Warn("validation", fields...)
		default:
			d.log.Debug("validation", fields...)
		}
	}
	if len(findings) > 0 {
		d.log.Info("validation complete", zap.String("stage", stage), zap.Int("findings", len(findings)))
	}
}

func validator(db convert.DB) *validate.Validator {
	if db.Penn != nil {
		return validate.ForPenn(db.Penn)
	}
	return validate.ForNumeric(db.Numeric)
}

func (d *Driver) load(dialect gamedb.Dialect, path string) (convert.DB, error) {
	f, err := os.Open(path)
	if err != nil {
		return convert.DB{}, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	start := time.Now()
	db, err := d.parse(dialect, f)
	if err != nil {
		return convert.DB{}, errors.Wrapf(err, "reading %s", path)
	}
	d.log.Info("flatfile loaded",
		zap.String("path", path),
		zap.Stringer("dialect", dialect),
		zap.Int("objects", objectCount(db)),
		zap.Duration("elapsed", time.Since(start)))
	return db, nil
}

func (d *Driver) parse(dialect gamedb.Dialect, r io.Reader) (convert.DB, error) {
	var db convert.DB
	if dialect == gamedb.P6H {
		p, err := penndb.Parse(r, d.log)
		if err != nil {
			return db, err
		}
		db = convert.PennDB(p)
	} else {
		n, err := flatfile.Parse(r, dialect, d.log)
		if err != nil {
			return db, err
		}
		db = convert.NumericDB(n)
	}
	d.metrics.ObserveRead(objectCount(db))
	return db, nil
}

func write(w io.Writer, db convert.DB) error {
	if db.Penn != nil {
		return penndb.Write(w, db.Penn)
	}
	return flatfile.Write(w, db.Numeric)
}

func save(path string, db convert.DB) error {
	var err error
	if db.Penn != nil {
		err = penndb.Save(path, db.Penn)
	} else {
		err = flatfile.Save(path, db.Numeric)
	}
	return errors.Wrapf(err, "writing %s", path)
}

func (d *Driver) snapshot(db convert.DB) error {
	s, err := boltstore.Open(d.opts.Bolt, d.log)
	if err != nil {
		return err
	}
	defer s.Close()
	return s.Save(db)
}

func (d *Driver) bundle(mode Mode, in, out string, res *Result) error {
	path, err := archive.Create(archive.Params{
		Dir:     d.opts.Archive,
		Mode:    mode.String(),
		Source:  mode.From.String(),
		Target:  mode.To.String(),
		Objects: objectCount(res.Target),
		Input:   in,
		Output:  out,
		Report:  d.opts.Report,
		Bolt:    d.opts.Bolt,
		Metrics: d.opts.MetricsFile,
		Conf:    d.opts.ConfigFile,
	})
	if err != nil {
		return err
	}
	d.log.Info("run archived", zap.String("path", path))
	return nil
}

func writeReport(path string, reports []*validate.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create report %s", path)
	}
	if err := validate.WriteReports(f, reports); err != nil {
		f.Close()
		return errors.Wrapf(err, "write report %s", path)
	}
	return f.Close()
}

func objectCount(db convert.DB) int {
	switch {
	case db.Penn != nil:
		return len(db.Penn.Objects)
	case db.Numeric != nil:
		return len(db.Numeric.Objects)
	}
	return 0
}
