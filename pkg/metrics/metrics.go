// Package metrics records what one converter run did in a private
// Prometheus registry and writes it out in the node-exporter textfile format.
package metrics

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/crystal-mush/omega/pkg/convert"
	"github.com/crystal-mush/omega/pkg/upgrade"
	"github.com/crystal-mush/omega/pkg/validate"
)

// Metrics holds the collectors of one run.
type Metrics struct {
	reg *prometheus.Registry

	objects       *prometheus.CounterVec
	locks         *prometheus.CounterVec
	attrs         *prometheus.CounterVec
	flagsLost     prometheus.Counter
	upgraded      *prometheus.CounterVec
	findings      *prometheus.CounterVec
	fixesApplied  *prometheus.CounterVec
	runInfo       *prometheus.GaugeVec
	durationSecs  prometheus.Gauge
	lastSuccessTS prometheus.Gauge
}

// New creates and registers the run metrics.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		objects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "omega_objects_total",
			Help: "Objects processed by the run, by outcome.",
		}, []string{"outcome"}),
		locks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "omega_locks_total",
			Help: "Locks handled during conversion, by outcome.",
		}, []string{"outcome"}),
		attrs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "omega_attributes_total",
			Help: "Attributes renamed or dropped during conversion.",
		}, []string{"outcome"}),
		flagsLost: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "omega_flags_lost_total",
			Help: "Flag and power bits with no equivalent in the target dialect.",
		}),
		upgraded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "omega_upgrade_changes_total",
			Help: "Changes made by an in-place upgrade, by kind.",
		}, []string{"kind"}),
		findings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "omega_findings_total",
			Help: "Validation findings by stage, category and severity.",
		}, []string{"stage", "category", "severity"}),
		fixesApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "omega_fixes_applied_total",
			Help: "Validation fixes applied, by stage.",
		}, []string{"stage"}),
		runInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "omega_run_info",
			Help: "Mode and dialects of the run; always 1.",
		}, []string{"mode", "source", "target"}),
		durationSecs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "omega_run_duration_seconds",
			Help: "Wall time of the run.",
		}),
		lastSuccessTS: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "omega_last_success_timestamp_seconds",
			Help: "Unix time the run finished successfully.",
		}),
	}

	m.reg.MustRegister(
		m.objects,
		m.locks,
		m.attrs,
		m.flagsLost,
		m.upgraded,
		m.findings,
		m.fixesApplied,
		m.runInfo,
		m.durationSecs,
		m.lastSuccessTS,
	)
	return m
}

// Registry exposes the run registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// RunInfo labels the run.
func (m *Metrics) RunInfo(mode, source, target string) {
	m.runInfo.WithLabelValues(mode, source, target).Set(1)
}

// ObserveRead counts objects loaded from the source file.
func (m *Metrics) ObserveRead(n int) {
	m.objects.WithLabelValues("read").Add(float64(n))
}

// ObserveWritten counts objects written to the target file.
func (m *Metrics) ObserveWritten(n int) {
	m.objects.WithLabelValues("written").Add(float64(n))
}

// ObserveConvert records conversion statistics.
func (m *Metrics) ObserveConvert(s *convert.Stats) {
	if s == nil {
		return
	}
	m.objects.WithLabelValues("dropped").Add(float64(s.ObjectsDropped))
	m.locks.WithLabelValues("converted").Add(float64(s.LocksConverted))
	m.locks.WithLabelValues("dropped").Add(float64(s.LocksDropped))
	m.attrs.WithLabelValues("renamed").Add(float64(s.AttrsRenamed))
	m.attrs.WithLabelValues("dropped").Add(float64(s.AttrsDropped))
	m.flagsLost.Add(float64(s.FlagsLost))
}

// ObserveUpgrade records upgrade statistics.
func (m *Metrics) ObserveUpgrade(s *upgrade.Stats) {
	if s == nil {
		return
	}
	m.upgraded.WithLabelValues("recoded").Add(float64(s.Recoded))
	m.upgraded.WithLabelValues("password_hashed").Add(float64(s.PasswordsHash))
	m.upgraded.WithLabelValues("lock_moved").Add(float64(s.LocksMoved))
}

// ObserveFindings counts findings of one validation stage.
func (m *Metrics) ObserveFindings(stage string, findings []validate.Finding) {
	for _, f := range findings {
		m.findings.WithLabelValues(stage, f.Category.String(), f.Severity.String()).Inc()
	}
}

// ObserveFixes counts fixes applied in a stage.
func (m *Metrics) ObserveFixes(stage string, n int) {
	m.fixesApplied.WithLabelValues(stage).Add(float64(n))
}

// Finish records the run duration and, when ok, the success time.
func (m *Metrics) Finish(started time.Time, ok bool) {
	now := time.Now()
	m.durationSecs.Set(now.Sub(started).Seconds())
	if ok {
		m.lastSuccessTS.Set(float64(now.Unix()))
	}
}

// WriteTextfile writes every metric of the run to path.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.reg); err != nil {
		return errors.Wrapf(err, "writing metrics to %s", path)
	}
	return nil
}
