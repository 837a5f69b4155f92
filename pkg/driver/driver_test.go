package driver

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/crystal-mush/omega/pkg/archive"
	"github.com/crystal-mush/omega/pkg/boltstore"
	"github.com/crystal-mush/omega/pkg/config"
	"github.com/crystal-mush/omega/pkg/convert"
	"github.com/crystal-mush/omega/pkg/flatfile"
	"github.com/crystal-mush/omega/pkg/gamedb"
	"github.com/crystal-mush/omega/pkg/lock"
	"github.com/crystal-mush/omega/pkg/upgrade"
)

const t6hDump = `+T3095297
+S1
+N256
-R0
!0
"Limbo"
-1
-1
-1
-1
-1
-1
1
-1
0
0
0
0
0
0
1700000000
1700000001
>42
"#1|#2"
>6
"line1\nline2\ttab \\ backslash"
<
***END OF DUMP***
`

const pennDump = `+V369112578
~2
!1
name "Wizard"
location #0
contents #-1
exits #0
next #-1
parent #-1
lockcount 1
 type "Basic"
  creator #1
  flags ""
  derefs 0
  key "=#1"
owner #1
zone #-1
pennies 100
type 8
flags "WIZARD"
powers "Builder"
warnings ""
created 1700000000
modified 1700000001
attrcount 1
 name "DESCRIBE"
  owner #1
  flags ""
  derefs 0
  value "Line one
Line two"
***END OF DUMP***
`

// badHeader carries header bit 0x4000, which TinyMUX does not define.
const badHeader = "+X16643\n!0\nLimbo\n-1\n-1\n-1\n-1\n-1\n\n1\n0\n0\n<\n***END OF DUMP***\n"

func mustMode(t *testing.T, s string) Mode {
	t.Helper()
	m, err := ParseMode(s)
	require.NoError(t, err)
	return m
}

func TestParseMode(t *testing.T) {
	cases := []struct {
		in   string
		want Mode
	}{
		{"t5x", Mode{From: gamedb.T5X, To: gamedb.T5X}},
		{"P6H", Mode{From: gamedb.P6H, To: gamedb.P6H}},
		{"t6h-upgrade", Mode{From: gamedb.T6H, To: gamedb.T6H, Upgrade: true}},
		{"p6h2t5x", Mode{From: gamedb.P6H, To: gamedb.T5X}},
		{"r7h2p6h", Mode{From: gamedb.R7H, To: gamedb.P6H}},
		{"penn2mux", Mode{From: gamedb.P6H, To: gamedb.T5X}},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseMode(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	for _, bad := range []string{"", "x7y", "t5x2t5x", "p6h2", "foo-upgrade", "t5x2zzz"} {
		_, err := ParseMode(bad)
		assert.True(t, errors.Is(err, ErrMode), bad)
	}
}

func TestModeNames(t *testing.T) {
	modes := Modes()
	assert.Len(t, modes, 18)
	for _, name := range modes {
		m, err := ParseMode(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, m.String())
	}
	assert.Contains(t, modes, "p6h2t5x")
	assert.Contains(t, modes, "t5x-upgrade")
}

func TestRoundTripIsIdentity(t *testing.T) {
	d := New(Options{}, zaptest.NewLogger(t))
	var out bytes.Buffer
	res, err := d.Process(mustMode(t, "t6h"), strings.NewReader(t6hDump), &out)
	require.NoError(t, err)
	assert.Equal(t, t6hDump, out.String())
	assert.Nil(t, res.Converted)
	require.Len(t, res.Reports, 2)
	assert.Equal(t, "source", res.Reports[0].Stage)
	assert.Equal(t, "target", res.Reports[1].Stage)
}

func TestConvertPennToMUX(t *testing.T) {
	d := New(Options{Convert: convert.DefaultOptions()}, zaptest.NewLogger(t))
	var out bytes.Buffer
	res, err := d.Process(mustMode(t, "p6h2t5x"), strings.NewReader(pennDump), &out)
	require.NoError(t, err)
	require.NotNil(t, res.Converted)
	assert.Equal(t, 1, res.Converted.ObjectsWritten)

	db, err := flatfile.Parse(&out, gamedb.T5X, zaptest.NewLogger(t))
	require.NoError(t, err)
	wiz := db.Objects[1]
	require.NotNil(t, wiz)
	assert.Equal(t, "Wizard", wiz.Name.V)
	assert.True(t, wiz.HasFlag(0, gamedb.FlagWizard))
	assert.Equal(t, "=#1", lock.Flatten(wiz.Lock))
}

func TestUnknownHeaderFlagsAreFatal(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	d := New(Options{}, zap.New(core))

	var out bytes.Buffer
	res, err := d.Process(mustMode(t, "t5x"), strings.NewReader(badHeader), &out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFatal))
	assert.Zero(t, out.Len(), "nothing written after a fatal finding")
	require.NotNil(t, res)
	require.Len(t, res.Reports, 1)
	assert.Equal(t, 1, res.Reports[0].Severities["fatal"])
	assert.NotZero(t, logs.Len())
}

func TestUpgradeModes(t *testing.T) {
	d := New(Options{}, zaptest.NewLogger(t))
	var out bytes.Buffer
	res, err := d.Process(mustMode(t, "t6h-upgrade"), strings.NewReader(t6hDump), &out)
	require.NoError(t, err)
	require.NotNil(t, res.Upgraded)
	assert.True(t, res.Target.Numeric.Has(gamedb.VAtrKey))

	_, err = d.Process(mustMode(t, "p6h-upgrade"), strings.NewReader(pennDump), &bytes.Buffer{})
	assert.True(t, errors.Is(err, upgrade.ErrUnsupported))
}

func TestOptionsFromConfig(t *testing.T) {
	c := config.DefaultConfig()
	c.AutoFix = true
	c.Bolt = "snap.db"
	c.HashPlaintextPasswords = true
	opts := OptionsFromConfig(c)
	assert.True(t, opts.AutoFix)
	assert.Equal(t, "snap.db", opts.Bolt)
	assert.True(t, opts.Upgrade.HashPasswords)
	assert.Equal(t, 256, opts.Convert.AttrStart)
}

func TestRunWritesOutputs(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.p6h")
	out := filepath.Join(dir, "out.t5x")
	require.NoError(t, os.WriteFile(in, []byte(pennDump), 0o644))

	opts := Options{
		Convert:     convert.DefaultOptions(),
		AutoFix:     true,
		Report:      filepath.Join(dir, "report.json"),
		Bolt:        filepath.Join(dir, "snap.db"),
		MetricsFile: filepath.Join(dir, "omega.prom"),
		Archive:     filepath.Join(dir, "runs"),
	}
	d := New(opts, zaptest.NewLogger(t))
	res, err := d.Run(mustMode(t, "p6h2t5x"), in, out)
	require.NoError(t, err)

	written, err := flatfile.Load(out, gamedb.T5X, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Len(t, written.Objects, 1)

	data, err := os.ReadFile(opts.Report)
	require.NoError(t, err)
	var reports []map[string]any
	require.NoError(t, json.Unmarshal(data, &reports))
	require.Len(t, reports, 2)
	assert.Equal(t, "p6h", reports[0]["dialect"])
	assert.Equal(t, "t5x", reports[1]["dialect"])

	s, err := boltstore.Open(opts.Bolt, nil)
	require.NoError(t, err)
	defer s.Close()
	snap, err := s.Load()
	require.NoError(t, err)
	require.Len(t, snap.Numeric.Objects, len(res.Target.Numeric.Objects))
	assert.Equal(t, "Wizard", snap.Numeric.Objects[1].Name.V)
	assert.Equal(t, res.Target.Numeric.Version, snap.Numeric.Version)

	prom, err := os.ReadFile(opts.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `omega_objects_total{outcome="written"} 1`)
	assert.Contains(t, string(prom), `mode="p6h2t5x"`)

	bundles, err := archive.List(opts.Archive)
	require.NoError(t, err)
	require.Len(t, bundles, 1)
	m, err := archive.Verify(bundles[0].Path)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Objects)
	assert.Contains(t, m.Files, "input/in.p6h")
	assert.Contains(t, m.Files, "output/out.t5x")
	assert.Contains(t, m.Files, "data/snap.db")
	assert.Contains(t, m.Files, "metrics/omega.prom")
}

func TestRunMissingInput(t *testing.T) {
	dir := t.TempDir()
	opts := Options{
		Bolt:        filepath.Join(dir, "snap.db"),
		MetricsFile: filepath.Join(dir, "omega.prom"),
	}
	d := New(opts, zaptest.NewLogger(t))
	_, err := d.Run(mustMode(t, "t5x"), filepath.Join(dir, "missing"), filepath.Join(dir, "out"))
	require.Error(t, err)

	_, statErr := os.Stat(opts.Bolt)
	assert.True(t, os.IsNotExist(statErr), "no snapshot for a failed run")
	_, statErr = os.Stat(opts.MetricsFile)
	assert.NoError(t, statErr, "metrics written for a failed run")
}
