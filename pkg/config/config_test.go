package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	c := DefaultConfig()
	require.NoError(t, c.Validate())
	assert.Equal(t, 256, c.AttrStart)
	assert.Equal(t, "P6H_", c.RenamePrefix)
	assert.Equal(t, 3, c.TargetVersion)
	assert.True(t, c.ConvertNewlines)
	assert.False(t, c.AutoFix)
	assert.Equal(t, "info", c.LogLevel)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "omega.yaml", `
attr_start: 300
rename_prefix: PENN_
auto_fix: true
report: out/report.json
log_level: debug
`)
	c, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 300, c.AttrStart)
	assert.Equal(t, "PENN_", c.RenamePrefix)
	assert.True(t, c.AutoFix)
	assert.Equal(t, "out/report.json", c.Report)
	assert.Equal(t, "debug", c.LogLevel)
	assert.Equal(t, 3, c.TargetVersion, "unset keys keep defaults")
}

func TestLoadKeyValue(t *testing.T) {
	path := writeFile(t, "omega.conf", `# converter settings
strip_color yes
target_version	2
bolt /tmp/snap.db
archive /var/omega/runs
`)
	c, err := LoadConfig(path)
	require.NoError(t, err)
	assert.True(t, c.StripColor)
	assert.Equal(t, 2, c.TargetVersion)
	assert.Equal(t, "/tmp/snap.db", c.Bolt)
	assert.Equal(t, "/var/omega/runs", c.Archive)
}

func TestLoadErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadConfig(writeFile(t, "bad.conf", "frobnicate 1\n"))
	assert.ErrorContains(t, err, "bad.conf:1")

	_, err = LoadConfig(writeFile(t, "low.yaml", "attr_start: 10\n"))
	assert.ErrorContains(t, err, "below 256")

	_, err = LoadConfig(writeFile(t, "broken.yml", "attr_start: [\n"))
	assert.Error(t, err)
}

func TestEnvOverridesFile(t *testing.T) {
	c, err := LoadConfig(writeFile(t, "omega.yaml", "attr_start: 300\nlog_json: false\n"))
	require.NoError(t, err)

	env := map[string]string{
		"OMEGA_ATTR_START": "512",
		"OMEGA_LOG_JSON":   "true",
		"UNRELATED":        "x",
	}
	require.NoError(t, c.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}))
	assert.Equal(t, 512, c.AttrStart)
	assert.True(t, c.LogJSON)

	err = c.ApplyEnv(func(k string) (string, bool) {
		if k == "OMEGA_TARGET_VERSION" {
			return "three", true
		}
		return "", false
	})
	assert.ErrorContains(t, err, "OMEGA_TARGET_VERSION")
}

func TestOptions(t *testing.T) {
	c := DefaultConfig()
	c.AttrStart = 400
	c.HashPlaintextPasswords = true
	opts := c.ConvertOptions()
	assert.Equal(t, 400, opts.AttrStart)
	assert.Equal(t, "P6H_", opts.RenamePrefix)
	assert.True(t, c.UpgradeOptions().HashPasswords)
}

func TestKeysMatchYAMLTags(t *testing.T) {
	assert.Len(t, Keys(), 13)
	c := DefaultConfig()
	for _, k := range Keys() {
		assert.NoError(t, c.Set(k, "1"), k)
	}
}
