// Package config holds the converter's run configuration. Values come from
// defaults, then an optional file, then OMEGA_* environment variables, then
// command-line flags, each layer overriding the one before.
package config

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/crystal-mush/omega/pkg/convert"
	"github.com/crystal-mush/omega/pkg/upgrade"
)

// EnvPrefix starts every environment override.
const EnvPrefix = "OMEGA_"

// Config is the complete run configuration.
type Config struct {
	// Conversion
	AttrStart       int    `yaml:"attr_start"`
	RenamePrefix    string `yaml:"rename_prefix"`
	TargetVersion   int    `yaml:"target_version"`
	StripColor      bool   `yaml:"strip_color"`
	ConvertNewlines bool   `yaml:"convert_newlines"`

	// Upgrade
	HashPlaintextPasswords bool `yaml:"hash_plaintext_passwords"`

	// Validation
	AutoFix bool `yaml:"auto_fix"`

	// Outputs
	Report      string `yaml:"report"`
	Bolt        string `yaml:"bolt"`
	MetricsFile string `yaml:"metrics_file"`
	Archive     string `yaml:"archive"`

	// Logging
	LogJSON  bool   `yaml:"log_json"`
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	opts := convert.DefaultOptions()
	return &Config{
		AttrStart:       opts.AttrStart,
		RenamePrefix:    opts.RenamePrefix,
		TargetVersion:   opts.TargetVersion,
		StripColor:      opts.StripColor,
		ConvertNewlines: opts.ConvertNewlines,
		LogLevel:        "info",
	}
}

// LoadConfig reads a configuration file over the defaults. YAML files end in
// .yaml or .yml; anything else is read as "key value" lines with '#'
// comments, using the same keys.
func LoadConfig(path string) (*Config, error) {
	c := DefaultConfig()
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "reading %s", path)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, errors.Wrapf(err, "parsing YAML %s", path)
		}
	default:
		if err := c.loadKeyValue(path); err != nil {
			return nil, err
		}
	}
	return c, c.Validate()
}

func (c *Config) loadKeyValue(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "reading %s", path)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		key, val := splitKeyVal(line)
		if err := c.Set(key, val); err != nil {
			return errors.Wrapf(err, "%s:%d", path, lineNo)
		}
	}
	return scanner.Err()
}

// splitKeyVal splits a line on the first whitespace (space or tab).
func splitKeyVal(line string) (string, string) {
	for i := 0; i < len(line); i++ {
		if line[i] == ' ' || line[i] == '\t' {
			return line[:i], strings.TrimSpace(line[i+1:])
		}
	}
	return line, ""
}

// setter parses one value into a Config field.
type setter func(c *Config, val string) error

func intField(field func(*Config) *int) setter {
	return func(c *Config, val string) error {
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return errors.Wrapf(err, "invalid number %q", val)
		}
		*field(c) = n
		return nil
	}
}

func boolField(field func(*Config) *bool) setter {
	return func(c *Config, val string) error {
		*field(c) = parseBool(val)
		return nil
	}
}

func stringField(field func(*Config) *string) setter {
	return func(c *Config, val string) error {
		*field(c) = val
		return nil
	}
}

var setters = map[string]setter{
	"attr_start":               intField(func(c *Config) *int { return &c.AttrStart }),
	"rename_prefix":            stringField(func(c *Config) *string { return &c.RenamePrefix }),
	"target_version":           intField(func(c *Config) *int { return &c.TargetVersion }),
	"strip_color":              boolField(func(c *Config) *bool { return &c.StripColor }),
	"convert_newlines":         boolField(func(c *Config) *bool { return &c.ConvertNewlines }),
	"hash_plaintext_passwords": boolField(func(c *Config) *bool { return &c.HashPlaintextPasswords }),
	"auto_fix":                 boolField(func(c *Config) *bool { return &c.AutoFix }),
	"report":                   stringField(func(c *Config) *string { return &c.Report }),
	"bolt":                     stringField(func(c *Config) *string { return &c.Bolt }),
	"metrics_file":             stringField(func(c *Config) *string { return &c.MetricsFile }),
	"archive":                  stringField(func(c *Config) *string { return &c.Archive }),
	"log_json":                 boolField(func(c *Config) *bool { return &c.LogJSON }),
	"log_level":                stringField(func(c *Config) *string { return &c.LogLevel }),
}

// Keys returns every configuration key in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set assigns one key from its text form.
func (c *Config) Set(key, val string) error {
	s, ok := setters[strings.ToLower(key)]
	if !ok {
		return errors.Newf("unknown configuration key %q", key)
	}
	return s(c, val)
}

// ApplyEnv applies OMEGA_<KEY> overrides found through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	for _, key := range Keys() {
		name := EnvPrefix + strings.ToUpper(key)
		if val, ok := lookup(name); ok {
			if err := c.Set(key, val); err != nil {
				return errors.Wrapf(err, "environment %s", name)
			}
		}
	}
	return c.Validate()
}

// ApplyEnvironment is ApplyEnv over the process environment.
func (c *Config) ApplyEnvironment() error {
	return c.ApplyEnv(os.LookupEnv)
}

// Validate rejects values no run can use.
func (c *Config) Validate() error {
	if c.AttrStart < 256 {
		return errors.Newf("attr_start %d is below 256", c.AttrStart)
	}
	if c.TargetVersion < 1 || c.TargetVersion > upgrade.CurrentMUXVersion {
		return errors.Newf("target_version %d out of range 1..%d", c.TargetVersion, upgrade.CurrentMUXVersion)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return errors.Newf("unknown log_level %q", c.LogLevel)
	}
	return nil
}

// ConvertOptions returns the conversion settings.
func (c *Config) ConvertOptions() convert.Options {
	return convert.Options{
		AttrStart:       c.AttrStart,
		RenamePrefix:    c.RenamePrefix,
		TargetVersion:   c.TargetVersion,
		StripColor:      c.StripColor,
		ConvertNewlines: c.ConvertNewlines,
	}
}

// UpgradeOptions returns the in-place upgrade settings.
func (c *Config) UpgradeOptions() upgrade.Options {
	return upgrade.Options{HashPasswords: c.HashPlaintextPasswords}
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "yes" || s == "true" || s == "1" || s == "on"
}
