// Package config loads the zobject configuration file.
//
// The file is YAML. Unknown keys are rejected, then the decoded values are
// checked against an embedded CUE schema.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// Config is the root of the configuration file.
type Config struct {
	Database Database `yaml:"database" json:"database"`
	Log      Log      `yaml:"log" json:"log"`
}

// Database configures the store file and its SQL engine.
type Database struct {
	Path          string `yaml:"path" json:"path,omitempty"`
	Driver        string `yaml:"driver" json:"driver"`
	JournalMode   string `yaml:"journal_mode" json:"journal_mode"`
	Synchronous   string `yaml:"synchronous" json:"synchronous"`
	BusyTimeoutMS int    `yaml:"busy_timeout_ms" json:"busy_timeout_ms"`
}

// Log configures logging. An empty File logs to stderr.
type Log struct {
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"`
	File       string `yaml:"file" json:"file,omitempty"`
	MaxSizeMB  int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Database: Database{
			Driver:        "sqlite3",
			JournalMode:   "WAL",
			Synchronous:   "NORMAL",
			BusyTimeoutMS: 5000,
		},
		Log: Log{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// Load reads and validates the file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML on top of Default and validates the result.
// Keys absent from data keep their default values.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks c against the embedded schema.
func (c Config) Validate() error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compiling config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	value := def.Unify(ctx.Encode(c))
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
