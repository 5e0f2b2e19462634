package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParse_OverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
database:
  path: drawings.sqlite
  driver: sqlite
  busy_timeout_ms: 250
log:
  level: debug
  format: json
  file: zobject.log
`))
	require.NoError(t, err)

	assert.Equal(t, "drawings.sqlite", cfg.Database.Path)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 250, cfg.Database.BusyTimeoutMS)
	assert.Equal(t, "WAL", cfg.Database.JournalMode, "unset keys keep defaults")
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "zobject.log", cfg.Log.File)
	assert.Equal(t, 10, cfg.Log.MaxSizeMB)
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown key", "database:\n  pth: x.db\n"},
		{"unknown driver", "database:\n  driver: postgres\n"},
		{"bad journal mode", "database:\n  journal_mode: fast\n"},
		{"negative busy timeout", "database:\n  busy_timeout_ms: -1\n"},
		{"bad log level", "log:\n  level: loud\n"},
		{"zero max size", "log:\n  max_size_mb: 0\n"},
		{"not yaml", "database: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zobject.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database:\n  synchronous: FULL\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "FULL", cfg.Database.Synchronous)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
