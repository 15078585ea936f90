package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tracepaper.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yml"))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.False(t, cfg.Redis.Enable)
	assert.Equal(t, "flat", cfg.Vector.Provider)
	assert.Equal(t, 384, cfg.Vector.Dimension)
	assert.Equal(t, []string{".md", ".txt", ".pdf"}, cfg.Watcher.Extensions)
	assert.Equal(t, "http://localhost:8000", cfg.Watcher.BackendURL)
	assert.Equal(t, 24, cfg.Backup.IntervalHours)
	assert.Equal(t, 7, cfg.Backup.Keep)
}

func TestLoadOverridesDefaults(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
host: 0.0.0.0
port: 9100
env: production
auth_token: sekrit
vector:
  dimension: 768
watcher:
  backend_url: http://127.0.0.1:9100
  directories:
    - /srv/notes
  rescan_interval: 60
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 9100, cfg.Port)
	assert.False(t, cfg.IsDev())
	assert.Equal(t, "sekrit", cfg.AuthToken)
	assert.Equal(t, 768, cfg.Vector.Dimension)
	assert.Equal(t, "http://127.0.0.1:9100", cfg.Watcher.BackendURL)
	assert.Equal(t, []string{"/srv/notes"}, cfg.Watcher.Directories)
	assert.Equal(t, 60, cfg.Watcher.RescanInterval)
	assert.Equal(t, "0.0.0.0:9100", cfg.Addr())
}

func TestLoadEmptyFileYieldsDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	t.Parallel()

	_, err := Load(writeConfig(t, "hots: 0.0.0.0\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config file")
}

func TestLoadValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "port out of range",
			yaml:    "port: 70000\n",
			wantErr: "invalid port",
		},
		{
			name:    "unknown database driver",
			yaml:    "database:\n  driver: postgres\n",
			wantErr: "invalid database.driver",
		},
		{
			name:    "unknown vector provider",
			yaml:    "vector:\n  provider: faiss\n",
			wantErr: "invalid vector.provider",
		},
		{
			name:    "zero vector dimension",
			yaml:    "vector:\n  dimension: -1\n",
			wantErr: "invalid vector.dimension",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Load(writeConfig(t, tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestWatchedDirectoriesResolvesRelativeEntries(t *testing.T) {
	t.Parallel()

	cfg := &AppConfig{Watcher: WatcherConfig{Directories: []string{"notes", "/srv/docs", "  "}}}
	dirs := cfg.WatchedDirectories()

	require.Len(t, dirs, 2)
	assert.True(t, filepath.IsAbs(dirs[0]))
	assert.Equal(t, "/srv/docs", dirs[1])
}

func TestDatabasePathNestsUnderDataDir(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()
	cfg := &AppConfig{DataDir: dataDir}
	assert.Equal(t, filepath.Join(dataDir, "tracepaper.db"), cfg.DatabasePath())
	assert.Equal(t, filepath.Join(dataDir, "vector_index.json"), cfg.VectorIndexPath())
	assert.Equal(t, filepath.Join(dataDir, "log"), cfg.LogDir())
}
