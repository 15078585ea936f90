package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ExecutableDir returns the directory where the current executable resides.
func ExecutableDir() string {
	exe, err := os.Executable()
	if err == nil && strings.TrimSpace(exe) != "" {
		if resolved, resolveErr := filepath.EvalSymlinks(exe); resolveErr == nil && strings.TrimSpace(resolved) != "" {
			exe = resolved
		}
		return filepath.Dir(exe)
	}

	if wd, wdErr := os.Getwd(); wdErr == nil && strings.TrimSpace(wd) != "" {
		return wd
	}
	return "."
}

func resolveAgainst(base, raw string) string {
	target := strings.TrimSpace(raw)
	if target == "" {
		return filepath.Clean(base)
	}
	if filepath.IsAbs(target) {
		return filepath.Clean(target)
	}
	return filepath.Clean(filepath.Join(base, target))
}

// DataDirPath resolves the data directory. Relative paths are anchored at the
// executable directory so the layout survives cwd changes.
func (c *AppConfig) DataDirPath() string {
	raw := defaultDataDir
	if c != nil && strings.TrimSpace(c.DataDir) != "" {
		raw = c.DataDir
	}
	return resolveAgainst(ExecutableDir(), raw)
}

// DatabasePath resolves the sqlite file under the data directory.
func (c *AppConfig) DatabasePath() string {
	raw := defaultDBFile
	if c != nil && strings.TrimSpace(c.Database.Path) != "" {
		raw = c.Database.Path
	}
	return resolveAgainst(c.DataDirPath(), raw)
}

// VectorIndexPath resolves the flat index snapshot under the data directory.
func (c *AppConfig) VectorIndexPath() string {
	raw := defaultVectorIndexFile
	if c != nil && strings.TrimSpace(c.Vector.Path) != "" {
		raw = c.Vector.Path
	}
	return resolveAgainst(c.DataDirPath(), raw)
}

func (c *AppConfig) LogDir() string {
	return resolveAgainst(c.DataDirPath(), "log")
}

func (c *AppConfig) BackupDir() string {
	return resolveAgainst(c.DataDirPath(), "backup")
}

// TransformsDir resolves the ingest-transform scripts directory.
func (c *AppConfig) TransformsDir() string {
	raw := "transforms"
	if c != nil && strings.TrimSpace(c.Transforms.Dir) != "" {
		raw = c.Transforms.Dir
	}
	return resolveAgainst(c.DataDirPath(), raw)
}

// WatchedDirectories resolves the watcher folder list. Relative entries are
// anchored at the executable directory, same as the data dir.
func (c *AppConfig) WatchedDirectories() []string {
	if c == nil || len(c.Watcher.Directories) == 0 {
		return nil
	}
	base := ExecutableDir()
	dirs := make([]string, 0, len(c.Watcher.Directories))
	for _, dir := range c.Watcher.Directories {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		dirs = append(dirs, resolveAgainst(base, dir))
	}
	return dirs
}
