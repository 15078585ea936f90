package app

import (
	"os"
	"time"

	"github.com/tracepaper/core/internal/config"
	"github.com/tracepaper/core/internal/pkg/nativelog"
)

func applyRuntimeSettings(cfg *config.AppConfig) error {
	_ = os.Setenv(nativelog.EnvLogDir, cfg.LogDir())
	return os.MkdirAll(cfg.DataDirPath(), 0o755)
}

func humanizeDuration(d time.Duration) string {
	if d < time.Minute {
		return d.Truncate(time.Second).String()
	}
	if d < time.Hour {
		return d.Truncate(time.Minute).String()
	}
	if d < 24*time.Hour {
		return d.Truncate(time.Hour).String()
	}
	return d.Truncate(24 * time.Hour).String()
}
