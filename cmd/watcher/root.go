package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tracepaper/core/internal/config"
	"github.com/tracepaper/core/internal/pkg/proctitle"
)

var (
	cfgPath string
	verbose bool
	cfg     *config.AppConfig
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "tracepaper-watcher",
	Short: "Feed local folders into the tracepaper backend",
	Long: `tracepaper-watcher watches configured folders for markdown, text and
PDF files and posts their content to the backend ingest API. The backend
deduplicates by content hash, so re-uploading an unchanged file is harmless.

Example usage:
  tracepaper-watcher watch             # watch folders until interrupted
  tracepaper-watcher scan              # sweep the folders once and exit
  tracepaper-watcher --config my.yml watch`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initRuntime()
	},
}

func execute() error {
	defer func() {
		if logger != nil {
			_ = logger.Sync()
		}
	}()
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", config.DefaultConfigPath, "path to the yaml config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log every scanned file")
}

func initRuntime() error {
	_ = proctitle.Set("tracepaper-watcher")

	loaded, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg = loaded

	logger = newConsoleLogger(verbose)
	return nil
}

// newConsoleLogger builds a stdout-only logger with the same encoding the
// server uses, minus the log file: the watcher is a sidecar process and its
// output belongs to whoever started it.
func newConsoleLogger(debug bool) *zap.Logger {
	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	if debug {
		level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.Lock(os.Stdout), level)
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
}
