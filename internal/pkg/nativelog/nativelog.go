// Package nativelog writes the server's daily log files and fans frames
// out to live gateway subscribers.
package nativelog

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	EnvLogDir = "TRACEPAPER_LOG_DIR"

	defaultSubBufSize = 128
	filePerm          = 0o644
	dirPerm           = 0o755
)

// ResolveDir resolves the native log directory: the env override first,
// then the first existing candidate, then the home-dir default.
func ResolveDir() string {
	if dir := strings.TrimSpace(os.Getenv(EnvLogDir)); dir != "" {
		return dir
	}

	var candidates []string
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		candidates = append(candidates, filepath.Join(home, ".tracepaper", "log"))
	}
	candidates = append(candidates,
		filepath.Join(".", "data", "log"),
		filepath.Join(".", "log"),
	)

	for _, dir := range candidates {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
	}
	return candidates[0]
}

// TodayFilename returns the daily log filename.
func TodayFilename(now time.Time) string {
	return "stdout_" + now.Format("1-2-06") + ".log"
}

// TodayFilePath returns today's log file path.
func TodayFilePath(now time.Time) string {
	return filepath.Join(ResolveDir(), TodayFilename(now))
}

// Writer appends to the daily log file and pushes each frame to live
// subscribers. It keeps the current file open and rotates when the day
// changes.
type Writer struct {
	mu       sync.Mutex
	dir      string
	file     *os.File
	filename string
}

// NewWriter creates the writer and pins the resolved directory into the
// environment so child lookups agree with it.
func NewWriter() (*Writer, error) {
	dir := ResolveDir()
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, err
	}
	_ = os.Setenv(EnvLogDir, dir)
	return &Writer{dir: dir}, nil
}

func (w *Writer) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	file, err := w.rotateLocked(time.Now())
	if err != nil {
		return 0, err
	}

	n, err := file.Write(p)
	if n > 0 {
		Publish(string(p[:n]))
	}
	return n, err
}

func (w *Writer) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	return w.file.Sync()
}

// rotateLocked reopens the output file when the day has changed since the
// last write.
func (w *Writer) rotateLocked(now time.Time) (*os.File, error) {
	name := TodayFilename(now)
	if w.file != nil && w.filename == name {
		return w.file, nil
	}

	if w.file != nil {
		_ = w.file.Close()
		w.file = nil
	}

	file, err := os.OpenFile(filepath.Join(w.dir, name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, filePerm)
	if err != nil {
		return nil, err
	}
	w.file = file
	w.filename = name
	return file, nil
}

// logStream fans frames out to subscribers. Slow subscribers drop frames
// rather than block the writer.
type logStream struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]chan string
}

var stream = &logStream{subs: make(map[int]chan string)}

// Subscribe registers a live log subscriber and returns its id and channel.
func Subscribe(buffer int) (int, <-chan string) {
	if buffer <= 0 {
		buffer = defaultSubBufSize
	}

	ch := make(chan string, buffer)

	stream.mu.Lock()
	id := stream.nextID
	stream.nextID++
	stream.subs[id] = ch
	stream.mu.Unlock()

	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func Unsubscribe(id int) {
	stream.mu.Lock()
	ch, ok := stream.subs[id]
	if ok {
		delete(stream.subs, id)
	}
	stream.mu.Unlock()

	if ok {
		close(ch)
	}
}

// Publish pushes a log frame to every current subscriber.
func Publish(message string) {
	if message == "" {
		return
	}

	stream.mu.RLock()
	defer stream.mu.RUnlock()
	for _, ch := range stream.subs {
		select {
		case ch <- message:
		default:
		}
	}
}

// NewZapLogger builds the server logger: console encoding to stdout and
// to the daily file, with the file side feeding live subscribers.
func NewZapLogger() (*zap.Logger, error) {
	writer, err := NewWriter()
	if err != nil {
		return nil, err
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
	encoder := zapcore.NewConsoleEncoder(encoderConfig)

	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	core := zapcore.NewTee(
		zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), level),
		zapcore.NewCore(encoder, zapcore.AddSync(writer), level),
	)

	logger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	_ = zap.RedirectStdLog(logger)
	return logger, nil
}
