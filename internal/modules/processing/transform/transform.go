// Package transform runs user-supplied JS/TS hook scripts over items before
// they are persisted. Every script in the configured directory exports a
// transform(item) function; scripts run in filename order inside a sandboxed
// VM with a hard execution timeout.
package transform

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"
	"go.uber.org/zap"
)

// Item is the mutable view of an ingest payload handed to hook scripts.
type Item struct {
	TextContent string                 `json:"text_content"`
	SourceType  string                 `json:"source_type"`
	SourceTitle string                 `json:"source_title,omitempty"`
	SourceURL   string                 `json:"source_url,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

type Service struct {
	dir     string
	timeout time.Duration
	logger  *zap.Logger

	compiledMu sync.RWMutex
	compiled   map[string]compiledScript
}

func NewService(dir string, timeoutMS int, logger *zap.Logger) *Service {
	timeout := 2 * time.Second
	if timeoutMS > 0 {
		timeout = time.Duration(timeoutMS) * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		dir:      dir,
		timeout:  timeout,
		logger:   logger,
		compiled: map[string]compiledScript{},
	}
}

// Apply runs every hook script over the item. A script that fails is logged
// and skipped so one broken hook cannot block ingestion.
func (s *Service) Apply(item Item) Item {
	files, err := s.scriptFiles()
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("transform: cannot list scripts", zap.Error(err))
		}
		return item
	}

	for _, path := range files {
		name := filepath.Base(path)
		code, err := s.compileFile(path)
		if err != nil {
			s.logger.Warn("transform: compile failed", zap.String("script", name), zap.Error(err))
			continue
		}
		next, err := s.execute(code, name, item)
		if err != nil {
			s.logger.Warn("transform: hook failed", zap.String("script", name), zap.Error(err))
			continue
		}
		item = next
	}
	return item
}

// RunSource compiles and runs a single script body once against item.
// Used by the test endpoint; errors surface to the caller.
func (s *Service) RunSource(source, filename string, item Item) (Item, error) {
	code, err := compileSource(source, filename)
	if err != nil {
		return item, err
	}
	return s.execute(code, filename, item)
}

func (s *Service) scriptFiles() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".js", ".ts":
			files = append(files, filepath.Join(s.dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func (s *Service) execute(code, name string, item Item) (Item, error) {
	vm := goja.New()
	timeoutReason := "transform-timeout"
	timer := time.AfterFunc(s.timeout, func() {
		vm.Interrupt(timeoutReason)
	})
	defer timer.Stop()

	s.installConsole(vm, name)

	itemValue, err := itemToVM(vm, item)
	if err != nil {
		return item, err
	}
	_ = vm.Set("__tp_item", itemValue)

	bootstrap := "var module={exports:{}}; var exports=module.exports;\n" +
		code +
		"\n" +
		"globalThis.__tp_transform=(module.exports&&(module.exports.transform||module.exports.default))||(typeof transform==='function'?transform:null);" +
		"if(typeof globalThis.__tp_transform!=='function'){throw new Error('transform function is not defined')}"

	if _, err := vm.RunString(bootstrap); err != nil {
		return item, normalizeVMError(err, timeoutReason)
	}

	fn, ok := goja.AssertFunction(vm.Get("__tp_transform"))
	if !ok {
		return item, errors.New("transform function is not callable")
	}

	result, err := fn(goja.Undefined(), vm.Get("__tp_item"))
	if err != nil {
		return item, normalizeVMError(err, timeoutReason)
	}

	return mergeResult(item, result)
}

func (s *Service) installConsole(vm *goja.Runtime, name string) {
	log := func(level func(msg string, fields ...zap.Field)) func(call goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			parts := make([]string, 0, len(call.Arguments))
			for _, arg := range call.Arguments {
				parts = append(parts, arg.String())
			}
			level(strings.Join(parts, " "), zap.String("script", name))
			return goja.Undefined()
		}
	}

	console := vm.NewObject()
	_ = console.Set("log", log(s.logger.Info))
	_ = console.Set("info", log(s.logger.Info))
	_ = console.Set("warn", log(s.logger.Warn))
	_ = console.Set("error", log(s.logger.Error))
	_ = console.Set("debug", log(s.logger.Debug))
	_ = vm.Set("console", console)
}

// itemToVM round-trips the item through JSON so the script sees plain JS
// objects instead of reflected Go structs.
func itemToVM(vm *goja.Runtime, item Item) (goja.Value, error) {
	raw, err := json.Marshal(item)
	if err != nil {
		return nil, err
	}
	var generic map[string]interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return vm.ToValue(generic), nil
}

// mergeResult folds what the script returned back into the item. Returning
// nothing keeps the item unchanged, a string replaces the text, and an
// object overlays the fields it names.
func mergeResult(item Item, result goja.Value) (Item, error) {
	if result == nil || goja.IsUndefined(result) || goja.IsNull(result) {
		return item, nil
	}

	switch v := result.Export().(type) {
	case string:
		item.TextContent = v
		return item, nil
	case map[string]interface{}:
		raw, err := json.Marshal(item)
		if err != nil {
			return item, err
		}
		var merged map[string]interface{}
		if err := json.Unmarshal(raw, &merged); err != nil {
			return item, err
		}
		for key, val := range v {
			merged[key] = val
		}
		rawMerged, err := json.Marshal(merged)
		if err != nil {
			return item, err
		}
		var next Item
		if err := json.Unmarshal(rawMerged, &next); err != nil {
			return item, fmt.Errorf("transform returned an invalid item: %w", err)
		}
		return next, nil
	default:
		return item, errors.New("transform must return an object, a string, or nothing")
	}
}

type vmExecError struct {
	Status  int
	Message string
}

func (e *vmExecError) Error() string { return e.Message }

func normalizeVMError(err error, timeoutReason string) error {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		if interrupted.Value() == timeoutReason {
			return &vmExecError{
				Status:  http.StatusGatewayTimeout,
				Message: "transform execution timeout",
			}
		}
		return &vmExecError{
			Status:  http.StatusInternalServerError,
			Message: "transform execution interrupted",
		}
	}

	var exception *goja.Exception
	if errors.As(err, &exception) {
		return &vmExecError{
			Status:  http.StatusInternalServerError,
			Message: exception.Value().String(),
		}
	}
	return err
}
