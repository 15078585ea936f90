package transform

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/evanw/esbuild/pkg/api"
)

type compiledScript struct {
	ModTime time.Time
	Code    string
}

// compileFile lowers a hook script to plain JS, caching by file mtime.
func (s *Service) compileFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}

	s.compiledMu.RLock()
	if cached, ok := s.compiled[path]; ok && cached.ModTime.Equal(info.ModTime()) {
		s.compiledMu.RUnlock()
		return cached.Code, nil
	}
	s.compiledMu.RUnlock()

	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	code, err := compileSource(string(raw), filepath.Base(path))
	if err != nil {
		return "", err
	}

	s.compiledMu.Lock()
	s.compiled[path] = compiledScript{ModTime: info.ModTime(), Code: code}
	s.compiledMu.Unlock()

	return code, nil
}

func compileSource(source, filename string) (string, error) {
	loader := api.LoaderJS
	if strings.EqualFold(filepath.Ext(filename), ".ts") {
		loader = api.LoaderTS
	}

	result := api.Transform(source, api.TransformOptions{
		Loader:     loader,
		Format:     api.FormatCommonJS,
		Target:     api.ES2020,
		Sourcefile: filename,
		Charset:    api.CharsetUTF8,
	})
	if len(result.Errors) > 0 {
		return "", fmt.Errorf("transform failed: %s", result.Errors[0].Text)
	}
	return string(result.Code), nil
}
