package transform

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestItem() Item {
	return Item{
		TextContent: "original text",
		SourceType:  "manual_text",
		SourceTitle: "title",
		Metadata:    map[string]interface{}{"tag": "note"},
	}
}

func TestRunSourceStringReplacesText(t *testing.T) {
	t.Parallel()

	svc := NewService(t.TempDir(), 1000, zap.NewNop())
	out, err := svc.RunSource(
		`module.exports.transform = function (item) { return item.text_content + "!"; };`,
		"exclaim.js",
		newTestItem(),
	)
	require.NoError(t, err)
	assert.Equal(t, "original text!", out.TextContent)
	assert.Equal(t, "title", out.SourceTitle)
}

func TestRunSourceObjectOverlaysFields(t *testing.T) {
	t.Parallel()

	svc := NewService(t.TempDir(), 1000, zap.NewNop())
	out, err := svc.RunSource(
		`module.exports.transform = function (item) {
  return { source_title: "renamed", metadata: { tag: "edited", extra: 1 } };
};`,
		"retitle.js",
		newTestItem(),
	)
	require.NoError(t, err)
	assert.Equal(t, "original text", out.TextContent, "unnamed fields stay untouched")
	assert.Equal(t, "renamed", out.SourceTitle)
	assert.Equal(t, "edited", out.Metadata["tag"])
	assert.Equal(t, float64(1), out.Metadata["extra"])
}

func TestRunSourceUndefinedKeepsItem(t *testing.T) {
	t.Parallel()

	svc := NewService(t.TempDir(), 1000, zap.NewNop())
	out, err := svc.RunSource(
		`module.exports.transform = function (item) { item.text_content = "ignored"; };`,
		"noop.js",
		newTestItem(),
	)
	require.NoError(t, err)
	assert.Equal(t, "original text", out.TextContent)
}

func TestRunSourcePlainFunctionDeclaration(t *testing.T) {
	t.Parallel()

	svc := NewService(t.TempDir(), 1000, zap.NewNop())
	out, err := svc.RunSource(
		`function transform(item) { return "from plain function"; }`,
		"plain.js",
		newTestItem(),
	)
	require.NoError(t, err)
	assert.Equal(t, "from plain function", out.TextContent)
}

func TestRunSourceTypeScript(t *testing.T) {
	t.Parallel()

	svc := NewService(t.TempDir(), 1000, zap.NewNop())
	out, err := svc.RunSource(
		`export function transform(item: { text_content: string }): string {
  return item.text_content.toUpperCase();
}`,
		"upper.ts",
		newTestItem(),
	)
	require.NoError(t, err)
	assert.Equal(t, "ORIGINAL TEXT", out.TextContent)
}

func TestRunSourceErrors(t *testing.T) {
	t.Parallel()

	svc := NewService(t.TempDir(), 1000, zap.NewNop())

	_, err := svc.RunSource(`var x = 1;`, "no-fn.js", newTestItem())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transform function is not defined")

	_, err = svc.RunSource(
		`module.exports.transform = function () { throw new Error("boom"); };`,
		"throws.js",
		newTestItem(),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	_, err = svc.RunSource(
		`module.exports.transform = function () { return 42; };`,
		"bad-return.js",
		newTestItem(),
	)
	require.Error(t, err)

	_, err = svc.RunSource(`this is not javascript {{{`, "syntax.js", newTestItem())
	require.Error(t, err)
}

func TestRunSourceTimeout(t *testing.T) {
	t.Parallel()

	svc := NewService(t.TempDir(), 50, zap.NewNop())
	_, err := svc.RunSource(
		`module.exports.transform = function () { while (true) {} };`,
		"spin.js",
		newTestItem(),
	)
	require.Error(t, err)

	var execErr *vmExecError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, 504, execErr.Status)
}

func TestApplyRunsScriptsInFilenameOrder(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20-suffix.js"),
		[]byte(`module.exports.transform = function (item) { return item.text_content + "-b"; };`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "10-prefix.js"),
		[]byte(`module.exports.transform = function (item) { return item.text_content + "-a"; };`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.txt"), []byte("not a script"), 0o644))

	svc := NewService(dir, 1000, zap.NewNop())
	out := svc.Apply(newTestItem())
	assert.Equal(t, "original text-a-b", out.TextContent)
}

func TestApplySkipsBrokenScripts(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "10-broken.js"),
		[]byte(`module.exports.transform = function () { throw new Error("broken hook"); };`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20-works.js"),
		[]byte(`module.exports.transform = function (item) { return item.text_content + "-ok"; };`), 0o644))

	svc := NewService(dir, 1000, zap.NewNop())
	out := svc.Apply(newTestItem())
	assert.Equal(t, "original text-ok", out.TextContent)
}

func TestApplyMissingDirectoryKeepsItem(t *testing.T) {
	t.Parallel()

	svc := NewService(filepath.Join(t.TempDir(), "absent"), 1000, zap.NewNop())
	out := svc.Apply(newTestItem())
	assert.Equal(t, newTestItem().TextContent, out.TextContent)
}
