package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdownToText(t *testing.T) {
	t.Parallel()

	src := []byte("# Heading\n\nSome *emphasized* text with a [link](https://example.com).\n\n```go\nfmt.Println(\"hi\")\n```\n")
	text := MarkdownToText(src)

	assert.Contains(t, text, "Heading")
	assert.Contains(t, text, "Some emphasized text with a link.")
	assert.Contains(t, text, `fmt.Println("hi")`)
	assert.NotContains(t, text, "https://example.com")
	assert.NotContains(t, text, "#")
	assert.NotContains(t, text, "```")
}

func TestMarkdownToTextDropsImages(t *testing.T) {
	t.Parallel()

	text := MarkdownToText([]byte("before ![alt text](img.png) after"))
	assert.Contains(t, text, "before")
	assert.Contains(t, text, "after")
	assert.NotContains(t, text, "alt text")
	assert.NotContains(t, text, "img.png")
}

func TestMarkdownIsBlank(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		src   string
		blank bool
	}{
		{name: "empty", src: "", blank: true},
		{name: "whitespace only", src: "   \n\n\t\n", blank: true},
		{name: "image only", src: "![](diagram.png)\n", blank: true},
		{name: "real text", src: "hello\n", blank: false},
		{name: "heading only", src: "# Title\n", blank: false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.blank, MarkdownIsBlank([]byte(tt.src)))
		})
	}
}

func TestHTMLDocument(t *testing.T) {
	t.Parallel()

	page := `<!doctype html>
<html>
<head>
  <title>  Example   Page </title>
  <style>body { color: red; }</style>
  <script>console.log("tracking")</script>
</head>
<body>
  <h1>Welcome</h1>
  <p>First    paragraph.</p>
  <noscript>enable javascript</noscript>
  <p>Second paragraph.</p>
</body>
</html>`

	title, text := HTMLDocument(strings.NewReader(page))

	assert.Equal(t, "Example   Page", title)
	require.NotEmpty(t, text)
	assert.Contains(t, text, "Welcome First paragraph. Second paragraph.")
	assert.NotContains(t, text, "color: red")
	assert.NotContains(t, text, "tracking")
	assert.NotContains(t, text, "enable javascript")
}

func TestHTMLToText(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a b", HTMLToText("<div>a</div><div>b</div>"))
	assert.Equal(t, "", HTMLToText(""))
}
