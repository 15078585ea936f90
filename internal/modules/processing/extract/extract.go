// Package extract pulls plain text out of the formats the ingest pipeline
// accepts: markdown, HTML pages, and PDF files.
package extract

import (
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	gmtext "github.com/yuin/goldmark/text"
	"golang.org/x/net/html"
)

var markdownParser = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
).Parser()

// MarkdownToText flattens a markdown document into plain text. Block
// boundaries become newlines; formatting, links and images are dropped.
func MarkdownToText(src []byte) string {
	doc := markdownParser.Parse(gmtext.NewReader(src))

	var b strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock && b.Len() > 0 {
				b.WriteString("\n")
			}
			return ast.WalkContinue, nil
		}
		switch v := n.(type) {
		case *ast.Text:
			b.Write(v.Segment.Value(src))
			if v.SoftLineBreak() || v.HardLineBreak() {
				b.WriteString("\n")
			}
		case *ast.String:
			b.Write(v.Value)
		case *ast.CodeBlock:
			writeBlockLines(&b, v, src)
		case *ast.FencedCodeBlock:
			writeBlockLines(&b, v, src)
		case *ast.Image:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}

// MarkdownIsBlank reports whether a markdown document renders to nothing,
// e.g. a file holding only image references or frontmatter fences.
func MarkdownIsBlank(src []byte) bool {
	return MarkdownToText(src) == ""
}

func writeBlockLines(b *strings.Builder, n interface{ Lines() *gmtext.Segments }, src []byte) {
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		b.Write(lines.At(i).Value(src))
	}
}

// HTMLDocument tokenizes an HTML page into its title and visible text.
// Script, style and noscript bodies are skipped; tags act as word
// separators and whitespace runs collapse to single spaces.
func HTMLDocument(r io.Reader) (title, text string) {
	z := html.NewTokenizer(r)

	var b strings.Builder
	var titleB strings.Builder
	depthSkip := 0
	inTitle := false

	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(titleB.String()), normalizeWhitespace(b.String())

		case html.StartTagToken:
			b.WriteByte(' ')
			name, _ := z.TagName()
			switch string(name) {
			case "script", "style", "noscript":
				depthSkip++
			case "title":
				inTitle = true
			}

		case html.EndTagToken:
			b.WriteByte(' ')
			name, _ := z.TagName()
			switch string(name) {
			case "script", "style", "noscript":
				if depthSkip > 0 {
					depthSkip--
				}
			case "title":
				inTitle = false
			}

		case html.SelfClosingTagToken:
			b.WriteByte(' ')

		case html.TextToken:
			if inTitle {
				titleB.Write(z.Text())
			} else if depthSkip == 0 {
				b.Write(z.Text())
			}
		}
	}
}

// HTMLToText strips tags from an HTML fragment and returns the visible text.
func HTMLToText(raw string) string {
	_, text := HTMLDocument(strings.NewReader(raw))
	return text
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
