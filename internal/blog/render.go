package blog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

// ErrRender indicates markdown conversion failed.
var ErrRender = errors.New("blog: markdown rendering failed")

// Renderer converts post bodies to HTML fragments.
type Renderer struct {
	md goldmark.Markdown
}

// NewRenderer builds a goldmark renderer with GFM tables, footnotes and
// class-based code highlighting. Raw HTML in posts is not passed through.
func NewRenderer() *Renderer {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Footnote,
			highlighting.NewHighlighting(
				highlighting.WithStyle("github"),
				highlighting.WithFormatOptions(chromahtml.WithClasses(true)),
			),
		),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(html.WithXHTML()),
	)
	return &Renderer{md: md}
}

// Render converts markdown to HTML. goldmark has no context support, so the
// conversion runs in a goroutine and ctx only bounds the wait.
func (r *Renderer) Render(ctx context.Context, body string) (template.HTML, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	type result struct {
		html string
		err  error
	}
	done := make(chan result, 1)

	go func() {
		var buf bytes.Buffer
		if err := r.md.Convert([]byte(body), &buf); err != nil {
			done <- result{err: fmt.Errorf("%w: %v", ErrRender, err)}
			return
		}
		done <- result{html: buf.String()}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-done:
		// goldmark escapes raw HTML without WithUnsafe, so the output is trusted.
		return template.HTML(res.html), res.err
	}
}
