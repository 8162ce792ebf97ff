// Package markup converts untrusted message content into HTML that is safe
// to embed in a page. Parsing and sanitization are two separate stages:
// goldmark renders Markdown, bluemonday strips anything dangerous from the
// result. Message content must never reach a page without passing through
// Render.
package markup

import (
	"bytes"
	"html/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Renderer converts Markdown message content into sanitized HTML.
type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// NewRenderer returns a Renderer with GFM tables/strikethrough/autolinks
// enabled and the UGC sanitization policy.
func NewRenderer() *Renderer {
	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(
				// Raw HTML in the source is dropped entirely; the
				// sanitizer is the second line of defense, not the first.
				html.WithHardWraps(),
			),
		),
		policy: bluemonday.UGCPolicy(),
	}
}

// Render converts one message's content to sanitized HTML. On a parse
// failure the content is returned HTML-escaped rather than lost.
func (r *Renderer) Render(content string) template.HTML {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(content), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(content))
	}
	return template.HTML(r.policy.SanitizeBytes(buf.Bytes()))
}
