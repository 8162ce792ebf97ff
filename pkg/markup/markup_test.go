package markup

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderKeepsMarkdown(t *testing.T) {
	r := NewRenderer()

	out := string(r.Render("**bold** and _italic_"))
	assert.Contains(t, out, "<strong>bold</strong>")
	assert.Contains(t, out, "<em>italic</em>")
}

func TestRenderStripsScript(t *testing.T) {
	r := NewRenderer()

	tests := []struct {
		name    string
		content string
	}{
		{"script tag", `<script>alert(1)</script>`},
		{"event handler", `<img src=x onerror=alert(1)>`},
		{"javascript link", `[click](javascript:alert(1))`},
		{"iframe", `<iframe src="https://evil.example"></iframe>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := string(r.Render(tt.content))
			assert.NotContains(t, out, "<script")
			assert.NotContains(t, out, "onerror")
			assert.NotContains(t, out, "javascript:")
			assert.NotContains(t, out, "<iframe")
		})
	}
}

func TestRenderEmptyContent(t *testing.T) {
	r := NewRenderer()
	out := string(r.Render(""))
	assert.Empty(t, strings.TrimSpace(out))
}

func TestRenderPlainTextSurvives(t *testing.T) {
	r := NewRenderer()
	out := string(r.Render("hello, room"))
	assert.Contains(t, out, "hello, room")
}
