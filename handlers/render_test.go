package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRenderMarkdown(t *testing.T) {
	dr := NewDocRenderer("catppuccin-mocha")

	out, err := dr.Render("# Welcome\n\n| a | b |\n|---|---|\n| 1 | 2 |\n\n```go\nfunc main() {}\n```\n", "text/markdown")
	require.NoError(t, err)
	html := string(out)
	assert.Contains(t, html, `<h1 id="welcome">Welcome</h1>`)
	assert.Contains(t, html, "<table>")
	assert.Contains(t, html, `class="chroma"`)
}

func TestRenderMarkdownSanitizes(t *testing.T) {
	dr := NewDocRenderer("")

	out, err := dr.Render("hello <script>alert(1)</script>\n\n<div onclick=\"x()\">box</div>\n\n[bad](javascript:alert(1))\n", "text/markdown; charset=utf-8")
	require.NoError(t, err)
	html := string(out)
	assert.NotContains(t, html, "<script")
	assert.NotContains(t, html, "onclick")
	assert.NotContains(t, html, "javascript:")
	assert.Contains(t, html, "box")
}

func TestRenderOrg(t *testing.T) {
	dr := NewDocRenderer("monokai")

	out, err := dr.Render("* Heading\n\nSome /text/.\n\n#+BEGIN_SRC go\nx := 1\n#+END_SRC\n", "text/x-org")
	require.NoError(t, err)
	html := string(out)
	assert.Contains(t, html, "Heading")
	assert.Contains(t, html, "<em>text</em>")
	assert.Contains(t, html, `class="chroma"`)
}

func TestRenderHTMLIsSanitized(t *testing.T) {
	out, err := NewDocRenderer("").Render(`<p>ok</p><iframe src="https://x"></iframe><img src="data:image/png;base64,AAAA">`, "text/html")
	require.NoError(t, err)
	html := string(out)
	assert.Contains(t, html, "<p>ok</p>")
	assert.NotContains(t, html, "iframe")
	assert.Contains(t, html, "data:image/png")
}

func TestRenderUnsupported(t *testing.T) {
	_, err := NewDocRenderer("").Render("x", "application/pdf")
	assert.Error(t, err)
}

func TestRenderFile(t *testing.T) {
	dir := t.TempDir()
	md := filepath.Join(dir, "INTRO.MD")
	require.NoError(t, os.WriteFile(md, []byte("Read *this*."), 0o644))

	out, err := NewDocRenderer("").RenderFile(md)
	require.NoError(t, err)
	assert.Contains(t, string(out), "<em>this</em>")

	txt := filepath.Join(dir, "intro.txt")
	require.NoError(t, os.WriteFile(txt, []byte("plain"), 0o644))
	_, err = NewDocRenderer("").RenderFile(txt)
	assert.Error(t, err)

	_, err = NewDocRenderer("").RenderFile(filepath.Join(dir, "missing.md"))
	assert.Error(t, err)
}

func TestHighlightCSSHandler(t *testing.T) {
	w := get(HighlightCSSHandler("no-such-theme", zap.NewNop()), "/-/highlight.css")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/css; charset=utf-8", w.Header().Get("Content-Type"))
	assert.True(t, strings.Contains(w.Body.String(), ".chroma"))
}

func TestStylesheetBuildErrorIsLoggedOnce(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	h := stylesheetHandler(nil, errors.New("style broken"), zap.New(core))

	for range 2 {
		w := get(h, "/-/highlight.css")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotEqual(t, "text/css; charset=utf-8", w.Header().Get("Content-Type"))
	}
	assert.Equal(t, 1, logs.FilterMessage("highlight stylesheet unavailable").Len())
}

type brokenWriter struct {
	*httptest.ResponseRecorder
}

func (brokenWriter) Write([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestStylesheetWriteErrorIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	h := stylesheetHandler([]byte(".chroma{}"), nil, zap.New(core))

	h.ServeHTTP(brokenWriter{httptest.NewRecorder()}, httptest.NewRequest(http.MethodGet, "/-/highlight.css", nil))
	assert.Equal(t, 1, logs.FilterMessage("highlight stylesheet write").Len())
}
