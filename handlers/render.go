package handlers

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/microcosm-cc/bluemonday"
	"github.com/niklasfasching/go-org/org"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/parser"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"
	"go.uber.org/zap"
)

// Intro document formats accepted by DocRenderer.Render.
const (
	FormatMarkdown = "text/markdown"
	FormatOrg      = "text/x-org"
	FormatHTML     = "text/html"
)

// DocRenderer turns the dashboard intro document into sanitized HTML. Code
// blocks are highlighted with Chroma CSS classes, served by
// HighlightCSSHandler for the same theme.
type DocRenderer struct {
	style  *chroma.Style
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// NewDocRenderer returns a renderer for the named Chroma theme. Unknown
// themes fall back to Chroma's default style.
func NewDocRenderer(theme string) *DocRenderer {
	style := chromaStyle(theme)
	return &DocRenderer{
		style: style,
		md: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				extension.Footnote,
				extension.DefinitionList,
				highlighting.NewHighlighting(
					highlighting.WithCustomStyle(style),
					highlighting.WithFormatOptions(chromahtml.WithClasses(true)),
				),
			),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
			// Raw HTML is let through here and cleaned by the policy.
			goldmark.WithRendererOptions(goldmarkhtml.WithUnsafe()),
		),
		policy: introPolicy(),
	}
}

// introPolicy is bluemonday's user-content policy widened for what the
// renderers emit: Chroma and heading-anchor class and id attributes, plus
// raster data-URI images.
func introPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class", "id").Globally()
	p.AllowDataURIImages()
	p.AllowElements("details", "summary", "figure", "figcaption", "mark")
	return p
}

// RenderFile reads and renders the document at path, picking the format
// from its extension.
func (dr *DocRenderer) RenderFile(path string) (template.HTML, error) {
	format, ok := introFormat(path)
	if !ok {
		return "", fmt.Errorf("intro %s: unsupported format (use .md, .org or .html)", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read intro: %w", err)
	}
	return dr.Render(string(data), format)
}

func introFormat(path string) (string, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return FormatMarkdown, true
	case ".org":
		return FormatOrg, true
	case ".html", ".htm":
		return FormatHTML, true
	}
	return "", false
}

// Render converts content in the given format (a MIME type, parameters
// ignored) to sanitized HTML.
func (dr *DocRenderer) Render(content, format string) (template.HTML, error) {
	var raw string
	switch baseMIME(format) {
	case FormatMarkdown:
		var buf bytes.Buffer
		if err := dr.md.Convert([]byte(content), &buf); err != nil {
			return "", fmt.Errorf("markdown render: %w", err)
		}
		raw = buf.String()
	case FormatOrg:
		w := org.NewHTMLWriter()
		w.HighlightCodeBlock = func(source, lang string, _ bool, _ map[string]string) string {
			return dr.highlight(source, lang)
		}
		out, err := org.New().Parse(strings.NewReader(content), "").Write(w)
		if err != nil {
			return "", fmt.Errorf("org render: %w", err)
		}
		raw = out
	case FormatHTML:
		raw = content
	default:
		return "", fmt.Errorf("no renderer for %q", format)
	}
	return template.HTML(dr.policy.Sanitize(raw)), nil
}

// highlight formats one Org source block. An empty result makes go-org
// fall back to a plain <pre>.
func (dr *DocRenderer) highlight(source, lang string) string {
	lexer := lexers.Get(lang)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	it, err := chroma.Coalesce(lexer).Tokenise(nil, source)
	if err != nil {
		return ""
	}
	var buf bytes.Buffer
	if err := chromahtml.New(chromahtml.WithClasses(true)).Format(&buf, dr.style, it); err != nil {
		return ""
	}
	return buf.String()
}

func chromaStyle(theme string) *chroma.Style {
	if s := styles.Get(theme); s != nil {
		return s
	}
	return styles.Fallback
}

// HighlightCSSHandler serves the Chroma stylesheet for theme, generated
// once when the handler is built.
func HighlightCSSHandler(theme string, log *zap.Logger) http.HandlerFunc {
	var css bytes.Buffer
	err := chromahtml.New(chromahtml.WithClasses(true)).WriteCSS(&css, chromaStyle(theme))
	return stylesheetHandler(css.Bytes(), err, log.With(zap.String("theme", theme)))
}

// stylesheetHandler serves a pre-built stylesheet. A build error is logged
// once here and every request then gets a 500.
func stylesheetHandler(body []byte, buildErr error, log *zap.Logger) http.HandlerFunc {
	if buildErr != nil {
		log.Error("highlight stylesheet unavailable", zap.Error(buildErr))
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if buildErr != nil {
			http.Error(w, "stylesheet unavailable", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/css; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		if _, err := w.Write(body); err != nil {
			log.Debug("highlight stylesheet write", zap.Error(err))
		}
	}
}
