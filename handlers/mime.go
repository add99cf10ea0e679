package handlers

import (
	"mime"
	"path"
	"strings"
)

// ownExtensions is checked before the OS MIME registry. Browser-facing
// assets need exact types (module scripts are rejected otherwise), and
// source files are served as plain text so they display instead of
// downloading. Some registries map these to unrelated types
// (.ts -> video/mp2t, .mod -> audio/x-mod).
var ownExtensions = map[string]string{
	// --- web assets ---
	".html":        "text/html",
	".htm":         "text/html",
	".css":         "text/css",
	".js":          "text/javascript",
	".mjs":         "text/javascript",
	".cjs":         "text/javascript",
	".map":         "application/json",
	".json":        "application/json",
	".webmanifest": "application/manifest+json",
	".wasm":        "application/wasm",
	".svg":         "image/svg+xml",
	".ico":         "image/x-icon",
	".webp":        "image/webp",
	".avif":        "image/avif",
	".woff":        "font/woff",
	".woff2":       "font/woff2",
	".xml":         "text/xml",
	".csv":         "text/csv",

	// --- sources and docs shown as text ---
	".md":   "text/markdown",
	".ts":   "text/plain",
	".tsx":  "text/plain",
	".jsx":  "text/plain",
	".vue":  "text/plain",
	".py":   "text/plain",
	".go":   "text/plain",
	".mod":  "text/plain",
	".sum":  "text/plain",
	".rs":   "text/plain",
	".sh":   "text/plain",
	".yaml": "text/plain",
	".yml":  "text/plain",
	".toml": "text/plain",
	".env":  "text/plain",
	".lock": "text/plain",
	".log":  "text/plain",
	".txt":  "text/plain",
}

// mimeForName returns the Content-Type to serve name with, or "" to let
// http.FileServer decide by registry lookup and sniffing.
func mimeForName(name string) string {
	ext := strings.ToLower(path.Ext(name))
	if ext == "" {
		return ""
	}
	t, ok := ownExtensions[ext]
	if !ok {
		t = mime.TypeByExtension(ext)
	}
	if t == "" {
		return ""
	}
	if isText(t) && !strings.Contains(t, "charset") {
		t += "; charset=utf-8"
	}
	return t
}

// isText reports whether a MIME type carries human-readable text.
func isText(mimeType string) bool {
	base := baseMIME(mimeType)
	switch base {
	case "application/json", "application/manifest+json", "image/svg+xml":
		return true
	}
	return strings.HasPrefix(base, "text/")
}

// baseMIME strips any parameters from a MIME type string
// (e.g. "text/html; charset=utf-8" -> "text/html").
func baseMIME(mimeType string) string {
	return strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0])
}
