package server

import (
	"io/fs"
	"net/http"

	"go.uber.org/zap"

	"projdash/config"
	"projdash/handlers"
)

// AssetPrefix is the URL prefix of the dashboard's own assets.
const AssetPrefix = "/-/"

// registerRoutes attaches all handlers to the given mux. Everything not
// claimed by a fixed route goes to the router, which owns "/", the project
// routes and the static fallback.
func registerRoutes(mux *http.ServeMux, router http.Handler, staticFS fs.FS, cfg *config.Config, metrics *handlers.Metrics, log *zap.Logger) {
	// Dashboard assets live under /-/ so they never shadow a project folder.
	mux.Handle(AssetPrefix+"static/", http.StripPrefix(AssetPrefix+"static/", http.FileServer(http.FS(staticFS))))
	mux.HandleFunc("/favicon.ico", handlers.FaviconHandler(staticFS))

	// Chroma stylesheet for code blocks in the intro (generated once at startup)
	mux.HandleFunc(AssetPrefix+"highlight.css", handlers.HighlightCSSHandler(cfg.HighlightTheme, log.Named("highlight")))

	if cfg.MetricsPath != "" {
		mux.Handle(cfg.MetricsPath, metrics.Handler())
	}

	// Dashboard, project routes and static fallback (catch-all)
	mux.Handle("/", router)
}
