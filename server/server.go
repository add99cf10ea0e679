package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"projdash/catalog"
	"projdash/config"
	"projdash/handlers"
)

// NewLogger builds the process logger from the configured level and format.
func NewLogger(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	var cfg zap.Config
	if format == "json" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.DisableStacktrace = true
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

// App is a fully wired server, ready to serve.
type App struct {
	Config   *config.Config
	Catalog  *catalog.Catalog
	Resolver *handlers.Resolver
	Metrics  *handlers.Metrics
	Handler  http.Handler
	log      *zap.Logger
}

// New wires the catalog, routing, templates and handlers for cfg. assets
// holds the embedded "templates/" and "static/" trees. Nothing is scanned
// yet.
func New(cfg *config.Config, assets fs.FS, log *zap.Logger) (*App, error) {
	rules := catalog.DefaultRules()
	if cfg.RulesPath != "" {
		r, err := catalog.LoadRules(cfg.RulesPath)
		if err != nil {
			return nil, fmt.Errorf("loading rules: %w", err)
		}
		rules = r
	}

	schemes, err := handlers.SchemeByName(cfg.Scheme)
	if err != nil {
		return nil, err
	}
	resolver, err := handlers.NewResolver(schemes...)
	if err != nil {
		return nil, err
	}

	tmplFS, err := fs.Sub(assets, "templates")
	if err != nil {
		return nil, fmt.Errorf("templates sub fs: %w", err)
	}
	tmpl, err := LoadTemplates(tmplFS)
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}
	staticFS, err := fs.Sub(assets, "static")
	if err != nil {
		return nil, fmt.Errorf("static sub fs: %w", err)
	}

	var intro template.HTML
	if cfg.IntroPath != "" {
		intro, err = handlers.NewDocRenderer(cfg.HighlightTheme).RenderFile(cfg.IntroPath)
		if err != nil {
			return nil, fmt.Errorf("rendering intro: %w", err)
		}
	}

	metrics := handlers.NewMetrics()
	cat := catalog.New(cfg.Root, rules,
		catalog.WithLogger(log.Named("catalog")),
		catalog.WithObserver(metrics),
	)

	bw := handlers.NewBandwidthManager(cfg.BandwidthLimit, log.Named("bandwidth"))
	router := &handlers.Router{
		Catalog:  cat,
		Resolver: resolver,
		Static:   bw.Wrap(handlers.StaticHandler(cfg.Root, cfg.DirListing)),
		Pages:    tmpl,
		Page: handlers.PageOptions{
			Title:     cfg.Title,
			Intro:     intro,
			ShowNames: cfg.ShowNames,
		},
		Logger:  log.Named("router"),
		Metrics: metrics,
	}

	mux := http.NewServeMux()
	registerRoutes(mux, router, staticFS, cfg, metrics, log)

	return &App{
		Config:   cfg,
		Catalog:  cat,
		Resolver: resolver,
		Metrics:  metrics,
		Handler:  handlers.RequestLogger(log.Named("http"), handlers.SecurityHeaders(mux)),
		log:      log,
	}, nil
}

// Run scans the project root, optionally starts the watcher, and serves
// until ctx is cancelled. A failed initial scan is returned as an error.
func (a *App) Run(ctx context.Context) error {
	snap, err := a.Catalog.Warm()
	if err != nil {
		return fmt.Errorf("initial scan: %w", err)
	}
	if a.Config.Watch {
		if err := a.Catalog.Watch(ctx, catalog.DefaultDebounce); err != nil {
			a.log.Warn("watcher: could not start filesystem watcher", zap.Error(err))
		}
	}

	addr := fmt.Sprintf("0.0.0.0:%d", a.Config.Port)
	a.logStartup(addr, snap)

	srv := &http.Server{
		Addr:    addr,
		Handler: a.Handler,

		// ReadHeaderTimeout caps how long the server waits for a client to
		// finish sending HTTP headers (Slowloris).
		ReadHeaderTimeout: 20 * time.Second,

		// IdleTimeout closes keep-alive connections that have been idle for
		// this duration.
		IdleTimeout: 120 * time.Second,

		// No WriteTimeout: bandwidth-limited transfers of large project
		// assets can legitimately take longer than any fixed deadline.
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// logStartup logs a summary of the active configuration and the scanned
// snapshot.
func (a *App) logStartup(addr string, snap *catalog.Snapshot) {
	cfg := a.Config
	a.log.Info(cfg.Title,
		zap.String("address", "http://"+addr),
		zap.String("root", cfg.Root),
		zap.Strings("schemes", a.Resolver.Schemes()),
		zap.Int("rules", len(a.Catalog.Rules().Rules())),
		zap.Int("categories", snap.NumCategories()),
		zap.Int("projects", snap.NumProjects()),
		zap.Bool("watch", cfg.Watch),
		zap.Bool("dir_listing", cfg.DirListing),
		zap.String("bandwidth", bandwidthString(cfg.BandwidthLimit)),
		zap.String("metrics", enabledPath(cfg.MetricsPath)),
		zap.String("intro", enabledPath(cfg.IntroPath)),
	)
	for _, key := range snap.Keys() {
		a.log.Debug("category",
			zap.String("key", string(key)),
			zap.String("label", snap.Label(key)),
			zap.Int("projects", len(snap.Projects(key))),
		)
	}
}

func bandwidthString(bps float64) string {
	if bps <= 0 {
		return "unlimited"
	}
	return handlers.FormatBits(bps)
}

func enabledPath(p string) string {
	if p == "" {
		return "off"
	}
	return p
}
