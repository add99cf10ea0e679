// Package handlers contains all HTTP handler functions.
package handlers

import (
	"html/template"
	"net/http"
	"sync/atomic"

	"go.uber.org/zap"

	"projdash/catalog"
	"projdash/models"
)

// SnapshotSource provides the current catalog snapshot.
type SnapshotSource interface {
	Snapshot() (*catalog.Snapshot, error)
}

// PageRenderer renders the dashboard page.
type PageRenderer interface {
	ExecuteDashboard(http.ResponseWriter, *models.Dashboard) error
}

// DecisionRecorder is told about every routing decision. May be nil.
type DecisionRecorder interface {
	RecordDecision(Decision)
}

// PageOptions are the static parts of the dashboard page.
type PageOptions struct {
	Title     string
	Intro     template.HTML
	ShowNames bool
}

// BuildDashboard assembles the page data for snap. Categories follow the
// sorted key order and projects keep their scan order; every project gets
// the link the resolver would accept for it, if any.
func BuildDashboard(snap *catalog.Snapshot, res *Resolver, opts PageOptions) *models.Dashboard {
	d := &models.Dashboard{
		Title:      opts.Title,
		Intro:      opts.Intro,
		ShowNames:  opts.ShowNames,
		BuiltAt:    snap.BuiltAt,
		Categories: make([]models.Category, 0, snap.NumCategories()),
	}
	for i, key := range snap.Keys() {
		cat := models.Category{
			Key:   string(key),
			Label: snap.Label(key),
			Index: i,
		}
		for j, name := range snap.Projects(key) {
			link, ok := res.Link(snap, i, j)
			if !ok {
				d.Unlinked++
			}
			cat.Projects = append(cat.Projects, models.Project{Name: name, Index: j, Link: link})
			d.ProjectCount++
		}
		d.Categories = append(d.Categories, cat)
	}
	return d
}

// Router is the catch-all handler: it renders the dashboard at "/",
// rewrites project routes onto their real directories, and passes every
// other path to the static delegate untouched.
type Router struct {
	Catalog  SnapshotSource
	Resolver *Resolver
	Static   http.Handler
	Pages    PageRenderer
	Page     PageOptions
	Logger   *zap.Logger
	Metrics  DecisionRecorder

	warned atomic.Pointer[catalog.Snapshot]
}

func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	snap, err := rt.Catalog.Snapshot()
	if err != nil {
		rt.logger().Error("catalog unavailable", zap.Error(err))
		http.Error(w, "Catalog unavailable", http.StatusInternalServerError)
		return
	}

	d := rt.Resolver.Resolve(snap, r.URL.Path)
	if rt.Metrics != nil {
		rt.Metrics.RecordDecision(d)
	}
	setDecision(r, d)

	switch d.Kind {
	case RenderIndex:
		page := BuildDashboard(snap, rt.Resolver, rt.Page)
		if page.Unlinked > 0 && rt.warned.Swap(snap) != snap {
			rt.logger().Warn("projects not addressable by active schemes",
				zap.Int("unlinked", page.Unlinked),
				zap.Strings("schemes", rt.Resolver.Schemes()),
			)
		}
		if err := rt.Pages.ExecuteDashboard(w, page); err != nil {
			rt.logger().Error("render dashboard", zap.Error(err))
			http.Error(w, "Template error", http.StatusInternalServerError)
		}
	case Rewrite:
		rt.Static.ServeHTTP(w, RewriteRequest(r, d.Target))
	default:
		rt.Static.ServeHTTP(w, r)
	}
}

func (rt *Router) logger() *zap.Logger {
	if rt.Logger == nil {
		return zap.NewNop()
	}
	return rt.Logger
}
