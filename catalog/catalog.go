package catalog

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ScanObserver is notified after every scan of the root, successful or not.
type ScanObserver interface {
	ObserveScan(elapsed time.Duration, snap *Snapshot, err error)
}

// Catalog owns the current Snapshot of a scan root.
//
// The first snapshot is built at most once; concurrent callers arriving
// before it completes wait on the same in-flight scan. Without Refresh the
// snapshot is never rebuilt, so directories created afterwards stay
// invisible until the process restarts.
type Catalog struct {
	root     string
	rules    *Rules
	log      *zap.Logger
	observer ScanObserver

	initial func() (*Snapshot, error)
	current atomic.Pointer[Snapshot]

	// refreshMu orders concurrent Refresh calls so an older scan never
	// replaces a newer one.
	refreshMu sync.Mutex
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *Catalog) { c.log = l }
}

// WithObserver registers a scan observer, typically metrics.
func WithObserver(o ScanObserver) Option {
	return func(c *Catalog) { c.observer = o }
}

// New returns a catalog for root. Nothing is read until the first call to
// Snapshot, Warm or Refresh.
func New(root string, rules *Rules, opts ...Option) *Catalog {
	if rules == nil {
		rules = DefaultRules()
	}
	c := &Catalog{
		root:  root,
		rules: rules,
		log:   zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	c.initial = sync.OnceValues(func() (*Snapshot, error) {
		snap, err := c.scan()
		if err != nil {
			return nil, err
		}
		c.current.CompareAndSwap(nil, snap)
		return snap, nil
	})
	return c
}

// Root is the scanned directory.
func (c *Catalog) Root() string { return c.root }

// Rules is the classification table in use.
func (c *Catalog) Rules() *Rules { return c.rules }

// Snapshot returns the current snapshot, building it on first use. A failed
// first scan is remembered and returned to every later caller.
func (c *Catalog) Snapshot() (*Snapshot, error) {
	if _, err := c.initial(); err != nil {
		return nil, err
	}
	return c.current.Load(), nil
}

// Warm builds the first snapshot eagerly so that a scan failure surfaces at
// startup instead of on the first request.
func (c *Catalog) Warm() (*Snapshot, error) {
	snap, err := c.Snapshot()
	if err != nil {
		return nil, err
	}
	c.log.Info("catalog ready",
		zap.String("root", c.root),
		zap.Int("categories", snap.NumCategories()),
		zap.Int("projects", snap.NumProjects()),
	)
	return snap, nil
}

// Refresh rescans the root and atomically replaces the current snapshot.
// On error the previous snapshot stays in place.
func (c *Catalog) Refresh() (*Snapshot, error) {
	if _, err := c.initial(); err != nil {
		return nil, err
	}

	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	snap, err := c.scan()
	if err != nil {
		return nil, err
	}
	c.current.Store(snap)
	c.log.Info("catalog refreshed",
		zap.Int("categories", snap.NumCategories()),
		zap.Int("projects", snap.NumProjects()),
	)
	return snap, nil
}

func (c *Catalog) scan() (*Snapshot, error) {
	start := time.Now()
	names, err := ScanDir(c.root)
	var snap *Snapshot
	if err == nil {
		snap = Group(names, c.rules)
	} else {
		err = fmt.Errorf("scan %s: %w", c.root, err)
	}
	elapsed := time.Since(start)
	if c.observer != nil {
		c.observer.ObserveScan(elapsed, snap, err)
	}
	if err != nil {
		c.log.Error("catalog scan failed", zap.String("root", c.root), zap.Error(err))
		return nil, err
	}
	c.log.Debug("catalog scanned",
		zap.String("root", c.root),
		zap.Int("entries", len(names)),
		zap.Duration("elapsed", elapsed),
	)
	return snap, nil
}
