package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"projdash/catalog"
)

// DecisionKind says what a request path resolved to.
type DecisionKind int

const (
	// PassThrough hands the request to the static delegate unchanged.
	PassThrough DecisionKind = iota
	// RenderIndex renders the dashboard.
	RenderIndex
	// Rewrite serves Target from the static delegate.
	Rewrite
)

func (k DecisionKind) String() string {
	switch k {
	case RenderIndex:
		return "index"
	case Rewrite:
		return "rewrite"
	default:
		return "passthrough"
	}
}

// Target is a resolved project directory plus the path inside it.
type Target struct {
	Dir     string
	SubPath string // always starts with "/"
}

// Path is the rewritten URL path, "/" + Dir + SubPath.
func (t Target) Path() string {
	return "/" + t.Dir + t.SubPath
}

// Decision is the outcome of resolving one request path.
type Decision struct {
	Kind   DecisionKind
	Target Target
	// Scheme names the scheme that produced a Rewrite.
	Scheme string
}

// Scheme is one way of addressing projects in URLs.
type Scheme interface {
	// Name identifies the scheme in config and metrics.
	Name() string
	// Resolve maps urlPath to a project. ok is false when the path is not
	// addressed by this scheme or does not resolve in snap.
	Resolve(snap *catalog.Snapshot, urlPath string) (t Target, ok bool)
	// Link returns the URL for project j of sorted category i, or false if
	// this scheme cannot address it.
	Link(snap *catalog.Snapshot, i, j int) (string, bool)
}

// pairPattern matches /p/<model>-<project><subpath>. The sub-path is
// mandatory, so /p/0-1 without a trailing slash does not match.
var pairPattern = regexp.MustCompile(`^/p/(\d+)-(\d+)(/.*)$`)

// PairScheme addresses projects by their index pair, /p/<i>-<j>/, so that
// real directory names never show up in URLs.
type PairScheme struct{}

func (PairScheme) Name() string { return "pair" }

func (PairScheme) Resolve(snap *catalog.Snapshot, urlPath string) (Target, bool) {
	m := pairPattern.FindStringSubmatch(urlPath)
	if m == nil {
		return Target{}, false
	}
	// Atoi fails on values too large for int; treat those as out of range.
	i, err := strconv.Atoi(m[1])
	if err != nil {
		return Target{}, false
	}
	j, err := strconv.Atoi(m[2])
	if err != nil {
		return Target{}, false
	}
	dir, ok := snap.Project(i, j)
	if !ok {
		return Target{}, false
	}
	return Target{Dir: dir, SubPath: m[3]}, true
}

func (PairScheme) Link(snap *catalog.Snapshot, i, j int) (string, bool) {
	if _, ok := snap.Project(i, j); !ok {
		return "", false
	}
	return fmt.Sprintf("/p/%d-%d/", i, j), true
}

// LabelScheme addresses a category by its display label, /<Label>/. Only
// the first project of each category is reachable this way.
type LabelScheme struct{}

func (LabelScheme) Name() string { return "label" }

func (LabelScheme) Resolve(snap *catalog.Snapshot, urlPath string) (Target, bool) {
	rest := strings.TrimPrefix(urlPath, "/")
	if rest == urlPath || rest == "" {
		return Target{}, false
	}
	label, sub, found := strings.Cut(rest, "/")
	key, ok := snap.KeyForLabel(label)
	if !ok {
		return Target{}, false
	}
	dir, ok := snap.First(key)
	if !ok {
		return Target{}, false
	}
	subPath := "/"
	if found {
		subPath = "/" + sub
	}
	return Target{Dir: dir, SubPath: subPath}, true
}

func (LabelScheme) Link(snap *catalog.Snapshot, i, j int) (string, bool) {
	if j != 0 {
		return "", false
	}
	key, ok := snap.Category(i)
	if !ok {
		return "", false
	}
	return "/" + url.PathEscape(snap.Label(key)) + "/", true
}

// SchemeByName returns the schemes selected by a config value: "pair",
// "label" or "both". With "both", pair is tried first.
func SchemeByName(name string) ([]Scheme, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "pair":
		return []Scheme{PairScheme{}}, nil
	case "label":
		return []Scheme{LabelScheme{}}, nil
	case "both":
		return []Scheme{PairScheme{}, LabelScheme{}}, nil
	}
	return nil, fmt.Errorf("unknown scheme %q (accepted: pair, label, both)", name)
}

// Resolver tries a fixed list of schemes in order.
type Resolver struct {
	schemes []Scheme
}

// NewResolver returns a resolver over schemes. At least one is required.
func NewResolver(schemes ...Scheme) (*Resolver, error) {
	if len(schemes) == 0 {
		return nil, fmt.Errorf("resolver needs at least one scheme")
	}
	return &Resolver{schemes: schemes}, nil
}

// Schemes returns the active scheme names in order.
func (r *Resolver) Schemes() []string {
	names := make([]string, len(r.schemes))
	for i, s := range r.schemes {
		names[i] = s.Name()
	}
	return names
}

// Resolve decides how to handle urlPath against snap. It never fails: a
// path that no scheme resolves passes through to the static delegate.
func (r *Resolver) Resolve(snap *catalog.Snapshot, urlPath string) Decision {
	if urlPath == "/" || urlPath == "" {
		return Decision{Kind: RenderIndex}
	}
	for _, s := range r.schemes {
		if t, ok := s.Resolve(snap, urlPath); ok {
			return Decision{Kind: Rewrite, Target: t, Scheme: s.Name()}
		}
	}
	return Decision{Kind: PassThrough}
}

// Link returns the first link any active scheme can produce for project j
// of sorted category i.
func (r *Resolver) Link(snap *catalog.Snapshot, i, j int) (string, bool) {
	for _, s := range r.schemes {
		if link, ok := s.Link(snap, i, j); ok {
			return link, true
		}
	}
	return "", false
}

// RewriteRequest returns a shallow copy of req whose URL path is replaced
// by t.Path(). Method, headers, body and query are left as they are.
func RewriteRequest(req *http.Request, t Target) *http.Request {
	r2 := req.Clone(req.Context())
	u := *req.URL
	u.Path = t.Path()
	u.RawPath = ""
	r2.URL = &u
	return r2
}
