// Package catalog classifies project directories by model and groups them
// into immutable snapshots used for routing and the dashboard page.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
)

// Key identifies a model category, e.g. "gemini3pro".
type Key string

// Rule maps a directory-name substring to a category.
type Rule struct {
	// Pattern is matched by substring containment anywhere in the name.
	Pattern string `toml:"pattern"`
	// Key is the category assigned on a match. Defaults to Pattern.
	Key Key `toml:"key"`
	// Label is the display form of Key, also used as a URL segment by the
	// label routing scheme. Defaults to the key itself.
	Label string `toml:"label"`
}

var (
	ErrEmptyPattern   = errors.New("rule pattern must not be empty")
	ErrDuplicateKey   = errors.New("duplicate rule key")
	ErrDuplicateLabel = errors.New("duplicate rule label")
	ErrInvalidLabel   = errors.New("rule label is not a usable URL path segment")
)

// reservedLabels are first path segments owned by other routes (pair
// routes under /p/, dashboard assets under /-/ and the favicon) or cleaned
// away by the mux.
var reservedLabels = []string{"p", "-", "favicon.ico", ".", ".."}

// validLabel reports whether label can stand alone as the first segment of
// a label route.
func validLabel(label string) bool {
	return !strings.Contains(label, "/") && !slices.Contains(reservedLabels, label)
}

// defaultRules is the built-in table, in priority order.
var defaultRules = []Rule{
	{Pattern: "gemini3pro", Key: "gemini3pro", Label: "Gemini-3-Pro"},
	{Pattern: "claude4.5thinking", Key: "claude4.5thinking", Label: "Claude-4.5-Thinking"},
	{Pattern: "glm4.6", Key: "glm4.6", Label: "GLM-4.6"},
	{Pattern: "gptoss120B", Key: "gptoss120B", Label: "GPT-OSS-120B"},
	{Pattern: "gpt5.1medium", Key: "gpt5.1medium", Label: "GPT-5.1-Medium"},
}

// Rules is an ordered, validated classification table. The zero value
// classifies nothing.
type Rules struct {
	list    []Rule
	labels  map[Key]string
	byLabel map[string]Key
}

// DefaultRules returns the built-in rule table.
func DefaultRules() *Rules {
	r, err := NewRules(defaultRules)
	if err != nil {
		panic(fmt.Sprintf("catalog: invalid built-in rules: %v", err))
	}
	return r
}

// NewRules validates rules and returns a table that consults them in the
// given order. Several rules may share a key as long as they agree on its
// label. Labels must be injective over keys and usable as a single URL
// path segment that no other route claims.
func NewRules(rules []Rule) (*Rules, error) {
	r := &Rules{
		list:    make([]Rule, 0, len(rules)),
		labels:  make(map[Key]string, len(rules)),
		byLabel: make(map[string]Key, len(rules)),
	}
	for i, rule := range rules {
		if rule.Pattern == "" {
			return nil, fmt.Errorf("rule %d: %w", i, ErrEmptyPattern)
		}
		if rule.Key == "" {
			rule.Key = Key(rule.Pattern)
		}
		if rule.Label == "" {
			rule.Label = string(rule.Key)
		}
		if !validLabel(rule.Label) {
			return nil, fmt.Errorf("rule %d: label %q: %w", i, rule.Label, ErrInvalidLabel)
		}
		if prev, ok := r.labels[rule.Key]; ok {
			if prev != rule.Label {
				return nil, fmt.Errorf("rule %d: key %q labelled both %q and %q: %w", i, rule.Key, prev, rule.Label, ErrDuplicateKey)
			}
		} else {
			if other, ok := r.byLabel[rule.Label]; ok {
				return nil, fmt.Errorf("rule %d: label %q used by %q and %q: %w", i, rule.Label, other, rule.Key, ErrDuplicateLabel)
			}
			r.labels[rule.Key] = rule.Label
			r.byLabel[rule.Label] = rule.Key
		}
		r.list = append(r.list, rule)
	}
	return r, nil
}

// rulesFile is the on-disk TOML layout of a rules file.
type rulesFile struct {
	Rules []Rule `toml:"rule"`
}

// LoadRules reads a TOML rules file:
//
//	[[rule]]
//	pattern = "gemini3pro"
//	label   = "Gemini-3-Pro"
func LoadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	var f rulesFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse rules %s: %w", path, err)
	}
	if len(f.Rules) == 0 {
		return nil, fmt.Errorf("rules %s: no [[rule]] entries", path)
	}
	return NewRules(f.Rules)
}

// Classify returns the key of the first rule whose pattern occurs in name.
func (r *Rules) Classify(name string) (Key, bool) {
	if r == nil {
		return "", false
	}
	for _, rule := range r.list {
		if strings.Contains(name, rule.Pattern) {
			return rule.Key, true
		}
	}
	return "", false
}

// Label returns the display label for key. Unknown keys are returned as is.
func (r *Rules) Label(key Key) string {
	if r != nil {
		if l, ok := r.labels[key]; ok {
			return l
		}
	}
	return string(key)
}

// KeyForLabel is the inverse of Label over the known keys.
func (r *Rules) KeyForLabel(label string) (Key, bool) {
	if r == nil {
		return "", false
	}
	k, ok := r.byLabel[label]
	return k, ok
}

// Rules returns a copy of the table in priority order.
func (r *Rules) Rules() []Rule {
	if r == nil {
		return nil
	}
	return append([]Rule(nil), r.list...)
}
