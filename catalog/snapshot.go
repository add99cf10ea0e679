package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Snapshot is one immutable grouping of project directories by category.
// Key positions in Keys are the numeric model component of obfuscated
// routes and are stable for the lifetime of the snapshot.
type Snapshot struct {
	rules   *Rules
	groups  map[Key][]string
	keys    []Key
	total   int
	BuiltAt time.Time
}

// Group classifies names in order and returns the resulting snapshot.
// Names that match no rule are dropped. Within a category, names keep the
// order in which they were given.
func Group(names []string, rules *Rules) *Snapshot {
	s := &Snapshot{
		rules:   rules,
		groups:  make(map[Key][]string),
		BuiltAt: time.Now(),
	}
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		key, ok := rules.Classify(name)
		if !ok {
			continue
		}
		s.groups[key] = append(s.groups[key], name)
		s.total++
	}

	s.keys = make([]Key, 0, len(s.groups))
	for k := range s.groups {
		s.keys = append(s.keys, k)
	}
	sort.Slice(s.keys, func(i, j int) bool { return s.keys[i] < s.keys[j] })
	return s
}

// Keys returns the present categories, sorted lexicographically.
func (s *Snapshot) Keys() []Key {
	return append([]Key(nil), s.keys...)
}

// Projects returns the directories of key in scan order.
func (s *Snapshot) Projects(key Key) []string {
	return append([]string(nil), s.groups[key]...)
}

// Category returns the key at sorted position i.
func (s *Snapshot) Category(i int) (Key, bool) {
	if i < 0 || i >= len(s.keys) {
		return "", false
	}
	return s.keys[i], true
}

// Project returns the j-th directory of the i-th sorted category.
func (s *Snapshot) Project(i, j int) (string, bool) {
	key, ok := s.Category(i)
	if !ok {
		return "", false
	}
	dirs := s.groups[key]
	if j < 0 || j >= len(dirs) {
		return "", false
	}
	return dirs[j], true
}

// First returns the first directory recorded for key.
func (s *Snapshot) First(key Key) (string, bool) {
	dirs := s.groups[key]
	if len(dirs) == 0 {
		return "", false
	}
	return dirs[0], true
}

// Label formats key with the snapshot's rules.
func (s *Snapshot) Label(key Key) string {
	return s.rules.Label(key)
}

// KeyForLabel maps a label back to a category present in this snapshot.
func (s *Snapshot) KeyForLabel(label string) (Key, bool) {
	key, ok := s.rules.KeyForLabel(label)
	if !ok {
		return "", false
	}
	if _, present := s.groups[key]; !present {
		return "", false
	}
	return key, true
}

// NumCategories is the number of non-empty categories.
func (s *Snapshot) NumCategories() int { return len(s.keys) }

// NumProjects is the number of classified directories.
func (s *Snapshot) NumProjects() int { return s.total }

// ScanDir lists the names of directories directly under root in the order
// the filesystem returns them. Symlinks to directories are included.
func ScanDir(root string) ([]string, error) {
	f, err := os.Open(root)
	if err != nil {
		return nil, fmt.Errorf("open scan root: %w", err)
	}
	defer f.Close()

	// File.ReadDir does not sort, unlike os.ReadDir.
	entries, err := f.ReadDir(-1)
	if err != nil {
		return nil, fmt.Errorf("read scan root %s: %w", root, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if entryIsDir(root, e) {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// entryIsDir reports whether a directory entry is a directory, following
// symlinks. DirEntry.IsDir uses Lstat semantics and is false for a symlink
// that points to a directory.
func entryIsDir(parent string, d os.DirEntry) bool {
	if d.Type()&os.ModeSymlink == 0 {
		return d.IsDir()
	}
	fi, err := os.Stat(filepath.Join(parent, d.Name()))
	return err == nil && fi.IsDir()
}
