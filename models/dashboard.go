// Package models defines data structures used throughout the server.
package models

import (
	"html/template"
	"time"
)

// Dashboard holds everything the dashboard template needs.
type Dashboard struct {
	Title string
	// Intro is pre-rendered, sanitized HTML shown above the categories.
	// Empty when no intro document is configured.
	Intro template.HTML
	// Categories are in sorted key order.
	Categories []Category
	// ProjectCount is the total number of projects across all categories.
	ProjectCount int
	// Unlinked counts projects that no active routing scheme can address.
	Unlinked int
	// ShowNames reveals real directory names on project cards. Off by
	// default so the obfuscated routes are not undone by the page itself.
	ShowNames bool
	// BuiltAt is when the underlying directory scan ran.
	BuiltAt time.Time
}

// Category is one model section of the dashboard.
type Category struct {
	Key   string
	Label string
	// Index is the category's position in sorted order, the first number
	// of a pair route.
	Index    int
	Projects []Project
}

// Project is a single project card.
type Project struct {
	Name string
	// Index is the position within the category, the second number of a
	// pair route.
	Index int
	// Link is empty when no active scheme can address this project.
	Link string
}
