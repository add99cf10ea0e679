package server

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"projdash/models"
)

// loadTestTemplates parses templates from the filesystem (not embedded) so that
// the server package tests don't need the embed FS from main.go.
func loadTestTemplates(t *testing.T) *Templates {
	t.Helper()
	tmpl, err := loadTemplatesFromDisk("../templates")
	if err != nil {
		t.Fatalf("LoadTemplates: %v", err)
	}
	return tmpl
}

func TestTemplatesParse(t *testing.T) {
	loadTestTemplates(t)
}

func TestExecuteDashboard(t *testing.T) {
	tmpl := loadTestTemplates(t)

	data := &models.Dashboard{
		Title: "Global Sales Project Dashboard",
		Categories: []models.Category{
			{Key: "gemini3pro", Label: "Gemini-3-Pro", Index: 0, Projects: []models.Project{
				{Name: "foo-gemini3pro-1", Index: 0, Link: "/p/0-0/"},
				{Name: "bar-gemini3pro-2", Index: 1, Link: "/p/0-1/"},
			}},
			{Key: "glm4.6", Label: "GLM-4.6", Index: 1, Projects: []models.Project{
				{Name: "baz-glm4.6-x", Index: 0, Link: ""},
			}},
		},
		ProjectCount: 3,
		Unlinked:     1,
		BuiltAt:      time.Date(2025, 11, 20, 9, 30, 0, 0, time.UTC),
	}

	w := httptest.NewRecorder()
	if err := tmpl.ExecuteDashboard(w, data); err != nil {
		t.Fatalf("ExecuteDashboard: %v", err)
	}
	if w.Code != 200 {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("content type = %q", ct)
	}

	body := w.Body.String()
	for _, want := range []string{
		"<title>Global Sales Project Dashboard</title>",
		"Gemini-3-Pro",
		"GLM-4.6",
		`href="/p/0-1/"`,
		"Unavailable",
		"3 projects in 2 categories",
		"2025-11-20 09:30:00",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
	// Directory names stay hidden unless asked for.
	if strings.Contains(body, "foo-gemini3pro-1") {
		t.Error("project name rendered with ShowNames off")
	}
	if strings.Contains(body, "/-/highlight.css") {
		t.Error("highlight stylesheet linked without an intro")
	}
}

func TestExecuteDashboardShowNamesAndIntro(t *testing.T) {
	tmpl := loadTestTemplates(t)

	data := &models.Dashboard{
		Title:     "t",
		Intro:     "<p>Read me first</p>",
		ShowNames: true,
		Categories: []models.Category{
			{Key: "glm4.6", Label: "GLM-4.6", Projects: []models.Project{
				{Name: "baz-glm4.6-x", Link: "/p/0-0/"},
			}},
		},
		ProjectCount: 1,
	}

	w := httptest.NewRecorder()
	if err := tmpl.ExecuteDashboard(w, data); err != nil {
		t.Fatalf("ExecuteDashboard: %v", err)
	}
	body := w.Body.String()
	for _, want := range []string{
		"<p>Read me first</p>",
		"baz-glm4.6-x",
		"/-/highlight.css",
		"1 project in 1 category",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
}

func TestExecuteDashboardEmpty(t *testing.T) {
	tmpl := loadTestTemplates(t)

	w := httptest.NewRecorder()
	if err := tmpl.ExecuteDashboard(w, &models.Dashboard{Title: "empty", Categories: []models.Category{}}); err != nil {
		t.Fatalf("ExecuteDashboard: %v", err)
	}
	body := w.Body.String()
	if !strings.Contains(body, "No projects found.") {
		t.Error("empty state not rendered")
	}
	if strings.Contains(body, `class="category"`) {
		t.Error("category section rendered for an empty dashboard")
	}
}
