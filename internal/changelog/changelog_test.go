package changelog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"refactorizor/internal/change"
)

func fixedWriter(path string) *Writer {
	w := NewWriter(path, "")
	w.now = func() time.Time {
		return time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	}
	return w
}

func TestWriter_RecordCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "CODEBASE.md")
	w := fixedWriter(path)

	batch := change.Batch{
		{Description: "Add error handling in chat_routes.py"},
		{Description: "Add sanitize_input function to utils.js"},
	}
	if err := w.Record(batch); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read changelog: %v", err)
	}

	want := "\n\n## Recent Changes (2026-10-18)\n\n" +
		"- Add error handling in chat_routes.py\n" +
		"- Add sanitize_input function to utils.js\n"
	if string(data) != want {
		t.Errorf("Unexpected changelog:\n%q\nwant:\n%q", data, want)
	}
}

func TestWriter_RecordAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "CODEBASE.md")
	if err := os.WriteFile(path, []byte("# Codebase\n\nExisting text.\n"), 0644); err != nil {
		t.Fatalf("Failed to seed changelog: %v", err)
	}
	w := fixedWriter(path)

	if err := w.Record(change.Batch{{Description: "first"}}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := w.Record(change.Batch{{Description: "second"}, {Description: "third"}}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	data, _ := os.ReadFile(path)
	if !strings.HasPrefix(string(data), "# Codebase\n\nExisting text.\n") {
		t.Error("Existing content was rewritten")
	}

	sections := Sections(data)
	if len(sections) != 2 {
		t.Fatalf("Expected 2 sections, got %d", len(sections))
	}
	if len(sections[1].Items) != 2 || sections[1].Items[0] != "second" || sections[1].Items[1] != "third" {
		t.Errorf("Unexpected items in second section: %v", sections[1].Items)
	}
}

func TestFormatSection_MultilineDescription(t *testing.T) {
	got := FormatSection("Recent Changes", time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), []string{"line one\n  line two"})

	if !strings.Contains(got, "- line one line two\n") {
		t.Errorf("Expected description collapsed onto one line, got %q", got)
	}
}

func TestSections(t *testing.T) {
	source := []byte(`# Codebase

Intro paragraph.

## Recent Changes (2026-10-17)

- Add ` + "`helper`" + ` to utils.py
- Rename old_name

## Notes

Plain paragraph, no list.

## Recent Changes

- Undated entry
`)

	sections := Sections(source)
	if len(sections) != 3 {
		t.Fatalf("Expected 3 sections, got %d", len(sections))
	}

	first := sections[0]
	if first.Title != "Recent Changes" {
		t.Errorf("Expected title 'Recent Changes', got %q", first.Title)
	}
	if first.Date.Format("2006-01-02") != "2026-10-17" {
		t.Errorf("Unexpected date %v", first.Date)
	}
	if len(first.Items) != 2 || first.Items[0] != "Add `helper` to utils.py" {
		t.Errorf("Unexpected items %v", first.Items)
	}

	if len(sections[1].Items) != 0 {
		t.Errorf("Expected no items under Notes, got %v", sections[1].Items)
	}

	if !sections[2].Date.IsZero() {
		t.Error("Expected zero date for undated section")
	}
}

func TestReadSections_MissingFile(t *testing.T) {
	sections, err := ReadSections(filepath.Join(t.TempDir(), "missing.md"))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if sections != nil {
		t.Errorf("Expected nil sections, got %v", sections)
	}
}
