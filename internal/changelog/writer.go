// Package changelog appends batch sections to the project changelog and
// reads them back.
package changelog

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"refactorizor/internal/change"
)

const (
	// DefaultFile is the changelog path relative to the project root
	DefaultFile = "CODEBASE.md"
	// DefaultTitle heads every appended section
	DefaultTitle = "Recent Changes"

	dateLayout = "2006-01-02"
)

// Writer appends one section per batch to a changelog file
type Writer struct {
	path  string
	title string
	now   func() time.Time
}

// NewWriter creates a Writer for the changelog at path
func NewWriter(path, title string) *Writer {
	if title == "" {
		title = DefaultTitle
	}
	return &Writer{
		path:  path,
		title: title,
		now:   time.Now,
	}
}

// Path returns the changelog file path
func (w *Writer) Path() string {
	return w.path
}

// Record appends a dated section listing every description in batch order.
// The file is created if it does not exist yet and is never truncated.
func (w *Writer) Record(batch change.Batch) error {
	if err := os.MkdirAll(filepath.Dir(w.path), 0755); err != nil {
		return fmt.Errorf("create changelog dir: %w", err)
	}

	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open changelog: %w", err)
	}

	section := FormatSection(w.title, w.now(), batch.Descriptions())
	if _, err := f.WriteString(section); err != nil {
		f.Close()
		return fmt.Errorf("write changelog: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close changelog: %w", err)
	}

	log.Printf("[Changelog] appended %d entries to %s", len(batch), w.path)
	return nil
}

// FormatSection renders a changelog section
func FormatSection(title string, date time.Time, descriptions []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n\n## %s (%s)\n\n", title, date.Format(dateLayout))
	for _, d := range descriptions {
		fmt.Fprintf(&b, "- %s\n", OneLine(d))
	}
	return b.String()
}

// OneLine collapses a description onto a single line
func OneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
