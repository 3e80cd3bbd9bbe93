package source

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"

	"refactorizor/internal/change"
	"refactorizor/internal/ui"
)

// Stdin is the argument that selects standard input
const Stdin = "-"

// Source is raw batch content and where it came from
type Source struct {
	Name   string
	Format string
	Data   []byte
}

// Batch parses the source into a change batch
func (s *Source) Batch() (change.Batch, error) {
	if len(strings.TrimSpace(string(s.Data))) == 0 {
		return nil, fmt.Errorf("%s is empty", s.Name)
	}
	batch, err := change.Parse(s.Data, s.Format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Name, err)
	}
	return batch, nil
}

// SourceProvider determines and retrieves the batch content.
type SourceProvider struct {
	Stdin     *os.File
	Clipboard func() (string, error)
}

// New creates a new SourceProvider reading the process stdin and clipboard.
func New() *SourceProvider {
	return &SourceProvider{
		Stdin:     os.Stdin,
		Clipboard: clipboard.ReadAll,
	}
}

// GetContent retrieves content from the clipboard, a file argument, or stdin
// when it is piped or named with "-".
func (sp *SourceProvider) GetContent(arg string, fromClipboard bool) (*Source, error) {
	switch {
	case fromClipboard:
		if arg != "" {
			return nil, fmt.Errorf("cannot read from clipboard and %s at once", arg)
		}
		return sp.fromClipboard()
	case arg == Stdin:
		return sp.fromStdin()
	case arg != "":
		return FromFile(arg)
	case sp.isPiped():
		return sp.fromStdin()
	default:
		return nil, fmt.Errorf("no batch given: pass a file, pipe one to stdin, or use --clipboard")
	}
}

// FromFile reads a batch file, choosing the format by extension
func FromFile(path string) (*Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}
	return &Source{
		Name:   path,
		Format: FormatOf(path),
		Data:   data,
	}, nil
}

// FormatOf maps a file extension to a batch format; "" means detect
func FormatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "json"
	case ".yaml", ".yml":
		return "yaml"
	default:
		return ""
	}
}

func (sp *SourceProvider) isPiped() bool {
	if sp.Stdin == nil {
		return false
	}
	stat, err := sp.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

func (sp *SourceProvider) fromStdin() (*Source, error) {
	ui.Header("--- Reading from stdin ---")
	content, err := io.ReadAll(sp.Stdin)
	if err != nil {
		return nil, fmt.Errorf("failed to read from stdin: %w", err)
	}
	return &Source{Name: "stdin", Data: content}, nil
}

func (sp *SourceProvider) fromClipboard() (*Source, error) {
	ui.Header("--- Reading from clipboard ---")
	content, err := sp.Clipboard()
	if err != nil {
		return nil, fmt.Errorf("failed to read from clipboard: %w", err)
	}
	if strings.TrimSpace(content) == "" {
		ui.Warning("Clipboard is empty. Nothing to process.")
	}
	return &Source{Name: "clipboard", Data: []byte(content)}, nil
}
