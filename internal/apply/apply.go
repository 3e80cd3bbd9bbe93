// Package apply performs individual changes against files on disk.
package apply

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"refactorizor/internal/change"
	"refactorizor/internal/diff"
)

// FileApplier applies changes to files beneath a project root
type FileApplier struct {
	root string
}

// NewFileApplier creates an applier resolving relative targets against root
func NewFileApplier(root string) *FileApplier {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return &FileApplier{root: root}
}

// Resolve returns the filesystem path for a target file. Targets that lead
// outside the root, lexically or through a symlink, are rejected.
func (a *FileApplier) Resolve(target string) (string, error) {
	path := target
	if !filepath.IsAbs(path) {
		path = filepath.Join(a.root, path)
	}
	path = filepath.Clean(path)

	if !within(a.root, path) {
		return "", fmt.Errorf("%w: %s", change.ErrOutsideRoot, target)
	}
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		if realRoot, err := filepath.EvalSymlinks(a.root); err == nil && !within(realRoot, resolved) {
			return "", fmt.Errorf("%w: %s", change.ErrOutsideRoot, target)
		}
	}
	return path, nil
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Apply performs a single change. The target must lie under the root and
// exist before anything else is checked; nothing is written when an error is
// returned.
func (a *FileApplier) Apply(index int, c change.Change) (*change.Applied, error) {
	path, err := a.Resolve(c.TargetFile)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", change.ErrMissingTarget, c.TargetFile)
		}
		return nil, fmt.Errorf("stat %s: %w", c.TargetFile, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", c.TargetFile)
	}

	var before, after []byte
	switch c.Type {
	case change.TypeAppend:
		before, after, err = appendContent(path, c.Content)
	case change.TypeReplace:
		before, after, err = replacePattern(path, info.Mode().Perm(), c)
	default:
		return nil, fmt.Errorf("%w: %q", change.ErrUnknownOperation, c.Type)
	}
	if err != nil {
		return nil, err
	}

	log.Printf("[Apply] %s %s (%d -> %d bytes)", c.Type, c.TargetFile, len(before), len(after))

	return &change.Applied{
		Index:  index,
		Change: c,
		Path:   path,
		Diff:   diff.Unified(c.TargetFile, before, after, diff.DefaultContext),
	}, nil
}

// appendContent writes content verbatim to the end of the file
func appendContent(path, content string) ([]byte, []byte, error) {
	before, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("append to %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return nil, nil, fmt.Errorf("close %s: %w", path, err)
	}

	after := make([]byte, 0, len(before)+len(content))
	after = append(after, before...)
	after = append(after, content...)
	return before, after, nil
}

// replacePattern substitutes every match of the search pattern and rewrites
// the whole file. Replacement text refers to groups as \1 or \g<name>;
// a $ is always literal.
func replacePattern(path string, perm os.FileMode, c change.Change) ([]byte, []byte, error) {
	re, err := regexp.Compile(c.SearchPattern)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid search pattern %q: %w", c.SearchPattern, err)
	}

	before, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}

	template, err := expandTemplate(re, c.Replacement)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid replacement %q: %w", c.Replacement, err)
	}

	after := re.ReplaceAll(before, []byte(template))
	if bytes.Equal(before, after) {
		return nil, nil, fmt.Errorf("%w: %q in %s", change.ErrPatternNotFound, c.SearchPattern, c.TargetFile)
	}

	if err := os.WriteFile(path, after, perm); err != nil {
		return nil, nil, fmt.Errorf("write %s: %w", path, err)
	}
	return before, after, nil
}
