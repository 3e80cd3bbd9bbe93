// Package diff renders unified diffs for the files a change touched.
package diff

import (
	"fmt"
	"strings"

	difflib "github.com/pmezard/go-difflib/difflib"
)

// DefaultContext is the number of context lines around each hunk
const DefaultContext = 3

// Unified produces a unified diff of before → after for path.
// It returns an empty string when the contents are identical.
func Unified(path string, before, after []byte, context int) string {
	if string(before) == string(after) {
		return ""
	}
	if context <= 0 {
		context = DefaultContext
	}

	u := difflib.UnifiedDiff{
		A:        splitLinesKeepNL(string(before)),
		B:        splitLinesKeepNL(string(after)),
		FromFile: "a/" + path,
		ToFile:   "b/" + path,
		Context:  context,
	}
	s, err := difflib.GetUnifiedDiffString(u)
	if err != nil || s == "" {
		return fmt.Sprintf("--- a/%s\n+++ b/%s\n@@\n# diff unavailable\n", path, path)
	}
	return s
}

// Stat counts added and removed lines in a unified diff body. Lines before
// the first hunk header are file headers and are not counted.
func Stat(body string) (added, removed int) {
	inHunk := false
	for _, line := range strings.Split(body, "\n") {
		switch {
		case strings.HasPrefix(line, "@@"):
			inHunk = true
		case !inHunk:
		case strings.HasPrefix(line, "+"):
			added++
		case strings.HasPrefix(line, "-"):
			removed++
		}
	}
	return added, removed
}

// splitLinesKeepNL keeps the trailing "\n" on each line so hunks stay exact
func splitLinesKeepNL(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.SplitAfter(s, "\n")
}
