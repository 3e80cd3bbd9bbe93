// internal/changelog/sections.go
package changelog

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Section is one level-two heading of the changelog and its bullet items
type Section struct {
	Title string
	// Date is zero when the heading carries no "(YYYY-MM-DD)" suffix
	Date  time.Time
	Items []string
}

// ReadSections parses the changelog file at path
func ReadSections(path string) ([]Section, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read changelog: %w", err)
	}
	return Sections(data), nil
}

// Sections walks the markdown document and collects every level-two section
func Sections(source []byte) []Section {
	root := goldmark.DefaultParser().Parse(text.NewReader(source))

	var sections []Section
	for node := root.FirstChild(); node != nil; node = node.NextSibling() {
		switch n := node.(type) {
		case *ast.Heading:
			if n.Level != 2 {
				continue
			}
			sections = append(sections, parseHeading(blockText(n, source)))
		case *ast.List:
			if len(sections) == 0 {
				continue
			}
			last := &sections[len(sections)-1]
			for item := n.FirstChild(); item != nil; item = item.NextSibling() {
				if first := item.FirstChild(); first != nil {
					last.Items = append(last.Items, blockText(first, source))
				}
			}
		}
	}
	return sections
}

func parseHeading(heading string) Section {
	s := Section{Title: heading}
	open := strings.LastIndex(heading, "(")
	if open < 0 || !strings.HasSuffix(heading, ")") {
		return s
	}
	date, err := time.Parse(dateLayout, heading[open+1:len(heading)-1])
	if err != nil {
		return s
	}
	s.Title = strings.TrimSpace(heading[:open])
	s.Date = date
	return s
}

// blockText joins the raw source lines of a block node
func blockText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		buf.Write(line.Value(source))
	}
	return strings.TrimSpace(buf.String())
}
