// internal/change/change.go
package change

import "fmt"

// Type identifies the kind of edit a Change performs
type Type string

const (
	TypeAppend  Type = "append"
	TypeReplace Type = "replace"
)

// Change describes one requested edit to a single file
type Change struct {
	Description   string `json:"description" yaml:"description"`
	TargetFile    string `json:"target_file" yaml:"target_file"`
	Type          Type   `json:"change_type" yaml:"change_type"`
	Content       string `json:"content,omitempty" yaml:"content,omitempty"`
	SearchPattern string `json:"search_pattern,omitempty" yaml:"search_pattern,omitempty"`
	Replacement   string `json:"replacement,omitempty" yaml:"replacement,omitempty"`
}

// Known reports whether the change type is one the applier understands
func (t Type) Known() bool {
	switch t {
	case TypeAppend, TypeReplace:
		return true
	default:
		return false
	}
}

// String returns a short human-readable summary used in logs
func (c Change) String() string {
	return fmt.Sprintf("%s %s: %s", c.Type, c.TargetFile, c.Description)
}

// Batch is an ordered list of changes applied as one unit
type Batch []Change

// Descriptions returns the description of every change in batch order
func (b Batch) Descriptions() []string {
	out := make([]string, len(b))
	for i, c := range b {
		out[i] = c.Description
	}
	return out
}

// TargetFiles returns the distinct target files in first-seen order
func (b Batch) TargetFiles() []string {
	seen := make(map[string]struct{}, len(b))
	var out []string
	for _, c := range b {
		if _, ok := seen[c.TargetFile]; ok {
			continue
		}
		seen[c.TargetFile] = struct{}{}
		out = append(out, c.TargetFile)
	}
	return out
}
