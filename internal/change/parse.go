// internal/change/parse.go
package change

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// document is the mapping form of a batch file
type document struct {
	Changes Batch `json:"changes" yaml:"changes"`
}

// Parse decodes a batch from JSON or YAML.
// The top level may be a list of changes or a mapping with a "changes" key.
// Format is "json", "yaml" or "yml"; anything else tries JSON, then YAML.
func Parse(data []byte, format string) (Batch, error) {
	var batch Batch
	var err error

	switch strings.ToLower(format) {
	case "json":
		batch, err = decodeJSON(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	case "yaml", "yml":
		batch, err = decodeYAML(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	default:
		if batch, err = decodeJSON(data); err != nil {
			if batch, err = decodeYAML(data); err != nil {
				return nil, fmt.Errorf("failed to parse as JSON or YAML")
			}
		}
	}

	if err := validate(batch); err != nil {
		return nil, err
	}
	return batch, nil
}

func decodeJSON(data []byte) (Batch, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var batch Batch
		if err := json.Unmarshal(data, &batch); err != nil {
			return nil, err
		}
		return batch, nil
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc.Changes, nil
}

func decodeYAML(data []byte) (Batch, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	if len(node.Content) == 0 {
		return nil, nil
	}

	root := node.Content[0]
	if root.Kind == yaml.SequenceNode {
		var batch Batch
		if err := root.Decode(&batch); err != nil {
			return nil, err
		}
		return batch, nil
	}

	var doc document
	if err := root.Decode(&doc); err != nil {
		return nil, err
	}
	return doc.Changes, nil
}

// validate checks the fields every change needs regardless of its type.
// Unknown change types are left for the applier so that earlier changes in
// the batch are still applied before the batch fails.
func validate(batch Batch) error {
	for i, c := range batch {
		if strings.TrimSpace(c.TargetFile) == "" {
			return fmt.Errorf("change %d: target_file is required", i+1)
		}
		if strings.TrimSpace(c.Description) == "" {
			return fmt.Errorf("change %d (%s): description is required", i+1, c.TargetFile)
		}
		if c.Type == "" {
			return fmt.Errorf("change %d (%s): change_type is required", i+1, c.TargetFile)
		}
	}
	return nil
}
