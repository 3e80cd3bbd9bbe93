// internal/change/applied.go
package change

// Applied records the outcome of one successfully applied change
type Applied struct {
	Index  int    `json:"index"`
	Change Change `json:"change"`
	// Path is the resolved filesystem path that was written
	Path string `json:"path"`
	// Diff is a unified diff of the file before and after the change
	Diff string `json:"diff,omitempty"`
}
