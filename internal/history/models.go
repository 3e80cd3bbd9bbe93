// internal/history/models.go
package history

import "time"

// Run status values
const (
	StatusRunning   = "running"
	StatusCommitted = "committed"
	StatusFailed    = "failed"
)

// Change status values
const (
	ChangePending = "pending"
	ChangeApplied = "applied"
	ChangeFailed  = "failed"
)

// Run represents one invocation of a change batch against a project
type Run struct {
	ID           string      `json:"id"`
	Root         string      `json:"root"`
	Source       string      `json:"source"`
	ChangeCount  int         `json:"change_count"`
	Status       string      `json:"status"`
	FailedIndex  int         `json:"failed_index,omitempty"` // 1-based, 0 when nothing failed
	Error        string      `json:"error,omitempty"`
	CommitHash   string      `json:"commit_hash,omitempty"`
	CheckpointID string      `json:"checkpoint_id,omitempty"`
	StartedAt    time.Time   `json:"started_at"`
	FinishedAt   *time.Time  `json:"finished_at,omitempty"`
	Changes      []RunChange `json:"changes,omitempty"`
}

// RunChange is a single change of a recorded run
type RunChange struct {
	RunID       string `json:"run_id"`
	Position    int    `json:"position"`
	Description string `json:"description"`
	TargetFile  string `json:"target_file"`
	ChangeType  string `json:"change_type"`
	Status      string `json:"status"`
}
