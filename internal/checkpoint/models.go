// internal/checkpoint/models.go
package checkpoint

import "time"

// Checkpoint represents the pre-apply state of a batch's target files
type Checkpoint struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	Root        string    `json:"root"`
	Timestamp   time.Time `json:"timestamp"`
	Description string    `json:"description,omitempty"`
	FileCount   int       `json:"file_count"`
}

// FileSnapshot represents a file at a specific checkpoint
type FileSnapshot struct {
	CheckpointID string `json:"checkpoint_id"`
	FilePath     string `json:"file_path"`
	Content      string `json:"content"`
	Hash         string `json:"hash"`
	Permissions  uint32 `json:"permissions,omitempty"`
	Size         int64  `json:"size"`
	Absent       bool   `json:"absent,omitempty"` // path did not exist at capture time
}

// CheckpointResult represents the result of a checkpoint operation
type CheckpointResult struct {
	Checkpoint     *Checkpoint `json:"checkpoint"`
	FilesProcessed int         `json:"files_processed"`
	Warnings       []string    `json:"warnings,omitempty"`
}

// fileRef is the on-disk reference from a checkpoint to pooled content
type fileRef struct {
	Path        string `json:"path"`
	Hash        string `json:"hash"`
	Permissions uint32 `json:"permissions"`
	Size        int64  `json:"size"`
	Absent      bool   `json:"absent,omitempty"`
}
