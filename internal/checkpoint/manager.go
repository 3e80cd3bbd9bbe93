// internal/checkpoint/manager.go
package checkpoint

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// DefaultMaxCheckpoints is the retention limit per project
const DefaultMaxCheckpoints = 50

// Manager captures and restores checkpoints for a single project root
type Manager struct {
	storage        *Storage
	root           string
	projectID      string
	MaxCheckpoints int
}

// NewManager creates a new checkpoint manager for root
func NewManager(storage *Storage, root string) *Manager {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return &Manager{
		storage:        storage,
		root:           root,
		projectID:      ProjectID(root),
		MaxCheckpoints: DefaultMaxCheckpoints,
	}
}

// ProjectID returns the identifier checkpoints are stored under
func (m *Manager) ProjectID() string {
	return m.projectID
}

// Capture snapshots the current content of paths. Relative paths are resolved
// against the project root; paths that don't exist are recorded as absent so
// a restore removes them again.
func (m *Manager) Capture(paths []string, description string) (*CheckpointResult, error) {
	checkpoint := &Checkpoint{
		ID:          GenerateID(),
		Root:        m.root,
		Description: description,
	}

	var files []FileSnapshot
	seen := make(map[string]bool)
	for _, p := range paths {
		abs := m.resolve(p)
		if seen[abs] {
			continue
		}
		seen[abs] = true

		info, err := os.Stat(abs)
		if err != nil {
			if os.IsNotExist(err) {
				files = append(files, FileSnapshot{
					CheckpointID: checkpoint.ID,
					FilePath:     abs,
					Absent:       true,
				})
				continue
			}
			return nil, fmt.Errorf("stat %s: %w", p, err)
		}
		if info.IsDir() {
			continue
		}

		data, err := os.ReadFile(abs)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}

		content := string(data)
		files = append(files, FileSnapshot{
			CheckpointID: checkpoint.ID,
			FilePath:     abs,
			Content:      content,
			Hash:         CalculateHash(content),
			Permissions:  uint32(info.Mode().Perm()),
			Size:         info.Size(),
		})
	}

	result, err := m.storage.Save(m.projectID, checkpoint, files)
	if err != nil {
		return nil, fmt.Errorf("save checkpoint: %w", err)
	}
	log.Printf("[Checkpoint] captured %s (%d files)", checkpoint.ID, result.FilesProcessed)
	return result, nil
}

// Restore writes every file captured by the checkpoint back to disk
func (m *Manager) Restore(checkpointID string) (*CheckpointResult, error) {
	checkpointID, err := m.lookup(checkpointID)
	if err != nil {
		return nil, err
	}

	checkpoint, snapshots, err := m.storage.Load(m.projectID, checkpointID)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}

	result := &CheckpointResult{
		Checkpoint: checkpoint,
		Warnings:   []string{},
	}

	for _, snapshot := range snapshots {
		if snapshot.Absent {
			if err := os.Remove(snapshot.FilePath); err != nil && !os.IsNotExist(err) {
				result.Warnings = append(result.Warnings, fmt.Sprintf("Failed to remove %s: %v", snapshot.FilePath, err))
				continue
			}
			result.FilesProcessed++
			continue
		}

		dir := filepath.Dir(snapshot.FilePath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("Failed to create dir for %s: %v", snapshot.FilePath, err))
			continue
		}

		perm := os.FileMode(snapshot.Permissions)
		if perm == 0 {
			perm = 0644
		}
		if err := os.WriteFile(snapshot.FilePath, []byte(snapshot.Content), perm); err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("Failed to restore %s: %v", snapshot.FilePath, err))
			continue
		}
		result.FilesProcessed++
	}

	log.Printf("[Checkpoint] restored %s (%d files, %d warnings)", checkpoint.ID, result.FilesProcessed, len(result.Warnings))
	return result, nil
}

// List returns this project's checkpoints, newest first
func (m *Manager) List() ([]Checkpoint, error) {
	return m.storage.List(m.projectID)
}

// CleanupOld deletes the oldest checkpoints beyond MaxCheckpoints
func (m *Manager) CleanupOld() (int, error) {
	if m.MaxCheckpoints <= 0 {
		return 0, nil
	}

	checkpoints, err := m.storage.List(m.projectID)
	if err != nil {
		return 0, fmt.Errorf("list checkpoints: %w", err)
	}

	if len(checkpoints) <= m.MaxCheckpoints {
		return 0, nil
	}

	// List is newest first, so everything past the limit goes
	deleted := 0
	for _, cp := range checkpoints[m.MaxCheckpoints:] {
		if err := m.storage.Delete(m.projectID, cp.ID); err != nil {
			continue
		}
		deleted++
	}

	if deleted > 0 {
		pruned, err := m.storage.PruneContent(m.projectID)
		if err != nil {
			return deleted, fmt.Errorf("prune content: %w", err)
		}
		log.Printf("[Checkpoint] removed %d checkpoint(s), %d pooled file(s)", deleted, pruned)
	}

	return deleted, nil
}

// lookup resolves a full checkpoint id or an unambiguous prefix of one
func (m *Manager) lookup(id string) (string, error) {
	if id == "" {
		return "", errors.New("checkpoint id is required")
	}

	checkpoints, err := m.storage.List(m.projectID)
	if err != nil {
		return "", fmt.Errorf("list checkpoints: %w", err)
	}

	var match string
	for _, cp := range checkpoints {
		if cp.ID == id {
			return id, nil
		}
		if strings.HasPrefix(cp.ID, id) {
			if match != "" {
				return "", fmt.Errorf("checkpoint id %q is ambiguous", id)
			}
			match = cp.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("checkpoint %q not found", id)
	}
	return match, nil
}

func (m *Manager) resolve(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(m.root, p)
}
