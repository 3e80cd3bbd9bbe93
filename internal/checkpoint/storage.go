// internal/checkpoint/storage.go
package checkpoint

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
)

// Storage manages checkpoint persistence
type Storage struct {
	baseDir          string
	compressionLevel int
	mu               sync.RWMutex
	encoder          *zstd.Encoder
	decoder          *zstd.Decoder
}

// NewStorage creates a new checkpoint storage
func NewStorage(baseDir string, compressionLevel int) *Storage {
	encoder, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(compressionLevel)))
	decoder, _ := zstd.NewReader(nil)

	return &Storage{
		baseDir:          baseDir,
		compressionLevel: compressionLevel,
		encoder:          encoder,
		decoder:          decoder,
	}
}

// checkpointsDir returns the path for a project's checkpoints
func (s *Storage) checkpointsDir(projectID string) string {
	return filepath.Join(s.baseDir, "checkpoints", projectID)
}

// Save saves a checkpoint with its file snapshots
func (s *Storage) Save(projectID string, checkpoint *Checkpoint, files []FileSnapshot) (*CheckpointResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if checkpoint.Timestamp.IsZero() {
		checkpoint.Timestamp = time.Now()
	}
	checkpoint.ProjectID = projectID
	checkpoint.FileCount = len(files)

	baseDir := s.checkpointsDir(projectID)
	checkpointDir := filepath.Join(baseDir, checkpoint.ID)

	if err := os.MkdirAll(checkpointDir, 0755); err != nil {
		return nil, fmt.Errorf("create checkpoint dir: %w", err)
	}

	metadataPath := filepath.Join(checkpointDir, "metadata.json")
	metadataJSON, err := json.MarshalIndent(checkpoint, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	if err := os.WriteFile(metadataPath, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("write metadata: %w", err)
	}

	result := &CheckpointResult{
		Checkpoint: checkpoint,
	}

	for i := range files {
		if err := s.saveFileSnapshot(baseDir, checkpoint.ID, &files[i]); err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("Failed to save %s: %v", files[i].FilePath, err))
			continue
		}
		result.FilesProcessed++
	}

	return result, nil
}

// saveFileSnapshot saves a file using content-addressable storage
func (s *Storage) saveFileSnapshot(baseDir, checkpointID string, snapshot *FileSnapshot) error {
	if snapshot.Absent {
		snapshot.Hash = ""
	} else {
		contentPoolDir := filepath.Join(baseDir, "content_pool")
		if err := os.MkdirAll(contentPoolDir, 0755); err != nil {
			return err
		}

		if snapshot.Hash == "" {
			snapshot.Hash = CalculateHash(snapshot.Content)
		}

		// Content-addressable: store by hash to avoid duplicates
		contentFile := filepath.Join(contentPoolDir, snapshot.Hash)
		if _, err := os.Stat(contentFile); os.IsNotExist(err) {
			compressed := s.encoder.EncodeAll([]byte(snapshot.Content), nil)
			if err := os.WriteFile(contentFile, compressed, 0644); err != nil {
				return err
			}
		}
	}

	refsDir := filepath.Join(baseDir, checkpointID, "refs")
	if err := os.MkdirAll(refsDir, 0755); err != nil {
		return err
	}

	ref := fileRef{
		Path:        snapshot.FilePath,
		Hash:        snapshot.Hash,
		Permissions: snapshot.Permissions,
		Size:        snapshot.Size,
		Absent:      snapshot.Absent,
	}
	refJSON, err := json.MarshalIndent(ref, "", "  ")
	if err != nil {
		return err
	}

	// Refs are named by path hash so files sharing a basename don't collide
	refPath := filepath.Join(refsDir, CalculateHash(snapshot.FilePath)[:16]+".json")
	return os.WriteFile(refPath, refJSON, 0644)
}

// Load loads a checkpoint with its file snapshots
func (s *Storage) Load(projectID, checkpointID string) (*Checkpoint, []FileSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	baseDir := s.checkpointsDir(projectID)
	checkpointDir := filepath.Join(baseDir, checkpointID)

	metadataJSON, err := os.ReadFile(filepath.Join(checkpointDir, "metadata.json"))
	if err != nil {
		return nil, nil, fmt.Errorf("read metadata: %w", err)
	}

	var checkpoint Checkpoint
	if err := json.Unmarshal(metadataJSON, &checkpoint); err != nil {
		return nil, nil, fmt.Errorf("unmarshal metadata: %w", err)
	}

	snapshots, err := s.loadFileSnapshots(baseDir, checkpointID)
	if err != nil {
		return nil, nil, fmt.Errorf("load file snapshots: %w", err)
	}

	return &checkpoint, snapshots, nil
}

// loadFileSnapshots reads every ref of a checkpoint and decompresses its content
func (s *Storage) loadFileSnapshots(baseDir, checkpointID string) ([]FileSnapshot, error) {
	refsDir := filepath.Join(baseDir, checkpointID, "refs")

	entries, err := os.ReadDir(refsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []FileSnapshot{}, nil
		}
		return nil, err
	}

	contentPoolDir := filepath.Join(baseDir, "content_pool")
	var snapshots []FileSnapshot

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		refData, err := os.ReadFile(filepath.Join(refsDir, entry.Name()))
		if err != nil {
			return nil, err
		}

		var ref fileRef
		if err := json.Unmarshal(refData, &ref); err != nil {
			return nil, fmt.Errorf("parse ref %s: %w", entry.Name(), err)
		}

		if ref.Absent {
			snapshots = append(snapshots, FileSnapshot{
				CheckpointID: checkpointID,
				FilePath:     ref.Path,
				Absent:       true,
			})
			continue
		}

		compressed, err := os.ReadFile(filepath.Join(contentPoolDir, ref.Hash))
		if err != nil {
			return nil, fmt.Errorf("read content for %s: %w", ref.Path, err)
		}
		content, err := s.decoder.DecodeAll(compressed, nil)
		if err != nil {
			return nil, fmt.Errorf("decompress %s: %w", ref.Path, err)
		}

		snapshots = append(snapshots, FileSnapshot{
			CheckpointID: checkpointID,
			FilePath:     ref.Path,
			Content:      string(content),
			Hash:         ref.Hash,
			Permissions:  ref.Permissions,
			Size:         ref.Size,
		})
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].FilePath < snapshots[j].FilePath
	})
	return snapshots, nil
}

// List lists all checkpoints for a project, newest first
func (s *Storage) List(projectID string) ([]Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	checkpointsDir := s.checkpointsDir(projectID)
	entries, err := os.ReadDir(checkpointsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var checkpoints []Checkpoint
	for _, entry := range entries {
		if !entry.IsDir() || entry.Name() == "content_pool" {
			continue
		}

		metadataJSON, err := os.ReadFile(filepath.Join(checkpointsDir, entry.Name(), "metadata.json"))
		if err != nil {
			continue
		}

		var cp Checkpoint
		if json.Unmarshal(metadataJSON, &cp) == nil {
			checkpoints = append(checkpoints, cp)
		}
	}

	sort.Slice(checkpoints, func(i, j int) bool {
		return checkpoints[i].Timestamp.After(checkpoints[j].Timestamp)
	})
	return checkpoints, nil
}

// Delete removes a checkpoint. Pooled content is kept for other checkpoints.
func (s *Storage) Delete(projectID, checkpointID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return os.RemoveAll(filepath.Join(s.checkpointsDir(projectID), checkpointID))
}

// PruneContent removes pooled content no remaining checkpoint refers to
func (s *Storage) PruneContent(projectID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	baseDir := s.checkpointsDir(projectID)
	contentPoolDir := filepath.Join(baseDir, "content_pool")

	pool, err := os.ReadDir(contentPoolDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	entries, err := os.ReadDir(baseDir)
	if err != nil {
		return 0, err
	}

	referenced := make(map[string]bool)
	for _, entry := range entries {
		if !entry.IsDir() || entry.Name() == "content_pool" {
			continue
		}
		refsDir := filepath.Join(baseDir, entry.Name(), "refs")
		refs, err := os.ReadDir(refsDir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return 0, err
		}
		for _, r := range refs {
			data, err := os.ReadFile(filepath.Join(refsDir, r.Name()))
			if err != nil {
				return 0, err
			}
			var ref fileRef
			if err := json.Unmarshal(data, &ref); err != nil {
				// An unreadable ref keeps the pool intact
				return 0, fmt.Errorf("parse ref %s: %w", r.Name(), err)
			}
			if ref.Hash != "" {
				referenced[ref.Hash] = true
			}
		}
	}

	removed := 0
	for _, entry := range pool {
		if referenced[entry.Name()] {
			continue
		}
		if err := os.Remove(filepath.Join(contentPoolDir, entry.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}

// GenerateID generates a new checkpoint ID
func GenerateID() string {
	return uuid.New().String()
}

// CalculateHash calculates SHA256 hash of content
func CalculateHash(content string) string {
	h := sha256.Sum256([]byte(content))
	return fmt.Sprintf("%x", h)
}

// ProjectID derives a stable identifier for a project root
func ProjectID(root string) string {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return CalculateHash(root)[:16]
}
