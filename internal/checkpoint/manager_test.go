// internal/checkpoint/manager_test.go
package checkpoint

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestManager_CaptureAndRestore(t *testing.T) {
	root := t.TempDir()
	manager := NewManager(NewStorage(t.TempDir(), 3), root)

	utils := filepath.Join(root, "utils.py")
	if err := os.WriteFile(utils, []byte("def old_name():\n    return 1\n"), 0600); err != nil {
		t.Fatal(err)
	}

	result, err := manager.Capture([]string{"utils.py", "utils.py", "missing.py"}, "before batch")
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if result.FilesProcessed != 2 {
		t.Errorf("Expected 2 paths captured, got %d", result.FilesProcessed)
	}
	if result.Checkpoint.Root != root {
		t.Errorf("Expected root %s, got %s", root, result.Checkpoint.Root)
	}

	if err := os.WriteFile(utils, []byte("def new_name():\n    return 1\n"), 0600); err != nil {
		t.Fatal(err)
	}
	// A file the run created afterwards, like a fresh changelog
	if err := os.WriteFile(filepath.Join(root, "missing.py"), []byte("created\n"), 0644); err != nil {
		t.Fatal(err)
	}

	restored, err := manager.Restore(result.Checkpoint.ID[:8])
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if restored.FilesProcessed != 2 || len(restored.Warnings) != 0 {
		t.Errorf("Unexpected restore result: %+v", restored)
	}

	data, err := os.ReadFile(utils)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "def old_name():\n    return 1\n" {
		t.Errorf("Expected original content, got %q", data)
	}

	info, err := os.Stat(utils)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected mode 0600, got %v", info.Mode().Perm())
	}

	// missing.py did not exist at capture time, so restore removes it
	if _, err := os.Stat(filepath.Join(root, "missing.py")); !os.IsNotExist(err) {
		t.Error("Restore kept a file that did not exist at capture time")
	}
}

func TestManager_RestoreUnknown(t *testing.T) {
	manager := NewManager(NewStorage(t.TempDir(), 3), t.TempDir())

	if _, err := manager.Restore("does-not-exist"); err == nil {
		t.Error("Expected error for unknown checkpoint")
	}
	if _, err := manager.Restore(""); err == nil {
		t.Error("Expected error for empty checkpoint id")
	}
}

func TestManager_CleanupOld(t *testing.T) {
	storage := NewStorage(t.TempDir(), 3)
	manager := NewManager(storage, t.TempDir())
	manager.MaxCheckpoints = 2

	base := time.Now()
	for i, id := range []string{"cp-1", "cp-2", "cp-3", "cp-4"} {
		cp := &Checkpoint{ID: id, Timestamp: base.Add(time.Duration(i) * time.Second)}
		if _, err := storage.Save(manager.ProjectID(), cp, nil); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	deleted, err := manager.CleanupOld()
	if err != nil {
		t.Fatalf("CleanupOld failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("Expected 2 deleted, got %d", deleted)
	}

	remaining, err := manager.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(remaining) != 2 || remaining[0].ID != "cp-4" || remaining[1].ID != "cp-3" {
		t.Errorf("Expected newest two to remain, got %+v", remaining)
	}
}

func TestManager_RestoreAbsentThatStaysAbsent(t *testing.T) {
	root := t.TempDir()
	manager := NewManager(NewStorage(t.TempDir(), 3), root)

	result, err := manager.Capture([]string{"CODEBASE.md"}, "before batch")
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}

	restored, err := manager.Restore(result.Checkpoint.ID)
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if len(restored.Warnings) != 0 {
		t.Errorf("Unexpected warnings: %v", restored.Warnings)
	}
	if _, err := os.Stat(filepath.Join(root, "CODEBASE.md")); !os.IsNotExist(err) {
		t.Error("Restore created an absent file")
	}
}

func TestManager_CleanupPrunesContent(t *testing.T) {
	stateDir := t.TempDir()
	root := t.TempDir()
	manager := NewManager(NewStorage(stateDir, 3), root)
	manager.MaxCheckpoints = 1

	path := filepath.Join(root, "a.txt")
	var ids []string
	for _, content := range []string{"first\n", "second\n"} {
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		result, err := manager.Capture([]string{"a.txt"}, content)
		if err != nil {
			t.Fatalf("Capture failed: %v", err)
		}
		ids = append(ids, result.Checkpoint.ID)
		time.Sleep(10 * time.Millisecond)
	}

	pool := filepath.Join(stateDir, "checkpoints", manager.ProjectID(), "content_pool")
	if _, err := os.Stat(filepath.Join(pool, CalculateHash("first\n"))); err != nil {
		t.Fatalf("Expected first content in pool: %v", err)
	}

	deleted, err := manager.CleanupOld()
	if err != nil {
		t.Fatalf("CleanupOld failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("Expected 1 deleted, got %d", deleted)
	}

	if _, err := os.Stat(filepath.Join(pool, CalculateHash("first\n"))); !os.IsNotExist(err) {
		t.Error("Unreferenced content was not pruned")
	}
	if _, err := os.Stat(filepath.Join(pool, CalculateHash("second\n"))); err != nil {
		t.Errorf("Referenced content was pruned: %v", err)
	}

	if _, err := manager.Restore(ids[1]); err != nil {
		t.Errorf("Restore of kept checkpoint failed: %v", err)
	}
}
