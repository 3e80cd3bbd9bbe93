// internal/history/db_test.go
package history

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testRun(root string) *Run {
	return &Run{
		Root:   root,
		Source: "batch.yaml",
		Changes: []RunChange{
			{Description: "Add f", TargetFile: "utils.py", ChangeType: "append"},
			{Description: "Rename old_name", TargetFile: "utils.py", ChangeType: "replace"},
		},
	}
}

func TestDatabase_Open(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	// Verify file exists
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

func TestDatabase_StartAndFinishRun(t *testing.T) {
	db := openTestDB(t)

	run := testRun("/srv/project")
	if err := db.StartRun(run); err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}

	if run.ID == "" {
		t.Fatal("Expected a generated run ID")
	}
	if run.ChangeCount != 2 {
		t.Errorf("Expected change count 2, got %d", run.ChangeCount)
	}
	if run.Changes[1].Position != 2 || run.Changes[1].Status != ChangePending {
		t.Errorf("Unexpected second change: %+v", run.Changes[1])
	}

	run.Status = StatusCommitted
	run.CommitHash = "abc1234"
	run.CheckpointID = "cp-1"
	run.Changes[0].Status = ChangeApplied
	run.Changes[1].Status = ChangeApplied
	if err := db.FinishRun(run); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}

	got, err := db.GetRun(run.ID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}

	if got.Status != StatusCommitted {
		t.Errorf("Expected status committed, got %s", got.Status)
	}
	if got.CommitHash != "abc1234" || got.CheckpointID != "cp-1" {
		t.Errorf("Unexpected run: %+v", got)
	}
	if got.FinishedAt == nil {
		t.Error("Expected finished_at to be set")
	}
	if len(got.Changes) != 2 {
		t.Fatalf("Expected 2 changes, got %d", len(got.Changes))
	}
	for _, c := range got.Changes {
		if c.Status != ChangeApplied {
			t.Errorf("Expected change %d applied, got %s", c.Position, c.Status)
		}
	}
	if got.Changes[0].Description != "Add f" || got.Changes[1].ChangeType != "replace" {
		t.Errorf("Changes out of order: %+v", got.Changes)
	}
}

func TestDatabase_FailedRun(t *testing.T) {
	db := openTestDB(t)

	run := testRun("/srv/project")
	if err := db.StartRun(run); err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}

	run.Status = StatusFailed
	run.FailedIndex = 2
	run.Error = "pattern not found"
	run.Changes[0].Status = ChangeApplied
	run.Changes[1].Status = ChangeFailed
	if err := db.FinishRun(run); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}

	got, err := db.GetRun(run.ID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.FailedIndex != 2 || got.Error != "pattern not found" {
		t.Errorf("Unexpected failure fields: %+v", got)
	}
	if got.Changes[1].Status != ChangeFailed {
		t.Errorf("Expected second change failed, got %s", got.Changes[1].Status)
	}
}

func TestDatabase_FinishUnknownRun(t *testing.T) {
	db := openTestDB(t)

	err := db.FinishRun(&Run{ID: "missing", Status: StatusFailed})
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Expected ErrRunNotFound, got %v", err)
	}

	if _, err := db.GetRun("missing"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Expected ErrRunNotFound, got %v", err)
	}
}

func TestDatabase_ListRuns(t *testing.T) {
	db := openTestDB(t)

	base := time.Now().Add(-time.Hour)
	for i, root := range []string{"/a", "/b", "/a", "/a"} {
		run := testRun(root)
		run.StartedAt = base.Add(time.Duration(i) * time.Minute)
		run.Source = root + "-" + string(rune('0'+i))
		if err := db.StartRun(run); err != nil {
			t.Fatalf("StartRun failed: %v", err)
		}
	}

	all, err := db.ListRuns("", 0)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("Expected 4 runs, got %d", len(all))
	}
	if all[0].Source != "/a-3" {
		t.Errorf("Expected newest first, got %s", all[0].Source)
	}

	filtered, err := db.ListRuns("/a", 2)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(filtered) != 2 {
		t.Fatalf("Expected 2 runs, got %d", len(filtered))
	}
	if filtered[0].Source != "/a-3" || filtered[1].Source != "/a-2" {
		t.Errorf("Unexpected runs: %s, %s", filtered[0].Source, filtered[1].Source)
	}
}

func TestDatabase_DeleteRun(t *testing.T) {
	db := openTestDB(t)

	run := testRun("/srv/project")
	if err := db.StartRun(run); err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}

	if err := db.DeleteRun(run.ID); err != nil {
		t.Fatalf("DeleteRun failed: %v", err)
	}

	if _, err := db.GetRun(run.ID); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Expected ErrRunNotFound after delete, got %v", err)
	}

	changes, err := db.ListChanges(run.ID)
	if err != nil {
		t.Fatalf("ListChanges failed: %v", err)
	}
	if len(changes) != 0 {
		t.Errorf("Expected changes to be deleted with the run, got %d", len(changes))
	}
}
