// internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"

	"refactorizor/internal/changelog"
	"refactorizor/internal/refactor"
)

func TestConfig_Load(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	root := t.TempDir()

	cfg, err := Load(root)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.HomeDir == "" {
		t.Error("HomeDir should not be empty")
	}

	if cfg.StateDir == "" {
		t.Error("StateDir should not be empty")
	}

	// Verify StateDir exists
	if _, err := os.Stat(filepath.Join(cfg.StateDir, "checkpoints")); os.IsNotExist(err) {
		t.Error("checkpoints dir should be created")
	}

	if cfg.DatabasePath != filepath.Join(cfg.StateDir, "history.db") {
		t.Errorf("Unexpected database path %s", cfg.DatabasePath)
	}

	if cfg.Project.Changelog != changelog.DefaultFile {
		t.Errorf("Expected default changelog, got %s", cfg.Project.Changelog)
	}
	if cfg.Project.CommitHeader != refactor.DefaultCommitHeader {
		t.Errorf("Expected default commit header, got %s", cfg.Project.CommitHeader)
	}
	if !cfg.CheckpointsEnabled() {
		t.Error("Checkpoints should be enabled by default")
	}
	if cfg.ChangelogPath() != filepath.Join(root, "CODEBASE.md") {
		t.Errorf("Unexpected changelog path %s", cfg.ChangelogPath())
	}
}

func TestConfig_LoadProjectFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	root := t.TempDir()

	content := `changelog: docs/CHANGES.md
commit_header: "Batch edit:"
section_title: Automated Edits
author_name: Bot
author_email: bot@example.com
checkpoints: false
max_checkpoints: 5
`
	if err := os.WriteFile(filepath.Join(root, ProjectFile), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(root)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	p := cfg.Project
	if p.CommitHeader != "Batch edit:" || p.SectionTitle != "Automated Edits" {
		t.Errorf("Unexpected project settings: %+v", p)
	}
	if p.AuthorName != "Bot" || p.AuthorEmail != "bot@example.com" {
		t.Errorf("Unexpected author: %s <%s>", p.AuthorName, p.AuthorEmail)
	}
	if p.MaxCheckpoints != 5 {
		t.Errorf("Expected max_checkpoints 5, got %d", p.MaxCheckpoints)
	}
	if cfg.CheckpointsEnabled() {
		t.Error("Checkpoints should be disabled")
	}
	if cfg.ChangelogPath() != filepath.Join(root, "docs", "CHANGES.md") {
		t.Errorf("Unexpected changelog path %s", cfg.ChangelogPath())
	}
}

func TestConfig_LoadProjectRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), ProjectFile)
	if err := os.WriteFile(path, []byte("changelgo: typo.md\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadProject(path); err == nil {
		t.Error("Expected error for unknown key")
	}
}

func TestConfig_LoadProjectEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ProjectFile)
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}

	p, err := LoadProject(path)
	if err != nil {
		t.Fatalf("LoadProject failed: %v", err)
	}
	if p.Changelog != changelog.DefaultFile {
		t.Errorf("Expected defaults, got %+v", p)
	}
}

func TestConfig_LoadMissingRoot(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	if _, err := Load(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("Expected error for missing root")
	}
}
