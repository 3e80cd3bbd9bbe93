// internal/config/config.go
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"refactorizor/internal/changelog"
	"refactorizor/internal/checkpoint"
	"refactorizor/internal/refactor"
)

// ProjectFile is the optional per-project settings file
const ProjectFile = ".refactorizor.yaml"

// Config holds all application configuration paths and project settings
type Config struct {
	HomeDir       string
	StateDir      string
	CheckpointDir string
	DatabasePath  string
	Root          string
	Project       Project
}

// Project holds settings read from ProjectFile
type Project struct {
	Changelog      string `yaml:"changelog"`
	CommitHeader   string `yaml:"commit_header"`
	SectionTitle   string `yaml:"section_title"`
	AuthorName     string `yaml:"author_name"`
	AuthorEmail    string `yaml:"author_email"`
	Checkpoints    *bool  `yaml:"checkpoints"`
	MaxCheckpoints int    `yaml:"max_checkpoints"`
}

// Load creates a Config instance with resolved paths for the project at root
func Load(root string) (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	if root == "" {
		root = "."
	}
	root, err = filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("project root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("project root %s is not a directory", root)
	}

	stateDir := filepath.Join(home, ".refactorizor")

	// Ensure directories exist
	for _, dir := range []string{stateDir, filepath.Join(stateDir, "checkpoints")} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	project, err := LoadProject(filepath.Join(root, ProjectFile))
	if err != nil {
		return nil, err
	}

	return &Config{
		HomeDir:       home,
		StateDir:      stateDir,
		CheckpointDir: stateDir,
		DatabasePath:  filepath.Join(stateDir, "history.db"),
		Root:          root,
		Project:       *project,
	}, nil
}

// LoadProject reads project settings from path, filling in defaults.
// A missing or empty file yields the defaults.
func LoadProject(path string) (*Project, error) {
	project := &Project{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}

	if len(data) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(project); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
		}
	}

	project.applyDefaults()
	return project, nil
}

func (p *Project) applyDefaults() {
	if p.Changelog == "" {
		p.Changelog = changelog.DefaultFile
	}
	if p.CommitHeader == "" {
		p.CommitHeader = refactor.DefaultCommitHeader
	}
	if p.SectionTitle == "" {
		p.SectionTitle = changelog.DefaultTitle
	}
	if p.MaxCheckpoints == 0 {
		p.MaxCheckpoints = checkpoint.DefaultMaxCheckpoints
	}
}

// ChangelogPath returns the changelog location, resolved against the root
func (c *Config) ChangelogPath() string {
	if filepath.IsAbs(c.Project.Changelog) {
		return c.Project.Changelog
	}
	return filepath.Join(c.Root, c.Project.Changelog)
}

// CheckpointsEnabled reports whether pre-apply checkpoints are taken
func (c *Config) CheckpointsEnabled() bool {
	return c.Project.Checkpoints == nil || *c.Project.Checkpoints
}
