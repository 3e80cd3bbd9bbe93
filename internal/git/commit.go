package git

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Identity is the fallback author used when the repository has no user configured
type Identity struct {
	Name  string
	Email string
}

// DefaultIdentity is used when neither git config nor the project config names an author
var DefaultIdentity = Identity{Name: "refactorizor", Email: "refactorizor@localhost"}

// StagedPaths returns the paths currently staged in the index
func (r *Repo) StagedPaths() ([]string, error) {
	status, err := r.Status()
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(status.Staged))
	for _, fs := range status.Staged {
		paths = append(paths, fs.Path)
	}
	return paths, nil
}

// Stage adds the given filesystem paths to the index
func (r *Repo) Stage(paths []string) error {
	worktree, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}

	for _, p := range paths {
		rel, err := r.RelPath(p)
		if err != nil {
			return err
		}
		if _, err := worktree.Add(rel); err != nil {
			return fmt.Errorf("failed to stage %s: %w", rel, err)
		}
	}
	return nil
}

// Commit records the index as a new commit and returns its hash.
// The author comes from git config; fallback is used when none is set.
func (r *Repo) Commit(message string, fallback Identity) (string, error) {
	worktree, err := r.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("failed to get worktree: %w", err)
	}

	hash, err := worktree.Commit(message, &git.CommitOptions{})
	if errors.Is(err, git.ErrMissingAuthor) {
		if fallback.Name == "" || fallback.Email == "" {
			fallback = DefaultIdentity
		}
		log.Printf("[Git] no author configured, committing as %s <%s>", fallback.Name, fallback.Email)
		hash, err = worktree.Commit(message, &git.CommitOptions{
			Author: &object.Signature{
				Name:  fallback.Name,
				Email: fallback.Email,
				When:  time.Now(),
			},
		})
	}
	if err != nil {
		return "", fmt.Errorf("failed to commit: %w", err)
	}

	return hash.String(), nil
}

// Committer stages a known set of paths and commits them.
// Relative paths are resolved against root, which may be a subdirectory of
// the working tree.
type Committer struct {
	repo     *Repo
	root     string
	identity Identity
}

// NewCommitter creates a Committer for repo
func NewCommitter(repo *Repo, root string, identity Identity) *Committer {
	return &Committer{repo: repo, root: root, identity: identity}
}

// Commit stages paths and creates exactly one commit with message
func (c *Committer) Commit(paths []string, message string) (string, error) {
	resolved := make([]string, len(paths))
	for i, p := range paths {
		if filepath.IsAbs(p) {
			resolved[i] = p
		} else {
			resolved[i] = filepath.Join(c.root, p)
		}
	}

	if err := c.repo.Stage(resolved); err != nil {
		return "", err
	}

	hash, err := c.repo.Commit(message, c.identity)
	if err != nil {
		return "", err
	}
	log.Printf("[Git] committed %d path(s) as %s", len(paths), shortHash(hash))
	return hash, nil
}

func shortHash(hash string) string {
	if len(hash) > 7 {
		return hash[:7]
	}
	return hash
}
