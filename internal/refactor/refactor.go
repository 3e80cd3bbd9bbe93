// Package refactor drives a batch of changes through the fixed
// apply → record → commit pipeline.
package refactor

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"refactorizor/internal/change"
	"refactorizor/internal/changelog"
)

// DefaultCommitHeader is the first line of every generated commit message
const DefaultCommitHeader = "Refactorizor applied the following changes:"

// ErrEmptyBatch is returned when Execute is called without any changes
var ErrEmptyBatch = errors.New("change batch is empty")

// Applier performs a single change against the filesystem
type Applier interface {
	Apply(index int, c change.Change) (*change.Applied, error)
}

// Recorder appends a record of a fully applied batch to the changelog
type Recorder interface {
	Record(batch change.Batch) error
	// Path is staged alongside the target files
	Path() string
}

// Committer stages paths and creates one commit, returning its id
type Committer interface {
	Commit(paths []string, message string) (string, error)
}

// ApplierFunc adapts a function to the Applier interface
type ApplierFunc func(index int, c change.Change) (*change.Applied, error)

// Apply calls f(index, c)
func (f ApplierFunc) Apply(index int, c change.Change) (*change.Applied, error) {
	return f(index, c)
}

// CommitterFunc adapts a function to the Committer interface
type CommitterFunc func(paths []string, message string) (string, error)

// Commit calls f(paths, message)
func (f CommitterFunc) Commit(paths []string, message string) (string, error) {
	return f(paths, message)
}

// Pipeline holds the three swappable steps. The order in which they run is fixed.
type Pipeline struct {
	Applier   Applier
	Recorder  Recorder
	Committer Committer
	// CommitHeader overrides DefaultCommitHeader when set
	CommitHeader string
	// OnTransition is called on every state change, if set
	OnTransition func(state State, index int)
}

// Report describes how far a batch got
type Report struct {
	State State
	// Index is the zero-based position of the change being applied or that failed
	Index   int
	Applied []*change.Applied
	Commit  string
	Message string
	Staged  []string
}

// Execute applies every change in order, records the batch and commits it.
// The first failing change aborts the batch. Changes already applied are left
// in place; the changelog and repository are only touched once every change
// has succeeded.
func Execute(batch change.Batch, p Pipeline) (*Report, error) {
	report := &Report{State: StateIdle}

	if len(batch) == 0 {
		return report, ErrEmptyBatch
	}
	if p.Applier == nil || p.Recorder == nil || p.Committer == nil {
		return report, fmt.Errorf("pipeline requires an applier, a recorder and a committer")
	}

	for i, c := range batch {
		p.transition(report, StateApplying, i)
		log.Printf("[Processor] applying change %d/%d: %s", i+1, len(batch), c)

		applied, err := p.Applier.Apply(i, c)
		if err != nil {
			p.transition(report, StateFailed, i)
			return report, &BatchError{Index: i, Change: c, Err: err}
		}
		report.Applied = append(report.Applied, applied)
	}

	if err := p.Recorder.Record(batch); err != nil {
		p.transition(report, StateFailed, len(batch))
		return report, fmt.Errorf("update changelog: %w", err)
	}
	p.transition(report, StateLogged, len(batch))

	report.Staged = append([]string{p.Recorder.Path()}, batch.TargetFiles()...)
	report.Message = CommitMessage(p.CommitHeader, batch)

	hash, err := p.Committer.Commit(report.Staged, report.Message)
	if err != nil {
		p.transition(report, StateFailed, len(batch))
		return report, fmt.Errorf("commit changes: %w", err)
	}
	report.Commit = hash
	p.transition(report, StateCommitted, len(batch))

	return report, nil
}

func (p Pipeline) transition(r *Report, state State, index int) {
	r.State = state
	r.Index = index
	if p.OnTransition != nil {
		p.OnTransition(state, index)
	}
}

// CommitMessage builds the header line followed by one line per description
func CommitMessage(header string, batch change.Batch) string {
	if header == "" {
		header = DefaultCommitHeader
	}
	lines := make([]string, 0, len(batch)+1)
	lines = append(lines, header)
	for _, d := range batch.Descriptions() {
		lines = append(lines, changelog.OneLine(d))
	}
	return strings.Join(lines, "\n")
}
