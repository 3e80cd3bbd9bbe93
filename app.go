// app.go
package main

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"sort"
	"strings"

	"refactorizor/internal/apply"
	"refactorizor/internal/change"
	"refactorizor/internal/changelog"
	"refactorizor/internal/checkpoint"
	"refactorizor/internal/cli"
	"refactorizor/internal/config"
	"refactorizor/internal/diff"
	"refactorizor/internal/git"
	"refactorizor/internal/history"
	"refactorizor/internal/refactor"
	"refactorizor/internal/source"
	"refactorizor/internal/ui"
)

// checkpointCompression is the zstd level used for checkpoint content
const checkpointCompression = 3

// App struct contains the resolved configuration and the managers a run needs
type App struct {
	opts   *cli.Config
	config *config.Config

	// Core managers
	dbManager         *history.Database
	checkpointManager *checkpoint.Manager
	sourceProvider    *source.SourceProvider
}

// NewApp loads configuration and opens the history database and checkpoint store
func NewApp(opts *cli.Config) (*App, error) {
	cfg, err := config.Load(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if opts.Changelog != "" {
		cfg.Project.Changelog = opts.Changelog
	}

	a := &App{
		opts:           opts,
		config:         cfg,
		sourceProvider: source.New(),
	}

	// History is best effort; a broken database must not block edits
	db, err := history.Open(cfg.DatabasePath)
	if err != nil {
		log.Printf("[App] Failed to open history database: %v", err)
	} else {
		a.dbManager = db
	}

	storage := checkpoint.NewStorage(cfg.CheckpointDir, checkpointCompression)
	a.checkpointManager = checkpoint.NewManager(storage, cfg.Root)
	a.checkpointManager.MaxCheckpoints = cfg.Project.MaxCheckpoints

	log.Printf("[App] root=%s changelog=%s", cfg.Root, cfg.ChangelogPath())
	return a, nil
}

// Shutdown releases the history database
func (a *App) Shutdown() {
	if a.dbManager != nil {
		if err := a.dbManager.Close(); err != nil {
			log.Printf("[App] Failed to close history database: %v", err)
		}
	}
}

// Execute dispatches to the command selected on the command line
func (a *App) Execute() error {
	switch a.opts.Command() {
	case "restore":
		return a.Restore(a.opts.Restore)
	case "checkpoints":
		return a.ListCheckpoints()
	case "history":
		return a.PrintHistory(a.opts.History)
	case "log":
		return a.PrintLog(a.opts.Log)
	default:
		_, err := a.Run()
		return err
	}
}

// Run reads the batch, applies it, records it in the changelog and commits it
func (a *App) Run() (*refactor.Report, error) {
	src, err := a.sourceProvider.GetContent(a.opts.Batch, a.opts.Clipboard)
	if err != nil {
		return nil, err
	}
	batch, err := src.Batch()
	if err != nil {
		return nil, err
	}
	log.Printf("[App] loaded %d change(s) from %s", len(batch), src.Name)

	repo, err := git.Open(a.config.Root)
	if err != nil {
		return nil, err
	}
	log.Printf("[App] repository %s", repo.Root())
	paths, err := a.batchPaths(repo, batch)
	if err != nil {
		return nil, err
	}
	if err := checkIndex(repo, paths); err != nil {
		return nil, err
	}

	run := a.startRun(src.Name, batch)

	if a.config.CheckpointsEnabled() && !a.opts.NoCheckpoint {
		paths := append([]string{a.config.ChangelogPath()}, batch.TargetFiles()...)
		result, err := a.checkpointManager.Capture(paths, "before "+src.Name)
		if err != nil {
			ui.Warning("Checkpoint skipped: %v", err)
		} else {
			if run != nil {
				run.CheckpointID = result.Checkpoint.ID
			}
			for _, w := range result.Warnings {
				ui.Warning("%s", w)
			}
		}
	}

	pipeline := refactor.Pipeline{
		Applier:      apply.NewFileApplier(a.config.Root),
		Recorder:     changelog.NewWriter(a.config.ChangelogPath(), a.config.Project.SectionTitle),
		Committer:    git.NewCommitter(repo, a.config.Root, a.identity()),
		CommitHeader: a.config.Project.CommitHeader,
		OnTransition: func(state refactor.State, index int) {
			log.Printf("[App] state=%s index=%d", state, index)
		},
	}

	report, runErr := refactor.Execute(batch, pipeline)
	a.finishRun(run, report, runErr)
	a.printReport(batch, report, runErr)

	if runErr != nil {
		if run != nil && run.CheckpointID != "" && len(report.Applied) > 0 {
			ui.Info("Files as they were before this run: --restore %s", run.CheckpointID)
		}
		return report, runErr
	}

	if branch, err := repo.CurrentBranch(); err == nil && branch != "" {
		ui.Success("Committed %s on %s, recorded in %s", shortCommit(report.Commit), branch, a.changelogName())
	} else {
		ui.Success("Committed %s, recorded in %s", shortCommit(report.Commit), a.changelogName())
	}
	if deleted, err := a.checkpointManager.CleanupOld(); err != nil {
		log.Printf("[App] checkpoint cleanup failed: %v", err)
	} else if deleted > 0 {
		log.Printf("[App] removed %d old checkpoint(s)", deleted)
	}
	return report, nil
}

// batchPaths maps the changelog and every target file to its path in the
// repository. A target outside the project root or the working tree rejects
// the batch before anything is applied.
func (a *App) batchPaths(repo *git.Repo, batch change.Batch) (map[string]bool, error) {
	applier := apply.NewFileApplier(a.config.Root)
	paths := make(map[string]bool)

	for _, target := range batch.TargetFiles() {
		abs, err := applier.Resolve(target)
		if err != nil {
			return nil, err
		}
		rel, err := repo.RelPath(abs)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", change.ErrOutsideRoot, target, err)
		}
		paths[rel] = true
	}

	rel, err := repo.RelPath(a.config.ChangelogPath())
	if err != nil {
		return nil, fmt.Errorf("changelog %s: %w", a.config.ChangelogPath(), err)
	}
	paths[rel] = true

	return paths, nil
}

// checkIndex refuses to run when the index holds staged changes outside the
// batch, since the commit would sweep them in.
func checkIndex(repo *git.Repo, allowed map[string]bool) error {
	staged, err := repo.StagedPaths()
	if err != nil {
		return err
	}

	var unrelated []string
	for _, p := range staged {
		if !allowed[p] {
			unrelated = append(unrelated, p)
		}
	}
	if len(unrelated) > 0 {
		sort.Strings(unrelated)
		return fmt.Errorf("index has staged changes outside this batch: %s", strings.Join(unrelated, ", "))
	}
	return nil
}

func shortCommit(hash string) string {
	if len(hash) > 7 {
		return hash[:7]
	}
	return hash
}

func (a *App) identity() git.Identity {
	id := git.DefaultIdentity
	if a.config.Project.AuthorName != "" {
		id.Name = a.config.Project.AuthorName
	}
	if a.config.Project.AuthorEmail != "" {
		id.Email = a.config.Project.AuthorEmail
	}
	return id
}

func (a *App) changelogName() string {
	if rel, err := filepath.Rel(a.config.Root, a.config.ChangelogPath()); err == nil {
		return rel
	}
	return a.config.ChangelogPath()
}

func (a *App) startRun(sourceName string, batch change.Batch) *history.Run {
	if a.dbManager == nil {
		return nil
	}

	run := &history.Run{
		Root:   a.config.Root,
		Source: sourceName,
	}
	for _, c := range batch {
		run.Changes = append(run.Changes, history.RunChange{
			Description: changelog.OneLine(c.Description),
			TargetFile:  c.TargetFile,
			ChangeType:  string(c.Type),
		})
	}

	if err := a.dbManager.StartRun(run); err != nil {
		log.Printf("[App] Failed to record run: %v", err)
		return nil
	}
	return run
}

func (a *App) finishRun(run *history.Run, report *refactor.Report, runErr error) {
	if run == nil {
		return
	}

	for i := range run.Changes {
		if i < len(report.Applied) {
			run.Changes[i].Status = history.ChangeApplied
		}
	}

	var batchErr *refactor.BatchError
	switch {
	case runErr == nil:
		run.Status = history.StatusCommitted
		run.CommitHash = report.Commit
	case errors.As(runErr, &batchErr):
		run.Status = history.StatusFailed
		run.FailedIndex = batchErr.Index + 1
		run.Error = batchErr.Err.Error()
		run.Changes[batchErr.Index].Status = history.ChangeFailed
	default:
		run.Status = history.StatusFailed
		run.Error = runErr.Error()
	}

	if err := a.dbManager.FinishRun(run); err != nil {
		log.Printf("[App] Failed to record run result: %v", err)
	}
}

func (a *App) printReport(batch change.Batch, report *refactor.Report, runErr error) {
	var lines []ui.ChangeLine
	for _, applied := range report.Applied {
		added, removed := diff.Stat(applied.Diff)
		lines = append(lines, ui.ChangeLine{
			Index:       applied.Index + 1,
			Description: changelog.OneLine(applied.Change.Description),
			TargetFile:  applied.Change.TargetFile,
			Added:       added,
			Removed:     removed,
		})
	}

	var failed *ui.ChangeLine
	var cause error = runErr
	var batchErr *refactor.BatchError
	if errors.As(runErr, &batchErr) {
		failed = &ui.ChangeLine{
			Index:       batchErr.Index + 1,
			Description: changelog.OneLine(batchErr.Change.Description),
			TargetFile:  batchErr.Change.TargetFile,
		}
		cause = batchErr.Err
	}

	ui.PrintApplySummary(lines, len(batch), failed, cause)
	if failed == nil && runErr != nil {
		ui.Error("%v", runErr)
	}

	if a.opts.Diff {
		for _, applied := range report.Applied {
			if applied.Diff != "" {
				ui.Diff(applied.Diff)
			}
		}
	}
}

// Restore writes the files captured by a checkpoint back to disk
func (a *App) Restore(id string) error {
	result, err := a.checkpointManager.Restore(id)
	if err != nil {
		return err
	}
	ui.PrintRestoreSummary(result.FilesProcessed, result.Warnings)
	if len(result.Warnings) > 0 {
		return fmt.Errorf("checkpoint %s restored with %d warning(s)", result.Checkpoint.ID, len(result.Warnings))
	}
	return nil
}

// ListCheckpoints prints the checkpoints captured for the project root
func (a *App) ListCheckpoints() error {
	checkpoints, err := a.checkpointManager.List()
	if err != nil {
		return err
	}

	ui.Header("--- Checkpoints for %s ---", a.config.Root)
	if len(checkpoints) == 0 {
		ui.Faint("No checkpoints.")
		return nil
	}
	for _, cp := range checkpoints {
		ui.Info("%s  %s  %d file(s)", cp.ID, cp.Timestamp.Format("2006-01-02 15:04:05"), cp.FileCount)
		if cp.Description != "" {
			ui.Faint("    %s", cp.Description)
		}
	}
	return nil
}

// PrintHistory prints the latest recorded runs for the project root
func (a *App) PrintHistory(limit int) error {
	if a.dbManager == nil {
		return errors.New("history database is unavailable")
	}

	runs, err := a.dbManager.ListRuns(a.config.Root, limit)
	if err != nil {
		return err
	}

	ui.Header("--- Runs for %s ---", a.config.Root)
	if len(runs) == 0 {
		ui.Faint("No runs recorded.")
		return nil
	}
	for _, run := range runs {
		when := run.StartedAt.Format("2006-01-02 15:04:05")
		switch run.Status {
		case history.StatusCommitted:
			ui.Success("%s  %s  %d change(s) from %s, commit %s", when, run.Status, run.ChangeCount, run.Source, run.CommitHash)
		case history.StatusFailed:
			if run.FailedIndex > 0 {
				ui.Error("%s  %s at change %d/%d from %s: %s", when, run.Status, run.FailedIndex, run.ChangeCount, run.Source, run.Error)
			} else {
				ui.Error("%s  %s from %s: %s", when, run.Status, run.Source, run.Error)
			}
		default:
			ui.Warning("%s  %s  %d change(s) from %s", when, run.Status, run.ChangeCount, run.Source)
		}
		if run.CheckpointID != "" {
			ui.Faint("    checkpoint %s", run.CheckpointID)
		}
	}
	return nil
}

// PrintLog prints the latest sections of the changelog
func (a *App) PrintLog(limit int) error {
	sections, err := changelog.ReadSections(a.config.ChangelogPath())
	if err != nil {
		return err
	}

	ui.Header("--- %s ---", a.changelogName())
	if len(sections) == 0 {
		ui.Faint("No sections.")
		return nil
	}
	if len(sections) > limit {
		sections = sections[len(sections)-limit:]
	}
	for i := len(sections) - 1; i >= 0; i-- {
		s := sections[i]
		if s.Date.IsZero() {
			ui.Info("%s", s.Title)
		} else {
			ui.Info("%s (%s)", s.Title, s.Date.Format("2006-01-02"))
		}
		for _, item := range s.Items {
			ui.Path("- %s", item)
		}
	}
	return nil
}
