// internal/history/db.go
package history

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrRunNotFound is returned when a run id is unknown
var ErrRunNotFound = errors.New("run not found")

// Database wraps the SQLite run history
type Database struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path
func Open(path string) (*Database, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, err
	}

	d := &Database{db: db}
	if err := d.init(); err != nil {
		db.Close()
		return nil, err
	}

	return d, nil
}

// init creates the database schema
func (d *Database) init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS batch_runs (
		id TEXT PRIMARY KEY,
		root TEXT NOT NULL,
		source TEXT NOT NULL DEFAULT '',
		change_count INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'running',
		failed_index INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		commit_hash TEXT NOT NULL DEFAULT '',
		checkpoint_id TEXT NOT NULL DEFAULT '',
		started_at INTEGER NOT NULL,
		finished_at INTEGER
	);

	CREATE TABLE IF NOT EXISTS batch_changes (
		run_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		description TEXT NOT NULL,
		target_file TEXT NOT NULL,
		change_type TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		PRIMARY KEY (run_id, position),
		FOREIGN KEY (run_id) REFERENCES batch_runs(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_batch_runs_root ON batch_runs(root);
	CREATE INDEX IF NOT EXISTS idx_batch_runs_started ON batch_runs(started_at);
	`

	_, err := d.db.Exec(schema)
	return err
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.db.Close()
}

// StartRun inserts a run and its changes. An empty ID is filled with a new UUID.
func (d *Database) StartRun(run *Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	if run.Status == "" {
		run.Status = StatusRunning
	}
	run.ChangeCount = len(run.Changes)

	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO batch_runs (id, root, source, change_count, status, failed_index, error, commit_hash, checkpoint_id, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Root, run.Source, run.ChangeCount, run.Status, run.FailedIndex,
		run.Error, run.CommitHash, run.CheckpointID, run.StartedAt.Unix(), nullableTime(run.FinishedAt))
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i := range run.Changes {
		c := &run.Changes[i]
		c.RunID = run.ID
		c.Position = i + 1
		if c.Status == "" {
			c.Status = ChangePending
		}
		_, err := tx.Exec(`
			INSERT INTO batch_changes (run_id, position, description, target_file, change_type, status)
			VALUES (?, ?, ?, ?, ?, ?)`,
			c.RunID, c.Position, c.Description, c.TargetFile, c.ChangeType, c.Status)
		if err != nil {
			return fmt.Errorf("insert change %d: %w", c.Position, err)
		}
	}

	return tx.Commit()
}

// FinishRun stores the outcome of a run and the status of each of its changes
func (d *Database) FinishRun(run *Run) error {
	if run.FinishedAt == nil {
		now := time.Now()
		run.FinishedAt = &now
	}

	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		UPDATE batch_runs SET status = ?, failed_index = ?, error = ?, commit_hash = ?, checkpoint_id = ?, finished_at = ?
		WHERE id = ?`,
		run.Status, run.FailedIndex, run.Error, run.CommitHash, run.CheckpointID,
		nullableTime(run.FinishedAt), run.ID)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrRunNotFound
	}

	for _, c := range run.Changes {
		_, err := tx.Exec(`UPDATE batch_changes SET status = ? WHERE run_id = ? AND position = ?`,
			c.Status, run.ID, c.Position)
		if err != nil {
			return fmt.Errorf("update change %d: %w", c.Position, err)
		}
	}

	return tx.Commit()
}

// GetRun retrieves a run and its changes by ID
func (d *Database) GetRun(id string) (*Run, error) {
	row := d.db.QueryRow(`
		SELECT id, root, source, change_count, status, failed_index, error, commit_hash, checkpoint_id, started_at, finished_at
		FROM batch_runs WHERE id = ?`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}

	run.Changes, err = d.ListChanges(id)
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns retrieves the latest runs, optionally filtered by project root
func (d *Database) ListRuns(root string, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = -1
	}

	var query string
	var args []interface{}

	if root != "" {
		query = `SELECT id, root, source, change_count, status, failed_index, error, commit_hash, checkpoint_id, started_at, finished_at
			FROM batch_runs WHERE root = ? ORDER BY started_at DESC, rowid DESC LIMIT ?`
		args = []interface{}{root, limit}
	} else {
		query = `SELECT id, root, source, change_count, status, failed_index, error, commit_hash, checkpoint_id, started_at, finished_at
			FROM batch_runs ORDER BY started_at DESC, rowid DESC LIMIT ?`
		args = []interface{}{limit}
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ListChanges retrieves the changes of a run in batch order
func (d *Database) ListChanges(runID string) ([]RunChange, error) {
	rows, err := d.db.Query(`
		SELECT run_id, position, description, target_file, change_type, status
		FROM batch_changes WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var changes []RunChange
	for rows.Next() {
		var c RunChange
		if err := rows.Scan(&c.RunID, &c.Position, &c.Description, &c.TargetFile, &c.ChangeType, &c.Status); err != nil {
			return nil, err
		}
		changes = append(changes, c)
	}
	return changes, rows.Err()
}

// DeleteRun deletes a run and its changes
func (d *Database) DeleteRun(id string) error {
	_, err := d.db.Exec("DELETE FROM batch_runs WHERE id = ?", id)
	return err
}

// Helper functions

type scanner interface {
	Scan(dest ...interface{}) error
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Unix()
}

func scanRun(row scanner) (*Run, error) {
	run := &Run{}
	var startedAt int64
	var finishedAt sql.NullInt64

	err := row.Scan(&run.ID, &run.Root, &run.Source, &run.ChangeCount, &run.Status,
		&run.FailedIndex, &run.Error, &run.CommitHash, &run.CheckpointID,
		&startedAt, &finishedAt)
	if err != nil {
		return nil, err
	}

	run.StartedAt = time.Unix(startedAt, 0)
	if finishedAt.Valid {
		t := time.Unix(finishedAt.Int64, 0)
		run.FinishedAt = &t
	}

	return run, nil
}
