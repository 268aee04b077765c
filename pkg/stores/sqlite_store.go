package stores

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db   *sql.DB
	path string
	cfg  Config
}

// Config holds SQLite store configuration
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 25
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 5
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = 5 * time.Minute
	}

	return &SQLiteStore{
		path: cfg.Path,
		cfg:  cfg,
	}, nil
}

// Init initializes the database connection and enables WAL mode.
func (s *SQLiteStore) Init(ctx context.Context) error {
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_txlock=immediate", s.path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(s.cfg.MaxOpenConns)
	db.SetMaxIdleConns(s.cfg.MaxIdleConns)
	db.SetConnMaxLifetime(s.cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	// Ensure foreign keys are enabled (connection-level setting)
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs database migrations.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// BeginTx starts a new transaction
func (s *SQLiteStore) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return s.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelSerializable,
	})
}

// CommitTx commits a transaction
func (s *SQLiteStore) CommitTx(tx *sql.Tx) error {
	return tx.Commit()
}

// RollbackTx rolls back a transaction
func (s *SQLiteStore) RollbackTx(tx *sql.Tx) error {
	return tx.Rollback()
}

// EnsureExecution inserts a stub row so ledger rows can reference the
// execution before its summary is final. Existing rows are left untouched.
func (s *SQLiteStore) EnsureExecution(ctx context.Context, id, task string) error {
	query := `
		INSERT OR IGNORE INTO executions (id, task, created_at)
		VALUES (?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, id, task, time.Now()); err != nil {
		return fmt.Errorf("failed to ensure execution: %w", err)
	}
	return nil
}

// CreateExecution writes the final execution summary record, updating the
// stub row in place if one exists so cascading deletes never fire
func (s *SQLiteStore) CreateExecution(ctx context.Context, exec *Execution) error {
	query := `
		INSERT INTO executions (id, task, success, total_actions, successful_actions, failed_actions, skipped_actions, duration_ms, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			task = excluded.task,
			success = excluded.success,
			total_actions = excluded.total_actions,
			successful_actions = excluded.successful_actions,
			failed_actions = excluded.failed_actions,
			skipped_actions = excluded.skipped_actions,
			duration_ms = excluded.duration_ms,
			error = excluded.error
	`

	_, err := s.db.ExecContext(ctx, query,
		exec.ID,
		exec.Task,
		exec.Success,
		exec.TotalActions,
		exec.SuccessfulActions,
		exec.FailedActions,
		exec.SkippedActions,
		exec.DurationMS,
		exec.Error,
		exec.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create execution: %w", err)
	}

	return nil
}

// GetExecution retrieves an execution by ID
func (s *SQLiteStore) GetExecution(ctx context.Context, id string) (*Execution, error) {
	query := `
		SELECT id, task, success, total_actions, successful_actions, failed_actions, skipped_actions, duration_ms, error, created_at
		FROM executions
		WHERE id = ?
	`

	exec := &Execution{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&exec.ID,
		&exec.Task,
		&exec.Success,
		&exec.TotalActions,
		&exec.SuccessfulActions,
		&exec.FailedActions,
		&exec.SkippedActions,
		&exec.DurationMS,
		&exec.Error,
		&exec.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("execution not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get execution: %w", err)
	}

	return exec, nil
}

// ListExecutions lists executions with pagination, newest first
func (s *SQLiteStore) ListExecutions(ctx context.Context, limit, offset int) ([]*Execution, error) {
	query := `
		SELECT id, task, success, total_actions, successful_actions, failed_actions, skipped_actions, duration_ms, error, created_at
		FROM executions
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}
	defer rows.Close()

	execs := []*Execution{}
	for rows.Next() {
		exec := &Execution{}
		err := rows.Scan(
			&exec.ID,
			&exec.Task,
			&exec.Success,
			&exec.TotalActions,
			&exec.SuccessfulActions,
			&exec.FailedActions,
			&exec.SkippedActions,
			&exec.DurationMS,
			&exec.Error,
			&exec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}
		execs = append(execs, exec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating executions: %w", err)
	}

	return execs, nil
}

// DeleteExecution deletes an execution and, through foreign keys, its ledger rows
func (s *SQLiteStore) DeleteExecution(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM executions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete execution: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("execution not found: %s", id)
	}

	return nil
}

// CreateActionResult appends one ledger row
func (s *SQLiteStore) CreateActionResult(ctx context.Context, result *ActionResult) error {
	query := `
		INSERT INTO action_results (execution_id, step, action_id, action_type, status, data, error, duration_ms, retry_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	res, err := s.db.ExecContext(ctx, query,
		result.ExecutionID,
		result.Step,
		result.ActionID,
		result.ActionType,
		result.Status,
		result.Data,
		result.Error,
		result.DurationMS,
		result.RetryCount,
		result.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create action result: %w", err)
	}

	if id, err := res.LastInsertId(); err == nil {
		result.ID = id
	}
	return nil
}

// ListActionResults returns the ledger rows for an execution in step order
func (s *SQLiteStore) ListActionResults(ctx context.Context, executionID string) ([]*ActionResult, error) {
	query := `
		SELECT id, execution_id, step, action_id, action_type, status, data, error, duration_ms, retry_count, created_at
		FROM action_results
		WHERE execution_id = ?
		ORDER BY step ASC
	`

	rows, err := s.db.QueryContext(ctx, query, executionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list action results: %w", err)
	}
	defer rows.Close()

	results := []*ActionResult{}
	for rows.Next() {
		r := &ActionResult{}
		err := rows.Scan(
			&r.ID,
			&r.ExecutionID,
			&r.Step,
			&r.ActionID,
			&r.ActionType,
			&r.Status,
			&r.Data,
			&r.Error,
			&r.DurationMS,
			&r.RetryCount,
			&r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan action result: %w", err)
		}
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating action results: %w", err)
	}

	return results, nil
}

// AppendEvent appends an event to the append-only log
func (s *SQLiteStore) AppendEvent(ctx context.Context, event *Event) error {
	query := `
		INSERT INTO events (execution_id, step, action_type, type, severity, message, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	res, err := s.db.ExecContext(ctx, query,
		event.ExecutionID,
		event.Step,
		event.ActionType,
		event.Type,
		event.Severity,
		event.Message,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}

	if id, err := res.LastInsertId(); err == nil {
		event.ID = id
	}
	return nil
}

// GetEvents retrieves events with optional execution and severity filters
func (s *SQLiteStore) GetEvents(ctx context.Context, executionID *string, severity *string, limit, offset int) ([]*Event, error) {
	query := `
		SELECT id, execution_id, step, action_type, type, severity, message, timestamp
		FROM events
		WHERE 1=1
	`
	args := []interface{}{}

	if executionID != nil {
		query += ` AND execution_id = ?`
		args = append(args, *executionID)
	}
	if severity != nil {
		query += ` AND severity = ?`
		args = append(args, *severity)
	}

	query += ` ORDER BY timestamp DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	defer rows.Close()

	events := []*Event{}
	for rows.Next() {
		e := &Event{}
		err := rows.Scan(
			&e.ID,
			&e.ExecutionID,
			&e.Step,
			&e.ActionType,
			&e.Type,
			&e.Severity,
			&e.Message,
			&e.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	return events, nil
}

// CreateTokenUsage records one model call
func (s *SQLiteStore) CreateTokenUsage(ctx context.Context, usage *TokenUsage) error {
	query := `
		INSERT INTO token_usage (model, operation, prompt_tokens, completion_tokens, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`

	if usage.Timestamp.IsZero() {
		usage.Timestamp = time.Now()
	}

	res, err := s.db.ExecContext(ctx, query,
		usage.Model,
		usage.Operation,
		usage.PromptTokens,
		usage.CompletionTokens,
		usage.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to create token usage: %w", err)
	}

	if id, err := res.LastInsertId(); err == nil {
		usage.ID = id
	}
	return nil
}

// GetTokenTotals aggregates token consumption since the given time
func (s *SQLiteStore) GetTokenTotals(ctx context.Context, since time.Time) (*TokenTotals, error) {
	query := `
		SELECT COUNT(*), COALESCE(SUM(prompt_tokens), 0), COALESCE(SUM(completion_tokens), 0)
		FROM token_usage
		WHERE timestamp >= ?
	`

	totals := &TokenTotals{}
	err := s.db.QueryRowContext(ctx, query, since).Scan(
		&totals.Requests,
		&totals.PromptTokens,
		&totals.CompletionTokens,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get token totals: %w", err)
	}

	return totals, nil
}

// HealthCheck verifies the database is reachable
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}
	return s.db.PingContext(ctx)
}
