// Package ledger records pipeline state transitions in an in-memory SQLite
// database. Nothing survives the process.
package ledger

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

const schemaVersion = 1

// ErrNotFound reports an unknown request id.
var ErrNotFound = errors.New("run not found")

// Transition is one state change of a pipeline run.
type Transition struct {
	RequestID string    `json:"request_id"`
	CacheKey  string    `json:"cache_key"`
	Task      string    `json:"task"`
	Input     string    `json:"input"`
	State     string    `json:"state"`
	Stage     string    `json:"stage,omitempty"`
	Error     string    `json:"error,omitempty"`
	ErrorKind string    `json:"error_kind,omitempty"`
	At        time.Time `json:"at"`
}

// Summary is the latest known state of a run.
type Summary struct {
	RequestID string    `json:"request_id"`
	CacheKey  string    `json:"cache_key"`
	Task      string    `json:"task"`
	Input     string    `json:"input"`
	State     string    `json:"state"`
	Stage     string    `json:"stage,omitempty"`
	Error     string    `json:"error,omitempty"`
	ErrorKind string    `json:"error_kind,omitempty"`
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Detail is a run summary plus its full transition history.
type Detail struct {
	Summary
	Transitions []Transition `json:"transitions"`
}

// Ledger is the run ledger.
type Ledger struct {
	db *sql.DB
}

// Open creates a fresh in-memory ledger.
func Open(ctx context.Context) (*Ledger, error) {
	dsn := fmt.Sprintf("file:ledger-%s?mode=memory&cache=shared", uuid.NewString())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open ledger db: %w", err)
	}
	// The database lives only as long as a connection does.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	l := &Ledger{db: db}
	if err := l.createSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return l, nil
}

func (l *Ledger) createSchema(ctx context.Context) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// Close releases the database. All recorded runs are discarded.
func (l *Ledger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

// Record appends a transition.
func (l *Ledger) Record(ctx context.Context, tr Transition) error {
	if tr.RequestID == "" {
		return errors.New("ledger: request id required")
	}
	if tr.At.IsZero() {
		tr.At = time.Now()
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO transitions (request_id, cache_key, task, input, state, stage, error, error_kind, at_unix_ns)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tr.RequestID, tr.CacheKey, tr.Task, tr.Input, tr.State, tr.Stage,
		nullableString(tr.Error), nullableString(tr.ErrorKind), tr.At.UTC().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("record transition: %w", err)
	}
	return nil
}

const summaryQuery = `
SELECT t.request_id, t.cache_key, t.task, t.input, t.state, t.stage, t.error, t.error_kind,
       first.at_unix_ns, t.at_unix_ns
FROM transitions t
JOIN (SELECT request_id, MIN(id) AS first_id, MAX(id) AS last_id FROM transitions GROUP BY request_id) agg
  ON t.id = agg.last_id
JOIN transitions first ON first.id = agg.first_id`

// Runs returns the most recently updated runs, newest first. A limit of zero
// or less returns every run.
func (l *Ledger) Runs(ctx context.Context, limit int) ([]Summary, error) {
	query := summaryQuery + " ORDER BY t.id DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Run returns one run with its transition history.
func (l *Ledger) Run(ctx context.Context, requestID string) (Detail, error) {
	row := l.db.QueryRowContext(ctx, summaryQuery+" WHERE t.request_id = ?", requestID)
	summary, err := scanSummary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Detail{}, fmt.Errorf("%w: %s", ErrNotFound, requestID)
	}
	if err != nil {
		return Detail{}, err
	}

	rows, err := l.db.QueryContext(ctx,
		`SELECT request_id, cache_key, task, input, state, stage, error, error_kind, at_unix_ns
         FROM transitions WHERE request_id = ? ORDER BY id`, requestID)
	if err != nil {
		return Detail{}, fmt.Errorf("list transitions: %w", err)
	}
	defer rows.Close()

	detail := Detail{Summary: summary}
	for rows.Next() {
		var (
			tr        Transition
			errText   sql.NullString
			errorKind sql.NullString
			at        int64
		)
		if err := rows.Scan(&tr.RequestID, &tr.CacheKey, &tr.Task, &tr.Input, &tr.State, &tr.Stage, &errText, &errorKind, &at); err != nil {
			return Detail{}, fmt.Errorf("scan transition: %w", err)
		}
		tr.Error = errText.String
		tr.ErrorKind = errorKind.String
		tr.At = time.Unix(0, at).UTC()
		detail.Transitions = append(detail.Transitions, tr)
	}
	return detail, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSummary(row scanner) (Summary, error) {
	var (
		s         Summary
		errText   sql.NullString
		errorKind sql.NullString
		started   int64
		updated   int64
	)
	if err := row.Scan(&s.RequestID, &s.CacheKey, &s.Task, &s.Input, &s.State, &s.Stage, &errText, &errorKind, &started, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Summary{}, err
		}
		return Summary{}, fmt.Errorf("scan run: %w", err)
	}
	s.Error = errText.String
	s.ErrorKind = errorKind.String
	s.StartedAt = time.Unix(0, started).UTC()
	s.UpdatedAt = time.Unix(0, updated).UTC()
	return s, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
