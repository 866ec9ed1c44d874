// Package journal keeps the modification history in SQLite.
package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/wavecut/wavecut-editor/internal/domain"
	"github.com/wavecut/wavecut-editor/internal/errors"
	"github.com/wavecut/wavecut-editor/internal/id"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Default and maximum page sizes for List.
const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// Journal records every submitted modification and its outcome.
type Journal struct {
	db     *sql.DB
	logger *slog.Logger
}

// Filter selects journal entries. Empty fields match everything.
type Filter struct {
	SessionID string
	ProjectID string
	BatchID   string
	Limit     int
}

// Open creates or opens the journal database at path.
// It configures WAL mode, sets pragmas, and applies the schema.
func Open(path string, logger *slog.Logger) (*Journal, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	return &Journal{db: db, logger: logger}, nil
}

// Close closes the underlying database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record inserts rec, assigning an id and timestamp when missing.
func (j *Journal) Record(ctx context.Context, rec *domain.ModificationRecord) error {
	if rec.ID == "" {
		rid, err := id.Generate(id.Journal)
		if err != nil {
			return err
		}
		rec.ID = rid
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO modifications (
			id, session_id, project_id, batch_id, kind, summary,
			start_time, end_time, word, outcome, audio_url, error,
			duration_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.SessionID,
		rec.ProjectID,
		nullString(rec.BatchID),
		string(rec.Kind),
		rec.Summary,
		nullFloat(rec.Start),
		nullFloat(rec.End),
		nullString(rec.Word),
		string(rec.Outcome),
		nullString(rec.AudioURL),
		nullString(rec.Error),
		rec.DurationMS,
		formatTime(rec.CreatedAt),
	)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "record modification")
	}
	return nil
}

// recordColumns must match the scan order in scanRecord.
const recordColumns = `id, session_id, project_id, batch_id, kind, summary,
	start_time, end_time, word, outcome, audio_url, error, duration_ms, created_at`

// List returns matching entries, newest first.
func (j *Journal) List(ctx context.Context, f Filter) ([]domain.ModificationRecord, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	limit = min(limit, MaxLimit)

	query := `SELECT ` + recordColumns + ` FROM modifications WHERE 1=1`
	var args []any
	if f.SessionID != "" {
		query += ` AND session_id = ?`
		args = append(args, f.SessionID)
	}
	if f.ProjectID != "" {
		query += ` AND project_id = ?`
		args = append(args, f.ProjectID)
	}
	if f.BatchID != "" {
		query += ` AND batch_id = ?`
		args = append(args, f.BatchID)
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "list modifications")
	}
	defer rows.Close()

	var out []domain.ModificationRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInternal, "scan modification")
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "list modifications")
	}
	return out, nil
}

// Get returns one entry by id.
func (j *Journal) Get(ctx context.Context, recordID string) (*domain.ModificationRecord, error) {
	row := j.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM modifications WHERE id = ?`, recordID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFoundf("modification %s not found", recordID)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "get modification")
	}
	return rec, nil
}

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*domain.ModificationRecord, error) {
	var (
		rec       domain.ModificationRecord
		kind      string
		outcome   string
		batchID   sql.NullString
		start     sql.NullFloat64
		end       sql.NullFloat64
		word      sql.NullString
		audioURL  sql.NullString
		errText   sql.NullString
		createdAt string
	)

	err := scanner.Scan(
		&rec.ID,
		&rec.SessionID,
		&rec.ProjectID,
		&batchID,
		&kind,
		&rec.Summary,
		&start,
		&end,
		&word,
		&outcome,
		&audioURL,
		&errText,
		&rec.DurationMS,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Kind = domain.ModificationKind(kind)
	rec.Outcome = domain.Outcome(outcome)
	rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, err
	}

	rec.BatchID = batchID.String
	rec.Word = word.String
	rec.AudioURL = audioURL.String
	rec.Error = errText.String
	if start.Valid {
		rec.Start = &start.Float64
	}
	if end.Valid {
		rec.End = &end.Float64
	}
	return &rec, nil
}

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
