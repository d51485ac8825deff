package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/household-extractor/constants"
	"github.com/joseph-ayodele/household-extractor/internal/common"
)

// SQLiteStore keeps runs in a local SQLite file. It is the CLI default.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// OpenSQLite opens or creates the database at path and bootstraps the schema.
func OpenSQLite(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, common.WrapError(common.ErrDatabase, fmt.Sprintf("open sqlite %s: %v", path, err))
	}
	// single connection: queue workers write concurrently and would otherwise hit SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, common.WrapError(common.ErrDatabase, fmt.Sprintf("enable foreign keys: %v", err))
	}
	s := &SQLiteStore{db: db, path: path, logger: logger}
	if err := s.ensureSchemaExists(); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Info("db.connect.ok", "driver", "sqlite", "path", path)
	return s, nil
}

func (s *SQLiteStore) ensureSchemaExists() error {
	var name string
	err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='runs'").Scan(&name)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return common.WrapError(common.ErrDatabase, fmt.Sprintf("check schema: %v", err))
	}
	for _, stmt := range []string{sqliteRunsTable, runsIndex} {
		if _, err := s.db.Exec(stmt); err != nil {
			return common.WrapError(common.ErrDatabase, fmt.Sprintf("init schema: %v", err))
		}
	}
	return nil
}

// created_at is fixed-width RFC 3339 text so it sorts lexically.
const sqliteRunsTable = `
CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY,
	kind          TEXT NOT NULL,
	source        TEXT NOT NULL DEFAULT '',
	method        TEXT NOT NULL DEFAULT '',
	success       INTEGER NOT NULL,
	warning_count INTEGER NOT NULL DEFAULT 0,
	payload       TEXT NOT NULL,
	created_at    TEXT NOT NULL
)`

const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.path }

func (s *SQLiteStore) SaveRun(ctx context.Context, r Run) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, kind, source, method, success, warning_count, payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID.String(), string(r.Kind), r.Source, r.Method, r.Success, r.WarningCount,
		string(r.Payload), r.CreatedAt.UTC().Format(sqliteTimeLayout))
	if err != nil {
		s.logger.Error("runs.save.failed", "run_id", r.ID, "kind", r.Kind, "error", err)
		return common.WrapError(common.ErrDatabase, fmt.Sprintf("save run: %v", err))
	}
	s.logger.Debug("runs.save.ok", "run_id", r.ID, "kind", r.Kind)
	return nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, id uuid.UUID) (Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, kind, source, method, success, warning_count, payload, created_at
		 FROM runs WHERE id = ?`, id.String())
	r, err := scanSQLiteRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, errRunNotFound(id)
	}
	if err != nil {
		return Run{}, common.WrapError(common.ErrDatabase, fmt.Sprintf("get run: %v", err))
	}
	return r, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, kind constants.RunKind, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, source, method, success, warning_count, payload, created_at
		 FROM runs WHERE (? = '' OR kind = ?) ORDER BY created_at DESC LIMIT ?`,
		string(kind), string(kind), clampLimit(limit))
	if err != nil {
		return nil, common.WrapError(common.ErrDatabase, fmt.Sprintf("list runs: %v", err))
	}
	defer rows.Close()

	out := []Run{}
	for rows.Next() {
		r, err := scanSQLiteRun(rows)
		if err != nil {
			return nil, common.WrapError(common.ErrDatabase, fmt.Sprintf("scan run: %v", err))
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, common.WrapError(common.ErrDatabase, fmt.Sprintf("list runs: %v", err))
	}
	return out, nil
}

func (s *SQLiteStore) Close() {
	if err := s.db.Close(); err != nil {
		s.logger.Error("db.close.failed", "driver", "sqlite", "error", err)
	}
}

func scanSQLiteRun(sc scanner) (Run, error) {
	var (
		r       Run
		id      string
		kind    string
		payload string
		created string
	)
	if err := sc.Scan(&id, &kind, &r.Source, &r.Method, &r.Success, &r.WarningCount, &payload, &created); err != nil {
		return Run{}, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return Run{}, fmt.Errorf("bad run id %q: %w", id, err)
	}
	at, err := time.Parse(sqliteTimeLayout, created)
	if err != nil {
		return Run{}, fmt.Errorf("bad created_at %q: %w", created, err)
	}
	r.ID = parsed
	r.Kind = constants.RunKind(kind)
	r.Payload = []byte(payload)
	r.CreatedAt = at
	return r, nil
}
