package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joseph-ayodele/household-extractor/constants"
	"github.com/joseph-ayodele/household-extractor/internal/common"
)

type Config struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// Open creates a tuned pgx pool.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("db.connect.start", "driver", "postgres")
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("db.connect.failed", "error", err)
		return nil, common.WrapError(common.ErrDatabase, fmt.Sprintf("parse dsn: %v", err))
	}

	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "household-extractor"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = fmt.Sprint(cfg.StatementTimeout.Milliseconds())
	}

	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		logger.Error("db.connect.failed", "error", err)
		return nil, common.WrapError(common.ErrDatabase, fmt.Sprintf("connect: %v", err))
	}
	logger.Info("db.connect.ok", "driver", "postgres")
	return pool, nil
}

// HealthCheck pings the pool.
func HealthCheck(ctx context.Context, pool *pgxpool.Pool, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return pool.Ping(ctx)
}

// PostgresStore keeps runs in Postgres.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgresStore opens a pool and makes sure the runs table exists.
func NewPostgresStore(ctx context.Context, cfg Config, logger *slog.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pool, err := Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := HealthCheck(ctx, pool, cfg.DialTimeout); err != nil {
		pool.Close()
		return nil, common.WrapError(common.ErrDatabase, fmt.Sprintf("ping: %v", err))
	}
	for _, stmt := range []string{runsTable, runsIndex} {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, common.WrapError(common.ErrDatabase, fmt.Sprintf("bootstrap schema: %v", err))
		}
	}
	return &PostgresStore{pool: pool, logger: logger}, nil
}

func (s *PostgresStore) SaveRun(ctx context.Context, r Run) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, kind, source, method, success, warning_count, payload, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		r.ID.String(), string(r.Kind), r.Source, r.Method, r.Success, r.WarningCount, string(r.Payload), r.CreatedAt)
	if err != nil {
		s.logger.Error("runs.save.failed", "run_id", r.ID, "kind", r.Kind, "error", err)
		return common.WrapError(common.ErrDatabase, fmt.Sprintf("save run: %v", err))
	}
	s.logger.Debug("runs.save.ok", "run_id", r.ID, "kind", r.Kind)
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, id uuid.UUID) (Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, kind, source, method, success, warning_count, payload, created_at
		 FROM runs WHERE id = $1`, id.String())
	r, err := scanRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Run{}, errRunNotFound(id)
	}
	if err != nil {
		return Run{}, common.WrapError(common.ErrDatabase, fmt.Sprintf("get run: %v", err))
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, kind constants.RunKind, limit int) ([]Run, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, kind, source, method, success, warning_count, payload, created_at
		 FROM runs WHERE ($1 = '' OR kind = $1) ORDER BY created_at DESC LIMIT $2`,
		string(kind), clampLimit(limit))
	if err != nil {
		return nil, common.WrapError(common.ErrDatabase, fmt.Sprintf("list runs: %v", err))
	}
	defer rows.Close()

	out := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
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

func (s *PostgresStore) Close() {
	s.logger.Info("db.close", "driver", "postgres")
	s.pool.Close()
}

// scanner is satisfied by pgx.Row, pgx.Rows, *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		r       Run
		id      string
		kind    string
		payload string
	)
	if err := sc.Scan(&id, &kind, &r.Source, &r.Method, &r.Success, &r.WarningCount, &payload, &r.CreatedAt); err != nil {
		return Run{}, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return Run{}, fmt.Errorf("bad run id %q: %w", id, err)
	}
	r.ID = parsed
	r.Kind = constants.RunKind(kind)
	r.Payload = []byte(payload)
	r.CreatedAt = r.CreatedAt.UTC()
	return r, nil
}
