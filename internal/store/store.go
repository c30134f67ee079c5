package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/stickerverse/figmaconvert/internal/geometry"
)

const defaultHistoryLimit = 20

// DBPool is an interface that abstracts the pgxpool.Pool to allow for mocking in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Session is one recorded convert run, as listed by the history command.
type Session struct {
	ID               string
	URL              string
	Title            string
	ElementCount     int
	SkippedCount     int
	AveragePrecision float64
	DurationMS       int64
	DocumentMB       float64
	CreatedAt        time.Time
}

// Store provides the PostgreSQL-backed capture history.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

// New creates a new store instance and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

// EnsureSchema creates the history tables when they do not exist yet. The
// store is optional, so the binary bootstraps its own schema instead of
// depending on an external migration step.
func (s *Store) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`
        CREATE TABLE IF NOT EXISTS capture_sessions (
            id UUID PRIMARY KEY,
            url TEXT NOT NULL,
            title TEXT NOT NULL DEFAULT '',
            element_count INTEGER NOT NULL,
            skipped_count INTEGER NOT NULL,
            average_precision DOUBLE PRECISION NOT NULL,
            duration_ms BIGINT NOT NULL,
            document_mb DOUBLE PRECISION NOT NULL,
            created_at TIMESTAMPTZ NOT NULL
        );
    `,
		`
        CREATE TABLE IF NOT EXISTS verification_runs (
            id UUID PRIMARY KEY,
            tolerance DOUBLE PRECISION NOT NULL,
            checked INTEGER NOT NULL,
            within_tolerance INTEGER NOT NULL,
            outside_tolerance INTEGER NOT NULL,
            max_deviation DOUBLE PRECISION NOT NULL,
            average_deviation DOUBLE PRECISION NOT NULL,
            created_at TIMESTAMPTZ NOT NULL
        );
    `,
		`
        CREATE TABLE IF NOT EXISTS verification_deviations (
            run_id UUID NOT NULL REFERENCES verification_runs(id) ON DELETE CASCADE,
            element_id TEXT NOT NULL,
            deviation DOUBLE PRECISION NOT NULL,
            missing BOOLEAN NOT NULL DEFAULT FALSE
        );
    `,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return nil
}

// SaveSession records one convert run. Saving the same run ID again
// updates the row in place; the original created_at is kept.
func (s *Store) SaveSession(ctx context.Context, sess *Session) error {
	if sess == nil {
		return errors.New("session cannot be nil")
	}

	createdAt := sess.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := `
        INSERT INTO capture_sessions (id, url, title, element_count, skipped_count, average_precision, duration_ms, document_mb, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        ON CONFLICT (id) DO UPDATE SET
            url = EXCLUDED.url,
            title = EXCLUDED.title,
            element_count = EXCLUDED.element_count,
            skipped_count = EXCLUDED.skipped_count,
            average_precision = EXCLUDED.average_precision,
            duration_ms = EXCLUDED.duration_ms,
            document_mb = EXCLUDED.document_mb;
    `
	_, err := s.pool.Exec(ctx, query,
		sess.ID, sess.URL, sess.Title,
		sess.ElementCount, sess.SkippedCount,
		sess.AveragePrecision, sess.DurationMS, sess.DocumentMB,
		createdAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// SaveVerification records a verification run and its per-element deviations
// in one transaction.
func (s *Store) SaveVerification(ctx context.Context, runID string, report *geometry.DeviationReport) error {
	if report == nil {
		return errors.New("report cannot be nil")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	query := `
        INSERT INTO verification_runs (id, tolerance, checked, within_tolerance, outside_tolerance, max_deviation, average_deviation, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
    `
	checked := report.WithinTolerance + report.OutsideTolerance
	if _, err := tx.Exec(ctx, query,
		runID, report.Tolerance, checked,
		report.WithinTolerance, report.OutsideTolerance,
		report.MaxDeviation, report.AverageDeviation,
		time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("failed to insert verification run: %w", err)
	}

	if len(report.Offenders) > 0 {
		// float8 round-trips +Inf, so missing elements keep their sentinel
		// deviation in the table.
		rows := make([][]interface{}, len(report.Offenders))
		for i, o := range report.Offenders {
			rows[i] = []interface{}{runID, o.ID, o.Deviation, o.Missing}
		}

		copyCount, err := tx.CopyFrom(
			ctx,
			pgx.Identifier{"verification_deviations"},
			[]string{"run_id", "element_id", "deviation", "missing"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return fmt.Errorf("failed to copy deviations: %w", err)
		}
		if int(copyCount) != len(report.Offenders) {
			return fmt.Errorf("mismatch in copied deviations count: expected %d, got %d", len(report.Offenders), copyCount)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListSessions returns the most recent convert runs, newest first.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	query := `
        SELECT id, url, title, element_count, skipped_count, average_precision, duration_ms, document_mb, created_at
        FROM capture_sessions
        ORDER BY created_at DESC
        LIMIT $1;
    `
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var sess Session
		if err := rows.Scan(
			&sess.ID, &sess.URL, &sess.Title,
			&sess.ElementCount, &sess.SkippedCount,
			&sess.AveragePrecision, &sess.DurationMS, &sess.DocumentMB,
			&sess.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		sessions = append(sessions, sess)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}

	return sessions, nil
}
