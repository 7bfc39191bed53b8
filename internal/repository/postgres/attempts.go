package postgres

import (
	"context"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kstash/work-better/internal/core/domain"
	"github.com/kstash/work-better/internal/core/port"
)

type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// AttemptLedger implements port.AttemptLedger backed by PostgreSQL. The table
// is append-only: records are never mutated or deleted here; retention is an
// operational concern handled outside the service.
type AttemptLedger struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewAttemptLedger constructs a ledger backed by any executor that satisfies pgExecutor.
func NewAttemptLedger(exec pgExecutor) *AttemptLedger {
	return &AttemptLedger{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Record appends a login attempt. Callers treat failures as best-effort: the
// orchestrator logs them without failing the auth flow.
func (r *AttemptLedger) Record(ctx context.Context, attempt domain.LoginAttempt) error {
	sql, args, err := r.builder.Insert("auth.login_attempts").
		Columns(
			"id",
			"principal_id",
			"username",
			"succeeded",
			"status",
			"source_ip",
			"user_agent",
			"occurred_at",
		).
		Values(
			attempt.ID,
			attempt.PrincipalID,
			attempt.Username,
			attempt.Succeeded,
			string(attempt.Status),
			attempt.SourceIP,
			attempt.UserAgent,
			attempt.OccurredAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert attempt sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert login attempt: %w", err)
	}

	return nil
}

// CountRecentFailures counts INVALID_CREDENTIALS attempts for the username
// inside the window ending at reference. The window edge is inclusive.
func (r *AttemptLedger) CountRecentFailures(ctx context.Context, username string, window time.Duration, reference time.Time) (int, error) {
	if window <= 0 {
		return 0, fmt.Errorf("window must be positive")
	}

	sql, args, err := r.builder.Select("COUNT(*)").
		From("auth.login_attempts").
		Where(squirrel.Eq{"username": username}).
		Where(squirrel.Eq{"status": string(domain.LoginStatusInvalidCredentials)}).
		Where(squirrel.GtOrEq{"occurred_at": reference.Add(-window)}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count failures sql: %w", err)
	}

	var count int
	if err := r.exec.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count login failures: %w", err)
	}

	return count, nil
}

var _ port.AttemptLedger = (*AttemptLedger)(nil)
