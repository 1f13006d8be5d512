package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bandmon-server/internal/domain"
)

// UsageRepository persists the single monthly-usage record. Durability is
// best-effort: callers log failures and keep the in-memory state.
type UsageRepository struct {
	db *sql.DB
}

func NewUsageRepository(db *sql.DB) domain.UsageRepository {
	return &UsageRepository{db: db}
}

func (r *UsageRepository) Load(ctx context.Context, month string) (domain.MonthlyUsage, error) {
	query := `SELECT month, bytes_sent, bytes_recv FROM monthly_usage WHERE id = 1`

	row := r.db.QueryRowContext(ctx, query)

	var usage domain.MonthlyUsage
	var sent, recv int64
	if err := row.Scan(&usage.Month, &sent, &recv); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.MonthlyUsage{}, domain.ErrUsageNotFound
		}
		return domain.MonthlyUsage{}, fmt.Errorf("failed to query monthly usage: %w", err)
	}

	// A record from another month is stale: report absence so the caller
	// starts the new month from zero.
	if usage.Month != month {
		return domain.MonthlyUsage{}, domain.ErrUsageNotFound
	}

	usage.BytesSent = uint64(sent)
	usage.BytesRecv = uint64(recv)

	return usage, nil
}

func (r *UsageRepository) Save(ctx context.Context, usage domain.MonthlyUsage) error {
	query := `
	INSERT INTO monthly_usage (id, month, bytes_sent, bytes_recv)
	VALUES (1, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		month = excluded.month,
		bytes_sent = excluded.bytes_sent,
		bytes_recv = excluded.bytes_recv
	`

	if _, err := r.db.ExecContext(ctx, query, usage.Month, int64(usage.BytesSent), int64(usage.BytesRecv)); err != nil {
		return fmt.Errorf("failed to save monthly usage: %w", err)
	}

	return nil
}
