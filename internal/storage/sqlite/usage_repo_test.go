package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bandmon-server/internal/domain"
	"bandmon-server/internal/logger"
)

func newTestRepo(t *testing.T) domain.UsageRepository {
	t.Helper()

	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"), logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewUsageRepository(db)
}

func TestUsageRepository_LoadEmpty(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.Load(context.Background(), "2024-06")
	assert.ErrorIs(t, err, domain.ErrUsageNotFound)
}

func TestUsageRepository_RoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	usage := domain.MonthlyUsage{Month: "2024-06", BytesSent: 123_456, BytesRecv: 789_012}
	require.NoError(t, repo.Save(ctx, usage))

	loaded, err := repo.Load(ctx, "2024-06")
	require.NoError(t, err)
	assert.Equal(t, usage, loaded)
}

func TestUsageRepository_LoadStaleMonthReportsAbsence(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, domain.MonthlyUsage{Month: "2024-05", BytesSent: 1, BytesRecv: 2}))

	_, err := repo.Load(ctx, "2024-06")
	assert.ErrorIs(t, err, domain.ErrUsageNotFound)
}

func TestUsageRepository_SaveOverwritesWholesale(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, domain.MonthlyUsage{Month: "2024-05", BytesSent: 10, BytesRecv: 20}))
	require.NoError(t, repo.Save(ctx, domain.MonthlyUsage{Month: "2024-06", BytesSent: 30, BytesRecv: 40}))

	loaded, err := repo.Load(ctx, "2024-06")
	require.NoError(t, err)
	assert.Equal(t, domain.MonthlyUsage{Month: "2024-06", BytesSent: 30, BytesRecv: 40}, loaded)
}
