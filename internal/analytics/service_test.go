package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/esyasil/clearroom/pkg/models"
)

type fakeRepository struct {
	daily     []*models.DailyUsage
	top       []*models.UserUsage
	err       error
	lastSince time.Time
	lastLimit int
}

func (f *fakeRepository) GetDailyUsage(ctx context.Context, since time.Time) ([]*models.DailyUsage, error) {
	f.lastSince = since
	return f.daily, f.err
}

func (f *fakeRepository) GetTopUsers(ctx context.Context, limit int) ([]*models.UserUsage, error) {
	f.lastLimit = limit
	return f.top, f.err
}

func TestDailyUsageWindow(t *testing.T) {
	now := time.Date(2026, 8, 30, 15, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		days          int
		expectedSince time.Time
	}{
		{
			name:          "Requested window",
			days:          7,
			expectedSince: time.Date(2026, 8, 23, 0, 0, 0, 0, time.UTC),
		},
		{
			name:          "Zero falls back to default",
			days:          0,
			expectedSince: time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC),
		},
		{
			name:          "Oversized window is clamped",
			days:          5000,
			expectedSince: time.Date(2025, 8, 30, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeRepository{daily: []*models.DailyUsage{{Batches: 2, Images: 6}}}
			service := NewService(repo)
			service.now = func() time.Time { return now }

			usage, err := service.DailyUsage(context.Background(), tt.days)
			require.NoError(t, err)

			assert.Equal(t, tt.expectedSince, repo.lastSince)
			assert.Len(t, usage, 1)
		})
	}
}

func TestDailyUsageEmptyReport(t *testing.T) {
	service := NewService(&fakeRepository{})

	usage, err := service.DailyUsage(context.Background(), 7)
	require.NoError(t, err)
	assert.NotNil(t, usage, "Empty report must serialize as [] rather than null")
	assert.Empty(t, usage)
}

func TestTopUsersLimitClamping(t *testing.T) {
	tests := []struct {
		name          string
		limit         int
		expectedLimit int
	}{
		{"Requested limit", 5, 5},
		{"Zero falls back to default", 0, DefaultTopUsers},
		{"Negative falls back to default", -3, DefaultTopUsers},
		{"Oversized limit is clamped", 1000, MaxTopUsers},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeRepository{top: []*models.UserUsage{{UserID: "user-1", Batches: 4, Images: 12}}}
			service := NewService(repo)

			users, err := service.TopUsers(context.Background(), tt.limit)
			require.NoError(t, err)

			assert.Equal(t, tt.expectedLimit, repo.lastLimit)
			assert.Len(t, users, 1)
		})
	}
}

func TestReportsPropagateRepositoryErrors(t *testing.T) {
	repo := &fakeRepository{err: errors.New("connection refused")}
	service := NewService(repo)

	_, err := service.DailyUsage(context.Background(), 7)
	assert.Error(t, err)

	_, err = service.TopUsers(context.Background(), 10)
	assert.Error(t, err)
}
