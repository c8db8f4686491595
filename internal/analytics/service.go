// Package analytics aggregates usage log entries into report views for the
// admin surface.
package analytics

import (
	"context"
	"time"

	"github.com/esyasil/clearroom/pkg/models"
)

const (
	// DefaultDays bounds the daily report window when none is requested
	DefaultDays = 30
	// MaxDays caps the daily report window
	MaxDays = 365

	// DefaultTopUsers bounds the top-consumer report when none is requested
	DefaultTopUsers = 10
	// MaxTopUsers caps the top-consumer report
	MaxTopUsers = 100
)

// Repository is the query surface the reports need
type Repository interface {
	GetDailyUsage(ctx context.Context, since time.Time) ([]*models.DailyUsage, error)
	GetTopUsers(ctx context.Context, limit int) ([]*models.UserUsage, error)
}

// Service computes usage reports
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a new analytics service
func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

// DailyUsage returns per-day batch and image counts over the last `days`
// days, most recent first. Out-of-range values are clamped rather than
// rejected so dashboard callers always get a report.
func (s *Service) DailyUsage(ctx context.Context, days int) ([]*models.DailyUsage, error) {
	if days < 1 {
		days = DefaultDays
	}
	if days > MaxDays {
		days = MaxDays
	}

	since := s.now().AddDate(0, 0, -days).Truncate(24 * time.Hour)
	usage, err := s.repo.GetDailyUsage(ctx, since)
	if err != nil {
		return nil, err
	}

	if usage == nil {
		usage = []*models.DailyUsage{}
	}
	return usage, nil
}

// TopUsers ranks users by total images processed
func (s *Service) TopUsers(ctx context.Context, limit int) ([]*models.UserUsage, error) {
	if limit < 1 {
		limit = DefaultTopUsers
	}
	if limit > MaxTopUsers {
		limit = MaxTopUsers
	}

	users, err := s.repo.GetTopUsers(ctx, limit)
	if err != nil {
		return nil, err
	}

	if users == nil {
		users = []*models.UserUsage{}
	}
	return users, nil
}
