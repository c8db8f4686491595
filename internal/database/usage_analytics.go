package database

import (
	"context"
	"fmt"
	"time"

	"github.com/esyasil/clearroom/pkg/models"
)

// Usage analytics queries. All aggregates come from usage_logs, which is
// append-only, so results for past days are stable.

// GetDailyUsage returns per-day batch and image counts since the given time,
// most recent day first. Days without traffic produce no row.
func (r *Repository) GetDailyUsage(ctx context.Context, since time.Time) ([]*models.DailyUsage, error) {
	query := `
		SELECT date_trunc('day', created_at) AS date,
		       count(*) AS batches,
		       sum(image_count) AS images
		FROM usage_logs
		WHERE created_at >= $1
		GROUP BY date
		ORDER BY date DESC
	`

	rows, err := r.db.Pool.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to get daily usage: %w", err)
	}
	defer rows.Close()

	var days []*models.DailyUsage
	for rows.Next() {
		var day models.DailyUsage
		if err := rows.Scan(&day.Date, &day.Batches, &day.Images); err != nil {
			return nil, fmt.Errorf("failed to scan daily usage: %w", err)
		}
		days = append(days, &day)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read daily usage: %w", err)
	}

	return days, nil
}

// GetTopUsers returns the heaviest consumers by total images processed
func (r *Repository) GetTopUsers(ctx context.Context, limit int) ([]*models.UserUsage, error) {
	query := `
		SELECT user_id,
		       count(*) AS batches,
		       sum(image_count) AS images
		FROM usage_logs
		GROUP BY user_id
		ORDER BY images DESC
		LIMIT $1
	`

	rows, err := r.db.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top users: %w", err)
	}
	defer rows.Close()

	var users []*models.UserUsage
	for rows.Next() {
		var user models.UserUsage
		if err := rows.Scan(&user.UserID, &user.Batches, &user.Images); err != nil {
			return nil, fmt.Errorf("failed to scan top users: %w", err)
		}
		users = append(users, &user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read top users: %w", err)
	}

	return users, nil
}
