package models

import (
	"time"
)

// UsageLogEntry is an append-only record of one accepted batch. Entries are
// never mutated or deleted; they feed aggregate reporting only.
type UsageLogEntry struct {
	ID         string    `json:"id" db:"id"`
	UserID     string    `json:"user_id" db:"user_id"`
	ImageCount int       `json:"image_count" db:"image_count"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// AdminStats aggregates usage for the admin dashboard
type AdminStats struct {
	TotalUsers            int64 `json:"total_users"`
	TotalProcessedBatches int64 `json:"total_processed_batches"`
	TotalProcessedImages  int64 `json:"total_processed_images"`
}

// DailyUsage is one day's worth of processed batches and images
type DailyUsage struct {
	Date    time.Time `json:"date" db:"date"`
	Batches int64     `json:"batches" db:"batches"`
	Images  int64     `json:"images" db:"images"`
}

// UserUsage ranks one user by consumption
type UserUsage struct {
	UserID  string `json:"user_id" db:"user_id"`
	Batches int64  `json:"batches" db:"batches"`
	Images  int64  `json:"images" db:"images"`
}
