package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/esyasil/clearroom/pkg/models"
)

// ErrAccountNotFound indicates no account row exists for the given id
var ErrAccountNotFound = errors.New("account not found")

// Repository provides database operations
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// Health checks database connectivity
func (r *Repository) Health(ctx context.Context) error {
	return r.db.Health(ctx)
}

// Accounts

// CreateAccountIfAbsent inserts a new account record unless one already
// exists. The conditional insert makes concurrent first-logins for the same
// user converge on exactly one row. Returns true if this call created it.
func (r *Repository) CreateAccountIfAbsent(ctx context.Context, account *models.Account) (bool, error) {
	query := `
		INSERT INTO accounts (id, email, display_name, credits, subscription_status, stripe_customer_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`

	tag, err := r.db.Pool.Exec(ctx, query,
		account.ID, account.Email, account.DisplayName,
		account.Credits, account.SubscriptionStatus, account.StripeCustomerID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to create account: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// GetAccount retrieves an account by id
func (r *Repository) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	var account models.Account

	query := `
		SELECT id, email, display_name, credits, subscription_status,
		       stripe_customer_id, created_at, updated_at
		FROM accounts
		WHERE id = $1
	`

	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&account.ID, &account.Email, &account.DisplayName, &account.Credits,
		&account.SubscriptionStatus, &account.StripeCustomerID,
		&account.CreatedAt, &account.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return &account, nil
}

// ReserveCredits atomically deducts count credits from a non-subscribed
// account, only if the balance covers it. The single conditional UPDATE is
// what keeps two concurrent batches from spending the same credits. Returns
// true when the reservation succeeded.
func (r *Repository) ReserveCredits(ctx context.Context, id string, count int) (bool, error) {
	query := `
		UPDATE accounts
		SET credits = credits - $2, updated_at = now()
		WHERE id = $1 AND credits >= $2
	`

	tag, err := r.db.Pool.Exec(ctx, query, id, count)
	if err != nil {
		return false, fmt.Errorf("failed to reserve credits: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// AddCredits atomically returns credits to an account
func (r *Repository) AddCredits(ctx context.Context, id string, count int) error {
	query := `
		UPDATE accounts
		SET credits = credits + $2, updated_at = now()
		WHERE id = $1
	`

	if _, err := r.db.Pool.Exec(ctx, query, id, count); err != nil {
		return fmt.Errorf("failed to add credits: %w", err)
	}

	return nil
}

// ActivateSubscription marks an account as subscribed, stores the billing
// customer reference, and resets credits to the subscriber sentinel. Upserts
// so a checkout completing before the user's first API call still lands.
func (r *Repository) ActivateSubscription(ctx context.Context, id, customerID string) error {
	query := `
		INSERT INTO accounts (id, credits, subscription_status, stripe_customer_id)
		VALUES ($1, $3, $4, $2)
		ON CONFLICT (id) DO UPDATE
		SET subscription_status = $4,
		    stripe_customer_id  = $2,
		    credits             = $3,
		    updated_at          = now()
	`

	_, err := r.db.Pool.Exec(ctx, query,
		id, customerID, models.SubscriberCreditSentinel, models.SubscriptionStatusActive,
	)
	if err != nil {
		return fmt.Errorf("failed to activate subscription: %w", err)
	}

	return nil
}

// ExpireSubscriptionByCustomer downgrades every account carrying the given
// billing customer reference (expected exactly one). Credits are untouched.
func (r *Repository) ExpireSubscriptionByCustomer(ctx context.Context, customerID string) (int64, error) {
	query := `
		UPDATE accounts
		SET subscription_status = $2, updated_at = now()
		WHERE stripe_customer_id = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query, customerID, models.SubscriptionStatusExpired)
	if err != nil {
		return 0, fmt.Errorf("failed to expire subscription: %w", err)
	}

	return tag.RowsAffected(), nil
}

// Usage logs

// CreateUsageLog appends one usage log entry with a server-assigned timestamp
func (r *Repository) CreateUsageLog(ctx context.Context, entry *models.UsageLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	query := `
		INSERT INTO usage_logs (id, user_id, image_count)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`

	err := r.db.Pool.QueryRow(ctx, query, entry.ID, entry.UserID, entry.ImageCount).
		Scan(&entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create usage log: %w", err)
	}

	return nil
}

// GetAdminStats aggregates account and usage counts for reporting
func (r *Repository) GetAdminStats(ctx context.Context) (*models.AdminStats, error) {
	var stats models.AdminStats

	query := `
		SELECT
			(SELECT count(*) FROM accounts),
			(SELECT count(*) FROM usage_logs),
			(SELECT coalesce(sum(image_count), 0) FROM usage_logs)
	`

	err := r.db.Pool.QueryRow(ctx, query).Scan(
		&stats.TotalUsers, &stats.TotalProcessedBatches, &stats.TotalProcessedImages,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get admin stats: %w", err)
	}

	return &stats, nil
}
