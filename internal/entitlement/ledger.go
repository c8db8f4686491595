// Package entitlement tracks per-user credit balances and subscription state
// and answers whether a batch may be processed.
package entitlement

import (
	"context"
	"errors"
	"fmt"

	"github.com/esyasil/clearroom/internal/database"
	"github.com/esyasil/clearroom/internal/logging"
	"github.com/esyasil/clearroom/pkg/models"
)

// DeniedReason is the user-facing reason attached to a denied decision
const DeniedReason = "insufficient credits"

// Repository defines the ledger's persistence operations
type Repository interface {
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	CreateAccountIfAbsent(ctx context.Context, account *models.Account) (bool, error)
	ReserveCredits(ctx context.Context, id string, count int) (bool, error)
	AddCredits(ctx context.Context, id string, count int) error
	ActivateSubscription(ctx context.Context, id, customerID string) error
	ExpireSubscriptionByCustomer(ctx context.Context, customerID string) (int64, error)
}

// AccountCache defines the optional read cache for account profiles
type AccountCache interface {
	GetAccount(ctx context.Context, userID string) (*models.Account, error)
	SetAccount(ctx context.Context, account *models.Account) error
	InvalidateAccount(ctx context.Context, userID string) error
}

// Decision is the outcome of an authorization check
type Decision struct {
	Allowed    bool
	Subscribed bool
	Reason     string
}

// Ledger is the entitlement service. All balance mutations go through the
// repository's atomic primitives; the ledger itself never does
// read-modify-write on credits.
type Ledger struct {
	repo   Repository
	cache  AccountCache
	logger *logging.Logger
}

// NewLedger creates a new entitlement ledger. cache may be nil.
func NewLedger(repo Repository, cache AccountCache, logger *logging.Logger) *Ledger {
	return &Ledger{
		repo:   repo,
		cache:  cache,
		logger: logger,
	}
}

// EnsureAccount creates the default account record for a first-time user.
// Safe to call on every request; concurrent first logins converge on exactly
// one row with the default grant.
func (l *Ledger) EnsureAccount(ctx context.Context, userID, email, displayName string) (*models.Account, error) {
	account := &models.Account{
		ID:                 userID,
		Email:              email,
		DisplayName:        displayName,
		Credits:            models.DefaultCreditGrant,
		SubscriptionStatus: models.SubscriptionStatusNone,
	}

	created, err := l.repo.CreateAccountIfAbsent(ctx, account)
	if err != nil {
		return nil, err
	}

	if created {
		l.logger.WithUserID(userID).Infof("Created account with %d credits", models.DefaultCreditGrant)
		return account, nil
	}

	return l.repo.GetAccount(ctx, userID)
}

// Authorize decides whether the user may process count images and, for
// non-subscribers, reserves the credits in the same atomic statement. Two
// concurrent batches can therefore never both spend a balance that covers
// only one of them. The deduction equals count and happens exactly once per
// accepted batch, no matter how many images later fail.
func (l *Ledger) Authorize(ctx context.Context, userID string, count int) (*Decision, error) {
	account, err := l.repo.GetAccount(ctx, userID)
	if errors.Is(err, database.ErrAccountNotFound) {
		account, err = l.createFailSafeAccount(ctx, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	// Active subscription bypasses credit consumption entirely
	if account.Subscribed() {
		return &Decision{Allowed: true, Subscribed: true}, nil
	}

	reserved, err := l.repo.ReserveCredits(ctx, userID, count)
	if err != nil {
		return nil, err
	}

	if !reserved {
		return &Decision{Allowed: false, Reason: DeniedReason}, nil
	}

	l.invalidate(ctx, userID)
	return &Decision{Allowed: true}, nil
}

// Refund returns reserved credits. Used only when processing could not start
// at all; accepted batches are billed for attempted capacity even when every
// image fails.
func (l *Ledger) Refund(ctx context.Context, userID string, count int) error {
	if err := l.repo.AddCredits(ctx, userID, count); err != nil {
		return err
	}

	l.invalidate(ctx, userID)
	return nil
}

// GrantSubscription activates a subscription for the user and stores the
// billing customer reference
func (l *Ledger) GrantSubscription(ctx context.Context, userID, customerID string) error {
	if err := l.repo.ActivateSubscription(ctx, userID, customerID); err != nil {
		return err
	}

	l.logger.WithUserID(userID).Info("Subscription activated")
	l.invalidate(ctx, userID)
	return nil
}

// RevokeSubscriptionByCustomer expires the subscription of whichever
// account(s) carry the billing customer reference. Credits are untouched.
func (l *Ledger) RevokeSubscriptionByCustomer(ctx context.Context, customerID string) error {
	affected, err := l.repo.ExpireSubscriptionByCustomer(ctx, customerID)
	if err != nil {
		return err
	}

	if affected == 0 {
		l.logger.Warnf("Subscription expiry for unknown customer %s", customerID)
	}

	// Expired accounts are keyed by customer ref, not user id, so drop the
	// whole cache entry lazily on next read instead of resolving ids here.
	return nil
}

// Account returns the user's profile, served from cache when fresh
func (l *Ledger) Account(ctx context.Context, userID string) (*models.Account, error) {
	if l.cache != nil {
		cached, err := l.cache.GetAccount(ctx, userID)
		if err != nil {
			l.logger.WithError(err).Warn("Account cache read failed")
		}
		if cached != nil {
			return cached, nil
		}
	}

	account, err := l.repo.GetAccount(ctx, userID)
	if err != nil {
		return nil, err
	}

	if l.cache != nil {
		if err := l.cache.SetAccount(ctx, account); err != nil {
			l.logger.WithError(err).Warn("Account cache write failed")
		}
	}

	return account, nil
}

// createFailSafeAccount covers the ambiguous missing-record case at check
// time: the user authenticated but no row exists yet, so grant the minimal
// free credit rather than denying outright.
func (l *Ledger) createFailSafeAccount(ctx context.Context, userID string) (*models.Account, error) {
	account := &models.Account{
		ID:                 userID,
		Credits:            models.FailSafeCreditGrant,
		SubscriptionStatus: models.SubscriptionStatusNone,
	}

	if _, err := l.repo.CreateAccountIfAbsent(ctx, account); err != nil {
		return nil, err
	}

	return l.repo.GetAccount(ctx, userID)
}

func (l *Ledger) invalidate(ctx context.Context, userID string) {
	if l.cache == nil {
		return
	}

	if err := l.cache.InvalidateAccount(ctx, userID); err != nil {
		l.logger.WithError(err).Warn("Account cache invalidation failed")
	}
}
