package models

import (
	"time"
)

// SubscriptionStatus represents the billing state of an account
type SubscriptionStatus string

const (
	SubscriptionStatusNone    SubscriptionStatus = "none"
	SubscriptionStatusActive  SubscriptionStatus = "active"
	SubscriptionStatusExpired SubscriptionStatus = "expired"
)

const (
	// DefaultCreditGrant is the free credit balance given on first login
	DefaultCreditGrant = 5

	// FailSafeCreditGrant is used when an account record is missing at
	// entitlement-check time (minimal free grant)
	FailSafeCreditGrant = 1

	// SubscriberCreditSentinel is the effectively-unlimited balance set
	// when a subscription activates; subscribers never consume credits
	SubscriberCreditSentinel = 9999
)

// Account represents a user of the furniture-removal service
type Account struct {
	ID                 string             `json:"id" db:"id"`
	Email              string             `json:"email,omitempty" db:"email"`
	DisplayName        string             `json:"display_name,omitempty" db:"display_name"`
	Credits            int                `json:"credits" db:"credits"`
	SubscriptionStatus SubscriptionStatus `json:"subscription_status" db:"subscription_status"`
	StripeCustomerID   string             `json:"-" db:"stripe_customer_id"`
	CreatedAt          time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at" db:"updated_at"`
}

// Subscribed reports whether the account currently bypasses credit checks
func (a *Account) Subscribed() bool {
	return a.SubscriptionStatus == SubscriptionStatusActive
}

// UserRole represents user roles
type UserRole string

const (
	UserRoleAdmin UserRole = "admin"
	UserRoleUser  UserRole = "user"
)
