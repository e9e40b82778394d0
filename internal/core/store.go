package core

import "context"

// Store is the PR lifecycle store. It is the sole holder of mutable PR state;
// every operation is atomic with respect to a single key.
type Store interface {
	// Create upserts rec under rec.ID, replacing any existing record and resetting timestamps.
	Create(ctx context.Context, rec *PRRecord) (*PRRecord, error)
	// Get returns the record for key or ErrNotFound.
	Get(ctx context.Context, key string) (*PRRecord, error)
	// Update merges u into the existing record. It is a no-op returning (nil, nil) when key is absent.
	Update(ctx context.Context, key string, u PRUpdate) (*PRRecord, error)
	// List returns all records ordered by UpdatedAt descending.
	List(ctx context.Context) ([]*PRRecord, error)
	// Delete removes the record for key.
	Delete(ctx context.Context, key string) error

	// ClaimCredit atomically marks a passing, unclaimed record as having a credit in flight.
	// It returns ErrDuplicateCredit if the record is not pass or is already claimed.
	ClaimCredit(ctx context.Context, key string) (*PRRecord, error)
	// ReleaseCredit clears an in-flight claim after a failed payout.
	ReleaseCredit(ctx context.Context, key string) error
	// CompleteCredit atomically moves a claimed pass record to credited.
	CompleteCredit(ctx context.Context, key string, c CreditCompletion) (*PRRecord, error)
}

// AccountMapping links a contributor handle to a payment account.
type AccountMapping struct {
	Handle    string `json:"githubUsername" yaml:"github_username"`
	AccountID string `json:"stripeCustomerId" yaml:"stripe_customer_id"`
}

// MappingStore holds operator-configured handle to payment account mappings.
// Handles are case-insensitive.
type MappingStore interface {
	Set(ctx context.Context, handle, accountID string) error
	Get(ctx context.Context, handle string) (string, bool, error)
	List(ctx context.Context) ([]AccountMapping, error)
	Delete(ctx context.Context, handle string) error
}
