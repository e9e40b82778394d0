// Package payments issues contributor credits through the payments provider.
package payments

import (
	"context"
)

// Identity describes the account to find or create for a contributor without
// an explicit mapping.
type Identity struct {
	Email       string
	Name        string
	Description string
}

// CreditRequest is a single balance credit.
type CreditRequest struct {
	AccountID string
	// Amount is the credit in minor currency units and must be positive.
	Amount         int64
	Currency       string
	Description    string
	IdempotencyKey string
}

// Transaction is the provider's record of an applied credit.
type Transaction struct {
	ID        string
	AccountID string
	Amount    int64
	Currency  string
}

// Provider is the payments boundary used by the crediting coordinator.
//
//go:generate mockgen -destination=../../mocks/mock_payments_provider.go -package=mocks . Provider
type Provider interface {
	// FindOrCreateAccount returns the account whose email matches id, creating it when absent.
	FindOrCreateAccount(ctx context.Context, id Identity) (string, error)
	// CreditBalance applies a credit to the account balance.
	CreditBalance(ctx context.Context, req CreditRequest) (*Transaction, error)
}
