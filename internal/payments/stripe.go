package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"

	"github.com/sevigo/bounty-warden/internal/core"
)

type stripeProvider struct {
	api    *client.API
	logger *slog.Logger
}

// NewStripeProvider creates a Provider backed by the Stripe API. backends may be
// nil to use the default Stripe endpoints.
func NewStripeProvider(secretKey string, backends *stripe.Backends, logger *slog.Logger) Provider {
	if secretKey == "" {
		logger.Warn("STRIPE_SECRET_KEY is empty; crediting calls will be rejected by the provider")
	}
	return &stripeProvider{api: client.New(secretKey, backends), logger: logger}
}

func (p *stripeProvider) FindOrCreateAccount(ctx context.Context, id Identity) (string, error) {
	if id.Email == "" {
		return "", fmt.Errorf("%w: account email is required", core.ErrValidation)
	}

	params := &stripe.CustomerListParams{Email: stripe.String(id.Email)}
	params.Limit = stripe.Int64(1)
	params.Context = ctx
	iter := p.api.Customers.List(params)
	if iter.Next() {
		return iter.Customer().ID, nil
	}
	if err := iter.Err(); err != nil {
		return "", upstream("customer lookup", err)
	}

	create := &stripe.CustomerParams{
		Email:       stripe.String(id.Email),
		Name:        stripe.String(id.Name),
		Description: stripe.String(id.Description),
	}
	create.Context = ctx
	cust, err := p.api.Customers.New(create)
	if err != nil {
		return "", upstream("customer create", err)
	}
	p.logger.Info("created payments customer", "customer", cust.ID, "name", id.Name)
	return cust.ID, nil
}

// CreditBalance records a negative balance transaction, which the provider
// treats as a credit owed to the customer.
func (p *stripeProvider) CreditBalance(ctx context.Context, req CreditRequest) (*Transaction, error) {
	if req.AccountID == "" || req.Amount <= 0 {
		return nil, fmt.Errorf("%w: account id and a positive amount are required", core.ErrValidation)
	}

	params := &stripe.CustomerBalanceTransactionParams{
		Customer:    stripe.String(req.AccountID),
		Amount:      stripe.Int64(-req.Amount),
		Currency:    stripe.String(req.Currency),
		Description: stripe.String(req.Description),
	}
	params.Context = ctx
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	txn, err := p.api.CustomerBalanceTransactions.New(params)
	if err != nil {
		return nil, upstream("balance transaction", err)
	}
	return &Transaction{
		ID:        txn.ID,
		AccountID: req.AccountID,
		Amount:    req.Amount,
		Currency:  string(txn.Currency),
	}, nil
}

func upstream(op string, err error) error {
	var se *stripe.Error
	if errors.As(err, &se) {
		return fmt.Errorf("%w: stripe %s failed (%s): %s", core.ErrUpstream, op, se.Code, se.Msg)
	}
	return fmt.Errorf("%w: stripe %s failed: %v", core.ErrUpstream, op, err)
}
