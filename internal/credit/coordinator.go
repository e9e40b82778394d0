// Package credit issues the one-time contributor credit for a passing pull request.
package credit

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/sevigo/bounty-warden/internal/config"
	"github.com/sevigo/bounty-warden/internal/core"
	"github.com/sevigo/bounty-warden/internal/payments"
)

// IdempotencyPrefix prefixes the per-PR idempotency key sent to the payments provider.
const IdempotencyPrefix = "pr-credit-"

// IdempotencyKey identifies one payout attempt for key. The amount is part of
// the key because the provider rejects a reused key with different parameters.
func IdempotencyKey(key string, amount int64) string {
	return IdempotencyPrefix + key + "-" + strconv.FormatInt(amount, 10)
}

var unsafeEmailChars = regexp.MustCompile(`[^a-z0-9._-]+`)

// Options tunes a single credit.
type Options struct {
	// Amount overrides the configured amount when positive.
	Amount int64
	// Manual marks an operator-initiated credit; it only changes the description.
	Manual bool
}

// Result describes a completed credit.
type Result struct {
	Record        *core.PRRecord
	AccountID     string
	TransactionID string
	Amount        int64
}

// Coordinator moves pass records to credited, paying out at most once per key.
type Coordinator struct {
	store          core.Store
	mappings       core.MappingStore
	provider       payments.Provider
	amount         int64
	currency       string
	fallbackDomain string
	logger         *slog.Logger
}

// NewCoordinator creates a crediting coordinator.
func NewCoordinator(
	cfg *config.Config,
	store core.Store,
	mappings core.MappingStore,
	provider payments.Provider,
	logger *slog.Logger,
) *Coordinator {
	return &Coordinator{
		store:          store,
		mappings:       mappings,
		provider:       provider,
		amount:         cfg.Credit.Amount,
		currency:       cfg.Payments.Currency,
		fallbackDomain: cfg.Payments.FallbackEmailDomain,
		logger:         logger,
	}
}

// Credit pays the author of the pass record under key and marks it credited.
//
// The record is claimed with a compare-and-set before any payment is made, so
// concurrent callers for the same key see ErrDuplicateCredit instead of paying
// twice. A failed payout releases the claim and leaves the record at pass.
func (c *Coordinator) Credit(ctx context.Context, key string, opts Options) (*Result, error) {
	amount := c.amount
	if opts.Amount > 0 {
		amount = opts.Amount
	}

	rec, err := c.store.ClaimCredit(ctx, key)
	if err != nil {
		return nil, err
	}
	log := c.logger.With("pr", key, "author", rec.Author)

	release := func(cause error) error {
		if err := c.store.ReleaseCredit(context.WithoutCancel(ctx), key); err != nil {
			log.Error("failed to release credit claim", "error", err)
		}
		return cause
	}

	accountID, err := c.ResolveAccount(ctx, rec.Author)
	if err != nil {
		log.Error("failed to resolve payment account", "error", err)
		return nil, release(err)
	}

	txn, err := c.provider.CreditBalance(ctx, payments.CreditRequest{
		AccountID:      accountID,
		Amount:         amount,
		Currency:       c.currency,
		Description:    description(rec, opts.Manual),
		IdempotencyKey: IdempotencyKey(key, amount),
	})
	if err != nil {
		log.Error("credit payout failed", "account", accountID, "amount", amount, "error", err)
		return nil, release(err)
	}

	// The payout has happened; record it even if the caller has gone away.
	done, err := c.store.CompleteCredit(context.WithoutCancel(ctx), key, core.CreditCompletion{
		Amount:           amount,
		PaymentAccountID: accountID,
		Note:             fmt.Sprintf("Credited %s to customer %s", FormatAmount(amount, c.currency), accountID),
	})
	if err != nil {
		log.Error("credit paid but record not updated", "account", accountID, "transaction", txn.ID, "error", err)
		return nil, fmt.Errorf("%w: credit %s paid but not recorded: %v", core.ErrInternal, txn.ID, err)
	}

	log.Info("credited contributor", "account", accountID, "amount", amount, "transaction", txn.ID)
	return &Result{Record: done, AccountID: accountID, TransactionID: txn.ID, Amount: amount}, nil
}

// ResolveAccount returns the mapped account for handle, or finds or creates one
// for the handle's fallback identity.
func (c *Coordinator) ResolveAccount(ctx context.Context, handle string) (string, error) {
	if id, ok, err := c.mappings.Get(ctx, handle); err != nil {
		return "", fmt.Errorf("mapping lookup for %s: %w", handle, err)
	} else if ok {
		return id, nil
	}
	return c.provider.FindOrCreateAccount(ctx, FallbackIdentity(handle, c.fallbackDomain))
}

// FallbackIdentity derives the deterministic account identity for a handle
// with no explicit mapping.
func FallbackIdentity(handle, domain string) payments.Identity {
	local := unsafeEmailChars.ReplaceAllString(strings.ToLower(strings.TrimSpace(handle)), "-")
	local = strings.Trim(local, "-.")
	if local == "" {
		local = "contributor"
	}
	return payments.Identity{
		Email:       local + "@" + domain,
		Name:        handle,
		Description: "GitHub contributor: " + handle,
	}
}

// FormatAmount renders minor units as a decimal amount with its currency code.
func FormatAmount(minor int64, currency string) string {
	return fmt.Sprintf("%d.%02d %s", minor/100, minor%100, strings.ToUpper(currency))
}

func description(rec *core.PRRecord, manual bool) string {
	if manual && rec.Title != "" {
		return fmt.Sprintf("PR bonus: %s - %s", rec.ID, rec.Title)
	}
	return "PR bonus for " + rec.ID
}
