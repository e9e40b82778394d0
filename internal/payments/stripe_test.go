package payments

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81"

	"github.com/sevigo/bounty-warden/internal/core"
	"github.com/sevigo/bounty-warden/internal/logger"
)

func newTestProvider(t *testing.T, h http.Handler) Provider {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		HTTPClient:        srv.Client(),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	})
	return NewStripeProvider("sk_test_123", &stripe.Backends{API: backend, Connect: backend, Uploads: backend}, logger.Nop())
}

func TestFindOrCreateAccount_Existing(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/customers", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "octocat@example.dev", r.URL.Query().Get("email"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{"object":"list","url":"/v1/customers","has_more":false,"data":[{"id":"cus_existing","object":"customer"}]}`))
	})
	mux.HandleFunc("POST /v1/customers", func(w http.ResponseWriter, _ *http.Request) {
		t.Error("existing customer must not be recreated")
		w.WriteHeader(http.StatusInternalServerError)
	})

	id, err := newTestProvider(t, mux).FindOrCreateAccount(t.Context(), Identity{Email: "octocat@example.dev", Name: "octocat"})
	require.NoError(t, err)
	assert.Equal(t, "cus_existing", id)
}

func TestFindOrCreateAccount_Creates(t *testing.T) {
	var created atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/customers", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"object":"list","url":"/v1/customers","has_more":false,"data":[]}`))
	})
	mux.HandleFunc("POST /v1/customers", func(w http.ResponseWriter, r *http.Request) {
		created.Add(1)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "octocat@example.dev", r.PostForm.Get("email"))
		assert.Equal(t, "octocat", r.PostForm.Get("name"))
		assert.Equal(t, "GitHub contributor: octocat", r.PostForm.Get("description"))
		_, _ = w.Write([]byte(`{"id":"cus_new","object":"customer"}`))
	})

	id, err := newTestProvider(t, mux).FindOrCreateAccount(t.Context(), Identity{
		Email:       "octocat@example.dev",
		Name:        "octocat",
		Description: "GitHub contributor: octocat",
	})
	require.NoError(t, err)
	assert.Equal(t, "cus_new", id)
	assert.Equal(t, int32(1), created.Load())
}

func TestCreditBalance(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/customers/cus_123/balance_transactions", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "pr-credit-acme/widgets#12-500", r.Header.Get("Idempotency-Key"))
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "-500", r.PostForm.Get("amount"))
		assert.Equal(t, "usd", r.PostForm.Get("currency"))
		assert.Equal(t, "PR bonus for acme/widgets#12", r.PostForm.Get("description"))
		_, _ = w.Write([]byte(`{"id":"cbtxn_1","object":"customer_balance_transaction","amount":-500,"currency":"usd","customer":"cus_123"}`))
	})

	txn, err := newTestProvider(t, mux).CreditBalance(t.Context(), CreditRequest{
		AccountID:      "cus_123",
		Amount:         500,
		Currency:       "usd",
		Description:    "PR bonus for acme/widgets#12",
		IdempotencyKey: "pr-credit-acme/widgets#12-500",
	})
	require.NoError(t, err)
	assert.Equal(t, "cbtxn_1", txn.ID)
	assert.Equal(t, int64(500), txn.Amount)
	assert.Equal(t, "usd", txn.Currency)
}

func TestCreditBalance_ProviderError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/customers/cus_missing/balance_transactions", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","code":"resource_missing","message":"No such customer: 'cus_missing'"}}`))
	})

	_, err := newTestProvider(t, mux).CreditBalance(t.Context(), CreditRequest{AccountID: "cus_missing", Amount: 500, Currency: "usd"})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrUpstream)
	assert.Contains(t, err.Error(), "resource_missing")
}

func TestCreditBalance_Validation(t *testing.T) {
	p := NewStripeProvider("sk_test_123", nil, logger.Nop())
	_, err := p.CreditBalance(t.Context(), CreditRequest{AccountID: "cus_1", Amount: 0})
	assert.ErrorIs(t, err, core.ErrValidation)
	_, err = p.FindOrCreateAccount(t.Context(), Identity{})
	assert.ErrorIs(t, err, core.ErrValidation)
}
