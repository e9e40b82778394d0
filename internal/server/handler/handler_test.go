package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/sevigo/bounty-warden/internal/config"
	"github.com/sevigo/bounty-warden/internal/core"
	"github.com/sevigo/bounty-warden/internal/credit"
	"github.com/sevigo/bounty-warden/internal/gateway"
	"github.com/sevigo/bounty-warden/internal/logger"
	"github.com/sevigo/bounty-warden/internal/storage"
	"github.com/sevigo/bounty-warden/mocks"
)

const (
	testSecret = "s3cret"
	testBot    = "greptile-apps[bot]"
	testKey    = "acme/widgets#12"
)

const passingReview = "## Greptile Summary\nAdds retries to the client.\n\n### Confidence score: 5/5\n"

type env struct {
	cfg      *config.Config
	store    core.Store
	mappings core.MappingStore
	github   *mocks.MockGitHubClient
	provider *mocks.MockProvider
	webhook  *WebhookHandler
	prs      *PRHandler
	accounts *MappingHandler
}

func newEnv(t *testing.T, mutate func(*config.Config)) *env {
	t.Helper()
	ctrl := gomock.NewController(t)

	cfg := &config.Config{
		Environment:     config.EnvProduction,
		GitHub:          config.GitHubConfig{WebhookSecret: testSecret, BotLogin: testBot},
		Credit:          config.CreditConfig{Amount: 500},
		Payments:        config.PaymentsConfig{Currency: "usd", FallbackEmailDomain: "example.dev"},
		UpstreamTimeout: 5 * time.Second,
	}
	if mutate != nil {
		mutate(cfg)
	}

	e := &env{
		cfg:      cfg,
		store:    storage.NewMemoryStore(),
		mappings: storage.NewMemoryMappingStore(),
		github:   mocks.NewMockGitHubClient(ctrl),
		provider: mocks.NewMockProvider(ctrl),
	}
	coord := credit.NewCoordinator(cfg, e.store, e.mappings, e.provider, logger.Nop())
	gw := gateway.New(cfg, e.store, e.github, nil, coord, logger.Nop())

	validate := NewValidator()
	e.webhook = NewWebhookHandler(cfg, gw, logger.Nop())
	e.prs = NewPRHandler(gw, cfg.Payments.Currency, validate, logger.Nop())
	e.accounts = NewMappingHandler(e.mappings, validate, logger.Nop())
	return e
}

func (e *env) seed(t *testing.T, status core.Status) {
	t.Helper()
	_, err := e.store.Create(context.Background(), &core.PRRecord{
		ID: testKey, Owner: "acme", Repo: "widgets", Number: 12,
		Title: "Add retries", Author: "octocat", Status: status,
	})
	require.NoError(t, err)
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	return httptest.NewRequest(method, target, &buf)
}

func serve(h http.HandlerFunc, r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h(rec, r)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func errorDetailOf(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	body := decodeBody(t, rec)
	detail, ok := body["error"].(map[string]any)
	require.True(t, ok, rec.Body.String())
	return detail
}

func errorKind(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	kind, _ := errorDetailOf(t, rec)["kind"].(string)
	return kind
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	msg, _ := errorDetailOf(t, rec)["message"].(string)
	return msg
}
