package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/sevigo/bounty-warden/internal/core"
	ghclient "github.com/sevigo/bounty-warden/internal/github"
	"github.com/sevigo/bounty-warden/internal/payments"
)

func TestPoll_Validation(t *testing.T) {
	e := newEnv(t, nil)

	rec := serve(e.prs.Poll, jsonRequest(t, http.MethodPost, "/api/v1/prs/poll", map[string]any{}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, core.KindValidation, errorKind(t, rec))
	assert.Contains(t, errorMessage(t, rec), "id is required")

	rec = serve(e.prs.Poll, jsonRequest(t, http.MethodPost, "/api/v1/prs/poll", map[string]any{"id": "not-a-key"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(e.prs.Poll, httptest.NewRequest(http.MethodPost, "/api/v1/prs/poll", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPoll_UnknownRecord(t *testing.T) {
	e := newEnv(t, nil)

	rec := serve(e.prs.Poll, jsonRequest(t, http.MethodPost, "/api/v1/prs/poll", map[string]any{"id": testKey}))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPoll_Pending(t *testing.T) {
	e := newEnv(t, nil)
	e.seed(t, core.StatusReviewing)
	e.github.EXPECT().ListIssueComments(gomock.Any(), "acme", "widgets", 12).Return(nil, nil)
	e.github.EXPECT().ListReviews(gomock.Any(), "acme", "widgets", 12).Return(nil, nil)

	rec := serve(e.prs.Poll, jsonRequest(t, http.MethodPost, "/api/v1/prs/poll", map[string]any{"id": testKey}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["pending"])
	assert.Equal(t, string(core.StatusReviewing), body["status"])
	assert.NotContains(t, body, "score")
}

func TestPoll_SettlesFromReview(t *testing.T) {
	e := newEnv(t, nil)
	e.seed(t, core.StatusReviewing)
	e.github.EXPECT().ListIssueComments(gomock.Any(), "acme", "widgets", 12).Return(nil, nil)
	e.github.EXPECT().ListReviews(gomock.Any(), "acme", "widgets", 12).Return([]ghclient.Contribution{
		{Author: testBot, Body: passingReview, Source: ghclient.SourceReview},
	}, nil)

	rec := serve(e.prs.Poll, jsonRequest(t, http.MethodPost, "/api/v1/prs/poll", map[string]any{"id": testKey}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.Equal(t, false, body["pending"])
	assert.Equal(t, string(core.StatusPass), body["status"])
	assert.EqualValues(t, 100, body["score"])
	assert.EqualValues(t, 0, body["issueCount"])
	assert.Equal(t, "Adds retries to the client.", body["summary"])
}

func TestPoll_UpstreamFailure(t *testing.T) {
	e := newEnv(t, nil)
	e.seed(t, core.StatusReviewing)
	e.github.EXPECT().ListIssueComments(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.Join(core.ErrUpstream, errors.New("rate limited"))).AnyTimes()
	e.github.EXPECT().ListReviews(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()

	rec := serve(e.prs.Poll, jsonRequest(t, http.MethodPost, "/api/v1/prs/poll", map[string]any{"id": testKey}))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, core.KindUpstream, errorKind(t, rec))
}

func TestCredit_Success(t *testing.T) {
	e := newEnv(t, nil)
	e.seed(t, core.StatusPass)
	require.NoError(t, e.mappings.Set(context.Background(), "octocat", "cus_octocat"))
	e.provider.EXPECT().CreditBalance(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req payments.CreditRequest) (*payments.Transaction, error) {
			assert.Equal(t, int64(250), req.Amount)
			assert.Equal(t, "PR bonus: acme/widgets#12 - Add retries", req.Description)
			return &payments.Transaction{ID: "cbtxn_1", AccountID: req.AccountID, Amount: req.Amount}, nil
		})

	rec := serve(e.prs.Credit, jsonRequest(t, http.MethodPost, "/api/v1/prs/credit", map[string]any{"id": testKey, "cents": 250}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "cus_octocat", body["paymentAccountId"])
	assert.EqualValues(t, 250, body["amount"])
	assert.Equal(t, "cbtxn_1", body["transactionId"])
	assert.Equal(t, "Credited 2.50 USD to cus_octocat", body["message"])

	got, err := e.store.Get(context.Background(), testKey)
	require.NoError(t, err)
	assert.Equal(t, core.StatusCredited, got.Status)
}

func TestCredit_Duplicate(t *testing.T) {
	e := newEnv(t, nil)
	e.seed(t, core.StatusCredited)

	rec := serve(e.prs.Credit, jsonRequest(t, http.MethodPost, "/api/v1/prs/credit", map[string]any{"id": testKey}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, core.KindDuplicateCredit, errorKind(t, rec))
}

func TestCredit_NotPassing(t *testing.T) {
	e := newEnv(t, nil)
	e.seed(t, core.StatusReviewing)

	rec := serve(e.prs.Credit, jsonRequest(t, http.MethodPost, "/api/v1/prs/credit", map[string]any{"id": testKey}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	got, err := e.store.Get(context.Background(), testKey)
	require.NoError(t, err)
	assert.Equal(t, core.StatusReviewing, got.Status)
}

func TestCredit_ProviderFailureKeepsPass(t *testing.T) {
	e := newEnv(t, nil)
	e.seed(t, core.StatusPass)
	e.provider.EXPECT().FindOrCreateAccount(gomock.Any(), gomock.Any()).
		Return("", errors.Join(core.ErrUpstream, errors.New("card_declined")))

	rec := serve(e.prs.Credit, jsonRequest(t, http.MethodPost, "/api/v1/prs/credit", map[string]any{"id": testKey}))
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	got, err := e.store.Get(context.Background(), testKey)
	require.NoError(t, err)
	assert.Equal(t, core.StatusPass, got.Status)
	assert.Nil(t, got.CreditedAmount)
}

func TestCredit_NegativeAmountRejected(t *testing.T) {
	e := newEnv(t, nil)
	e.seed(t, core.StatusPass)

	rec := serve(e.prs.Credit, jsonRequest(t, http.MethodPost, "/api/v1/prs/credit", map[string]any{"id": testKey, "cents": -5}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListAndDelete(t *testing.T) {
	e := newEnv(t, nil)

	rec := serve(e.prs.List, httptest.NewRequest(http.MethodGet, "/api/v1/prs", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{}, decodeBody(t, rec)["prs"])

	e.seed(t, core.StatusReviewing)
	rec = serve(e.prs.List, httptest.NewRequest(http.MethodGet, "/api/v1/prs", nil))
	prs, ok := decodeBody(t, rec)["prs"].([]any)
	require.True(t, ok)
	require.Len(t, prs, 1)
	assert.Equal(t, testKey, prs[0].(map[string]any)["id"])

	rec = serve(e.prs.List, httptest.NewRequest(http.MethodGet, "/api/v1/prs?id=acme/widgets%2312", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	pr, ok := decodeBody(t, rec)["pr"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Add retries", pr["title"])

	rec = serve(e.prs.List, httptest.NewRequest(http.MethodGet, "/api/v1/prs?id=acme/widgets%2399", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(e.prs.Delete, httptest.NewRequest(http.MethodDelete, "/api/v1/prs", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(e.prs.Delete, httptest.NewRequest(http.MethodDelete, "/api/v1/prs?id=acme/widgets%2313", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(e.prs.Delete, httptest.NewRequest(http.MethodDelete, "/api/v1/prs?id=acme/widgets%2312", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	_, err := e.store.Get(context.Background(), testKey)
	assert.ErrorIs(t, err, core.ErrNotFound)
}
