package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/sevigo/bounty-warden/internal/config"
	"github.com/sevigo/bounty-warden/internal/core"
	ghclient "github.com/sevigo/bounty-warden/internal/github"
)

func contribution(author, body, source string) ghclient.Contribution {
	return ghclient.Contribution{Author: author, Body: body, Source: source, CreatedAt: time.Now()}
}

func (h *harness) expectListings(comments, reviews []ghclient.Contribution) {
	h.github.EXPECT().ListIssueComments(gomock.Any(), "acme", "widgets", 12).Return(comments, nil)
	h.github.EXPECT().ListReviews(gomock.Any(), "acme", "widgets", 12).Return(reviews, nil)
}

func TestPoll_PrefersBotReview(t *testing.T) {
	h := newHarness(t, nil)
	h.open(t)
	h.expectListings(
		[]ghclient.Contribution{
			contribution(botLogin, "Confidence score: 1/5", ghclient.SourceIssueComment),
			contribution("octocat", "Confidence score: 5/5", ghclient.SourceIssueComment),
		},
		[]ghclient.Contribution{
			contribution(botLogin, passingReview, ghclient.SourceReview),
		},
	)

	out, err := h.gw.Poll(context.Background(), prKey)
	require.NoError(t, err)
	assert.False(t, out.Pending)
	assert.Equal(t, core.StatusPass, out.Record.Status)
	assert.Equal(t, 100, out.Record.Review.Score)
}

func TestPoll_FallsBackToNewestBotComment(t *testing.T) {
	h := newHarness(t, nil)
	h.open(t)
	h.expectListings(
		[]ghclient.Contribution{
			contribution(botLogin, "Confidence score: 5/5", ghclient.SourceIssueComment),
			contribution(botLogin, "Confidence score: 2/5", ghclient.SourceIssueComment),
			contribution("octocat", "thanks!", ghclient.SourceIssueComment),
		},
		nil,
	)

	out, err := h.gw.Poll(context.Background(), prKey)
	require.NoError(t, err)
	assert.Equal(t, core.StatusFail, out.Record.Status)
	assert.Equal(t, 40, out.Record.Review.Score)
}

func TestPoll_PendingWithoutBotContent(t *testing.T) {
	h := newHarness(t, nil)
	before := h.open(t)
	h.expectListings([]ghclient.Contribution{contribution("octocat", "ping", ghclient.SourceIssueComment)}, nil)

	out, err := h.gw.Poll(context.Background(), prKey)
	require.NoError(t, err)
	assert.True(t, out.Pending)
	assert.Equal(t, core.StatusReviewing, out.Record.Status)

	rec, err := h.store.Get(context.Background(), prKey)
	require.NoError(t, err)
	assert.Equal(t, before.UpdatedAt, rec.UpdatedAt)
}

func TestPoll_UsesReviewServiceReference(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.Greptile.RequestReviews = true })
	h.reviews.EXPECT().StartReview(gomock.Any(), "acme", "widgets", 12).Return("greptile-pr-acme-widgets-12", nil)
	h.open(t)

	h.expectListings(nil, nil)
	h.reviews.EXPECT().GetReview(gomock.Any(), "greptile-pr-acme-widgets-12").Return(passingReview, nil)

	out, err := h.gw.Poll(context.Background(), prKey)
	require.NoError(t, err)
	assert.Equal(t, core.StatusPass, out.Record.Status)
}

func TestPoll_PendingTimeoutMarksError(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.PendingTimeout = time.Hour })
	h.open(t)
	h.gw.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	h.expectListings(nil, nil)

	out, err := h.gw.Poll(context.Background(), prKey)
	require.NoError(t, err)
	assert.False(t, out.Pending)
	assert.Equal(t, core.StatusError, out.Record.Status)
	assert.Contains(t, out.Record.Notes, "No review received within 1h0m0s")
}

func TestPoll_PendingTimeoutNotYetExpired(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.PendingTimeout = time.Hour })
	h.open(t)
	h.expectListings(nil, nil)

	out, err := h.gw.Poll(context.Background(), prKey)
	require.NoError(t, err)
	assert.True(t, out.Pending)
	assert.Equal(t, core.StatusReviewing, out.Record.Status)
}

func TestPoll_UpstreamFailureLeavesStatus(t *testing.T) {
	h := newHarness(t, nil)
	h.open(t)
	h.github.EXPECT().ListIssueComments(gomock.Any(), "acme", "widgets", 12).Return(nil, errors.New("502 bad gateway"))
	h.github.EXPECT().ListReviews(gomock.Any(), "acme", "widgets", 12).Return(nil, nil).AnyTimes()

	_, err := h.gw.Poll(context.Background(), prKey)
	assert.ErrorIs(t, err, core.ErrUpstream)

	rec, err := h.store.Get(context.Background(), prKey)
	require.NoError(t, err)
	assert.Equal(t, core.StatusReviewing, rec.Status)
}

func TestPoll_SettledRecordSkipsFetch(t *testing.T) {
	h := newHarness(t, nil)
	h.open(t)
	_, err := h.gw.HandleBotContent(context.Background(), botComment("Confidence score: 1/5"))
	require.NoError(t, err)

	out, err := h.gw.Poll(context.Background(), prKey)
	require.NoError(t, err)
	assert.Equal(t, core.StatusFail, out.Record.Status)
}

func TestPoll_Validation(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.gw.Poll(context.Background(), "not-a-key")
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = h.gw.Poll(context.Background(), "acme/widgets#99")
	assert.ErrorIs(t, err, core.ErrNotFound)
}
