package storage

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/bounty-warden/internal/core"
)

func newRecord(key string) *core.PRRecord {
	owner, repo, number, _ := core.ParseKey(key)
	return &core.PRRecord{
		ID:     key,
		Owner:  owner,
		Repo:   repo,
		Number: number,
		Title:  "Add retries",
		Author: "octocat",
		Status: core.StatusReviewing,
	}
}

func frozenClock() func() time.Time {
	t := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return t }
}

func TestMemoryStore_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	created, err := s.Create(ctx, newRecord("acme/widgets#12"))
	require.NoError(t, err)
	assert.Equal(t, core.StatusReviewing, created.Status)
	assert.False(t, created.UpdatedAt.IsZero())
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)

	got, err := s.Get(ctx, "acme/widgets#12")
	require.NoError(t, err)
	assert.Equal(t, created, got)

	_, err = s.Get(ctx, "acme/widgets#13")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestMemoryStore_CreateIsUpsert(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Create(ctx, newRecord("acme/widgets#12"))
	require.NoError(t, err)
	_, err = s.Update(ctx, "acme/widgets#12", core.PRUpdate{Status: core.Ptr(core.StatusFail), Notes: core.Ptr("bad")})
	require.NoError(t, err)

	rec := newRecord("acme/widgets#12")
	rec.Title = "Add retries v2"
	again, err := s.Create(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, core.StatusReviewing, again.Status)
	assert.Equal(t, "Add retries v2", again.Title)
	assert.Empty(t, again.Notes)

	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestMemoryStore_CreateKeepsCreditedRecord(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Create(ctx, newRecord("acme/widgets#12"))
	require.NoError(t, err)
	_, err = s.Update(ctx, "acme/widgets#12", core.PRUpdate{Status: core.Ptr(core.StatusPass)})
	require.NoError(t, err)
	_, err = s.ClaimCredit(ctx, "acme/widgets#12")
	require.NoError(t, err)
	credited, err := s.CompleteCredit(ctx, "acme/widgets#12", core.CreditCompletion{Amount: 500, PaymentAccountID: "cus_123"})
	require.NoError(t, err)

	again, err := s.Create(ctx, newRecord("acme/widgets#12"))
	require.NoError(t, err)
	assert.Equal(t, credited, again)

	got, err := s.Get(ctx, "acme/widgets#12")
	require.NoError(t, err)
	assert.Equal(t, core.StatusCredited, got.Status)
	require.NotNil(t, got.CreditedAmount)
	assert.Equal(t, int64(500), *got.CreditedAmount)
}

func TestMemoryStore_UpdateMergesFields(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	created, err := s.Create(ctx, newRecord("acme/widgets#12"))
	require.NoError(t, err)

	review := &core.StructuredReview{Score: 100, Summary: "ok"}
	updated, err := s.Update(ctx, "acme/widgets#12", core.PRUpdate{
		Status: core.Ptr(core.StatusPass),
		Review: review,
	})
	require.NoError(t, err)
	assert.Equal(t, core.StatusPass, updated.Status)
	assert.Equal(t, "Add retries", updated.Title)
	assert.Equal(t, 100, updated.Review.Score)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))

	review.Score = 0
	got, err := s.Get(ctx, "acme/widgets#12")
	require.NoError(t, err)
	assert.Equal(t, 100, got.Review.Score, "store must not alias caller state")
}

func TestMemoryStore_UpdateAbsentKeyIsNoop(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	rec, err := s.Update(ctx, "acme/widgets#99", core.PRUpdate{Status: core.Ptr(core.StatusPass)})
	require.NoError(t, err)
	assert.Nil(t, rec)

	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestMemoryStore_UpdatedAtStrictlyIncreasing(t *testing.T) {
	ctx := context.Background()
	s := newMemoryStore(frozenClock())

	prev, err := s.Create(ctx, newRecord("acme/widgets#1"))
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		next, err := s.Update(ctx, "acme/widgets#1", core.PRUpdate{Notes: core.Ptr(fmt.Sprint(i))})
		require.NoError(t, err)
		assert.True(t, next.UpdatedAt.After(prev.UpdatedAt))
		prev = next
	}
}

func TestMemoryStore_ListOrderedByUpdatedAtDesc(t *testing.T) {
	ctx := context.Background()
	s := newMemoryStore(frozenClock())

	for _, key := range []string{"acme/a#1", "acme/b#2", "acme/c#3"} {
		_, err := s.Create(ctx, newRecord(key))
		require.NoError(t, err)
	}
	_, err := s.Update(ctx, "acme/a#1", core.PRUpdate{Notes: core.Ptr("touched")})
	require.NoError(t, err)

	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "acme/a#1", all[0].ID)
	assert.Equal(t, "acme/c#3", all[1].ID)
	assert.Equal(t, "acme/b#2", all[2].ID)
}

func TestMemoryStore_Delete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_, err := s.Create(ctx, newRecord("acme/widgets#12"))
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "acme/widgets#12"))
	assert.ErrorIs(t, s.Delete(ctx, "acme/widgets#12"), core.ErrNotFound)
}

func TestMemoryStore_CreditLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_, err := s.Create(ctx, newRecord("acme/widgets#12"))
	require.NoError(t, err)

	_, err = s.ClaimCredit(ctx, "acme/widgets#12")
	assert.ErrorIs(t, err, core.ErrDuplicateCredit, "reviewing records cannot be claimed")

	_, err = s.Update(ctx, "acme/widgets#12", core.PRUpdate{Status: core.Ptr(core.StatusPass), Notes: core.Ptr("Looks good")})
	require.NoError(t, err)

	claimed, err := s.ClaimCredit(ctx, "acme/widgets#12")
	require.NoError(t, err)
	assert.NotNil(t, claimed.CreditClaimedAt)
	assert.Equal(t, core.StatusPass, claimed.Status)

	_, err = s.ClaimCredit(ctx, "acme/widgets#12")
	assert.ErrorIs(t, err, core.ErrDuplicateCredit)

	require.NoError(t, s.ReleaseCredit(ctx, "acme/widgets#12"))
	_, err = s.ClaimCredit(ctx, "acme/widgets#12")
	require.NoError(t, err)

	done, err := s.CompleteCredit(ctx, "acme/widgets#12", core.CreditCompletion{
		Amount:           500,
		PaymentAccountID: "cus_123",
		Note:             "Credited $5.00",
	})
	require.NoError(t, err)
	assert.Equal(t, core.StatusCredited, done.Status)
	require.NotNil(t, done.CreditedAmount)
	assert.Equal(t, int64(500), *done.CreditedAmount)
	assert.Equal(t, "cus_123", done.PaymentAccountID)
	assert.Equal(t, "Looks good\nCredited $5.00", done.Notes)
	assert.Nil(t, done.CreditClaimedAt)

	_, err = s.ClaimCredit(ctx, "acme/widgets#12")
	assert.ErrorIs(t, err, core.ErrDuplicateCredit)
	_, err = s.CompleteCredit(ctx, "acme/widgets#12", core.CreditCompletion{Amount: 500})
	assert.ErrorIs(t, err, core.ErrDuplicateCredit)
}

func TestMemoryStore_ClaimUnknownKey(t *testing.T) {
	_, err := NewMemoryStore().ClaimCredit(context.Background(), "acme/widgets#1")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestMemoryStore_ConcurrentClaimsSingleWinner(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_, err := s.Create(ctx, newRecord("acme/widgets#12"))
	require.NoError(t, err)
	_, err = s.Update(ctx, "acme/widgets#12", core.PRUpdate{Status: core.Ptr(core.StatusPass)})
	require.NoError(t, err)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.ClaimCredit(ctx, "acme/widgets#12"); err == nil {
				wins.Add(1)
			} else {
				assert.ErrorIs(t, err, core.ErrDuplicateCredit)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestMemoryStore_ConcurrentUpdatesDifferentKeys(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		key := core.FormatKey("acme", "widgets", i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Create(ctx, newRecord(key))
			assert.NoError(t, err)
			_, err = s.Update(ctx, key, core.PRUpdate{Status: core.Ptr(core.StatusFail)})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 20)
	for _, rec := range all {
		assert.Equal(t, core.StatusFail, rec.Status)
	}
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMemoryStore().Create(ctx, newRecord("acme/widgets#12"))
	assert.ErrorIs(t, err, context.Canceled)
}
