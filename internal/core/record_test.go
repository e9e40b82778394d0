package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKey(t *testing.T) {
	owner, repo, number, err := ParseKey("acme/widgets#12")
	require.NoError(t, err)
	assert.Equal(t, "acme", owner)
	assert.Equal(t, "widgets", repo)
	assert.Equal(t, 12, number)
	assert.Equal(t, "acme/widgets#12", FormatKey(owner, repo, number))

	for _, key := range []string{
		"",
		"acme/widgets",
		"acme/widgets#",
		"#12",
		"widgets#12",
		"/widgets#12",
		"acme/#12",
		"acme/widgets/extra#12",
		"acme/widgets#0",
		"acme/widgets#-3",
		"acme/widgets#twelve",
	} {
		_, _, _, err := ParseKey(key)
		assert.ErrorIs(t, err, ErrValidation, "key %q", key)
	}
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("%w: id", ErrValidation), KindValidation},
		{ErrAuthentication, KindAuthentication},
		{fmt.Errorf("wrap: %w", ErrNotFound), KindNotFound},
		{ErrExtractionPending, KindPending},
		{errors.Join(ErrUpstream, errors.New("timeout")), KindUpstream},
		{ErrDuplicateCredit, KindDuplicateCredit},
		{ErrInternal, KindInternal},
		{errors.New("boom"), KindInternal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorKind(tt.err), tt.err.Error())
	}
}

func TestPRUpdateApply(t *testing.T) {
	rec := &PRRecord{ID: "acme/widgets#12", Title: "old", Status: StatusReviewing, Notes: "keep"}
	review := &StructuredReview{Score: 80, Issues: []Issue{{Kind: IssueWarning, Message: "x"}}}

	PRUpdate{Title: Ptr("new"), Status: Ptr(StatusPass), Review: review}.Apply(rec)

	assert.Equal(t, "new", rec.Title)
	assert.Equal(t, StatusPass, rec.Status)
	assert.Equal(t, "keep", rec.Notes)
	require.NotNil(t, rec.Review)

	// The stored review must not alias the caller's value.
	review.Issues[0].Message = "mutated"
	assert.Equal(t, "x", rec.Review.Issues[0].Message)
}

func TestCreditCompletionApply(t *testing.T) {
	claimed := rec12()
	claimed.Notes = "Adds retries."
	CreditCompletion{Amount: 500, PaymentAccountID: "cus_1", Note: "Credited 5.00 USD to customer cus_1"}.Apply(claimed)

	assert.Equal(t, StatusCredited, claimed.Status)
	require.NotNil(t, claimed.CreditedAmount)
	assert.Equal(t, int64(500), *claimed.CreditedAmount)
	assert.Equal(t, "cus_1", claimed.PaymentAccountID)
	assert.Nil(t, claimed.CreditClaimedAt)
	assert.Equal(t, "Adds retries.\nCredited 5.00 USD to customer cus_1", claimed.Notes)
}

func TestClone(t *testing.T) {
	orig := rec12()
	orig.CreditedAmount = Ptr(int64(500))
	orig.Review = &StructuredReview{Issues: []Issue{{Message: "a"}}}

	c := orig.Clone()
	*c.CreditedAmount = 1
	c.Review.Issues[0].Message = "b"

	assert.Equal(t, int64(500), *orig.CreditedAmount)
	assert.Equal(t, "a", orig.Review.Issues[0].Message)
	assert.Nil(t, (*PRRecord)(nil).Clone())
}

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusReviewing, StatusPass, StatusFail, StatusCredited, StatusError} {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, Status("claimed").Valid())
	assert.Equal(t, StatusPass, VerdictPass.Status())
	assert.Equal(t, StatusFail, VerdictFail.Status())
}

func rec12() *PRRecord {
	return &PRRecord{ID: "acme/widgets#12", Owner: "acme", Repo: "widgets", Number: 12, Status: StatusPass}
}
