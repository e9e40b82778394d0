package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Status is the lifecycle state of a tracked pull request.
type Status string

const (
	StatusReviewing Status = "reviewing"
	StatusPass      Status = "pass"
	StatusFail      Status = "fail"
	StatusCredited  Status = "credited"
	StatusError     Status = "error"
)

// Valid reports whether s is one of the known lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusReviewing, StatusPass, StatusFail, StatusCredited, StatusError:
		return true
	}
	return false
}

// PRRecord is the stored state of a tracked pull request, keyed by owner/repo#number.
type PRRecord struct {
	ID               string            `json:"id"`
	Owner            string            `json:"owner"`
	Repo             string            `json:"repo"`
	Number           int               `json:"prNumber"`
	Title            string            `json:"title"`
	Author           string            `json:"author"`
	Status           Status            `json:"status"`
	ReviewRef        string            `json:"reviewRef,omitempty"`
	Review           *StructuredReview `json:"review,omitempty"`
	Notes            string            `json:"notes,omitempty"`
	CreditedAmount   *int64            `json:"creditedAmount,omitempty"`
	PaymentAccountID string            `json:"paymentAccountId,omitempty"`
	CreditClaimedAt  *time.Time        `json:"-"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

// Clone returns a deep copy so callers never share mutable state with a store.
func (r *PRRecord) Clone() *PRRecord {
	if r == nil {
		return nil
	}
	c := *r
	if r.CreditedAmount != nil {
		v := *r.CreditedAmount
		c.CreditedAmount = &v
	}
	if r.CreditClaimedAt != nil {
		v := *r.CreditClaimedAt
		c.CreditClaimedAt = &v
	}
	if r.Review != nil {
		c.Review = r.Review.Clone()
	}
	return &c
}

// PRUpdate carries the fields to merge into an existing record. Nil fields are left untouched.
type PRUpdate struct {
	Title            *string
	Status           *Status
	ReviewRef        *string
	Review           *StructuredReview
	Notes            *string
	CreditedAmount   *int64
	PaymentAccountID *string
}

// Apply merges u into r in place.
func (u PRUpdate) Apply(r *PRRecord) {
	if u.Title != nil {
		r.Title = *u.Title
	}
	if u.Status != nil {
		r.Status = *u.Status
	}
	if u.ReviewRef != nil {
		r.ReviewRef = *u.ReviewRef
	}
	if u.Review != nil {
		r.Review = u.Review.Clone()
	}
	if u.Notes != nil {
		r.Notes = *u.Notes
	}
	if u.CreditedAmount != nil {
		v := *u.CreditedAmount
		r.CreditedAmount = &v
	}
	if u.PaymentAccountID != nil {
		r.PaymentAccountID = *u.PaymentAccountID
	}
}

// CreditCompletion is the single combined update that moves a record from pass to credited.
type CreditCompletion struct {
	Amount           int64
	PaymentAccountID string
	Note             string
}

// Apply sets the credited state on r in place.
func (c CreditCompletion) Apply(r *PRRecord) {
	amount := c.Amount
	r.Status = StatusCredited
	r.CreditedAmount = &amount
	r.PaymentAccountID = c.PaymentAccountID
	r.CreditClaimedAt = nil
	if c.Note != "" {
		if r.Notes != "" {
			r.Notes += "\n"
		}
		r.Notes += c.Note
	}
}

// FormatKey builds the composite owner/repo#number key.
func FormatKey(owner, repo string, number int) string {
	return fmt.Sprintf("%s/%s#%d", owner, repo, number)
}

// ParseKey splits a composite owner/repo#number key.
func ParseKey(key string) (owner, repo string, number int, err error) {
	key = strings.TrimSpace(key)
	hash := strings.LastIndex(key, "#")
	if hash <= 0 || hash == len(key)-1 {
		return "", "", 0, fmt.Errorf("%w: key %q is not of the form owner/repo#number", ErrValidation, key)
	}
	slug, num := key[:hash], key[hash+1:]

	owner, repo, ok := strings.Cut(slug, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", 0, fmt.Errorf("%w: key %q is not of the form owner/repo#number", ErrValidation, key)
	}

	number, err = strconv.Atoi(num)
	if err != nil || number <= 0 {
		return "", "", 0, fmt.Errorf("%w: key %q has an invalid pull request number", ErrValidation, key)
	}
	return owner, repo, number, nil
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
