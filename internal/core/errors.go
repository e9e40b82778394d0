package core

import "errors"

var (
	// ErrValidation signals missing or malformed identifiers in a request.
	ErrValidation = errors.New("validation failed")
	// ErrAuthentication signals a webhook signature that did not verify.
	ErrAuthentication = errors.New("authentication failed")
	// ErrNotFound signals an unknown PR key.
	ErrNotFound = errors.New("not found")
	// ErrExtractionPending signals that no parseable bot review is available yet.
	ErrExtractionPending = errors.New("review still pending")
	// ErrUpstream signals a failed or timed out call to GitHub, the review service or payments.
	ErrUpstream = errors.New("upstream call failed")
	// ErrDuplicateCredit signals a credit attempt on a credited or non-passing record.
	ErrDuplicateCredit = errors.New("duplicate credit")
	// ErrInternal signals an unexpected fault.
	ErrInternal = errors.New("internal error")
	// ErrIgnored marks events the pipeline deliberately does not act on.
	ErrIgnored = errors.New("event ignored")
)

// Error kinds exposed across the HTTP boundary.
const (
	KindValidation      = "validation"
	KindAuthentication  = "authentication"
	KindNotFound        = "not_found"
	KindPending         = "pending"
	KindUpstream        = "upstream"
	KindDuplicateCredit = "duplicate_credit"
	KindInternal        = "internal"
)

// ErrorKind maps err to a stable machine-readable kind.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrAuthentication):
		return KindAuthentication
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrExtractionPending):
		return KindPending
	case errors.Is(err, ErrDuplicateCredit):
		return KindDuplicateCredit
	case errors.Is(err, ErrUpstream):
		return KindUpstream
	default:
		return KindInternal
	}
}
