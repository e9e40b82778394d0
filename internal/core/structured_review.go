package core

// IssueKind classifies a review finding.
type IssueKind string

const (
	IssueError      IssueKind = "error"
	IssueWarning    IssueKind = "warning"
	IssueSuggestion IssueKind = "suggestion"
)

// Severity grades a review finding.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityModerate Severity = "moderate"
	SeverityMinor    Severity = "minor"
)

// Issue represents a single finding extracted from the bot's review.
type Issue struct {
	Kind     IssueKind `json:"type"`
	Severity Severity  `json:"severity"`
	Message  string    `json:"message"`
	File     string    `json:"file,omitempty"`
	Line     int       `json:"line,omitempty"`
}

// StructuredReview is the normalized form of a free-text bot review.
// It is never patched: every new bot message produces a new value.
type StructuredReview struct {
	ID         string  `json:"id"`
	Score      int     `json:"score"`
	Summary    string  `json:"summary"`
	Issues     []Issue `json:"issues"`
	RawMessage string  `json:"message"`
}

// Clone returns a deep copy of the review.
func (r *StructuredReview) Clone() *StructuredReview {
	if r == nil {
		return nil
	}
	c := *r
	if r.Issues != nil {
		c.Issues = make([]Issue, len(r.Issues))
		copy(c.Issues, r.Issues)
	}
	return &c
}

// Verdict is the pass/fail outcome derived from a StructuredReview.
type Verdict string

const (
	VerdictPass Verdict = "pass"
	VerdictFail Verdict = "fail"
)

// Status returns the lifecycle status a verdict moves a record to.
func (v Verdict) Status() Status {
	if v == VerdictPass {
		return StatusPass
	}
	return StatusFail
}
