package review

import "github.com/sevigo/bounty-warden/internal/core"

// PassingScore is the minimum score for a passing verdict.
const PassingScore = 80

// Decide maps a structured review to pass or fail. A review passes when its
// score is at least PassingScore and it has no critical or error-typed issue.
func Decide(r *core.StructuredReview) core.Verdict {
	if r == nil || r.Score < PassingScore {
		return core.VerdictFail
	}
	for _, issue := range r.Issues {
		if issue.Severity == core.SeverityCritical || issue.Kind == core.IssueError {
			return core.VerdictFail
		}
	}
	return core.VerdictPass
}
