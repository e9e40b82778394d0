// Package core defines the essential interfaces and data structures that form the
// backbone of the application. These components are designed to be abstract,
// allowing for flexible and decoupled implementations of the application's logic.
package core

import (
	"fmt"
	"strings"

	"github.com/google/go-github/v73/github"
)

// PullRequestActions are the pull_request webhook actions that (re)start tracking.
var PullRequestActions = map[string]struct{}{
	"opened":      {},
	"synchronize": {},
	"reopened":    {},
}

// PullRequestEvent is the internal view of a PR opened/synchronized/reopened webhook.
type PullRequestEvent struct {
	Owner  string
	Repo   string
	Number int
	Title  string
	Author string
	Action string
}

// Key returns the composite record key for the event.
func (e *PullRequestEvent) Key() string {
	return FormatKey(e.Owner, e.Repo, e.Number)
}

// BotContentEvent is the internal view of a comment or review posted on a pull request.
type BotContentEvent struct {
	Owner     string
	Repo      string
	Number    int
	Commenter string
	Body      string
	// Source is "issue_comment" or "pull_request_review".
	Source string
}

// Key returns the composite record key for the event.
func (e *BotContentEvent) Key() string {
	return FormatKey(e.Owner, e.Repo, e.Number)
}

// EventFromPullRequest transforms a raw GitHub PullRequestEvent into the application's
// internal representation. It acts as an anti-corruption layer: missing identifiers
// are reported as validation errors, unsupported actions as ErrIgnored.
func EventFromPullRequest(event *github.PullRequestEvent) (*PullRequestEvent, error) {
	action := event.GetAction()
	if _, ok := PullRequestActions[action]; !ok {
		return nil, fmt.Errorf("%w: pull_request action %q", ErrIgnored, action)
	}

	owner, repo, err := repoIdentity(event.GetRepo())
	if err != nil {
		return nil, err
	}

	pr := event.GetPullRequest()
	if pr == nil {
		return nil, fmt.Errorf("%w: pull_request object is missing from the event", ErrValidation)
	}
	number := pr.GetNumber()
	if number <= 0 {
		number = event.GetNumber()
	}
	if number <= 0 {
		return nil, fmt.Errorf("%w: invalid pull request number: %d", ErrValidation, number)
	}
	if pr.GetUser().GetLogin() == "" {
		return nil, fmt.Errorf("%w: pull request author is missing from the event", ErrValidation)
	}

	return &PullRequestEvent{
		Owner:  owner,
		Repo:   repo,
		Number: number,
		Title:  pr.GetTitle(),
		Author: pr.GetUser().GetLogin(),
		Action: action,
	}, nil
}

// EventFromIssueComment filters an IssueCommentEvent down to a newly created comment
// on a pull request. Comments on plain issues and edits are ignored.
func EventFromIssueComment(event *github.IssueCommentEvent) (*BotContentEvent, error) {
	if event.GetAction() != "created" {
		return nil, fmt.Errorf("%w: issue_comment action %q", ErrIgnored, event.GetAction())
	}
	if !event.GetIssue().IsPullRequest() {
		return nil, fmt.Errorf("%w: comment is not on a pull request", ErrIgnored)
	}

	owner, repo, err := repoIdentity(event.GetRepo())
	if err != nil {
		return nil, err
	}

	number := event.GetIssue().GetNumber()
	if number <= 0 {
		return nil, fmt.Errorf("%w: invalid pull request number: %d", ErrValidation, number)
	}

	commenter := event.GetComment().GetUser().GetLogin()
	if commenter == "" {
		return nil, fmt.Errorf("%w: commenter information is missing from the event", ErrValidation)
	}

	return &BotContentEvent{
		Owner:     owner,
		Repo:      repo,
		Number:    number,
		Commenter: commenter,
		Body:      event.GetComment().GetBody(),
		Source:    "issue_comment",
	}, nil
}

// EventFromPullRequestReview filters a PullRequestReviewEvent down to a submitted review.
func EventFromPullRequestReview(event *github.PullRequestReviewEvent) (*BotContentEvent, error) {
	if event.GetAction() != "submitted" {
		return nil, fmt.Errorf("%w: pull_request_review action %q", ErrIgnored, event.GetAction())
	}

	owner, repo, err := repoIdentity(event.GetRepo())
	if err != nil {
		return nil, err
	}

	number := event.GetPullRequest().GetNumber()
	if number <= 0 {
		return nil, fmt.Errorf("%w: invalid pull request number: %d", ErrValidation, number)
	}

	reviewer := event.GetReview().GetUser().GetLogin()
	if reviewer == "" {
		return nil, fmt.Errorf("%w: reviewer information is missing from the event", ErrValidation)
	}

	return &BotContentEvent{
		Owner:     owner,
		Repo:      repo,
		Number:    number,
		Commenter: reviewer,
		Body:      event.GetReview().GetBody(),
		Source:    "pull_request_review",
	}, nil
}

// IsBot reports whether login matches the configured review bot identity.
func IsBot(login, botLogin string) bool {
	return botLogin != "" && strings.EqualFold(strings.TrimSpace(login), botLogin)
}

func repoIdentity(repo *github.Repository) (string, string, error) {
	if repo == nil || repo.GetOwner().GetLogin() == "" || repo.GetName() == "" {
		return "", "", fmt.Errorf("%w: repository or owner information is missing from the event", ErrValidation)
	}
	return repo.GetOwner().GetLogin(), repo.GetName(), nil
}
