// Package github provides functionality for interacting with the GitHub API.
package github

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/go-github/v73/github"
)

// Contribution is a comment or review body posted on a pull request.
type Contribution struct {
	Author    string
	Body      string
	Source    string
	CreatedAt time.Time
}

const (
	SourceIssueComment = "issue_comment"
	SourceReview       = "pull_request_review"
)

// Client defines the read-only operations the poll path needs from the GitHub API.
//
//go:generate mockgen -destination=../../mocks/mock_github_client.go -package=mocks -mock_names=Client=MockGitHubClient . Client
type Client interface {
	ListIssueComments(ctx context.Context, owner, repo string, number int) ([]Contribution, error)
	ListReviews(ctx context.Context, owner, repo string, number int) ([]Contribution, error)
}

type gitHubClient struct {
	client *github.Client
	logger *slog.Logger
}

// NewGitHubClient wraps the official go-github client to provide a focused,
// testable interface for application-specific GitHub operations.
func NewGitHubClient(client *github.Client, logger *slog.Logger) Client {
	return &gitHubClient{client: client, logger: logger}
}

// ListIssueComments retrieves every issue comment on a pull request, oldest first.
// It handles pagination automatically.
func (g *gitHubClient) ListIssueComments(ctx context.Context, owner, repo string, number int) ([]Contribution, error) {
	var all []Contribution
	opts := &github.IssueListCommentsOptions{ListOptions: github.ListOptions{PerPage: 100}}

	for {
		comments, resp, err := g.client.Issues.ListComments(ctx, owner, repo, number, opts)
		if err != nil {
			g.logger.Error("failed to list issue comments", "owner", owner, "repo", repo, "pr", number, "error", err)
			return nil, err
		}

		for _, c := range comments {
			all = append(all, Contribution{
				Author:    c.GetUser().GetLogin(),
				Body:      c.GetBody(),
				Source:    SourceIssueComment,
				CreatedAt: c.GetCreatedAt().Time,
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

// ListReviews retrieves every review submitted on a pull request, oldest first.
func (g *gitHubClient) ListReviews(ctx context.Context, owner, repo string, number int) ([]Contribution, error) {
	var all []Contribution
	opts := &github.ListOptions{PerPage: 100}

	for {
		reviews, resp, err := g.client.PullRequests.ListReviews(ctx, owner, repo, number, opts)
		if err != nil {
			g.logger.Error("failed to list pull request reviews", "owner", owner, "repo", repo, "pr", number, "error", err)
			return nil, err
		}

		for _, r := range reviews {
			all = append(all, Contribution{
				Author:    r.GetUser().GetLogin(),
				Body:      r.GetBody(),
				Source:    SourceReview,
				CreatedAt: r.GetSubmittedAt().Time,
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}
