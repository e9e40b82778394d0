// Package greptile talks to the external review service: it submits review
// requests for pull requests and fetches the resulting review text.
package greptile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sevigo/bounty-warden/internal/cache"
	"github.com/sevigo/bounty-warden/internal/config"
	"github.com/sevigo/bounty-warden/internal/core"
)

// RefPrefix marks review references produced by StartReview.
const RefPrefix = "greptile-"

const maxErrorBody = 4 << 10

// Client is the review-service boundary.
//
//go:generate mockgen -destination=../../mocks/mock_greptile_client.go -package=mocks -mock_names=Client=MockGreptileClient . Client
type Client interface {
	// StartReview requests a review of the pull request and returns a reference for GetReview.
	StartReview(ctx context.Context, owner, repo string, number int) (string, error)
	// GetReview returns the review text for ref, or ErrExtractionPending if none is available yet.
	GetReview(ctx context.Context, ref string) (string, error)
}

type message struct {
	Content string `json:"content"`
	Role    string `json:"role"`
}

type repository struct {
	Remote     string `json:"remote"`
	Repository string `json:"repository"`
	Branch     string `json:"branch"`
}

type queryRequest struct {
	Messages     []message    `json:"messages"`
	Repositories []repository `json:"repositories"`
	SessionID    string       `json:"sessionId"`
	Genius       bool         `json:"genius"`
}

type queryResponse struct {
	Message  string `json:"message"`
	Response string `json:"response"`
	Status   string `json:"status"`
}

func (r *queryResponse) text() string {
	if r.Message != "" {
		return r.Message
	}
	return r.Response
}

type httpClient struct {
	baseURL     string
	apiKey      string
	githubToken string
	branch      string
	cacheTTL    time.Duration
	http        *http.Client
	cache       cache.Cache
	logger      *slog.Logger
}

// NewClient creates a review-service client. Responses are kept in c so a
// later GetReview for the same reference needs no round-trip.
func NewClient(cfg *config.Config, c cache.Cache, logger *slog.Logger) Client {
	return NewClientWithHTTP(cfg, c, &http.Client{Timeout: cfg.UpstreamTimeout}, logger)
}

// NewClientWithHTTP is NewClient with a caller-supplied *http.Client.
func NewClientWithHTTP(cfg *config.Config, c cache.Cache, hc *http.Client, logger *slog.Logger) Client {
	return &httpClient{
		baseURL:     strings.TrimRight(cfg.Greptile.APIURL, "/"),
		apiKey:      cfg.Greptile.APIKey,
		githubToken: cfg.GitHub.Token,
		branch:      cfg.Greptile.Branch,
		cacheTTL:    cfg.Cache.TTL,
		http:        hc,
		cache:       c,
		logger:      logger,
	}
}

// SessionID is the review-service session for a pull request.
func SessionID(owner, repo string, number int) string {
	return fmt.Sprintf("pr-%s-%s-%d", owner, repo, number)
}

func reviewPrompt(owner, repo string, number int) string {
	return fmt.Sprintf(`Review pull request #%d in the %s/%s repository.

Start with a "Greptile Summary" section giving a short overview of the change.
Add an "Important Files Changed" table with the columns Filename, Score (N/5) and Overview.
Finish with a line of the form "Confidence score: N/5" for the pull request as a whole.`,
		number, owner, repo)
}

func (c *httpClient) StartReview(ctx context.Context, owner, repo string, number int) (string, error) {
	sessionID := SessionID(owner, repo, number)
	body := queryRequest{
		Messages: []message{{Role: "user", Content: reviewPrompt(owner, repo, number)}},
		Repositories: []repository{{
			Remote:     "github",
			Repository: owner + "/" + repo,
			Branch:     c.branch,
		}},
		SessionID: sessionID,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to encode review request: %w", err)
	}

	c.logger.Info("requesting review", "repo", owner+"/"+repo, "pr", number, "session", sessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/query", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build review request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	raw, err := c.do(req)
	if err != nil {
		return "", err
	}

	ref := RefPrefix + sessionID
	if err := c.cache.Set(ctx, ref, raw, c.cacheTTL); err != nil {
		c.logger.Warn("failed to cache review response", "ref", ref, "error", err)
	}
	return ref, nil
}

func (c *httpClient) GetReview(ctx context.Context, ref string) (string, error) {
	if ref == "" {
		return "", fmt.Errorf("%w: review reference is empty", core.ErrValidation)
	}

	raw, ok, err := c.cache.Get(ctx, ref)
	if err != nil {
		c.logger.Warn("review cache lookup failed", "ref", ref, "error", err)
	}
	if !ok {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/query/"+url.PathEscape(ref), nil)
		if err != nil {
			return "", fmt.Errorf("failed to build review fetch: %w", err)
		}
		raw, err = c.do(req)
		if err != nil {
			return "", err
		}
	}

	var resp queryResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("%w: malformed review response for %s: %v", core.ErrUpstream, ref, err)
	}
	text := resp.text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: review %s has no content yet", core.ErrExtractionPending, ref)
	}
	if !ok {
		if err := c.cache.Set(ctx, ref, raw, c.cacheTTL); err != nil {
			c.logger.Warn("failed to cache review response", "ref", ref, "error", err)
		}
	}
	return text, nil
}

// do sends req with the service credentials and returns the body of a 2xx response.
// A 404 means the review does not exist yet and is reported as pending.
func (c *httpClient) do(req *http.Request) ([]byte, error) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if c.githubToken != "" {
		req.Header.Set("X-Github-Token", c.githubToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: review service request failed: %v", core.ErrUpstream, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: review service has no result for %s", core.ErrExtractionPending, req.URL.Path)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%w: review service returned %d: %s", core.ErrUpstream, resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read review service response: %v", core.ErrUpstream, err)
	}
	return body, nil
}
