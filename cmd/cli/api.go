package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sevigo/bounty-warden/internal/core"
)

// apiClient talks to the server's /api/v1 endpoints.
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string, timeout time.Duration) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/") + "/api/v1",
		http:    &http.Client{Timeout: timeout},
	}
}

type apiError struct {
	Status  int
	Kind    string
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Kind, e.Status, e.Message)
}

type prRecordList struct {
	PRs []*core.PRRecord `json:"prs"`
}

type prRecordOne struct {
	PR *core.PRRecord `json:"pr"`
}

type pollResult struct {
	ID         string      `json:"id"`
	Status     core.Status `json:"status"`
	Score      *int        `json:"score"`
	IssueCount int         `json:"issueCount"`
	Summary    string      `json:"summary"`
	Pending    bool        `json:"pending"`
	Message    string      `json:"message"`
}

type creditResult struct {
	PaymentAccountID string `json:"paymentAccountId"`
	Amount           int64  `json:"amount"`
	TransactionID    string `json:"transactionId"`
	Message          string `json:"message"`
}

type mappingList struct {
	Users []core.AccountMapping `json:"users"`
}

func (c *apiClient) listPRs(ctx context.Context) ([]*core.PRRecord, error) {
	var out prRecordList
	if err := c.do(ctx, http.MethodGet, "/prs", nil, &out); err != nil {
		return nil, err
	}
	return out.PRs, nil
}

func (c *apiClient) getPR(ctx context.Context, key string) (*core.PRRecord, error) {
	var out prRecordOne
	if err := c.do(ctx, http.MethodGet, "/prs?id="+url.QueryEscape(key), nil, &out); err != nil {
		return nil, err
	}
	return out.PR, nil
}

func (c *apiClient) poll(ctx context.Context, key string) (*pollResult, error) {
	var out pollResult
	if err := c.do(ctx, http.MethodPost, "/prs/poll", map[string]any{"id": key}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) credit(ctx context.Context, key string, cents int64) (*creditResult, error) {
	var out creditResult
	if err := c.do(ctx, http.MethodPost, "/prs/credit", map[string]any{"id": key, "cents": cents}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) deletePR(ctx context.Context, key string) error {
	return c.do(ctx, http.MethodDelete, "/prs?id="+url.QueryEscape(key), nil, nil)
}

func (c *apiClient) listMappings(ctx context.Context) ([]core.AccountMapping, error) {
	var out mappingList
	if err := c.do(ctx, http.MethodGet, "/mappings", nil, &out); err != nil {
		return nil, err
	}
	return out.Users, nil
}

func (c *apiClient) setMapping(ctx context.Context, handle, accountID string) error {
	return c.do(ctx, http.MethodPost, "/mappings", map[string]any{
		"githubUsername":   handle,
		"stripeCustomerId": accountID,
	}, nil)
}

func (c *apiClient) deleteMapping(ctx context.Context, handle string) error {
	return c.do(ctx, http.MethodDelete, "/mappings", map[string]any{"githubUsername": handle}, nil)
}

func (c *apiClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var eb struct {
			Error struct {
				Kind    string `json:"kind"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if jsonErr := json.Unmarshal(data, &eb); jsonErr != nil || eb.Error.Kind == "" {
			return &apiError{Status: resp.StatusCode, Kind: "http", Message: strings.TrimSpace(string(data))}
		}
		return &apiError{Status: resp.StatusCode, Kind: eb.Error.Kind, Message: eb.Error.Message}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
