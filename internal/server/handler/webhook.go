// Package handler provides HTTP handlers for the bounty-warden service.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/go-github/v73/github"

	"github.com/sevigo/bounty-warden/internal/config"
	"github.com/sevigo/bounty-warden/internal/core"
	"github.com/sevigo/bounty-warden/internal/credit"
	"github.com/sevigo/bounty-warden/internal/gateway"
	ghclient "github.com/sevigo/bounty-warden/internal/github"
)

const maxWebhookBody = 25 << 20

// PRService is the pull request pipeline the handlers drive.
type PRService interface {
	HandlePullRequest(ctx context.Context, ev *core.PullRequestEvent) (*core.PRRecord, error)
	HandleBotContent(ctx context.Context, ev *core.BotContentEvent) (*gateway.Outcome, error)
	Poll(ctx context.Context, key string) (*gateway.Outcome, error)
	Credit(ctx context.Context, key string, amount int64) (*credit.Result, error)
	Get(ctx context.Context, key string) (*core.PRRecord, error)
	List(ctx context.Context) ([]*core.PRRecord, error)
	Delete(ctx context.Context, key string) error
}

type webhookResponse struct {
	OK      bool           `json:"ok"`
	Message string         `json:"message"`
	Pending bool           `json:"pending,omitempty"`
	Record  *core.PRRecord `json:"record,omitempty"`
}

// WebhookHandler processes incoming webhooks from GitHub.
type WebhookHandler struct {
	secret []byte
	strict bool
	prs    PRService
	logger *slog.Logger
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(cfg *config.Config, prs PRService, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		secret: []byte(cfg.GitHub.WebhookSecret),
		strict: cfg.Strict(),
		prs:    prs,
		logger: logger,
	}
}

// Handle verifies the signature over the raw body before anything is decoded,
// then routes the event. In strict mode a bad signature is rejected; otherwise
// it is logged and the event is processed.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, h.logger, fmt.Errorf("%w: failed to read body: %v", core.ErrValidation, err))
		return
	}

	if !ghclient.VerifySignature(payload, r.Header.Get(ghclient.SignatureHeader), h.secret) {
		if h.strict {
			h.logger.Warn("rejected webhook with invalid signature", "remote", r.RemoteAddr)
			writeError(w, h.logger, fmt.Errorf("%w: invalid webhook signature", core.ErrAuthentication))
			return
		}
		h.logger.Warn("webhook signature did not verify, continuing in non-production mode")
	}

	eventType := github.WebHookType(r)
	if eventType == "" {
		eventType = sniffEventType(payload)
	}

	event, err := github.ParseWebHook(eventType, payload)
	if err != nil {
		if eventType == "" {
			writeError(w, h.logger, fmt.Errorf("%w: could not determine event type", core.ErrValidation))
			return
		}
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
			writeError(w, h.logger, fmt.Errorf("%w: malformed %s payload: %v", core.ErrValidation, eventType, err))
			return
		}
		h.logger.Debug("ignoring unhandled webhook event type", "type", eventType)
		writeJSON(w, http.StatusOK, webhookResponse{OK: true, Message: "event type not handled"})
		return
	}

	ctx := r.Context()
	switch e := event.(type) {
	case *github.PingEvent:
		writeJSON(w, http.StatusOK, webhookResponse{OK: true, Message: "pong"})
	case *github.PullRequestEvent:
		h.handlePullRequest(ctx, w, e)
	case *github.IssueCommentEvent:
		ev, err := core.EventFromIssueComment(e)
		h.handleBotContent(ctx, w, ev, err)
	case *github.PullRequestReviewEvent:
		ev, err := core.EventFromPullRequestReview(e)
		h.handleBotContent(ctx, w, ev, err)
	default:
		h.logger.Debug("ignoring unhandled webhook event type", "type", eventType)
		writeJSON(w, http.StatusOK, webhookResponse{OK: true, Message: "event type not handled"})
	}
}

func (h *WebhookHandler) handlePullRequest(ctx context.Context, w http.ResponseWriter, e *github.PullRequestEvent) {
	ev, err := core.EventFromPullRequest(e)
	if err != nil {
		h.respondConversionError(w, err)
		return
	}

	rec, err := h.prs.HandlePullRequest(ctx, ev)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, webhookResponse{OK: true, Message: "tracking pull request", Record: rec})
}

func (h *WebhookHandler) handleBotContent(ctx context.Context, w http.ResponseWriter, ev *core.BotContentEvent, convErr error) {
	if convErr != nil {
		h.respondConversionError(w, convErr)
		return
	}

	out, err := h.prs.HandleBotContent(ctx, ev)
	switch {
	case errors.Is(err, core.ErrIgnored):
		h.logger.Debug("ignoring comment", "pr", ev.Key(), "reason", err.Error())
		writeJSON(w, http.StatusOK, webhookResponse{OK: true, Message: "comment ignored"})
		return
	case err != nil:
		writeError(w, h.logger, err)
		return
	}

	msg := "review recorded"
	if out.Pending {
		msg = "review still pending"
	}
	writeJSON(w, http.StatusOK, webhookResponse{OK: true, Message: msg, Pending: out.Pending, Record: out.Record})
}

func (h *WebhookHandler) respondConversionError(w http.ResponseWriter, err error) {
	if errors.Is(err, core.ErrIgnored) {
		h.logger.Debug("ignoring webhook event", "reason", err.Error())
		writeJSON(w, http.StatusOK, webhookResponse{OK: true, Message: "event ignored"})
		return
	}
	writeError(w, h.logger, err)
}

// sniffEventType guesses the event type of a delivery without an X-GitHub-Event header.
func sniffEventType(payload []byte) string {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(payload, &probe); err != nil {
		return ""
	}
	has := func(k string) bool { _, ok := probe[k]; return ok }

	switch {
	case has("zen") && has("hook_id"):
		return "ping"
	case has("review") && has("pull_request"):
		return "pull_request_review"
	case has("comment") && has("issue"):
		return "issue_comment"
	case has("pull_request"):
		return "pull_request"
	}
	return ""
}
