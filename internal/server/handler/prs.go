package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sevigo/bounty-warden/internal/core"
	"github.com/sevigo/bounty-warden/internal/credit"
)

type pollRequest struct {
	ID string `json:"id" validate:"required"`
}

type pollResponse struct {
	Success    bool        `json:"success"`
	ID         string      `json:"id"`
	Status     core.Status `json:"status"`
	Score      *int        `json:"score,omitempty"`
	IssueCount int         `json:"issueCount"`
	Summary    string      `json:"summary,omitempty"`
	Pending    bool        `json:"pending"`
	Message    string      `json:"message,omitempty"`
}

type creditRequest struct {
	ID    string `json:"id" validate:"required"`
	Cents int64  `json:"cents" validate:"gte=0"`
}

type creditResponse struct {
	Success          bool           `json:"success"`
	PaymentAccountID string         `json:"paymentAccountId"`
	Amount           int64          `json:"amount"`
	TransactionID    string         `json:"transactionId"`
	Message          string         `json:"message"`
	Record           *core.PRRecord `json:"record"`
}

type recordResponse struct {
	Success bool           `json:"success"`
	PR      *core.PRRecord `json:"pr"`
}

type listResponse struct {
	Success bool             `json:"success"`
	PRs     []*core.PRRecord `json:"prs"`
}

// PRHandler serves the pull request admin API.
type PRHandler struct {
	prs      PRService
	currency string
	validate *validator.Validate
	logger   *slog.Logger
}

// NewPRHandler creates the handler for /api/v1/prs.
func NewPRHandler(prs PRService, currency string, validate *validator.Validate, logger *slog.Logger) *PRHandler {
	return &PRHandler{prs: prs, currency: currency, validate: validate, logger: logger}
}

// List returns every tracked record, most recently updated first, or the
// single record named by ?id=.
func (h *PRHandler) List(w http.ResponseWriter, r *http.Request) {
	if key := strings.TrimSpace(r.URL.Query().Get("id")); key != "" {
		h.get(w, r, key)
		return
	}

	recs, err := h.prs.List(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if recs == nil {
		recs = []*core.PRRecord{}
	}
	writeJSON(w, http.StatusOK, listResponse{Success: true, PRs: recs})
}

func (h *PRHandler) get(w http.ResponseWriter, r *http.Request, key string) {
	if _, _, _, err := core.ParseKey(key); err != nil {
		writeError(w, h.logger, err)
		return
	}
	rec, err := h.prs.Get(r.Context(), key)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, recordResponse{Success: true, PR: rec})
}

// Delete removes a record by ?id=owner/repo#number.
func (h *PRHandler) Delete(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(r.URL.Query().Get("id"))
	if key == "" {
		writeError(w, h.logger, fmt.Errorf("%w: id is required", core.ErrValidation))
		return
	}
	if _, _, _, err := core.ParseKey(key); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.prs.Delete(r.Context(), key); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "id": key})
}

// Poll fetches the latest bot content for a record on demand.
func (h *PRHandler) Poll(w http.ResponseWriter, r *http.Request) {
	var req pollRequest
	if err := decodeJSON(r, h.validate, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	out, err := h.prs.Poll(r.Context(), req.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	rec := out.Record
	resp := pollResponse{
		Success: true,
		ID:      rec.ID,
		Status:  rec.Status,
		Pending: out.Pending,
	}
	if rec.Review != nil {
		score := rec.Review.Score
		resp.Score = &score
		resp.IssueCount = len(rec.Review.Issues)
		resp.Summary = rec.Review.Summary
	}
	switch {
	case out.Pending:
		resp.Message = "no review available yet"
	case out.Credit != nil:
		resp.Message = creditMessage(out.Credit, h.currency)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Credit pays the bonus for a passing record. Cents of zero uses the configured amount.
func (h *PRHandler) Credit(w http.ResponseWriter, r *http.Request) {
	var req creditRequest
	if err := decodeJSON(r, h.validate, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	res, err := h.prs.Credit(r.Context(), req.ID, req.Cents)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, creditResponse{
		Success:          true,
		PaymentAccountID: res.AccountID,
		Amount:           res.Amount,
		TransactionID:    res.TransactionID,
		Message:          creditMessage(res, h.currency),
		Record:           res.Record,
	})
}

func creditMessage(res *credit.Result, currency string) string {
	return fmt.Sprintf("Credited %s to %s", credit.FormatAmount(res.Amount, currency), res.AccountID)
}
