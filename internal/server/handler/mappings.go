package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/sevigo/bounty-warden/internal/core"
	"github.com/sevigo/bounty-warden/internal/storage"
)

type setMappingRequest struct {
	Handle    string `json:"githubUsername" validate:"required"`
	AccountID string `json:"stripeCustomerId" validate:"required,startswith=cus_"`
}

type deleteMappingRequest struct {
	Handle string `json:"githubUsername" validate:"required"`
}

type mappingsResponse struct {
	Success bool                  `json:"success"`
	Users   []core.AccountMapping `json:"users"`
}

// MappingHandler serves the contributor account mapping API.
type MappingHandler struct {
	mappings core.MappingStore
	validate *validator.Validate
	logger   *slog.Logger
}

// NewMappingHandler creates the handler for /api/v1/mappings.
func NewMappingHandler(mappings core.MappingStore, validate *validator.Validate, logger *slog.Logger) *MappingHandler {
	return &MappingHandler{mappings: mappings, validate: validate, logger: logger}
}

// Set creates or replaces the payment account for a contributor handle.
func (h *MappingHandler) Set(w http.ResponseWriter, r *http.Request) {
	var req setMappingRequest
	if err := decodeJSON(r, h.validate, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.mappings.Set(r.Context(), req.Handle, req.AccountID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.logger.Info("account mapping saved", "handle", storage.NormalizeHandle(req.Handle), "account", req.AccountID)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user": core.AccountMapping{
			Handle:    storage.NormalizeHandle(req.Handle),
			AccountID: req.AccountID,
		},
	})
}

// List returns every mapping.
func (h *MappingHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.mappings.List(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if users == nil {
		users = []core.AccountMapping{}
	}
	writeJSON(w, http.StatusOK, mappingsResponse{Success: true, Users: users})
}

// Delete removes the mapping for a handle.
func (h *MappingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req deleteMappingRequest
	if err := decodeJSON(r, h.validate, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.mappings.Delete(r.Context(), req.Handle); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
