package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sevigo/bounty-warden/internal/core"
)

const maxRequestBody = 1 << 20

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to its HTTP status and writes the stable error body.
// Internal errors are logged and never echo their detail.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	kind := core.ErrorKind(err)
	status := http.StatusInternalServerError
	msg := err.Error()

	switch kind {
	case core.KindValidation, core.KindDuplicateCredit:
		status = http.StatusBadRequest
	case core.KindAuthentication:
		status = http.StatusUnauthorized
	case core.KindNotFound:
		status = http.StatusNotFound
	case core.KindUpstream:
		status = http.StatusBadGateway
	case core.KindPending:
		status = http.StatusAccepted
	default:
		logger.Error("request failed", "error", err)
		msg = "internal error"
	}

	writeJSON(w, status, errorBody{Error: errorDetail{Kind: kind, Message: msg}})
}

// decodeJSON reads a JSON body into dst and validates its struct tags.
func decodeJSON(r *http.Request, validate *validator.Validate, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", core.ErrValidation, err)
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %s", core.ErrValidation, describeValidation(err))
	}
	return nil
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "startswith":
			msgs = append(msgs, fmt.Sprintf("%s must start with %q", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}

// NewValidator returns a validator that reports JSON field names.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}
