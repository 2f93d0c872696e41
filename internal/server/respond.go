package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/p-n-ai/campus/internal/activity"
	"github.com/p-n-ai/campus/internal/editor"
	"github.com/p-n-ai/campus/internal/enrollment"
	"github.com/p-n-ai/campus/internal/platform/apperr"
	"github.com/p-n-ai/campus/internal/profile"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error   string              `json:"error"`
	Kind    apperr.Kind         `json:"kind"`
	Fields  []apperr.FieldError `json:"fields,omitempty"`
	Missing []string            `json:"missing,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encoding response failed", "error", err)
	}
}

// statusOf maps a classified error to an HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, enrollment.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, activity.ErrNotInteractive), errors.Is(err, activity.ErrUnknownAction):
		return http.StatusUnprocessableEntity
	}
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return http.StatusUnprocessableEntity
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindMutation:
		return http.StatusBadGateway
	case apperr.KindConfig:
		return http.StatusInternalServerError
	default:
		return http.StatusServiceUnavailable
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	s.writeErrorMissing(w, r, err, nil)
}

// writeErrorMissing is writeError for gate failures, listing the profile
// fields the caller still has to fill in.
func (s *Server) writeErrorMissing(w http.ResponseWriter, r *http.Request, err error, missing []string) {
	status := statusOf(err)
	body := errorBody{Error: err.Error(), Kind: apperr.KindOf(err)}
	if status == http.StatusConflict || status == http.StatusUnprocessableEntity {
		body.Kind = apperr.KindValidation
	}

	var ve *apperr.ValidationError
	var pe *editor.ParseError
	switch {
	case errors.As(err, &ve):
		body.Fields = ve.Fields
	case errors.As(err, &pe):
		body.Fields = []apperr.FieldError{{Field: "content", Error: pe.Error()}}
	}
	if errors.Is(err, profile.ErrProfileIncomplete) {
		body.Missing = missing
	}

	if status >= http.StatusInternalServerError {
		s.reporter.Report(r.Context(), r.Method+" "+r.URL.Path, err)
	}
	writeJSON(w, status, body)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return apperr.New(apperr.KindValidation, "decoding request", fmt.Errorf("invalid JSON body: %w", err))
	}
	return nil
}
