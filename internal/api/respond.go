package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"coachsite/internal/auth"
	"coachsite/internal/booking"
	"coachsite/internal/content"
	"coachsite/internal/media"
	"coachsite/internal/repository"
	"coachsite/internal/settings"
	"coachsite/internal/validation"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// statusFor maps a service error to an HTTP status.
func statusFor(err error) int {
	switch {
	case validation.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, booking.ErrSessionNotFound),
		errors.Is(err, settings.ErrUnknownGroup):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrConflict),
		errors.Is(err, content.ErrInvalidStatus),
		errors.Is(err, booking.ErrInvalidTransition),
		errors.Is(err, booking.ErrSlotTaken):
		return http.StatusConflict
	case errors.Is(err, media.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusInternalServerError
}

// fail writes err with its mapped status. Server errors are logged.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
	}
	resp := errorResponse{Error: err.Error()}
	var ve *validation.Error
	if errors.As(err, &ve) {
		resp.Field = ve.Field
	}
	writeJSON(w, status, resp)
}

// decodeJSON reads a single JSON object into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return validation.Invalid("body", fmt.Sprintf("invalid JSON: %v", err))
	}
	return nil
}

// readBody returns the raw body for handlers that merge partial JSON.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, validation.Invalid("body", "too large")
	}
	if !json.Valid(data) {
		return nil, validation.Invalid("body", "invalid JSON")
	}
	return data, nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, validation.Invalid(name, "must be a positive integer")
	}
	return id, nil
}

func queryInt(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, validation.Invalid(name, "must be a non-negative integer")
	}
	return n, nil
}
