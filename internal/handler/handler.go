package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"storefront/internal/model"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but don't expose it to the client
		return
	}
}

// writeError writes an error response with the given status code, code and message.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, logger zerolog.Logger) {
	event := logger.Warn()
	if status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.Str("error", code).Str("message", message).Int("status", status).Msg("handler error")

	writeJSON(w, status, model.ErrorResponse{
		Error:     code,
		Message:   message,
		RequestID: middleware.GetReqID(r.Context()),
	})
}

// writeDomainError maps err onto its HTTP status and error body.
// Errors outside the domain taxonomy are reported as internal without detail.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error, logger zerolog.Logger) {
	var domainErr *model.DomainError
	if !errors.As(err, &domainErr) {
		logger.Error().Err(err).Str("path", r.URL.Path).Msg("unexpected error")
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "internal server error", logger)
		return
	}

	message := domainErr.Message
	if status := statusFor(domainErr.Code); status < http.StatusInternalServerError {
		// Client errors carry the wrapped detail, e.g. which option was rejected.
		message = err.Error()
		writeError(w, r, status, domainErr.Code, message, logger)
		return
	}

	logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	writeError(w, r, statusFor(domainErr.Code), domainErr.Code, message, logger)
}

// ErrorWriter returns a writer for errors raised outside a handler, such as
// while binding the request to a cart.
func ErrorWriter(logger zerolog.Logger) func(http.ResponseWriter, *http.Request, error) {
	logger = logger.With().Str("handler", "error").Logger()
	return func(w http.ResponseWriter, r *http.Request, err error) {
		writeDomainError(w, r, err, logger)
	}
}

// statusFor returns the HTTP status of a domain error code.
func statusFor(code string) int {
	switch code {
	case model.ErrCodeInvalidJSON,
		model.ErrCodeMissingField,
		model.ErrCodeInvalidOption,
		model.ErrCodePriceMismatch,
		model.ErrCodeInvalidQuantity:
		return http.StatusBadRequest
	case model.ErrCodeProductNotFound,
		model.ErrCodeLineNotFound,
		model.ErrCodeNotFound:
		return http.StatusNotFound
	case model.ErrCodeUnauthorised:
		return http.StatusUnauthorized
	case model.ErrCodeMergeConflict,
		model.ErrCodeStorageUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON decodes the request body into dst. Malformed bodies become
// INVALID_JSON; domain errors raised while decoding, such as an unsupported
// option value, are returned unchanged.
func decodeJSON(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return model.NewDomainError(model.ErrCodeInvalidJSON, "request body is required")
	}

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var domainErr *model.DomainError
		if errors.As(err, &domainErr) {
			return err
		}
		return model.NewDomainError(model.ErrCodeInvalidJSON, "invalid request body: "+err.Error())
	}
	return nil
}
