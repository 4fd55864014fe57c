package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"bazaar/internal/middleware"
	"bazaar/internal/model"

	"github.com/rs/zerolog"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// the status line is already sent
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response with the given status code, code and message.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, logger zerolog.Logger) {
	requestID := middleware.RequestIDFromContext(r.Context())
	event := logger.Warn()
	if status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.Str("code", code).
		Str("error", message).
		Int("status", status).
		Str("request_id", requestID).
		Msg("handler error")

	writeJSON(w, status, model.ErrorResponse{
		Error:         code,
		Message:       message,
		CorrelationID: requestID,
	})
}

// writeServiceError maps a service error onto an HTTP response. Domain errors
// keep their code and message; anything else is reported as an internal error.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, logger zerolog.Logger) {
	de, ok := model.AsDomainError(err)
	if !ok {
		logger.Error().Err(err).Str("path", r.URL.Path).Msg("unexpected service error")
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "internal server error", logger)
		return
	}
	writeError(w, r, statusFor(de.Kind), de.Code, de.Message, logger)
}

func statusFor(kind model.ErrorKind) int {
	switch kind {
	case model.KindValidation:
		return http.StatusBadRequest
	case model.KindNotFound:
		return http.StatusNotFound
	case model.KindForbidden:
		return http.StatusForbidden
	case model.KindConflict, model.KindTransition:
		return http.StatusConflict
	case model.KindRemote:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

var errInvalidID = errors.New("invalid id")

// pathID parses the {id} path wildcard as a positive integer.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}

// queryInt parses an optional integer query parameter, returning def when absent.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

// currentUser returns the authenticated user or writes a 401.
func currentUser(w http.ResponseWriter, r *http.Request, logger zerolog.Logger) (int64, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok || userID <= 0 {
		writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorised, "authentication required", logger)
		return 0, false
	}
	return userID, true
}
