package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"fota-manager/backend/app/apperr"
	"fota-manager/backend/app/dto"
	"fota-manager/backend/app/middleware"
	"fota-manager/backend/global"
)

const maxJSONBody = 1 << 20

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeError maps an error kind to its HTTP status. Internal details are
// logged, not returned.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := apperr.Message(err)
	if status == http.StatusInternalServerError {
		global.Logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		msg = "internal error"
	}
	if sess := middleware.GetSession(r.Context()); sess != nil {
		sess.AppendLog("error: %s", msg)
	}
	writeJSONError(w, status, msg)
}

func statusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindAlreadyExists:
		return http.StatusConflict
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindAuth:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a JSON body into v and validates it.
func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("decode", "request body is empty")
		}
		return apperr.Validation("decode", "invalid payload")
	}
	return dto.Validate(v)
}

// logf appends to the caller's session log, if any.
func logf(r *http.Request, format string, args ...any) {
	if sess := middleware.GetSession(r.Context()); sess != nil {
		sess.AppendLog(format, args...)
	}
}

// userOf names the requester from the token claims.
func userOf(r *http.Request) string {
	if c := middleware.GetClaims(r.Context()); c != nil {
		return c.UserID
	}
	return ""
}
