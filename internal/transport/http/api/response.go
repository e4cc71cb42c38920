package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"hrm-payroll/internal/apperror"
)

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type Envelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Error     *Error `json:"error,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, payload Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Warn("write json failed", "err", err)
	}
}

func Success(w http.ResponseWriter, data any, requestID string) {
	WriteJSON(w, http.StatusOK, Envelope{Success: true, Data: data, RequestID: requestID})
}

func Created(w http.ResponseWriter, data any, requestID string) {
	WriteJSON(w, http.StatusCreated, Envelope{Success: true, Data: data, RequestID: requestID})
}

func Fail(w http.ResponseWriter, status int, code, message, requestID string) {
	WriteJSON(w, status, Envelope{Success: false, Error: &Error{Code: code, Message: message}, RequestID: requestID})
}

func FailWithDetails(w http.ResponseWriter, status int, code, message string, details any, requestID string) {
	WriteJSON(w, status, Envelope{Success: false, Error: &Error{Code: code, Message: message, Details: details}, RequestID: requestID})
}

// FailError writes a classified domain error with its mapped status.
// Anything unclassified is logged and reported as a 500.
func FailError(w http.ResponseWriter, err error, requestID string) {
	if appErr, ok := apperror.As(err); ok {
		status := apperror.HTTPStatus(appErr.Kind)
		if status >= http.StatusInternalServerError {
			slog.Error("request failed", "code", appErr.Code, "err", err, "requestId", requestID)
		}
		Fail(w, status, appErr.Code, appErr.Message, requestID)
		return
	}
	slog.Error("request failed", "err", err, "requestId", requestID)
	Fail(w, http.StatusInternalServerError, "internal_error", "internal server error", requestID)
}
