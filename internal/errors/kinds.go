package errors

import (
	"fmt"
	"net/http"
)

// Error codes produced by plan resolution and the two pipeline stages.
const (
	CodeMissingBackend = "missing_backend"
	CodeUnknownBackend = "unknown_backend"
	CodeMissingToken   = "missing_token"
	CodeInvalidRequest = "invalid_request_error"

	CodeReasoningFailed = "reasoning_failed"
	CodeAnswerFailed    = "answer_failed"
)

// MissingBackend reports that no endpoint URL could be resolved for a backend.
func MissingBackend(backend string) *APIError {
	return New(http.StatusBadRequest, CodeMissingBackend, "invalid_request_error",
		fmt.Sprintf("No endpoint URL configured for backend %q", backend))
}

// UnknownBackend reports an unrecognized backend identifier.
func UnknownBackend(backend string) *APIError {
	return New(http.StatusBadRequest, CodeUnknownBackend, "invalid_request_error",
		fmt.Sprintf("Unknown backend %q", backend))
}

// MissingToken reports that no API token could be resolved for a backend.
func MissingToken(backend string) *APIError {
	return New(http.StatusUnauthorized, CodeMissingToken, "authentication_error",
		fmt.Sprintf("No API token available for backend %q", backend))
}

// InvalidRequest reports a malformed inbound request body.
func InvalidRequest(message string) *APIError {
	return New(http.StatusBadRequest, CodeInvalidRequest, "invalid_request_error", message)
}

// ReasoningFailed wraps an upstream failure from the reasoning stage.
func ReasoningFailed(cause *APIError) *APIError {
	return New(cause.HTTPStatus, CodeReasoningFailed, cause.Type, "Reasoning backend failed: "+cause.Message).
		WithDetails(map[string]interface{}{"cause": cause.Code})
}

// AnswerFailed wraps an upstream failure from the answer stage.
func AnswerFailed(cause *APIError) *APIError {
	return New(cause.HTTPStatus, CodeAnswerFailed, cause.Type, "Answer backend failed: "+cause.Message).
		WithDetails(map[string]interface{}{"cause": cause.Code})
}
