package errors

import (
	"encoding/json"
	"net/http"
)

func New(httpStatus int, code, errType, message string) *APIError {
	return &APIError{HTTPStatus: httpStatus, Code: code, Type: errType, Message: message}
}

func (e *APIError) Error() string {
	return e.Code + ": " + e.Message
}

// ToJSON serializes the error as the OpenAI error envelope.
func (e *APIError) ToJSON() ([]byte, error) {
	errObj := OpenAIError{}
	errObj.Error.Message = e.Message
	errObj.Error.Type = e.Type
	errObj.Error.Code = e.Code
	if e.Details != nil {
		errObj.Error.Details = e.Details
	}
	return json.Marshal(errObj)
}

func (e *APIError) WithDetails(details map[string]interface{}) *APIError {
	e.Details = details
	return e
}

// IsConfigError reports whether the error was produced while resolving the
// request plan, before any upstream call was made.
func (e *APIError) IsConfigError() bool {
	switch e.Code {
	case CodeMissingBackend, CodeUnknownBackend, CodeMissingToken, CodeInvalidRequest:
		return true
	}
	return false
}

// IsCritical reports auth-class failures that will not recover on retry.
func (e *APIError) IsCritical() bool {
	switch e.HTTPStatus {
	case http.StatusUnauthorized, http.StatusForbidden:
		return true
	}
	switch e.Code {
	case "invalid_api_key", "permission_denied", CodeMissingToken:
		return true
	}
	return false
}
