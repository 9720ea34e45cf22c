package types

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Error codes returned in the envelope.
const (
	// CodeAuthentication indicates a missing, unknown or revoked key (401).
	CodeAuthentication = "AUTHENTICATION_ERROR"

	// CodeValidation indicates malformed input (400).
	CodeValidation = "VALIDATION_ERROR"

	// CodeRateLimitExceeded indicates the plan's window is full (429).
	CodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"

	// CodeNotFound indicates a missing resource (404).
	CodeNotFound = "NOT_FOUND"

	// CodeInternal indicates an unexpected server failure (500).
	CodeInternal = "INTERNAL_ERROR"

	// CodeTimeout indicates the request deadline passed (504).
	CodeTimeout = "TIMEOUT"
)

// InternalErrorMessage is the only message clients see for 500 responses.
const InternalErrorMessage = "An unexpected error occurred"

// ErrorResponse is the JSON error envelope:
//
//	{"error": {"code": "...", "message": "...", "hint": "..."}}
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the machine-readable code, the human-readable
// message and an optional hint on how to fix the request.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

// APIError is an error that knows its HTTP status and envelope.
// Handlers return it and the boundary writes it unchanged.
type APIError struct {
	Status  int
	Code    string
	Message string
	Hint    string
}

func (e *APIError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Hint)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Response converts e into its wire envelope.
func (e *APIError) Response() *ErrorResponse {
	return &ErrorResponse{Error: ErrorDetail{Code: e.Code, Message: e.Message, Hint: e.Hint}}
}

// NewAuthenticationError creates a 401 error.
func NewAuthenticationError(message string) *APIError {
	return &APIError{Status: http.StatusUnauthorized, Code: CodeAuthentication, Message: message}
}

// NewValidationError creates a 400 error with an optional hint.
func NewValidationError(message, hint string) *APIError {
	return &APIError{Status: http.StatusBadRequest, Code: CodeValidation, Message: message, Hint: hint}
}

// NewRateLimitError creates the 429 error for a plan whose window is full.
func NewRateLimitError(plan string, limit, windowSeconds, remaining int) *APIError {
	return &APIError{
		Status:  http.StatusTooManyRequests,
		Code:    CodeRateLimitExceeded,
		Message: fmt.Sprintf("Rate limit exceeded for %s plan", plan),
		Hint:    fmt.Sprintf("Limit: %d requests per %ds. Remaining: %d", limit, windowSeconds, remaining),
	}
}

// NewNotFoundError creates a 404 error with an optional hint.
func NewNotFoundError(message, hint string) *APIError {
	return &APIError{Status: http.StatusNotFound, Code: CodeNotFound, Message: message, Hint: hint}
}

// NewInternalError creates the generic 500 error. Details of the
// underlying failure belong in logs, never in the response.
func NewInternalError() *APIError {
	return &APIError{
		Status:  http.StatusInternalServerError,
		Code:    CodeInternal,
		Message: InternalErrorMessage,
		Hint:    "Please contact support if this persists",
	}
}

// NewTimeoutError creates the 504 error for a request that ran past its
// deadline.
func NewTimeoutError() *APIError {
	return &APIError{
		Status:  http.StatusGatewayTimeout,
		Code:    CodeTimeout,
		Message: "Request timed out",
		Hint:    "Narrow the query or retry later",
	}
}

// WriteError writes e as a JSON envelope with its status code.
func WriteError(w http.ResponseWriter, e *APIError) {
	WriteJSON(w, e.Status, e.Response())
}

// WriteJSON writes v as a JSON body with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Encoding errors after WriteHeader cannot be reported to the client.
	_ = json.NewEncoder(w).Encode(v)
}
