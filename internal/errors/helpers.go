package errors

import (
	"fmt"
	"net/http"
)

// NewValidationError creates a validation error with field context
func NewValidationError(field, message string) *AppError {
	return New(ErrCodeInvalidInput, message).
		WithContext("field", field).
		WithUserMessage(message)
}

// NewMalformedPayloadError reports a webhook payload whose structure could not be processed
func NewMalformedPayloadError(message string, err error) *AppError {
	return Wrap(err, ErrCodeMalformedPayload, message).
		WithUserMessage(message)
}

// NewDatabaseError creates a database error with operation context
func NewDatabaseError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeDatabaseQuery, fmt.Sprintf("database %s failed", operation)).
		WithContext("operation", operation)
}

// NewAPIError creates an error for a failed WhatsApp Cloud API call
func NewAPIError(endpoint string, err error) *AppError {
	return Wrap(err, ErrCodeWhatsAppAPI, "whatsapp API call failed").
		WithContext("service", "whatsapp").
		WithContext("endpoint", endpoint)
}

// NewAuthError creates an authentication error
func NewAuthError(reason string) *AppError {
	return New(ErrCodeAuthentication, "authentication failed").
		WithContext("reason", reason).
		WithUserMessage("unauthorized")
}

// NewForbiddenError creates an authorization error
func NewForbiddenError(reason string) *AppError {
	return New(ErrCodeAuthorization, "authorization failed").
		WithContext("reason", reason).
		WithUserMessage("forbidden")
}

// NewNotFoundError creates a not found error with resource context
func NewNotFoundError(resource, identifier, userMessage string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource)).
		WithContext("resource", resource).
		WithContext("identifier", identifier).
		WithUserMessage(userMessage)
}

// NewMethodNotAllowedError reports a known path requested with the wrong method
func NewMethodNotAllowedError(method, path string) *AppError {
	return New(ErrCodeMethodNotAllowed, fmt.Sprintf("%s not allowed on %s", method, path)).
		WithContext("method", method).
		WithUserMessage("method not allowed")
}

// HTTPStatusCode maps error codes to HTTP status codes
func HTTPStatusCode(err error) int {
	switch GetCode(err) {
	case ErrCodeValidationFailed, ErrCodeInvalidInput:
		return http.StatusBadRequest
	case ErrCodeAuthentication:
		return http.StatusUnauthorized
	case ErrCodeAuthorization:
		return http.StatusForbidden
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeWhatsAppAPI:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// HTTPErrorResponse is the body written for every failed request
type HTTPErrorResponse struct {
	Error     string    `json:"error"`
	Code      ErrorCode `json:"code"`
	RequestID string    `json:"request_id,omitempty"`
}

// ToHTTPResponse converts an error to the standard HTTP error body
func ToHTTPResponse(err error, requestID string) HTTPErrorResponse {
	return HTTPErrorResponse{
		Error:     GetUserMessage(err),
		Code:      GetCode(err),
		RequestID: requestID,
	}
}
