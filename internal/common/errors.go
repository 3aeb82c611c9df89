// File: internal/common/errors.go
package common

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// APIError represents a standard structure for API errors.
type APIError struct {
	StatusCode int         `json:"-"`
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("APIError: StatusCode=%d, Code=%s, Message=%s", e.StatusCode, e.Code, e.Message)
}

// Is makes sentinel comparison by code work through errors.Is.
func (e *APIError) Is(target error) bool {
	var t *APIError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

func NewAPIError(statusCode int, code, message string) *APIError {
	return &APIError{StatusCode: statusCode, Code: code, Message: message}
}

// WithDetails returns a copy of the error with details attached, so the
// shared sentinels stay immutable.
func (e *APIError) WithDetails(details interface{}) *APIError {
	clone := *e
	clone.Details = details
	return &clone
}

// Generic transport-level errors.
var (
	ErrBadRequest          = NewAPIError(http.StatusBadRequest, "BAD_REQUEST", "The request is invalid.")
	ErrUnauthorized        = NewAPIError(http.StatusUnauthorized, "UNAUTHORIZED", "Authentication is required and has failed or has not yet been provided.")
	ErrForbidden           = NewAPIError(http.StatusForbidden, "FORBIDDEN", "You do not have permission to access this resource.")
	ErrNotFound            = NewAPIError(http.StatusNotFound, "NOT_FOUND", "The requested resource could not be found.")
	ErrConflict            = NewAPIError(http.StatusConflict, "CONFLICT", "A conflict occurred with the current state of the resource.")
	ErrUnprocessableEntity = NewAPIError(http.StatusUnprocessableEntity, "UNPROCESSABLE_ENTITY", "The request was well-formed but was unable to be followed due to semantic errors.")
	ErrInternalServer      = NewAPIError(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An unexpected error occurred on the server.")
	ErrServiceUnavailable  = NewAPIError(http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "The server is currently unable to handle the request.")
)

// Identity and session errors. Login failures are deliberately generic so an
// attacker cannot distinguish an unknown email from a wrong password.
var (
	ErrEmailTaken         = NewAPIError(http.StatusConflict, "EMAIL_TAKEN", "A user with this email already exists.")
	ErrInvalidCredentials = NewAPIError(http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password.")
	ErrAccountInactive    = NewAPIError(http.StatusForbidden, "ACCOUNT_INACTIVE", "This account has been deactivated.")
	ErrAccountSuspended   = NewAPIError(http.StatusForbidden, "ACCOUNT_SUSPENDED", "This account is suspended.")
	ErrStateMismatch      = NewAPIError(http.StatusBadRequest, "STATE_MISMATCH", "OAuth state verification failed.")
	ErrEmailInUse         = NewAPIError(http.StatusConflict, "EMAIL_IN_USE", "This email belongs to an existing account. Sign in and connect the provider instead.")
	ErrProviderLinkInUse  = NewAPIError(http.StatusConflict, "PROVIDER_LINK_IN_USE", "This social account is already linked to another user.")
	ErrProviderNotLinked  = NewAPIError(http.StatusBadRequest, "PROVIDER_NOT_LINKED", "This provider is not linked to the account.")
	ErrNoOtherLoginMethod = NewAPIError(http.StatusBadRequest, "NO_OTHER_LOGIN_METHOD", "Cannot disconnect the only remaining login method.")
	ErrStaleOrRevoked     = NewAPIError(http.StatusUnauthorized, "STALE_OR_REVOKED", "This refresh token has been superseded or revoked.")
	ErrTokenExpired       = NewAPIError(http.StatusUnauthorized, "TOKEN_EXPIRED", "The token has expired.")
	ErrBadSignature       = NewAPIError(http.StatusUnauthorized, "BAD_SIGNATURE", "The token signature is invalid.")
	ErrTokenMalformed     = NewAPIError(http.StatusUnauthorized, "TOKEN_MALFORMED", "The token could not be parsed.")
	ErrForbiddenRole      = NewAPIError(http.StatusForbidden, "FORBIDDEN_ROLE", "Admin privileges required.")

	ErrProviderExchangeFailed = NewAPIError(http.StatusBadGateway, "PROVIDER_EXCHANGE_FAILED", "Could not exchange the authorization code with the provider.")
	ErrProviderNotConfigured  = NewAPIError(http.StatusInternalServerError, "PROVIDER_NOT_CONFIGURED", "This OAuth provider is not configured.")
	ErrUnsupportedProvider    = NewAPIError(http.StatusBadRequest, "UNSUPPORTED_PROVIDER", "Unsupported OAuth provider.")
)

func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

func NewValidationAPIError(details interface{}) *APIError {
	return &APIError{
		StatusCode: http.StatusUnprocessableEntity,
		Code:       "VALIDATION_ERROR",
		Message:    "Input validation failed.",
		Details:    details,
	}
}

// FormatValidationErrors converts validator.ValidationErrors into a map.
func FormatValidationErrors(errs validator.ValidationErrors) map[string]string {
	errorMap := make(map[string]string)
	for _, e := range errs {
		field := e.Field()
		var message string
		switch e.Tag() {
		case "required":
			message = fmt.Sprintf("The %s field is required.", strings.ToLower(field))
		case "email":
			message = fmt.Sprintf("The %s field must be a valid email address.", strings.ToLower(field))
		case "min":
			message = fmt.Sprintf("The %s field must be at least %s characters long.", strings.ToLower(field), e.Param())
		case "max":
			message = fmt.Sprintf("The %s field may not be greater than %s characters.", strings.ToLower(field), e.Param())
		case "oneof":
			message = fmt.Sprintf("The %s field must be one of the following values: %s.", strings.ToLower(field), e.Param())
		default:
			message = fmt.Sprintf("Field validation for '%s' failed on the '%s' tag.", field, e.Tag())
		}
		errorMap[field] = message
	}
	return errorMap
}
