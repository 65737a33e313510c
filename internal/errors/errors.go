package errors

import (
	"errors"
	"net/http"
)

var (
	// ErrDuplicateEmail is returned when an account already uses the email.
	ErrDuplicateEmail = errors.New("email already in use")
	// ErrInvalidDomain is returned when the email is outside the institutional domain.
	ErrInvalidDomain = errors.New("email address is not in the institutional domain")
	// ErrRegistrationFailed is returned when registration could not be completed and was rolled back.
	ErrRegistrationFailed = errors.New("failed to register user, please try again")
	// ErrInvalidCredentials is returned for an unknown email or a wrong password alike.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrEmailNotVerified is returned when an unverified account tries to log in.
	ErrEmailNotVerified = errors.New("please verify your email before logging in")
	// ErrUserNotFound is returned when a user id or email does not resolve.
	ErrUserNotFound = errors.New("user not found")
	// ErrAlreadyVerified is returned when resending verification to a verified account.
	ErrAlreadyVerified = errors.New("user already verified")
	// ErrInvalidOrExpiredToken is returned when a verification token does not match or has expired.
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	// ErrTokenIssuance is returned when a token cannot be signed.
	ErrTokenIssuance = errors.New("failed to issue token")
	// ErrResetProcessingFailed is returned when a reset request hits an infrastructure fault.
	ErrResetProcessingFailed = errors.New("failed to process password reset request")
	// ErrResetFailed is returned when a reset confirmation hits an infrastructure fault.
	ErrResetFailed = errors.New("failed to reset password")
	// ErrForbidden is returned when the caller does not own the resource.
	ErrForbidden = errors.New("not authorized to modify this resource")
	// ErrNotFound is returned when a resource does not exist.
	ErrNotFound = errors.New("resource not found")
	// ErrConflict is returned when the action was already applied.
	ErrConflict = errors.New("resource already exists")
	// ErrInvalidInput is returned when input passes validation but breaks a business rule.
	ErrInvalidInput = errors.New("invalid input")
	// ErrLivestreamActive is returned when the host already has a live stream.
	ErrLivestreamActive = errors.New("you already have an active livestream")
	// ErrLivestreamEnded is returned when acting on a stream that is over.
	ErrLivestreamEnded = errors.New("livestream has ended")
)

// FieldError describes a single invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries per-field messages from request validation.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	return e.Fields[0].Field + ": " + e.Fields[0].Message
}

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error   string       `json:"error"`
	Code    string       `json:"code"`
	Details []FieldError `json:"details,omitempty"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
	Details    []FieldError
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error:   e.Message,
		Code:    e.Code,
		Details: e.Details,
	}
}

type mapping struct {
	err    error
	status int
	code   string
}

var mappings = []mapping{
	{ErrDuplicateEmail, http.StatusConflict, "DUPLICATE_EMAIL"},
	{ErrInvalidDomain, http.StatusBadRequest, "INVALID_DOMAIN"},
	{ErrRegistrationFailed, http.StatusInternalServerError, "REGISTRATION_FAILED"},
	{ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
	{ErrEmailNotVerified, http.StatusForbidden, "EMAIL_NOT_VERIFIED"},
	{ErrUserNotFound, http.StatusNotFound, "USER_NOT_FOUND"},
	{ErrAlreadyVerified, http.StatusBadRequest, "ALREADY_VERIFIED"},
	{ErrInvalidOrExpiredToken, http.StatusBadRequest, "INVALID_OR_EXPIRED_TOKEN"},
	{ErrTokenIssuance, http.StatusInternalServerError, "TOKEN_ISSUANCE_FAILED"},
	{ErrResetProcessingFailed, http.StatusInternalServerError, "RESET_PROCESSING_FAILED"},
	{ErrResetFailed, http.StatusInternalServerError, "RESET_FAILED"},
	{ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
	{ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{ErrConflict, http.StatusConflict, "CONFLICT"},
	{ErrInvalidInput, http.StatusBadRequest, "INVALID_INPUT"},
	{ErrLivestreamActive, http.StatusConflict, "LIVESTREAM_ACTIVE"},
	{ErrLivestreamEnded, http.StatusBadRequest, "LIVESTREAM_ENDED"},
}

// MapErrorToHTTP maps domain errors to HTTP errors. Wrapped sentinels are
// matched with errors.Is and rendered with the sentinel's own message, so
// wrapped infrastructure detail never reaches the client.
func MapErrorToHTTP(err error) *HTTPError {
	var verr *ValidationError
	if errors.As(err, &verr) {
		httpErr := NewHTTPError(http.StatusBadRequest, "validation failed", "VALIDATION_ERROR")
		httpErr.Details = verr.Fields
		return httpErr
	}
	for _, m := range mappings {
		if errors.Is(err, m.err) {
			return NewHTTPError(m.status, m.err.Error(), m.code)
		}
	}
	return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
}
