package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error codes for the linking and gateway flows, plus general API errors.
const (
	CodeUnauthenticated       = "UNAUTHENTICATED"
	CodeUsernameTaken         = "USERNAME_TAKEN"
	CodeAccountNotLinked      = "ACCOUNT_NOT_LINKED"
	CodeHandshakeNotStarted   = "HANDSHAKE_NOT_STARTED"
	CodeCallbackNotConfirmed  = "CALLBACK_NOT_CONFIRMED"
	CodeVerifierRejected      = "VERIFIER_REJECTED"
	CodeUpstreamRejected      = "UPSTREAM_REJECTED"
	CodeUpstreamRequestFailed = "UPSTREAM_REQUEST_FAILED"
	CodeUpstreamUnreachable   = "UPSTREAM_UNREACHABLE"
	CodeMalformedLink         = "MALFORMED_LINK"
	CodeCommitFailed          = "COMMIT_FAILED"
	CodeNotFound              = "NOT_FOUND"
	CodeValidation            = "VALIDATION_ERROR"
	CodeInternal              = "INTERNAL_ERROR"
)

// ErrorResponse represents a standardized API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
	// Upstream carries Twitter's raw error payload, when one exists, so
	// callers can diagnose upstream failures.
	Upstream string `json:"upstream,omitempty"`
}

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	// Upstream holds the raw response body from Twitter for upstream
	// failures. Never swallowed; surfaced verbatim to the caller.
	Upstream string
	Err      error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// CodeOf returns the AppError code of err, or empty string.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// Predefined error constructors

func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "Internal server error",
		Err:     err,
	}
}

func NewUnauthenticatedError(message string) *AppError {
	if message == "" {
		message = "Could not validate credentials"
	}
	return &AppError{
		Code:    CodeUnauthenticated,
		Message: message,
	}
}

func NewUsernameTakenError(username string) *AppError {
	return &AppError{
		Code:    CodeUsernameTaken,
		Message: fmt.Sprintf("Username '%s' is already taken", username),
	}
}

func NewAccountNotLinkedError() *AppError {
	return &AppError{
		Code:    CodeAccountNotLinked,
		Message: "Your account is not linked with Twitter yet, please complete the Twitter login first",
	}
}

func NewHandshakeNotStartedError() *AppError {
	return &AppError{
		Code:    CodeHandshakeNotStarted,
		Message: "It seems you've not completed step one. Please go back and complete it.",
	}
}

func NewCallbackNotConfirmedError() *AppError {
	return &AppError{
		Code:    CodeCallbackNotConfirmed,
		Message: "Twitter did not confirm the out-of-band callback",
	}
}

func NewVerifierRejectedError(message, upstream string) *AppError {
	return &AppError{
		Code:     CodeVerifierRejected,
		Message:  message,
		Upstream: upstream,
	}
}

func NewUpstreamRejectedError(status int, body string) *AppError {
	return &AppError{
		Code:     CodeUpstreamRejected,
		Message:  fmt.Sprintf("Twitter rejected the token call with status %d", status),
		Upstream: body,
	}
}

func NewUpstreamRequestFailedError(status int, body string) *AppError {
	return &AppError{
		Code:     CodeUpstreamRequestFailed,
		Message:  fmt.Sprintf("Something went wrong with Twitter (status %d), please try again", status),
		Upstream: body,
	}
}

func NewUpstreamUnreachableError(err error) *AppError {
	return &AppError{
		Code:    CodeUpstreamUnreachable,
		Message: "Twitter could not be reached, please try again later",
		Err:     err,
	}
}

func NewMalformedLinkError(link string) *AppError {
	return &AppError{
		Code:    CodeMalformedLink,
		Message: fmt.Sprintf("'%s' is not a valid tweet link; it has to look like 'https://twitter.com/<username>/status/<id>'", link),
	}
}

func NewCommitFailedError(err error) *AppError {
	return &AppError{
		Code:    CodeCommitFailed,
		Message: "Something seems to have gone wrong with updating your account. Please try again",
		Err:     err,
	}
}

// RespondWithError creates a standardized error response
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	var response ErrorResponse

	var appErr *AppError
	if errors.As(err, &appErr) {
		response = ErrorResponse{
			Error:    appErr.Message,
			Code:     appErr.Code,
			Upstream: appErr.Upstream,
		}
		if appErr.Err != nil {
			response.Details = appErr.Err.Error()
		}
	} else {
		response = ErrorResponse{
			Error: err.Error(),
		}
	}

	return c.Status(status).JSON(response)
}
