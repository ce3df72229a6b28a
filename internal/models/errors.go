package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error codes carried by AppError.
const (
	CodeNotFound      = "NOT_FOUND"
	CodeSelfFollow    = "SELF_FOLLOW"
	CodeTooLong       = "TOO_LONG"
	CodeTweetNotFound = "TWEET_NOT_FOUND"
	CodeValidation    = "VALIDATION_ERROR"
	CodeInternal      = "INTERNAL_ERROR"
)

// ErrorResponse represents a standardized API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	Err     error
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

// NewNotFoundError reports a user or tweet id that does not exist.
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

func NewSelfFollowError() *AppError {
	return &AppError{
		Code:    CodeSelfFollow,
		Message: "Users cannot follow themselves",
	}
}

func NewTooLongError(limit int) *AppError {
	return &AppError{
		Code:    CodeTooLong,
		Message: fmt.Sprintf("Tweet exceeds %d characters", limit),
	}
}

// NewTweetNotFoundError reports a delete target that matched no tweet owned by the caller.
func NewTweetNotFoundError() *AppError {
	return &AppError{
		Code:    CodeTweetNotFound,
		Message: "No matching tweet found for this user",
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

// HasCode reports whether err is an AppError carrying code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// StatusFor maps an error to the HTTP status used at the transport boundary.
// Every client-input error is a 400; anything else is a server fault.
func StatusFor(err error) int {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return fiber.StatusInternalServerError
	}
	switch appErr.Code {
	case CodeNotFound, CodeSelfFollow, CodeTooLong, CodeTweetNotFound, CodeValidation:
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

// RespondWithError creates a standardized error response
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	var response ErrorResponse

	var appErr *AppError
	if errors.As(err, &appErr) {
		response = ErrorResponse{
			Error: appErr.Message,
			Code:  appErr.Code,
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
