package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios. OTP and grant errors carry distinct
// codes so the client can branch UI between "expired session" and "wrong code".
var (
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrInvalidOTP         = New("INVALID_OTP", http.StatusBadRequest, "the code you entered is incorrect")
	ErrExpiredOTP         = New("EXPIRED_OTP", http.StatusBadRequest, "verification session has expired, please submit again")
	ErrChannelOrder       = New("CHANNEL_ORDER_VIOLATION", http.StatusBadRequest, "verify your mobile number before your email")
	ErrNoActiveGrant      = New("NO_ACTIVE_GRANT", http.StatusBadRequest, "this edit link is no longer active, please request a new one")
	ErrInvalidFee         = New("INVALID_FEE", http.StatusBadRequest, "fee amount must be a non-negative number")
	ErrInvalidFeeMode     = New("INVALID_FEE_MODE", http.StatusBadRequest, "fee mode must be cash or online")
	ErrFeeNotRecorded     = New("FEE_NOT_RECORDED", http.StatusPreconditionFailed, "fee details must be submitted before approval")
	ErrArtifactGeneration = New("ARTIFACT_GENERATION_FAILED", http.StatusInternalServerError, "failed to generate admission document")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
