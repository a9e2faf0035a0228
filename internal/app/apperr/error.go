package apperr

import (
	"context"
	"errors"
	"log/slog"
)

// Code is the callable error kind surfaced to clients.
type Code string

const (
	CodeUnauthenticated  Code = "UNAUTHENTICATED"
	CodeInvalidArgument  Code = "INVALID_ARGUMENT"
	CodeNotFound         Code = "NOT_FOUND"
	CodePermissionDenied Code = "PERMISSION_DENIED"
	CodeAlreadyExists    Code = "ALREADY_EXISTS"
	CodeInternal         Code = "INTERNAL"
)

// InternalMessage is the only message clients see for unexpected failures.
const InternalMessage = "An internal error occurred."

// Error is an application-layer error that is safe to return to the caller as-is.
type Error struct {
	Code    Code
	Message string
	Details map[string]any
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Unauthenticated() *Error {
	return New(CodeUnauthenticated, "The function must be called while authenticated.")
}

func InvalidArgument(message string, details map[string]any) *Error {
	return &Error{Code: CodeInvalidArgument, Message: message, Details: details}
}

// As returns the *Error in err's chain, if any.
func As(err error) (*Error, bool) {
	ae := (*Error)(nil)
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// Internal passes typed errors through unchanged. Anything else is logged under op and
// replaced with a generic INTERNAL error so store and IdP details do not leak.
func Internal(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	if ae, ok := As(err); ok {
		return ae
	}
	slog.ErrorContext(ctx, "unexpected failure", "op", op, "error", err)
	return New(CodeInternal, InternalMessage)
}
