package apperr

import (
	"errors"
	"fmt"
	"time"
)

// Code is the stable classification of a failure surfaced to callers.
type Code string

const (
	CodeUnauthenticated     Code = "UNAUTHENTICATED"
	CodeInvalidQuery        Code = "INVALID_QUERY"
	CodeQuotaExceeded       Code = "QUOTA_EXCEEDED"
	CodeRateLimited         Code = "RATE_LIMITED"
	CodeUnauthorized        Code = "UNAUTHORIZED"
	CodeUpstreamUnavailable Code = "UPSTREAM_UNAVAILABLE"
	CodeInvalidResponse     Code = "INVALID_RESPONSE"
	CodeUnknown             Code = "UNKNOWN"
)

// Error is a tagged failure. Callers branch on Code, never on Message.
type Error struct {
	Code       Code
	Message    string
	Provider   string
	Scope      string
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Provider != "" {
		msg = e.Provider + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error carrying the same Code, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

var (
	ErrUnauthenticated     = &Error{Code: CodeUnauthenticated}
	ErrInvalidQuery        = &Error{Code: CodeInvalidQuery}
	ErrQuotaExceeded       = &Error{Code: CodeQuotaExceeded}
	ErrRateLimited         = &Error{Code: CodeRateLimited}
	ErrUnauthorized        = &Error{Code: CodeUnauthorized}
	ErrUpstreamUnavailable = &Error{Code: CodeUpstreamUnavailable}
	ErrInvalidResponse     = &Error{Code: CodeInvalidResponse}
)

func Unauthenticated(msg string) *Error {
	return &Error{Code: CodeUnauthenticated, Message: msg}
}

func InvalidQuery(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidQuery, Message: fmt.Sprintf(format, args...)}
}

func QuotaExceeded(scope string, retryAfter time.Duration) *Error {
	return &Error{
		Code:       CodeQuotaExceeded,
		Message:    fmt.Sprintf("%s quota exceeded", scope),
		Scope:      scope,
		RetryAfter: retryAfter,
	}
}

func RateLimited(provider, msg string, retryAfter time.Duration) *Error {
	return &Error{Code: CodeRateLimited, Provider: provider, Message: msg, RetryAfter: retryAfter}
}

func Unauthorized(provider, msg string) *Error {
	return &Error{Code: CodeUnauthorized, Provider: provider, Message: msg}
}

func UpstreamUnavailable(provider string, err error) *Error {
	return &Error{Code: CodeUpstreamUnavailable, Provider: provider, Message: "upstream unavailable", Err: err}
}

func InvalidResponse(provider, msg string) *Error {
	return &Error{Code: CodeInvalidResponse, Provider: provider, Message: msg}
}

// Wrap tags an arbitrary error with code, keeping the chain intact.
func Wrap(code Code, provider string, err error) *Error {
	return &Error{Code: code, Provider: provider, Err: err}
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// CodeOf classifies err. Untagged errors are CodeUnknown; nil yields "".
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	if e, ok := As(err); ok {
		return e.Code
	}
	return CodeUnknown
}

// RetryAfterOf reports the retry hint carried by err, if any.
func RetryAfterOf(err error) time.Duration {
	if e, ok := As(err); ok {
		return e.RetryAfter
	}
	return 0
}
