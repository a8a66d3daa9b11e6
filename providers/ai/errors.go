package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/leofalp/polychat/internal/utils"
)

// ErrorKind is the closed set of failure categories surfaced to callers.
type ErrorKind string

const (
	KindRequestFailed   ErrorKind = "requestFailed"
	KindInvalidResponse ErrorKind = "invalidResponse"
	KindDecodingFailed  ErrorKind = "decodingFailed"
	KindUnauthorized    ErrorKind = "unauthorized"
	KindRateLimited     ErrorKind = "rateLimited"
	KindServerError     ErrorKind = "serverError"
	KindUnknown         ErrorKind = "unknown"
	KindNoAPIService    ErrorKind = "noApiService"
)

// maxErrorBodyLength bounds how much of a raw body ends up in a message.
const maxErrorBodyLength = 300

// Error is the only error type adapters surface. StatusCode is zero when no
// HTTP response was involved.
type Error struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	Err        error
}

// Kind sentinels for errors.Is. Only the kind is compared.
var (
	ErrRequestFailed   = &Error{Kind: KindRequestFailed}
	ErrInvalidResponse = &Error{Kind: KindInvalidResponse}
	ErrDecodingFailed  = &Error{Kind: KindDecodingFailed}
	ErrUnauthorized    = &Error{Kind: KindUnauthorized}
	ErrRateLimited     = &Error{Kind: KindRateLimited}
	ErrServerError     = &Error{Kind: KindServerError}
	ErrUnknown         = &Error{Kind: KindUnknown}
	ErrNoAPIService    = &Error{Kind: KindNoAPIService}
)

// NewError builds an Error of the given kind with a formatted message.
func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	var builder strings.Builder
	builder.WriteString(string(e.Kind))
	if e.StatusCode != 0 {
		fmt.Fprintf(&builder, " (HTTP %d)", e.StatusCode)
	}
	switch {
	case e.Message != "":
		builder.WriteString(": ")
		builder.WriteString(e.Message)
	case e.Err != nil:
		builder.WriteString(": ")
		builder.WriteString(e.Err.Error())
	}
	return builder.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrRateLimited)
// works regardless of status or message.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind == e.Kind
}

// Retryable reports whether repeating the same call may succeed: rate limits
// and 5xx server errors.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindRateLimited:
		return true
	case KindServerError:
		return e.StatusCode >= http.StatusInternalServerError
	default:
		return false
	}
}

// KindOf returns the taxonomy kind of err, or KindUnknown for foreign errors.
func KindOf(err error) ErrorKind {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}
	return KindUnknown
}

// Classify maps a transport-level failure into the taxonomy. Errors already in
// the taxonomy pass through unchanged; everything else, context cancellation
// included, is a requestFailed.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}
	message := err.Error()
	switch {
	case errors.Is(err, context.Canceled):
		message = "request cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		message = "request timed out"
	}
	return &Error{Kind: KindRequestFailed, Message: message, Err: err}
}

// ClassifyHTTP maps a completed HTTP exchange. It returns nil for 2xx.
func ClassifyHTTP(response *http.Response, body []byte) *Error {
	if response == nil {
		return &Error{Kind: KindInvalidResponse, Message: "no HTTP response"}
	}

	status := response.StatusCode
	if status >= 200 && status < 300 {
		return nil
	}

	var kind ErrorKind
	switch {
	case status == http.StatusUnauthorized:
		kind = KindUnauthorized
	case status == http.StatusTooManyRequests:
		kind = KindRateLimited
	case status >= 400 && status < 600:
		kind = KindServerError
	default:
		kind = KindInvalidResponse
	}

	message := ErrorMessage(body)
	if message == "" {
		message = http.StatusText(status)
	}
	return &Error{Kind: kind, StatusCode: status, Message: message}
}

// ErrorMessage extracts a human-readable message from a vendor error body:
// error.message, then error (string), message, detail; otherwise the
// truncated body itself.
func ErrorMessage(body []byte) string {
	if gjson.ValidBytes(body) {
		for _, path := range []string{"error.message", "error", "message", "detail"} {
			result := gjson.GetBytes(body, path)
			if !result.Exists() {
				continue
			}
			if result.Type == gjson.String {
				if result.Str != "" {
					return result.Str
				}
				continue
			}
			if path == "detail" {
				return utils.TruncateString(result.Raw, maxErrorBodyLength)
			}
		}
	}
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}
	return utils.TruncateString(trimmed, maxErrorBodyLength)
}

// PayloadError reports whether a streamed or JSON payload is a vendor error
// envelope ({"error": ...} or {"type":"error", ...}) and converts it to a
// serverError.
func PayloadError(data []byte) (*Error, bool) {
	errorField := gjson.GetBytes(data, "error")
	isTyped := gjson.GetBytes(data, "type").Str == "error"
	if !isTyped && (!errorField.Exists() || errorField.Type == gjson.Null) {
		return nil, false
	}
	return &Error{Kind: KindServerError, Message: ErrorMessage(data)}, true
}
