package middleware

import "errors"

// ErrRetryExhausted is returned by the retry middleware when all retry attempts
// have been consumed without a successful reply. The error is wrapped with the
// last underlying service error so callers can use [errors.Is] / [errors.As]
// to inspect the root cause.
var ErrRetryExhausted = errors.New("polychat: all retry attempts exhausted")
