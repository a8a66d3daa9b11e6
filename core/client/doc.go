// Package client is the caller-facing entry point over an [ai.Service]. It
// threads every call through a middleware chain (observability, logging,
// timeouts, retries) and tags each call with a request id.
//
// The primary entry point is [New], which accepts an [ai.Service] and a set of
// functional options (e.g. [WithObserver], [WithMiddleware], [WithSystemPrompt]).
package client
