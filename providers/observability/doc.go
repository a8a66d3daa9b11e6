// Package observability defines the tracing, metrics and logging interfaces
// the chat adapters and client report through, plus the shared attribute
// vocabulary in semconv.go.
//
// A [Provider] travels with the request in a [context.Context]: attach it
// with [ContextWithObserver] and retrieve it with [ObserverFromContext].
// The active [Span] is carried the same way via [ContextWithSpan] and
// [SpanFromContext]. Both lookups return nil when nothing is attached, and
// every caller treats nil as "not observed".
package observability
