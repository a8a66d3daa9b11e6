// Package slogobs implements observability.Provider on top of a *slog.Logger.
// Spans and events become debug records, counters keep an in-memory running
// total, and log calls map one-to-one onto slog levels. Pair it with the
// handler from internal/logging to get colourised or JSON output.
package slogobs
