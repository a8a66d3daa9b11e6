// Package inmemory provides a concurrency-safe, slice-backed [memory.Provider]
// for process-local conversations.
package inmemory
