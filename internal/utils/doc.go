// Package utils provides shared low-level helpers for the provider codecs:
// JSON request construction, sending with bounded body reads, re-framing of
// streamed response bodies, and small string and pointer helpers.
//
// Key entry points: [NewJSONRequest] and [Do] for synchronous round-trips,
// [Open] together with [PumpFrames] for streaming, and [Framer] for
// chunk-independent SSE, NDJSON and JSON-array framing.
package utils
