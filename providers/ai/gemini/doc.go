// Package gemini implements the Google Gemini generateContent codec.
//
// The API key travels as the "key" query parameter. Streaming uses
// :streamGenerateContent without alt=sse, whose body is one JSON array of
// response objects; the adapter frames it with [utils.FormatJSONArray].
// Gemini has no system role, so system turns are folded into the following
// user turn.
package gemini
