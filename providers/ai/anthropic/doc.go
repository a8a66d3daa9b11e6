// Package anthropic implements the Claude Messages API codec.
//
// Requests authenticate with the X-API-Key header and pin the wire format
// with Anthropic-Version. Leading system turns are lifted into the top-level
// system field. Streaming uses typed SSE events (content_block_start,
// content_block_delta, message_delta, message_stop); tool_use input arrives
// as input_json_delta fragments that are accumulated per stream and attached
// to the terminal event.
package anthropic
