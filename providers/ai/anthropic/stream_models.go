package anthropic

/*
	ANTHROPIC SSE STREAMING - WIRE TYPES

	Every data payload carries its event name in the "type" field, so the
	SSE "event:" lines are not needed.

	Event lifecycle:
	  message_start → content_block_start → content_block_delta → content_block_stop →
	  message_delta → message_stop
*/

// streamEvent is the envelope of all stream payloads.
type streamEvent struct {
	Type         string         `json:"type"`
	Index        int            `json:"index"`
	ContentBlock *responseBlock `json:"content_block,omitempty"` // content_block_start
	Delta        *streamDelta   `json:"delta,omitempty"`         // content_block_delta, message_delta
}

// streamDelta discriminates on Type:
//   - "text_delta": Text
//   - "thinking_delta": Thinking
//   - "input_json_delta": PartialJSON
//   - no type (message_delta): StopReason
type streamDelta struct {
	Type        string `json:"type,omitempty"`
	Text        string `json:"text,omitempty"`
	Thinking    string `json:"thinking,omitempty"`
	PartialJSON string `json:"partial_json,omitempty"`
	StopReason  string `json:"stop_reason,omitempty"`
}
