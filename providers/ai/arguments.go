package ai

import (
	"bytes"
	"encoding/json"
	"log/slog"

	"github.com/leofalp/polychat/internal/utils"
)

// NormalizeArguments turns concatenated streamed argument fragments into a
// JSON document. Empty input becomes "{}"; malformed input is repaired when
// possible and otherwise returned unchanged.
func NormalizeArguments(raw string) string {
	if raw == "" {
		return "{}"
	}
	repaired, ok := utils.RepairJSON(raw)
	if !ok {
		slog.Warn("tool call arguments are not valid JSON", "arguments", utils.TruncateString(raw, 200))
		return raw
	}
	return repaired
}

// EncodeArguments re-encodes arguments that a vendor delivered as a JSON
// value (Ollama, Gemini, Claude) into the compact raw string form.
func EncodeArguments(arguments json.RawMessage) string {
	trimmed := bytes.TrimSpace(arguments)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return "{}"
	}
	if trimmed[0] == '"' {
		// Some hosts double-encode: the object arrives as a JSON string.
		var inner string
		if err := json.Unmarshal(trimmed, &inner); err == nil {
			return NormalizeArguments(inner)
		}
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, trimmed); err != nil {
		return NormalizeArguments(string(trimmed))
	}
	return compact.String()
}

// ToolCallAccumulator merges streamed tool-call fragments keyed by the
// vendor's index. It is call-scoped and not safe for concurrent use.
type ToolCallAccumulator struct {
	order []int
	calls map[int]*ToolCall
	args  map[int]string
}

// Start records the header of the tool call at index. Later headers for the
// same index only fill fields that are still empty.
func (a *ToolCallAccumulator) Start(index int, id, name string) {
	call := a.get(index)
	if call.ID == "" {
		call.ID = id
	}
	if call.Function.Name == "" {
		call.Function.Name = name
	}
}

// AppendArguments appends an argument fragment to the tool call at index.
func (a *ToolCallAccumulator) AppendArguments(index int, fragment string) {
	a.get(index)
	a.args[index] += fragment
}

// Len returns the number of tool calls seen so far.
func (a *ToolCallAccumulator) Len() int { return len(a.order) }

// Drain returns the accumulated tool calls in first-seen order with their
// arguments normalized, and resets the accumulator.
func (a *ToolCallAccumulator) Drain() []ToolCall {
	if len(a.order) == 0 {
		return nil
	}
	calls := make([]ToolCall, 0, len(a.order))
	for _, index := range a.order {
		call := *a.calls[index]
		call.Function.Arguments = NormalizeArguments(a.args[index])
		calls = append(calls, call)
	}
	*a = ToolCallAccumulator{}
	return calls
}

func (a *ToolCallAccumulator) get(index int) *ToolCall {
	if a.calls == nil {
		a.calls = make(map[int]*ToolCall)
		a.args = make(map[int]string)
	}
	call, ok := a.calls[index]
	if !ok {
		call = &ToolCall{Type: "function"}
		a.calls[index] = call
		a.order = append(a.order, index)
	}
	return call
}
