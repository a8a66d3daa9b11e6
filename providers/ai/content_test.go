package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leofalp/polychat/internal/jsonvalue"
)

func TestExtractTextContent(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{"plain string", `"hi"`, "hi", true},
		{"typed text part", `{"type":"text","text":"hi"}`, "hi", true},
		{"array of text objects", `[{"text":"a"},{"text":"b"}]`, "a\nb", true},
		{"empty object", `{}`, "", false},
		{"image_url part with object", `{"type":"image_url","image_url":{"url":"https://x/y.png"}}`, "<image-url>https://x/y.png</image-url>", true},
		{"bare image_url string", `{"image_url":"data:image/png;base64,QQ=="}`, "<image-url>data:image/png;base64,QQ==</image-url>", true},
		{"generic content key recurses", `{"content":[{"type":"text","text":"deep"}]}`, "deep", true},
		{"generic value key", `{"value":"v"}`, "v", true},
		{"array drops misses", `[1,{"text":"a"},null,{}]`, "a", true},
		{"array of misses", `[1,true]`, "", false},
		{"number", `42`, "", false},
		{"null", `null`, "", false},
		{"mixed text and image", `[{"type":"text","text":"look"},{"type":"image_url","image_url":{"url":"u"}}]`, "look\n<image-url>u</image-url>", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, err := jsonvalue.Parse([]byte(tt.input))
			require.NoError(t, err)

			got, ok := ExtractTextContent(value)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComposeResponse(t *testing.T) {
	tests := []struct {
		name      string
		reasoning string
		content   string
		want      string
		wantOK    bool
	}{
		{"both empty", "", "", "", false},
		{"whitespace only", "  ", "\n", "", false},
		{"both present", "r", "c", "<think>\nr\n</think>\n\nc", true},
		{"content only", "", "c", "c", true},
		{"reasoning only", "r", "", "<think>\nr\n</think>", true},
		{"trims parts", " r \n", "\n c ", "<think>\nr\n</think>\n\nc", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ComposeResponse(tt.reasoning, tt.content)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplitThinkTags(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		reasoning string
		content   string
	}{
		{"no tags", "just text", "", "just text"},
		{"leading block", "<think>\nplan\n</think>\n\nanswer", "plan", "answer"},
		{"two blocks", "<think>a</think><think>b</think> done", "a\n\nb", "done"},
		{"tag not leading", "answer <think>x</think>", "", "answer <think>x</think>"},
		{"empty block dropped", "<think></think>answer", "", "answer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reasoning, content := SplitThinkTags(tt.input)
			assert.Equal(t, tt.reasoning, reasoning)
			assert.Equal(t, tt.content, content)
		})
	}
}

func TestNormalizeArguments(t *testing.T) {
	assert.Equal(t, "{}", NormalizeArguments(""))
	assert.Equal(t, `{"city":"Rome"}`, NormalizeArguments(`{"city":"Rome"}`))
	assert.JSONEq(t, `{"city":"Rome"}`, NormalizeArguments(`{"city":"Rome"`))
}

func TestEncodeArguments(t *testing.T) {
	assert.Equal(t, "{}", EncodeArguments(nil))
	assert.Equal(t, "{}", EncodeArguments([]byte("null")))
	assert.Equal(t, `{"b":1,"a":[1,2]}`, EncodeArguments([]byte("{ \"b\": 1, \"a\": [1, 2] }")))
	assert.Equal(t, `{"a":1}`, EncodeArguments([]byte(`"{\"a\":1}"`)))
}

func TestToolCallAccumulator(t *testing.T) {
	var acc ToolCallAccumulator
	acc.Start(1, "call_b", "lookup")
	acc.Start(0, "call_a", "weather")
	acc.AppendArguments(0, `{"city":`)
	acc.AppendArguments(1, `{}`)
	acc.AppendArguments(0, `"Rome"}`)
	acc.Start(0, "", "ignored")

	assert.Equal(t, 2, acc.Len())
	calls := acc.Drain()
	require.Len(t, calls, 2)
	assert.Equal(t, ToolCall{ID: "call_b", Type: "function", Function: FunctionCall{Name: "lookup", Arguments: "{}"}}, calls[0])
	assert.Equal(t, ToolCall{ID: "call_a", Type: "function", Function: FunctionCall{Name: "weather", Arguments: `{"city":"Rome"}`}}, calls[1])

	assert.Zero(t, acc.Len())
	assert.Nil(t, acc.Drain())
}
