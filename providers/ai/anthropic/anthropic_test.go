package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leofalp/polychat/providers/ai"
	"github.com/leofalp/polychat/providers/attachment"
)

func readBody(t *testing.T, req *http.Request) string {
	t.Helper()
	raw, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	return string(raw)
}

func TestPrepareRequest_SystemLifting(t *testing.T) {
	codec := New(ai.ProviderConfig{APIKey: "k", Model: "claude-sonnet-4-5"})

	prepared, err := codec.PrepareRequest(context.Background(), ai.ChatRequest{
		Messages: []ai.Message{
			{Role: ai.RoleSystem, Content: "be terse"},
			{Role: ai.RoleUser, Content: "hi"},
		},
		Temperature: 0.5,
	})
	require.NoError(t, err)

	req := prepared.HTTP
	assert.Equal(t, "https://api.anthropic.com/v1/messages", req.URL.String())
	assert.Equal(t, "k", req.Header.Get("X-API-Key"))
	assert.Equal(t, "2023-06-01", req.Header.Get("Anthropic-Version"))
	assert.Empty(t, req.Header.Get("Authorization"))
	assert.False(t, prepared.Streaming)

	assert.JSONEq(t, `{
		"model":"claude-sonnet-4-5",
		"system":"be terse",
		"max_tokens":4096,
		"temperature":0.5,
		"messages":[{"role":"user","content":[{"type":"text","text":"hi"}]}]
	}`, readBody(t, req))
}

func TestPrepareRequest_MultipleSystemTurnsJoined(t *testing.T) {
	codec := New(ai.ProviderConfig{APIKey: "k", Model: "m"})
	prepared, err := codec.PrepareRequest(context.Background(), ai.ChatRequest{
		Messages: []ai.Message{
			{Role: ai.RoleSystem, Content: "one"},
			{Role: ai.RoleSystem, Content: "two"},
			{Role: ai.RoleUser, Content: "hi"},
		},
	})
	require.NoError(t, err)

	var body messagesRequest
	require.NoError(t, json.Unmarshal([]byte(readBody(t, prepared.HTTP)), &body))
	assert.Equal(t, "one\n\ntwo", body.System)
	require.Len(t, body.Messages, 1)
}

func TestPrepareRequest_ImagesBeforeText(t *testing.T) {
	resolver := attachment.MapResolver{Images: map[string][]byte{"img": []byte("B")}}
	codec := New(ai.ProviderConfig{APIKey: "k", Model: "m"}, WithResolver(resolver))

	prepared, err := codec.PrepareRequest(context.Background(), ai.ChatRequest{
		Messages: []ai.Message{{Role: ai.RoleUser, Content: "<image-uuid>img</image-uuid> describe"}},
	})
	require.NoError(t, err)

	var body messagesRequest
	require.NoError(t, json.Unmarshal([]byte(readBody(t, prepared.HTTP)), &body))
	blocks := body.Messages[0].Content
	require.Len(t, blocks, 2)
	assert.Equal(t, "image", blocks[0].Type)
	assert.Equal(t, &imageSource{Type: "base64", MediaType: "image/jpeg", Data: "Qg=="}, blocks[0].Source)
	assert.Equal(t, contentBlock{Type: "text", Text: "describe"}, blocks[1])
}

func TestPrepareRequest_ToolTurns(t *testing.T) {
	codec := New(ai.ProviderConfig{APIKey: "k", Model: "m"})
	prepared, err := codec.PrepareRequest(context.Background(), ai.ChatRequest{
		Messages: []ai.Message{
			{Role: ai.RoleUser, Content: "weather?"},
			{Role: ai.RoleAssistant, ToolCalls: []ai.ToolCall{
				{ID: "t1", Function: ai.FunctionCall{Name: "weather", Arguments: `{"city":"Rome"}`}},
				{ID: "t2", Function: ai.FunctionCall{Name: "weather", Arguments: `{"city":"Oslo"}`}},
			}},
			{Role: ai.RoleTool, ToolCallID: "t1", Content: "sunny"},
			{Role: ai.RoleTool, ToolCallID: "t2", Content: "snow"},
		},
		Tools: []ai.ToolDescription{{Name: "weather"}},
	})
	require.NoError(t, err)

	var body messagesRequest
	require.NoError(t, json.Unmarshal([]byte(readBody(t, prepared.HTTP)), &body))
	require.Len(t, body.Messages, 3)

	assistant := body.Messages[1]
	require.Len(t, assistant.Content, 2)
	assert.Equal(t, "tool_use", assistant.Content[0].Type)
	assert.JSONEq(t, `{"city":"Rome"}`, string(assistant.Content[0].Input))

	results := body.Messages[2]
	assert.Equal(t, "user", results.Role)
	require.Len(t, results.Content, 2)
	assert.Equal(t, contentBlock{Type: "tool_result", ToolUseID: "t2", Content: "snow"}, results.Content[1])

	require.Len(t, body.Tools, 1)
	assert.JSONEq(t, `{"type":"object","properties":{}}`, string(body.Tools[0].InputSchema))
}

func TestPrepareRequest_MissingAPIKey(t *testing.T) {
	t.Setenv(APIKeyEnv, "")
	codec := New(ai.ProviderConfig{Model: "m"})

	_, err := codec.PrepareRequest(context.Background(), ai.ChatRequest{Messages: []ai.Message{{Role: ai.RoleUser, Content: "hi"}}})
	assert.ErrorIs(t, err, ai.ErrUnauthorized)

	_, err = codec.PrepareModelsRequest(context.Background())
	assert.ErrorIs(t, err, ai.ErrUnauthorized)
}

func TestParseJSONResponse(t *testing.T) {
	codec := New(ai.ProviderConfig{APIKey: "k"})

	reply, ok := codec.ParseJSONResponse([]byte(`{
		"id":"msg_1","type":"message","role":"assistant","stop_reason":"tool_use",
		"content":[
			{"type":"thinking","thinking":"plan"},
			{"type":"text","text":"Checking."},
			{"type":"tool_use","id":"t1","name":"weather","input":{"city": "Rome"}}
		]}`))
	require.True(t, ok)
	assert.Equal(t, "<think>\nplan\n</think>\n\nChecking.", reply.Text)
	require.Len(t, reply.ToolCalls, 1)
	assert.Equal(t, `{"city":"Rome"}`, reply.ToolCalls[0].Function.Arguments)

	_, ok = codec.ParseJSONResponse([]byte(`{"id":"x"}`))
	assert.False(t, ok)
	_, ok = codec.ParseJSONResponse([]byte(`<html>`))
	assert.False(t, ok)
}

func TestParseModels(t *testing.T) {
	codec := New(ai.ProviderConfig{APIKey: "k"})
	models, err := codec.ParseModels([]byte(`{"data":[{"id":"claude-opus-4-1","type":"model"},{"id":"claude-haiku-4-5"}],"has_more":false}`))
	require.NoError(t, err)
	assert.Equal(t, []ai.ModelID{"claude-opus-4-1", "claude-haiku-4-5"}, models)

	_, err = codec.ParseModels([]byte(`{}`))
	assert.Error(t, err)
}

func TestService_EndToEnd(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))
		switch r.URL.Path {
		case "/models":
			fmt.Fprint(w, `{"data":[{"id":"claude-x"}]}`)
		case "/messages":
			w.Header().Set("Content-Type", "text/event-stream")
			events := []string{
				`{"type":"message_start","message":{"id":"m","type":"message","role":"assistant","content":[]}}`,
				`{"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`,
				`{"type":"ping"}`,
				`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hel"}}`,
				`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"lo"}}`,
				`{"type":"content_block_stop","index":0}`,
				`{"type":"message_delta","delta":{"stop_reason":"end_turn"},"usage":{"output_tokens":2}}`,
				`{"type":"message_stop"}`,
			}
			for _, event := range events {
				fmt.Fprintf(w, "event: x\ndata: %s\n\n", event)
			}
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	service := NewService(ai.ProviderConfig{APIURL: server.URL, APIKey: "secret", Model: "claude-x"}, nil, ai.WithHTTPClient(server.Client()))

	models, err := service.FetchModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []ai.ModelID{"claude-x"}, models)

	stream, err := service.SendMessageStream(context.Background(), ai.ChatRequest{Messages: []ai.Message{{Role: ai.RoleUser, Content: "hi"}}})
	require.NoError(t, err)

	var events []ai.StreamEvent
	for event := range stream.Iter() {
		events = append(events, event)
	}
	require.Len(t, events, 3)
	assert.Equal(t, "Hel", events[0].TextDelta)
	assert.Equal(t, "lo", events[1].TextDelta)
	assert.True(t, events[2].Finished)
	assert.Equal(t, "stop", events[2].FinishReason)
}
