package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leofalp/polychat/internal/utils"
)

// lineCodec is a minimal NDJSON codec: {"text":"..","done":bool}.
type lineCodec struct {
	baseURL   string
	streaming bool
}

func (c *lineCodec) Name() string { return "line" }

func (c *lineCodec) PrepareRequest(ctx context.Context, request ChatRequest) (*PreparedRequest, error) {
	if len(request.Messages) == 0 {
		return nil, errors.New("no messages")
	}
	req, err := utils.NewJSONRequest(ctx, http.MethodPost, c.baseURL+"/chat", request)
	if err != nil {
		return nil, err
	}
	return &PreparedRequest{HTTP: req, Framing: utils.FormatNDJSON, Streaming: request.Stream && c.streaming}, nil
}

func (c *lineCodec) ParseJSONResponse(data []byte) (*Reply, bool) {
	var body struct {
		Text *string `json:"text"`
	}
	if err := json.Unmarshal(data, &body); err != nil || body.Text == nil {
		return nil, false
	}
	return &Reply{Text: *body.Text, Role: RoleAssistant}, true
}

func (c *lineCodec) NewDeltaParser() DeltaParser { return &lineParser{} }

func (c *lineCodec) PrepareModelsRequest(ctx context.Context) (*http.Request, error) {
	return utils.NewJSONRequest(ctx, http.MethodGet, c.baseURL+"/models", nil)
}

func (c *lineCodec) ParseModels(data []byte) ([]ModelID, error) {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return nil, err
	}
	models := make([]ModelID, 0, len(names))
	for _, name := range names {
		models = append(models, ModelID(name))
	}
	return models, nil
}

type lineParser struct {
	pending string
}

func (p *lineParser) ParseDeltaJSONResponse(data []byte) []StreamEvent {
	if data == nil {
		return []StreamEvent{NoDataEvent()}
	}
	var chunk struct {
		Text    string `json:"text"`
		Done    bool   `json:"done"`
		Pending string `json:"pending"`
	}
	if err := json.Unmarshal(data, &chunk); err != nil {
		return nil
	}
	if chunk.Pending != "" {
		p.pending += chunk.Pending
		return nil
	}
	if chunk.Done {
		return []StreamEvent{FinishedEvent("stop")}
	}
	return []StreamEvent{TextEvent(chunk.Text)}
}

func (p *lineParser) Finish() []StreamEvent {
	if p.pending == "" {
		return nil
	}
	return []StreamEvent{{Finished: true, TextDelta: p.pending, Role: StreamRoleAssistant}}
}

func newLineServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(server.Close)
	return server
}

var hello = ChatRequest{Messages: []Message{{Role: RoleUser, Content: "hi"}}}

func TestAdapter_SendMessage(t *testing.T) {
	server := newLineServer(t, http.StatusOK, `{"text":"hello"}`)
	adapter := NewAdapter(&lineCodec{baseURL: server.URL}, WithHTTPClient(server.Client()))

	reply, err := adapter.SendMessage(context.Background(), hello)
	require.NoError(t, err)
	assert.Equal(t, "hello", reply.Text)
}

func TestAdapter_SendMessageErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   ErrorKind
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":"bad key"}`, KindUnauthorized},
		{"rate limited", http.StatusTooManyRequests, ``, KindRateLimited},
		{"server error", http.StatusInternalServerError, `boom`, KindServerError},
		{"not found", http.StatusNotFound, `{"error":{"message":"no such model"}}`, KindServerError},
		{"unrecognized body", http.StatusOK, `{"other":1}`, KindDecodingFailed},
		{"error envelope with 200", http.StatusOK, `{"error":"model unloaded"}`, KindServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newLineServer(t, tt.status, tt.body)
			adapter := NewAdapter(&lineCodec{baseURL: server.URL}, WithHTTPClient(server.Client()))

			_, err := adapter.SendMessage(context.Background(), hello)
			require.Error(t, err)
			assert.Equal(t, tt.kind, KindOf(err))
		})
	}
}

func TestAdapter_PrepareErrorIsReturnedSynchronously(t *testing.T) {
	adapter := NewAdapter(&lineCodec{baseURL: "http://unused.test"})

	stream, err := adapter.SendMessageStream(context.Background(), ChatRequest{})
	assert.Nil(t, stream)
	assert.Equal(t, KindRequestFailed, KindOf(err))
}

func TestAdapter_TransportErrorIsRequestFailed(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()
	adapter := NewAdapter(&lineCodec{baseURL: url, streaming: true})

	_, err := adapter.SendMessage(context.Background(), hello)
	assert.Equal(t, KindRequestFailed, KindOf(err))

	stream, err := adapter.SendMessageStream(context.Background(), hello)
	require.NoError(t, err)
	events := drain(stream)
	require.Len(t, events, 1)
	assert.Equal(t, KindRequestFailed, KindOf(events[0].Err))
}

func TestAdapter_SendMessageStream(t *testing.T) {
	body := "{\"text\":\"Hel\"}\n{\"text\":\"lo\"}\n{\"done\":true}\n{\"text\":\"ignored\"}\n"
	server := newLineServer(t, http.StatusOK, body)
	adapter := NewAdapter(&lineCodec{baseURL: server.URL, streaming: true}, WithHTTPClient(server.Client()))

	stream, err := adapter.SendMessageStream(context.Background(), hello)
	require.NoError(t, err)

	events := drain(stream)
	require.Len(t, events, 3)
	assert.Equal(t, "Hel", events[0].TextDelta)
	assert.Equal(t, "lo", events[1].TextDelta)
	assert.True(t, events[2].Finished)
}

func TestAdapter_StreamHTTPErrorIsTerminal(t *testing.T) {
	server := newLineServer(t, http.StatusTooManyRequests, `{"error":{"message":"slow down"}}`)
	adapter := NewAdapter(&lineCodec{baseURL: server.URL, streaming: true}, WithHTTPClient(server.Client()))

	stream, err := adapter.SendMessageStream(context.Background(), hello)
	require.NoError(t, err)

	events := drain(stream)
	require.Len(t, events, 1)
	require.Error(t, events[0].Err)
	assert.ErrorIs(t, events[0].Err, ErrRateLimited)
	assert.Contains(t, events[0].Err.Error(), "slow down")
}

func TestAdapter_StreamFinisherFlushesAtEOF(t *testing.T) {
	server := newLineServer(t, http.StatusOK, "{\"pending\":\"QQ\"}\n{\"pending\":\"==\"}\n")
	adapter := NewAdapter(&lineCodec{baseURL: server.URL, streaming: true}, WithHTTPClient(server.Client()))

	stream, err := adapter.SendMessageStream(context.Background(), hello)
	require.NoError(t, err)

	events := drain(stream)
	require.Len(t, events, 1)
	assert.True(t, events[0].Finished)
	assert.Equal(t, "QQ==", events[0].TextDelta)
}

func TestAdapter_StreamWithoutTerminalIsSynthesized(t *testing.T) {
	server := newLineServer(t, http.StatusOK, "{\"text\":\"a\"}\n")
	adapter := NewAdapter(&lineCodec{baseURL: server.URL, streaming: true}, WithHTTPClient(server.Client()))

	stream, err := adapter.SendMessageStream(context.Background(), hello)
	require.NoError(t, err)

	events := drain(stream)
	require.Len(t, events, 2)
	assert.True(t, events[1].Finished)
}

func TestAdapter_NonStreamingReplayedAsStream(t *testing.T) {
	server := newLineServer(t, http.StatusOK, `{"text":"<image-url>u</image-url>"}`)
	adapter := NewAdapter(&lineCodec{baseURL: server.URL, streaming: false}, WithHTTPClient(server.Client()))

	stream, err := adapter.SendMessageStream(context.Background(), hello)
	require.NoError(t, err)

	events := drain(stream)
	require.Len(t, events, 2)
	assert.Equal(t, "<image-url>u</image-url>", events[0].TextDelta)
	assert.True(t, events[1].Finished)
}

func TestAdapter_StreamCancellation(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "{\"text\":\"first\"}\n")
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	adapter := NewAdapter(&lineCodec{baseURL: server.URL, streaming: true}, WithHTTPClient(server.Client()))
	stream, err := adapter.SendMessageStream(context.Background(), hello)
	require.NoError(t, err)

	first := <-stream.Events()
	assert.Equal(t, "first", first.TextDelta)

	stream.Close()
	_, open := <-stream.Events()
	assert.False(t, open, "no events after cancellation")
}

func TestAdapter_FetchModels(t *testing.T) {
	server := newLineServer(t, http.StatusOK, `["a","b"]`)
	adapter := NewAdapter(&lineCodec{baseURL: server.URL}, WithHTTPClient(server.Client()))

	models, err := adapter.FetchModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []ModelID{"a", "b"}, models)

	broken := newLineServer(t, http.StatusOK, `{`)
	_, err = NewAdapter(&lineCodec{baseURL: broken.URL}).FetchModels(context.Background())
	assert.Equal(t, KindDecodingFailed, KindOf(err))
}

func TestAdapter_ParseDeltaNil(t *testing.T) {
	adapter := NewAdapter(&lineCodec{})
	events := adapter.ParseDeltaJSONResponse(nil)
	require.Len(t, events, 1)
	assert.True(t, events[0].IsTerminal())
	assert.Equal(t, KindDecodingFailed, KindOf(events[0].Err))
	assert.True(t, strings.Contains(events[0].Err.Error(), "no data in event"))
}
