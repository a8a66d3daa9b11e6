package client

import (
	"context"
	"testing"

	"github.com/leofalp/polychat/providers/ai"
)

func TestNew_RejectsNilService(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatal("expected error for nil service")
	}
}

func TestNew_RejectsNilSendMiddleware(t *testing.T) {
	_, err := New(&fakeService{}, WithMiddleware(MiddlewareConfig{}))
	if err == nil {
		t.Fatal("expected error for nil Send")
	}
}

func TestClient_SendMessage_AssignsRequestID(t *testing.T) {
	service := &fakeService{}
	c, err := New(service)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := c.SendMessage(context.Background(), ai.ChatRequest{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first := RequestIDFromContext(service.lastCtx)
	if len(first) != 36 {
		t.Fatalf("expected a UUID request id, got %q", first)
	}

	if _, err := c.SendMessage(context.Background(), ai.ChatRequest{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if RequestIDFromContext(service.lastCtx) == first {
		t.Error("each call should get its own request id")
	}

	ctx := ContextWithRequestID(context.Background(), "caller-id")
	if _, err := c.SendMessage(ctx, ai.ChatRequest{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := RequestIDFromContext(service.lastCtx); got != "caller-id" {
		t.Errorf("caller id should be kept, got %q", got)
	}
}

func TestClient_SystemPrompt(t *testing.T) {
	service := &fakeService{}
	c, err := New(service, WithSystemPrompt("be terse"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := c.Ask(context.Background(), "hi"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	messages := service.lastRequest.Messages
	if len(messages) != 2 || messages[0].Role != ai.RoleSystem || messages[0].Content != "be terse" {
		t.Fatalf("expected system prompt first, got %+v", messages)
	}

	explicit := ai.ChatRequest{Messages: []ai.Message{
		{Role: ai.RoleSystem, Content: "custom"},
		{Role: ai.RoleUser, Content: "hi"},
	}}
	if _, err := c.SendMessage(context.Background(), explicit); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := service.lastRequest.Messages; len(got) != 2 || got[0].Content != "custom" {
		t.Errorf("existing system turn should win, got %+v", got)
	}
}

func TestClient_ObserverIsOutermost(t *testing.T) {
	observer := newMockObserver()
	order := []string{}
	rec := newCallRecorder("inner", &order)

	c, err := New(&fakeService{}, WithObserver(observer), WithMiddleware(MiddlewareConfig{Send: rec.sendMiddleware()}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := c.SendMessage(context.Background(), ai.ChatRequest{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if observer.snapshot().spanStartCount != 1 || !rec.calledSend {
		t.Error("expected both observer and middleware to run")
	}
}

func TestClient_StreamMessage(t *testing.T) {
	c, err := New(&fakeService{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stream, err := c.StreamMessage(context.Background(), ai.ChatRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	reply, err := stream.Collect()
	if err != nil {
		t.Fatalf("unexpected stream error: %v", err)
	}
	if reply.Text != "streamed" {
		t.Errorf("expected 'streamed', got %q", reply.Text)
	}

	models, err := c.FetchModels(context.Background())
	if err != nil || len(models) != 2 {
		t.Errorf("unexpected models %v (%v)", models, err)
	}
}
