package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(stream *ChatStream) []StreamEvent {
	var events []StreamEvent
	for event := range stream.Iter() {
		events = append(events, event)
	}
	return events
}

func TestChatStream_SynthesizesTerminal(t *testing.T) {
	stream := NewChatStream(context.Background(), func(_ context.Context, emit Emit) {
		emit(TextEvent("a"))
		emit(TextEvent("b"))
	})

	events := drain(stream)
	require.Len(t, events, 3)
	assert.Equal(t, "a", events[0].TextDelta)
	assert.True(t, events[2].Finished)
}

func TestChatStream_DropsEventsAfterTerminal(t *testing.T) {
	var afterTerminal bool
	stream := NewChatStream(context.Background(), func(_ context.Context, emit Emit) {
		emit(TextEvent("a"))
		emit(FinishedEvent("stop"))
		afterTerminal = emit(TextEvent("late"))
		emit(ErrorEvent(errors.New("late error")))
	})

	events := drain(stream)
	require.Len(t, events, 2)
	assert.True(t, events[1].Finished)
	assert.Equal(t, "stop", events[1].FinishReason)
	assert.False(t, afterTerminal)
}

func TestChatStream_EmitReturnsFalseOnTerminal(t *testing.T) {
	results := make(chan bool, 2)
	stream := NewChatStream(context.Background(), func(_ context.Context, emit Emit) {
		results <- emit(TextEvent("a"))
		results <- emit(FinishedEvent("stop"))
	})
	drain(stream)

	assert.True(t, <-results)
	assert.False(t, <-results)
}

func TestChatStream_CloseStopsProducer(t *testing.T) {
	produced := make(chan struct{})
	exited := make(chan struct{})
	stream := NewChatStream(context.Background(), func(ctx context.Context, emit Emit) {
		defer close(exited)
		close(produced)
		for emit(TextEvent("tick")) {
		}
		assert.Error(t, ctx.Err())
	})

	<-produced
	first := <-stream.Events()
	assert.Equal(t, "tick", first.TextDelta)

	stream.Close()
	select {
	case <-exited:
	case <-time.After(2 * time.Second):
		t.Fatal("producer did not exit after Close")
	}

	for event := range stream.Events() {
		t.Fatalf("unexpected event after Close: %+v", event)
	}
	stream.Close()
}

func TestChatStream_IterBreakCloses(t *testing.T) {
	stream := NewChatStream(context.Background(), func(ctx context.Context, emit Emit) {
		for emit(TextEvent("x")) {
		}
	})

	for range stream.Iter() {
		break
	}

	select {
	case <-stream.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("breaking out of Iter did not stop the producer")
	}
}

func TestChatStream_ParentContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	stream := NewChatStream(ctx, func(ctx context.Context, emit Emit) {
		<-ctx.Done()
		emit(TextEvent("never"))
	})
	cancel()

	assert.Empty(t, drain(stream))
}

func TestChatStream_CollectReportsDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	stream := NewChatStream(ctx, func(ctx context.Context, emit Emit) {
		emit(TextEvent("partial"))
		<-ctx.Done()
	})

	reply, err := stream.Collect()
	assert.ErrorIs(t, err, ErrRequestFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, "partial", reply.Text)
}

func TestChatStream_PanicBecomesError(t *testing.T) {
	stream := NewChatStream(context.Background(), func(_ context.Context, emit Emit) {
		panic("boom")
	})

	events := drain(stream)
	require.Len(t, events, 1)
	assert.Equal(t, KindUnknown, KindOf(events[0].Err))
}

func TestChatStream_Collect(t *testing.T) {
	stream := NewChatStream(context.Background(), func(_ context.Context, emit Emit) {
		emit(ReasoningEvent("let me "))
		emit(ReasoningEvent("think"))
		emit(TextEvent("Hel"))
		emit(TextEvent("lo"))
		emit(FinishedEvent("tool_calls", ToolCall{ID: "1", Type: "function", Function: FunctionCall{Name: "f", Arguments: "{}"}}))
	})

	reply, err := stream.Collect()
	require.NoError(t, err)
	assert.Equal(t, "<think>\nlet me think\n</think>\n\nHello", reply.Text)
	assert.Equal(t, RoleAssistant, reply.Role)
	require.Len(t, reply.ToolCalls, 1)
	assert.Equal(t, "f", reply.ToolCalls[0].Function.Name)
}

func TestChatStream_CollectReturnsPartialOnError(t *testing.T) {
	stream := NewChatStream(context.Background(), func(_ context.Context, emit Emit) {
		emit(TextEvent("partial"))
		emit(ErrorEvent(NewError(KindServerError, "overloaded")))
	})

	reply, err := stream.Collect()
	assert.ErrorIs(t, err, ErrServerError)
	assert.Equal(t, "partial", reply.Text)
}

func TestChatStream_Observe(t *testing.T) {
	source := NewChatStream(context.Background(), func(_ context.Context, emit Emit) {
		emit(TextEvent("a"))
		emit(FinishedEvent("stop"))
	})

	var seen []StreamEvent
	observed := source.Observe(func(event StreamEvent) { seen = append(seen, event) })

	events := drain(observed)
	require.Len(t, events, 2)
	assert.Equal(t, events, seen)
	<-source.Done()
}

func TestNewReplyStream(t *testing.T) {
	events := drain(NewReplyStream(context.Background(), &Reply{Text: "<image-url>u</image-url>"}))
	require.Len(t, events, 2)
	assert.Equal(t, "<image-url>u</image-url>", events[0].TextDelta)
	assert.True(t, events[1].Finished)

	errorEvents := drain(NewErrorStream(context.Background(), NewError(KindNoAPIService, "local")))
	require.Len(t, errorEvents, 1)
	assert.ErrorIs(t, errorEvents[0].Err, ErrNoAPIService)
}
