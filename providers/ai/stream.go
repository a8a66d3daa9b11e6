package ai

import (
	"context"
	"fmt"
	"iter"
	"strings"
)

// StreamRole tags a text delta as visible answer or chain-of-thought.
type StreamRole string

const (
	StreamRoleAssistant StreamRole = "assistant"
	StreamRoleReasoning StreamRole = "reasoning"
)

// StreamEvent is one element of a streamed reply. A terminal event has
// Finished set or a non-nil Err; it may still carry a final TextDelta and the
// completed ToolCalls.
type StreamEvent struct {
	Finished     bool       `json:"finished,omitempty"`
	Err          error      `json:"-"`
	TextDelta    string     `json:"text_delta,omitempty"`
	Role         StreamRole `json:"role,omitempty"`
	ToolCalls    []ToolCall `json:"tool_calls,omitempty"`
	FinishReason string     `json:"finish_reason,omitempty"`
}

// IsTerminal reports whether e ends the stream.
func (e StreamEvent) IsTerminal() bool {
	return e.Finished || e.Err != nil
}

// TextEvent is an assistant text delta.
func TextEvent(text string) StreamEvent {
	return StreamEvent{TextDelta: text, Role: StreamRoleAssistant}
}

// ReasoningEvent is a chain-of-thought delta.
func ReasoningEvent(text string) StreamEvent {
	return StreamEvent{TextDelta: text, Role: StreamRoleReasoning}
}

// FinishedEvent is a successful terminal event.
func FinishedEvent(reason string, toolCalls ...ToolCall) StreamEvent {
	return StreamEvent{Finished: true, Role: StreamRoleAssistant, FinishReason: reason, ToolCalls: toolCalls}
}

// ErrorEvent is a failed terminal event. err is classified so that every
// error event carries an *Error.
func ErrorEvent(err error) StreamEvent {
	if err == nil {
		err = NewError(KindUnknown, "stream failed without an error")
	}
	return StreamEvent{Err: Classify(err)}
}

// Emit hands an event to the consumer. It blocks until the consumer takes it
// and returns false once the producer must stop: the event was terminal, the
// stream was cancelled, or a terminal event was already delivered.
type Emit func(StreamEvent) bool

// Producer generates the events of one stream. It runs in its own goroutine
// and must return promptly once ctx is done or emit returns false.
type Producer func(ctx context.Context, emit Emit)

// ChatStream delivers the events of one streaming call in parse order over an
// unbuffered channel. It guarantees exactly one terminal event unless the
// consumer cancels first, in which case nothing more is delivered.
//
// Consume it with Iter, Events or Collect. A stream that is abandoned must be
// closed so the producer releases its HTTP body.
type ChatStream struct {
	parent context.Context
	events chan StreamEvent
	cancel context.CancelFunc
	done   chan struct{}
}

// NewChatStream starts produce in a goroutine bound to a child of ctx.
func NewChatStream(ctx context.Context, produce Producer) *ChatStream {
	streamCtx, cancel := context.WithCancel(ctx)
	stream := &ChatStream{
		parent: ctx,
		events: make(chan StreamEvent),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go stream.run(streamCtx, produce)
	return stream
}

// NewReplyStream replays a completed reply as a stream: one text event when
// the reply has text, then the terminal event with its tool calls.
func NewReplyStream(ctx context.Context, reply *Reply) *ChatStream {
	return NewChatStream(ctx, func(_ context.Context, emit Emit) {
		if reply.Text != "" && !emit(TextEvent(reply.Text)) {
			return
		}
		emit(FinishedEvent("stop", reply.ToolCalls...))
	})
}

// NewErrorStream returns a stream whose only event is the terminal error.
func NewErrorStream(ctx context.Context, err error) *ChatStream {
	return NewChatStream(ctx, func(_ context.Context, emit Emit) {
		emit(ErrorEvent(err))
	})
}

func (s *ChatStream) run(ctx context.Context, produce Producer) {
	defer close(s.done)
	defer s.cancel()
	defer close(s.events)

	terminated := false
	emit := func(event StreamEvent) bool {
		if terminated || ctx.Err() != nil {
			return false
		}
		if event.IsTerminal() {
			terminated = true
		}
		select {
		case s.events <- event:
			return !terminated
		case <-ctx.Done():
			terminated = true
			return false
		}
	}

	func() {
		defer func() {
			if recovered := recover(); recovered != nil {
				emit(ErrorEvent(NewError(KindUnknown, "stream producer panicked: %v", recovered)))
			}
		}()
		produce(ctx, emit)
	}()

	if !terminated {
		emit(FinishedEvent(""))
	}
}

// Events returns the receive side of the stream. It is closed after the
// terminal event or after cancellation.
func (s *ChatStream) Events() <-chan StreamEvent {
	return s.events
}

// Iter returns a range-over-func view of the stream. Breaking out of the loop
// closes the stream.
//
// Example:
//
//	for event := range stream.Iter() {
//	    if event.Err != nil { handle error }
//	    fmt.Print(event.TextDelta)
//	}
func (s *ChatStream) Iter() iter.Seq[StreamEvent] {
	return func(yield func(StreamEvent) bool) {
		defer s.Close()
		for event := range s.events {
			if !yield(event) {
				return
			}
		}
	}
}

// Close cancels the producer and waits for it to exit. It is safe to call
// more than once and from any goroutine.
func (s *ChatStream) Close() {
	s.cancel()
	<-s.done
}

// Done is closed once the producer has exited.
func (s *ChatStream) Done() <-chan struct{} {
	return s.done
}

// Collect drains the stream into a Reply. Reasoning deltas are composed ahead
// of the content the same way non-streaming replies are. On a terminal error
// the partial reply is returned together with the error.
func (s *ChatStream) Collect() (*Reply, error) {
	var content, reasoning strings.Builder
	reply := &Reply{Role: RoleAssistant}

	var streamErr error
	terminal := false
	for event := range s.Iter() {
		switch event.Role {
		case StreamRoleReasoning:
			reasoning.WriteString(event.TextDelta)
		default:
			content.WriteString(event.TextDelta)
		}
		if len(event.ToolCalls) > 0 {
			reply.ToolCalls = append(reply.ToolCalls, event.ToolCalls...)
		}
		if event.IsTerminal() {
			terminal = true
			streamErr = event.Err
		}
	}

	reply.Text, _ = ComposeResponse(reasoning.String(), content.String())
	if streamErr != nil {
		return reply, streamErr
	}
	if !terminal {
		return reply, Classify(fmt.Errorf("stream closed before completion: %w", s.closeCause()))
	}
	return reply, nil
}

// Observe returns a stream relaying every event of s after passing it to
// observer. Closing the returned stream closes s.
func (s *ChatStream) Observe(observer func(StreamEvent)) *ChatStream {
	return NewChatStream(context.Background(), func(ctx context.Context, emit Emit) {
		defer s.Close()
		for {
			select {
			case event, ok := <-s.events:
				if !ok {
					// The source was cancelled upstream before finishing.
					event = ErrorEvent(s.closeCause())
					observer(event)
					emit(event)
					return
				}
				observer(event)
				if !emit(event) {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	})
}

// closeCause explains a stream that ended without a terminal event: the
// caller's deadline or cancellation when there is one, a plain cancel
// otherwise.
func (s *ChatStream) closeCause() error {
	if err := s.parent.Err(); err != nil {
		return err
	}
	return context.Canceled
}
