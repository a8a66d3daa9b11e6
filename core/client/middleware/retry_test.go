package middleware

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/leofalp/polychat/providers/ai"
	"github.com/leofalp/polychat/providers/observability"
)

// mockSendSequence pops one configured result per call.
type mockSendSequence struct {
	errors    []error
	callCount int
}

func (m *mockSendSequence) next(_ context.Context, _ ai.ChatRequest) (*ai.Reply, error) {
	index := m.callCount
	m.callCount++

	if index < len(m.errors) && m.errors[index] != nil {
		return nil, m.errors[index]
	}
	return &ai.Reply{Text: "ok", Role: ai.RoleAssistant}, nil
}

func fastRetry(maxRetries int) RetryConfig {
	return RetryConfig{MaxRetries: maxRetries, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}
}

func TestRetryMiddleware_SuccessOnFirstTry(t *testing.T) {
	seq := &mockSendSequence{}
	chain := NewRetryMiddleware(fastRetry(3)).Send(seq.next)

	reply, err := chain(context.Background(), ai.ChatRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply.Text != "ok" || seq.callCount != 1 {
		t.Errorf("expected one call returning ok, got %d calls (%q)", seq.callCount, reply.Text)
	}
}

func TestRetryMiddleware_RetryThenSuccess(t *testing.T) {
	seq := &mockSendSequence{errors: []error{
		ai.NewError(ai.KindRateLimited, "slow down"),
		&ai.Error{Kind: ai.KindServerError, StatusCode: http.StatusBadGateway},
	}}
	chain := NewRetryMiddleware(fastRetry(3)).Send(seq.next)

	if _, err := chain(context.Background(), ai.ChatRequest{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seq.callCount != 3 {
		t.Errorf("expected 3 calls, got %d", seq.callCount)
	}
}

// eventSpan records event names and the attempt attribute of each.
type eventSpan struct {
	events   []string
	attempts []int
}

func (s *eventSpan) End() {}
func (s *eventSpan) SetAttributes(...observability.Attribute) {}
func (s *eventSpan) SetStatus(observability.StatusCode, string) {}
func (s *eventSpan) RecordError(error) {}
func (s *eventSpan) AddEvent(name string, attrs ...observability.Attribute) {
	s.events = append(s.events, name)
	for _, attr := range attrs {
		if attr.Key == observability.AttrAttempt {
			s.attempts = append(s.attempts, attr.Value.(int))
		}
	}
}

func TestRetryMiddleware_RecordsSpanEvents(t *testing.T) {
	seq := &mockSendSequence{errors: []error{
		ai.NewError(ai.KindRateLimited, "slow down"),
		ai.NewError(ai.KindRateLimited, "slow down"),
	}}
	span := &eventSpan{}
	ctx := observability.ContextWithSpan(context.Background(), span)

	if _, err := NewRetryMiddleware(fastRetry(3)).Send(seq.next)(ctx, ai.ChatRequest{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(span.events) != 2 || span.events[0] != observability.EventRetry {
		t.Fatalf("expected two retry events, got %v", span.events)
	}
	if len(span.attempts) != 2 || span.attempts[0] != 1 || span.attempts[1] != 2 {
		t.Errorf("unexpected attempts %v", span.attempts)
	}
}

func TestRetryMiddleware_ExhaustsRetries(t *testing.T) {
	rateLimited := ai.NewError(ai.KindRateLimited, "slow down")
	seq := &mockSendSequence{errors: []error{rateLimited, rateLimited, rateLimited}}
	chain := NewRetryMiddleware(fastRetry(2)).Send(seq.next)

	_, err := chain(context.Background(), ai.ChatRequest{})
	if !errors.Is(err, ErrRetryExhausted) {
		t.Fatalf("expected ErrRetryExhausted, got %v", err)
	}
	if !errors.Is(err, ai.ErrRateLimited) {
		t.Errorf("expected the last error to stay inspectable, got %v", err)
	}
	if seq.callCount != 3 {
		t.Errorf("expected 3 calls, got %d", seq.callCount)
	}
}

func TestRetryMiddleware_NonRetryableKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"unauthorized", ai.NewError(ai.KindUnauthorized, "bad key")},
		{"client error", &ai.Error{Kind: ai.KindServerError, StatusCode: http.StatusBadRequest}},
		{"decoding", ai.NewError(ai.KindDecodingFailed, "bad frame")},
		{"request failed", ai.Classify(errors.New("connection refused"))},
		{"foreign error", errors.New("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq := &mockSendSequence{errors: []error{tt.err}}
			chain := NewRetryMiddleware(fastRetry(3)).Send(seq.next)

			_, err := chain(context.Background(), ai.ChatRequest{})
			if !errors.Is(err, tt.err) {
				t.Fatalf("expected original error, got %v", err)
			}
			if seq.callCount != 1 {
				t.Errorf("expected no retry, got %d calls", seq.callCount)
			}
		})
	}
}

func TestRetryMiddleware_ContextCancelledDuringBackoff(t *testing.T) {
	seq := &mockSendSequence{errors: []error{ai.NewError(ai.KindRateLimited, "slow down")}}
	chain := NewRetryMiddleware(RetryConfig{MaxRetries: 3, InitialBackoff: time.Second}).Send(seq.next)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := chain(ctx, ai.ChatRequest{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
	if seq.callCount != 1 {
		t.Errorf("expected 1 call, got %d", seq.callCount)
	}
}

func TestRetryMiddleware_StreamBypassed(t *testing.T) {
	if NewRetryMiddleware(RetryConfig{}).Stream != nil {
		t.Error("streams must not be retried")
	}
}

func TestComputeBackoff_Capped(t *testing.T) {
	config := RetryConfig{}
	applyRetryDefaults(&config)

	first := computeBackoff(config, 0)
	if first < time.Second || first > 1100*time.Millisecond {
		t.Errorf("first backoff out of range: %v", first)
	}
	capped := computeBackoff(config, 10)
	if capped < 30*time.Second || capped > 33*time.Second {
		t.Errorf("capped backoff out of range: %v", capped)
	}
}
