package client

import (
	"context"
	"sync"

	"github.com/leofalp/polychat/providers/ai"
	"github.com/leofalp/polychat/providers/observability"
)

// ========== Fake service ==========

// fakeService answers every call with a fixed reply or error and remembers
// the last request it received.
type fakeService struct {
	mu          sync.Mutex
	reply       *ai.Reply
	err         error
	events      []ai.StreamEvent
	lastRequest ai.ChatRequest
	lastCtx     context.Context
	calls       int
}

func (s *fakeService) record(ctx context.Context, request ai.ChatRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.lastRequest = request
	s.lastCtx = ctx
}

func (s *fakeService) FetchModels(context.Context) ([]ai.ModelID, error) {
	return []ai.ModelID{"m1", "m2"}, nil
}

func (s *fakeService) SendMessage(ctx context.Context, request ai.ChatRequest) (*ai.Reply, error) {
	s.record(ctx, request)
	if s.err != nil {
		return nil, s.err
	}
	if s.reply != nil {
		return s.reply, nil
	}
	return &ai.Reply{Text: "test response", Role: ai.RoleAssistant}, nil
}

func (s *fakeService) SendMessageStream(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
	s.record(ctx, request)
	if s.err != nil {
		return nil, s.err
	}
	events := s.events
	if events == nil {
		events = []ai.StreamEvent{ai.TextEvent("streamed"), ai.FinishedEvent("stop")}
	}
	return ai.NewChatStream(ctx, func(_ context.Context, emit ai.Emit) {
		for _, event := range events {
			if !emit(event) {
				return
			}
		}
	}), nil
}

// ========== Mock observer ==========

// mockObserver records observability calls for assertion in tests. Stream
// outcomes are recorded from the stream goroutine, hence the mutex.
type mockObserver struct {
	mu             sync.Mutex
	spanStartCount int
	spanEndCount   int
	errorCount     int
	infoCount      int
	debugCount     int
	counterAdds    map[string]int64
	histogramRecs  int
	errorMessages  []string
	infoMessages   []string
	lastStatus     observability.StatusCode
	spanNames      []string
}

func newMockObserver() *mockObserver {
	return &mockObserver{counterAdds: make(map[string]int64)}
}

func (m *mockObserver) StartSpan(ctx context.Context, name string, _ ...observability.Attribute) (context.Context, observability.Span) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.spanStartCount++
	m.spanNames = append(m.spanNames, name)
	return ctx, &mockSpan{observer: m}
}

func (m *mockObserver) Counter(name string) observability.Counter {
	return &mockCounter{observer: m, name: name}
}

func (m *mockObserver) Histogram(_ string) observability.Histogram {
	return &mockHistogram{observer: m}
}

func (m *mockObserver) Debug(_ context.Context, _ string, _ ...observability.Attribute) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.debugCount++
}

func (m *mockObserver) Info(_ context.Context, msg string, _ ...observability.Attribute) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infoCount++
	m.infoMessages = append(m.infoMessages, msg)
}

func (m *mockObserver) Warn(_ context.Context, _ string, _ ...observability.Attribute) {}

func (m *mockObserver) Error(_ context.Context, msg string, _ ...observability.Attribute) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount++
	m.errorMessages = append(m.errorMessages, msg)
}

// observerCounts is a point-in-time copy of a mockObserver's records.
type observerCounts struct {
	spanStartCount int
	spanEndCount   int
	errorCount     int
	infoCount      int
	counterAdds    map[string]int64
	histogramRecs  int
	errorMessages  []string
	infoMessages   []string
	lastStatus     observability.StatusCode
	spanNames      []string
}

func (m *mockObserver) snapshot() observerCounts {
	m.mu.Lock()
	defer m.mu.Unlock()
	counters := make(map[string]int64, len(m.counterAdds))
	for name, value := range m.counterAdds {
		counters[name] = value
	}
	return observerCounts{
		spanStartCount: m.spanStartCount,
		spanEndCount:   m.spanEndCount,
		errorCount:     m.errorCount,
		infoCount:      m.infoCount,
		counterAdds:    counters,
		histogramRecs:  m.histogramRecs,
		errorMessages:  append([]string(nil), m.errorMessages...),
		infoMessages:   append([]string(nil), m.infoMessages...),
		lastStatus:     m.lastStatus,
		spanNames:      append([]string(nil), m.spanNames...),
	}
}

type mockSpan struct {
	observer *mockObserver
}

func (s *mockSpan) End() {
	s.observer.mu.Lock()
	defer s.observer.mu.Unlock()
	s.observer.spanEndCount++
}

func (s *mockSpan) SetAttributes(_ ...observability.Attribute) {}

func (s *mockSpan) SetStatus(code observability.StatusCode, _ string) {
	s.observer.mu.Lock()
	defer s.observer.mu.Unlock()
	s.observer.lastStatus = code
}

func (s *mockSpan) RecordError(_ error)                             {}
func (s *mockSpan) AddEvent(_ string, _ ...observability.Attribute) {}

type mockCounter struct {
	observer *mockObserver
	name     string
}

func (c *mockCounter) Add(_ context.Context, value int64, _ ...observability.Attribute) {
	c.observer.mu.Lock()
	defer c.observer.mu.Unlock()
	c.observer.counterAdds[c.name] += value
}

type mockHistogram struct {
	observer *mockObserver
}

func (h *mockHistogram) Record(_ context.Context, _ float64, _ ...observability.Attribute) {
	h.observer.mu.Lock()
	defer h.observer.mu.Unlock()
	h.observer.histogramRecs++
}
