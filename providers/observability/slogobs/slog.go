package slogobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/leofalp/polychat/providers/observability"
)

// Observer routes spans, metrics and logs through a single slog.Logger.
type Observer struct {
	logger *slog.Logger

	mu         sync.Mutex
	counters   map[string]*counter
	histograms map[string]*histogram
}

var _ observability.Provider = (*Observer)(nil)

// New returns an Observer writing to logger, or to slog.Default() when
// logger is nil.
func New(logger *slog.Logger) *Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Observer{
		logger:     logger,
		counters:   make(map[string]*counter),
		histograms: make(map[string]*histogram),
	}
}

// StartSpan logs the span start at debug level and returns ctx carrying the
// new span.
func (o *Observer) StartSpan(ctx context.Context, name string, attrs ...observability.Attribute) (context.Context, observability.Span) {
	s := &span{
		name:   name,
		start:  time.Now(),
		logger: o.logger,
		attrs:  append([]observability.Attribute(nil), attrs...),
	}
	o.logger.LogAttrs(ctx, slog.LevelDebug, "span started",
		append([]slog.Attr{slog.String("span", name)}, toSlog(attrs)...)...)
	return observability.ContextWithSpan(ctx, s), s
}

type span struct {
	name   string
	start  time.Time
	logger *slog.Logger

	mu    sync.Mutex
	attrs []observability.Attribute
	ended bool
}

// End logs the span with its accumulated attributes. Repeated calls are no-ops.
func (s *span) End() {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	attrs := append([]slog.Attr{
		slog.String("span", s.name),
		slog.Duration(observability.AttrDuration, time.Since(s.start)),
	}, toSlog(s.attrs)...)
	s.mu.Unlock()

	s.logger.LogAttrs(context.Background(), slog.LevelDebug, "span ended", attrs...)
}

func (s *span) SetAttributes(attrs ...observability.Attribute) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attrs = append(s.attrs, attrs...)
}

func (s *span) SetStatus(code observability.StatusCode, description string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attrs = append(s.attrs, observability.String("status", code.String()))
	if description != "" {
		s.attrs = append(s.attrs, observability.String("status_description", description))
	}
}

func (s *span) RecordError(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	s.attrs = append(s.attrs, observability.Error(err))
	s.mu.Unlock()

	s.logger.LogAttrs(context.Background(), slog.LevelDebug, "span error",
		slog.String("span", s.name), slog.String(observability.AttrError, err.Error()))
}

func (s *span) AddEvent(name string, attrs ...observability.Attribute) {
	s.logger.LogAttrs(context.Background(), slog.LevelDebug, name,
		append([]slog.Attr{slog.String("span", s.name)}, toSlog(attrs)...)...)
}

// Counter returns the named counter, creating it on first use.
func (o *Observer) Counter(name string) observability.Counter {
	o.mu.Lock()
	defer o.mu.Unlock()
	c, ok := o.counters[name]
	if !ok {
		c = &counter{name: name, logger: o.logger}
		o.counters[name] = c
	}
	return c
}

// Histogram returns the named histogram, creating it on first use.
func (o *Observer) Histogram(name string) observability.Histogram {
	o.mu.Lock()
	defer o.mu.Unlock()
	h, ok := o.histograms[name]
	if !ok {
		h = &histogram{name: name, logger: o.logger}
		o.histograms[name] = h
	}
	return h
}

type counter struct {
	name   string
	logger *slog.Logger

	mu    sync.Mutex
	value int64
}

func (c *counter) Add(ctx context.Context, value int64, attrs ...observability.Attribute) {
	c.mu.Lock()
	c.value += value
	total := c.value
	c.mu.Unlock()

	c.logger.LogAttrs(ctx, slog.LevelDebug, "counter",
		append([]slog.Attr{
			slog.String("metric", c.name),
			slog.Int64("delta", value),
			slog.Int64("value", total),
		}, toSlog(attrs)...)...)
}

// Value returns the running total.
func (c *counter) Value() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

type histogram struct {
	name   string
	logger *slog.Logger
}

func (h *histogram) Record(ctx context.Context, value float64, attrs ...observability.Attribute) {
	h.logger.LogAttrs(ctx, slog.LevelDebug, "histogram",
		append([]slog.Attr{
			slog.String("metric", h.name),
			slog.Float64("value", value),
		}, toSlog(attrs)...)...)
}

func (o *Observer) Debug(ctx context.Context, msg string, attrs ...observability.Attribute) {
	o.logger.LogAttrs(ctx, slog.LevelDebug, msg, toSlog(attrs)...)
}

func (o *Observer) Info(ctx context.Context, msg string, attrs ...observability.Attribute) {
	o.logger.LogAttrs(ctx, slog.LevelInfo, msg, toSlog(attrs)...)
}

func (o *Observer) Warn(ctx context.Context, msg string, attrs ...observability.Attribute) {
	o.logger.LogAttrs(ctx, slog.LevelWarn, msg, toSlog(attrs)...)
}

func (o *Observer) Error(ctx context.Context, msg string, attrs ...observability.Attribute) {
	o.logger.LogAttrs(ctx, slog.LevelError, msg, toSlog(attrs)...)
}

func toSlog(attrs []observability.Attribute) []slog.Attr {
	out := make([]slog.Attr, 0, len(attrs))
	for _, attr := range attrs {
		out = append(out, slog.Any(attr.Key, attr.Value))
	}
	return out
}
