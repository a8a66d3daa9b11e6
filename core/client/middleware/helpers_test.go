package middleware

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/leofalp/polychat/providers/ai"
)

// syncBuffer is a bytes.Buffer safe for the stream goroutine to write while
// the test reads.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// testLogger writes text records at debug level into buf.
func testLogger(buf *syncBuffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func logContains(buf *syncBuffer, substr string) bool {
	return strings.Contains(buf.String(), substr)
}

// eventStreamFunc returns a StreamFunc replaying events, optionally after a delay.
func eventStreamFunc(delay time.Duration, events ...ai.StreamEvent) func(context.Context, ai.ChatRequest) (*ai.ChatStream, error) {
	return func(ctx context.Context, _ ai.ChatRequest) (*ai.ChatStream, error) {
		return ai.NewChatStream(ctx, func(ctx context.Context, emit ai.Emit) {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				emit(ai.ErrorEvent(ctx.Err()))
				return
			}
			for _, event := range events {
				if !emit(event) {
					return
				}
			}
		}), nil
	}
}

// makeSendFunc returns a SendFunc that waits before answering, simulating a
// slow service.
func makeSendFunc(sleep time.Duration, reply *ai.Reply, err error) func(context.Context, ai.ChatRequest) (*ai.Reply, error) {
	return func(ctx context.Context, _ ai.ChatRequest) (*ai.Reply, error) {
		select {
		case <-time.After(sleep):
			return reply, err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
