// Package memory defines the conversation history store used by multi-turn
// callers. The in-process implementation lives in [inmemory].
package memory

import (
	"context"

	"github.com/leofalp/polychat/providers/ai"
)

// Provider stores the turns of one conversation in order.
type Provider interface {
	AppendMessage(ctx context.Context, message ai.Message)
	// Messages returns a copy of the history, oldest first.
	Messages(ctx context.Context) ([]ai.Message, error)
	// LastMessages returns at most n of the newest messages.
	LastMessages(ctx context.Context, n int) ([]ai.Message, error)
	// PopLastMessage removes the newest message; ok is false when empty.
	PopLastMessage(ctx context.Context) (message ai.Message, ok bool, err error)
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context)
}
