package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/leofalp/polychat/providers/ai"
)

// printStream writes text deltas to out as they arrive and reasoning deltas
// to reasoning when it is not nil. It returns the collected reply.
func printStream(stream *ai.ChatStream, out, reasoning io.Writer) (*ai.Reply, error) {
	var writeErr error
	printed := stream.Observe(func(event ai.StreamEvent) {
		if writeErr != nil || event.TextDelta == "" {
			return
		}
		switch {
		case event.Role == ai.StreamRoleReasoning:
			if reasoning != nil {
				_, writeErr = io.WriteString(reasoning, event.TextDelta)
			}
		default:
			_, writeErr = io.WriteString(out, event.TextDelta)
		}
	})

	reply, err := printed.Collect()
	if writeErr != nil {
		return reply, writeErr
	}
	if _, lineErr := fmt.Fprintln(out); lineErr != nil && err == nil {
		err = lineErr
	}
	return reply, err
}

// exchange runs one request, streaming unless noStream is set.
func (s *session) exchange(ctx context.Context, request ai.ChatRequest, noStream bool, out, reasoning io.Writer) (*ai.Reply, error) {
	if noStream {
		reply, err := s.client.SendMessage(ctx, request)
		if err != nil {
			return nil, err
		}
		if reasoning != nil {
			thoughts, content := ai.SplitThinkTags(reply.Text)
			if thoughts != "" {
				fmt.Fprintln(reasoning, thoughts)
			}
			_, err = fmt.Fprintln(out, content)
			return reply, err
		}
		_, err = fmt.Fprintln(out, reply.Text)
		return reply, err
	}

	request.Stream = true
	stream, err := s.client.StreamMessage(ctx, request)
	if err != nil {
		return nil, err
	}
	defer stream.Close()
	return printStream(stream, out, reasoning)
}

// historyText is the assistant turn kept in a conversation: reasoning is
// dropped.
func historyText(reply *ai.Reply) string {
	_, content := ai.SplitThinkTags(reply.Text)
	return content
}
