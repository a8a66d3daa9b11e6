package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/leofalp/polychat/providers/ai"
	"github.com/leofalp/polychat/providers/memory"
	"github.com/leofalp/polychat/providers/memory/inmemory"
)

const chatPrompt = "you> "

func newChatCmd(a *app) *cobra.Command {
	var flags requestFlags

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.newSession()
			if err != nil {
				return err
			}

			var lines lineReader
			if rl, err := newReadlineReader(cmd.InOrStdin(), cmd.OutOrStdout(), a.cfg.HistoryPath()); err == nil {
				lines = rl
			} else {
				lines = newStdioReader(cmd.InOrStdin(), cmd.OutOrStdout())
			}
			defer lines.Close()

			loop := &chatLoop{
				session:     s,
				lines:       lines,
				out:         cmd.OutOrStdout(),
				reasoning:   flags.reasoningWriter(cmd),
				model:       flags.model,
				temperature: flags.temperatureOverride(cmd),
				noStream:    flags.noStream,
				history:     inmemory.NewWithLimit(a.cfg.Client.HistoryLimit),
			}
			return loop.run(cmd.Context())
		},
	}

	flags.register(cmd)
	return cmd
}

type lineReader interface {
	ReadLine() (string, error)
	Close() error
}

type readlineReader struct {
	rl *readline.Instance
}

func newReadlineReader(in io.Reader, out io.Writer, historyFile string) (*readlineReader, error) {
	inFile, ok := in.(*os.File)
	if !ok || !term.IsTerminal(int(inFile.Fd())) {
		return nil, errors.New("stdin is not a terminal")
	}
	outFile, ok := out.(*os.File)
	if !ok || !term.IsTerminal(int(outFile.Fd())) {
		return nil, errors.New("stdout is not a terminal")
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          chatPrompt,
		HistoryFile:     historyFile,
		HistoryLimit:    500,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		Stdin:           inFile,
		Stdout:          outFile,
		Stderr:          outFile,
	})
	if err != nil {
		return nil, err
	}
	return &readlineReader{rl: rl}, nil
}

func (r *readlineReader) ReadLine() (string, error) {
	line, err := r.rl.Readline()
	if errors.Is(err, readline.ErrInterrupt) {
		return "", io.EOF
	}
	return line, err
}

func (r *readlineReader) Close() error { return r.rl.Close() }

type stdioReader struct {
	in  *bufio.Reader
	out io.Writer
}

func newStdioReader(in io.Reader, out io.Writer) *stdioReader {
	return &stdioReader{in: bufio.NewReader(in), out: out}
}

func (r *stdioReader) ReadLine() (string, error) {
	if _, err := fmt.Fprint(r.out, chatPrompt); err != nil {
		return "", err
	}
	line, err := r.in.ReadString('\n')
	if err != nil && line != "" {
		return line, nil
	}
	return line, err
}

func (r *stdioReader) Close() error { return nil }

type chatLoop struct {
	session     *session
	lines       lineReader
	out         io.Writer
	reasoning   io.Writer
	model       string
	temperature *float64
	noStream    bool

	history memory.Provider
}

func (l *chatLoop) run(ctx context.Context) error {
	fmt.Fprintf(l.out, "Chatting with profile %q. Type /reset to clear, /exit to stop.\n", l.session.name)

	for {
		raw, err := l.lines.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		input := strings.TrimSpace(raw)
		switch strings.ToLower(input) {
		case "":
			continue
		case "/exit", "/quit", "exit", "quit":
			return nil
		case "/reset":
			l.history.Clear(ctx)
			fmt.Fprintln(l.out, "conversation cleared")
			continue
		}

		if err := l.turn(ctx, input); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintf(l.out, "error: %v\n", err)
		}
	}
}

// turn sends input with the conversation so far. The user turn is kept only
// when the exchange succeeds.
func (l *chatLoop) turn(ctx context.Context, input string) error {
	messages, err := l.history.Messages(ctx)
	if err != nil {
		return err
	}
	userTurn := ai.Message{Role: ai.RoleUser, Content: input}
	request := l.session.request(append(messages, userTurn), l.model, l.temperature)

	reply, err := l.session.exchange(ctx, request, l.noStream, l.out, l.reasoning)
	if err != nil {
		return err
	}
	l.history.AppendMessage(ctx, userTurn)
	l.history.AppendMessage(ctx, ai.Message{Role: ai.RoleAssistant, Content: historyText(reply)})
	return nil
}
