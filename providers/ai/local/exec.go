package local

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"unicode/utf8"

	"github.com/leofalp/polychat/internal/utils"
	"github.com/leofalp/polychat/providers/ai"
)

const (
	execReadSize      = 4 * 1024
	maxStderrCapture  = 4 * 1024
	imageOutputPrefix = "IMAGE_BASE64:"
)

// ExecEngine runs one runner process per generation. The runner is invoked
// as
//
//	Binary Args... --model <folder> --kind <text|vision|image>
//
// and receives the [Prompt] as JSON on stdin. Text and vision runners write
// tokens to stdout as they are produced; image runners write one base64 PNG,
// optionally prefixed with "IMAGE_BASE64:".
type ExecEngine struct {
	Binary string
	Args   []string
	Env    []string
}

var _ Engine = ExecEngine{}

// Load checks that the runner binary exists. The model itself is loaded by
// the runner on every generation.
func (e ExecEngine) Load(_ context.Context, path string, kind ModelKind) (Model, error) {
	if strings.TrimSpace(e.Binary) == "" {
		return nil, fmt.Errorf("local runner binary is not configured")
	}
	binary, err := exec.LookPath(e.Binary)
	if err != nil {
		return nil, fmt.Errorf("find local runner: %w", err)
	}
	args := append(append([]string{}, e.Args...), "--model", path, "--kind", kind.String())
	return &execModel{binary: binary, args: args, env: e.Env, kind: kind}, nil
}

type execModel struct {
	binary string
	args   []string
	env    []string
	kind   ModelKind
}

// Generate runs the runner and relays its stdout.
func (m *execModel) Generate(ctx context.Context, prompt Prompt, onChunk func(string) bool) error {
	input, err := json.Marshal(prompt)
	if err != nil {
		return fmt.Errorf("encode prompt: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	cmd := exec.CommandContext(runCtx, m.binary, m.args...)
	cmd.Stdin = bytes.NewReader(input)
	if len(m.env) > 0 {
		cmd.Env = m.env
	}
	var stderr bytes.Buffer
	cmd.Stderr = &limitedWriter{buffer: &stderr, limit: maxStderrCapture}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("runner stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start runner: %w", err)
	}

	stopped := false
	var output strings.Builder
	if m.kind == KindImageGeneration {
		_, err = io.Copy(&output, stdout)
	} else {
		stopped, err = relayText(stdout, onChunk)
	}
	if stopped {
		cancel()
	}
	waitErr := cmd.Wait()

	switch {
	case ctx.Err() != nil:
		return ctx.Err()
	case stopped:
		return nil
	case err != nil:
		return fmt.Errorf("read runner output: %w", err)
	case waitErr != nil:
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return fmt.Errorf("runner exited with code %d: %s", exitErr.ExitCode(), utils.TruncateString(strings.TrimSpace(stderr.String()), 300))
		}
		return fmt.Errorf("runner failed: %w", waitErr)
	}

	if m.kind == KindImageGeneration {
		payload := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(output.String()), imageOutputPrefix))
		if payload == "" {
			return fmt.Errorf("image runner produced no output")
		}
		if !strings.HasPrefix(payload, "data:") {
			payload = "data:image/png;base64," + payload
		}
		onChunk(ai.WrapImageURL(payload))
	}
	return nil
}

// relayText forwards stdout in read-sized chunks, holding back an
// incomplete trailing UTF-8 sequence until the next read. It reports whether
// onChunk asked to stop.
func relayText(r io.Reader, onChunk func(string) bool) (bool, error) {
	buffer := make([]byte, execReadSize)
	var pending []byte
	for {
		n, err := r.Read(buffer)
		if n > 0 {
			pending = append(pending, buffer[:n]...)
			cut := completeUTF8(pending)
			if cut > 0 {
				chunk := string(pending[:cut])
				pending = append(pending[:0], pending[cut:]...)
				if !onChunk(chunk) {
					return true, nil
				}
			}
		}
		if err == io.EOF {
			if len(pending) > 0 && !onChunk(string(pending)) {
				return true, nil
			}
			return false, nil
		}
		if err != nil {
			return false, err
		}
	}
}

// completeUTF8 returns the length of the longest prefix of b that does not
// end inside a multi-byte sequence.
func completeUTF8(b []byte) int {
	for back := 1; back <= utf8.UTFMax && back <= len(b); back++ {
		start := len(b) - back
		if !utf8.RuneStart(b[start]) {
			continue
		}
		if utf8.FullRune(b[start:]) {
			return len(b)
		}
		return start
	}
	return len(b)
}

type limitedWriter struct {
	buffer *bytes.Buffer
	limit  int
}

func (w *limitedWriter) Write(p []byte) (int, error) {
	if room := w.limit - w.buffer.Len(); room > 0 {
		if len(p) > room {
			w.buffer.Write(p[:room])
		} else {
			w.buffer.Write(p)
		}
	}
	return len(p), nil
}
