package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// FrameFormat selects how a streaming response body is cut into frames.
type FrameFormat int

const (
	// FormatSSE frames "data: <payload>" lines. A "[DONE]" payload ends the
	// stream, ":" lines are comments, other SSE fields are ignored.
	FormatSSE FrameFormat = iota
	// FormatNDJSON frames every non-empty line as one JSON document.
	FormatNDJSON
	// FormatJSONArray frames each top-level object of a streamed JSON array,
	// regardless of how the objects are spread over lines.
	FormatJSONArray
)

// String returns a short name for the format.
func (f FrameFormat) String() string {
	switch f {
	case FormatSSE:
		return "sse"
	case FormatNDJSON:
		return "ndjson"
	case FormatJSONArray:
		return "json-array"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// maxFrameSize is the maximum size of a single line or array element (10 MB).
// Inline base64 images routinely exceed the 64 KiB bufio.Scanner default.
const maxFrameSize = 10 * 1024 * 1024

// readChunkSize is the buffer size used by PumpFrames for each body read.
const readChunkSize = 32 * 1024

// sseDoneSentinel is the OpenAI convention for end-of-stream.
const sseDoneSentinel = "[DONE]"

// ErrFrameTooLarge is returned when a single frame grows beyond maxFrameSize
// without being terminated.
var ErrFrameTooLarge = errors.New("stream frame exceeds maximum size")

// Frame is one unit handed to a delta parser. Done frames carry no data.
type Frame struct {
	Data []byte
	Done bool
}

// Framer re-frames an arbitrary sequence of byte chunks into protocol frames.
// The output depends only on the concatenated bytes, never on where the
// chunk boundaries fall. A Framer is not safe for concurrent use; each
// stream owns its own.
type Framer struct {
	format  FrameFormat
	pending []byte
	done    bool

	// JSON-array state.
	depth    int
	inString bool
	escaped  bool
}

// NewFramer returns a Framer for the given format.
func NewFramer(format FrameFormat) *Framer {
	return &Framer{format: format}
}

// Feed appends chunk and returns every frame completed by it. After a Done
// frame has been produced the Framer ignores further input.
func (f *Framer) Feed(chunk []byte) ([]Frame, error) {
	if f.done {
		return nil, nil
	}
	if f.format == FormatJSONArray {
		return f.feedArray(chunk)
	}

	f.pending = append(f.pending, chunk...)

	var frames []Frame
	consumed := 0
	for {
		newline := bytes.IndexByte(f.pending[consumed:], '\n')
		if newline < 0 {
			break
		}
		line := f.pending[consumed : consumed+newline]
		consumed += newline + 1

		if frame, ok := f.lineFrame(line); ok {
			frames = append(frames, frame)
			if frame.Done {
				f.done = true
				f.pending = nil
				return frames, nil
			}
		}
	}

	remaining := copy(f.pending, f.pending[consumed:])
	f.pending = f.pending[:remaining]

	if len(f.pending) > maxFrameSize {
		return frames, ErrFrameTooLarge
	}
	return frames, nil
}

// Flush is called once at end of input. A trailing line without newline is
// emitted only when it is well-formed for the format; anything else left in
// the buffer is discarded.
func (f *Framer) Flush() []Frame {
	if f.done {
		return nil
	}
	f.done = true

	pending := f.pending
	f.pending = nil
	if len(bytes.TrimSpace(pending)) == 0 {
		return nil
	}

	switch f.format {
	case FormatSSE:
		if frame, ok := f.lineFrame(pending); ok {
			return []Frame{frame}
		}
	case FormatNDJSON:
		trimmed := bytes.TrimSpace(pending)
		if json.Valid(trimmed) {
			return []Frame{{Data: cloneBytes(trimmed)}}
		}
	case FormatJSONArray:
		// An unterminated object is never valid.
	}
	return nil
}

func (f *Framer) lineFrame(line []byte) (Frame, bool) {
	line = bytes.TrimRight(line, "\r")

	switch f.format {
	case FormatNDJSON:
		trimmed := bytes.TrimSpace(line)
		if len(trimmed) == 0 {
			return Frame{}, false
		}
		return Frame{Data: cloneBytes(trimmed)}, true

	default:
		if len(line) == 0 || line[0] == ':' {
			return Frame{}, false
		}
		payload, ok := bytes.CutPrefix(line, []byte("data:"))
		if !ok {
			// event:, id:, retry: carry nothing the parsers need.
			return Frame{}, false
		}
		payload = bytes.TrimSpace(payload)
		if len(payload) == 0 {
			return Frame{}, false
		}
		if string(payload) == sseDoneSentinel {
			return Frame{Done: true}, true
		}
		return Frame{Data: cloneBytes(payload)}, true
	}
}

func (f *Framer) feedArray(chunk []byte) ([]Frame, error) {
	var frames []Frame
	for _, b := range chunk {
		if f.depth == 0 {
			// Between elements: '[', ',', ']' and whitespace.
			if b == '{' {
				f.depth = 1
				f.pending = append(f.pending[:0], b)
			}
			continue
		}

		f.pending = append(f.pending, b)

		if f.inString {
			switch {
			case f.escaped:
				f.escaped = false
			case b == '\\':
				f.escaped = true
			case b == '"':
				f.inString = false
			}
			continue
		}

		switch b {
		case '"':
			f.inString = true
		case '{', '[':
			f.depth++
		case '}', ']':
			f.depth--
			if f.depth == 0 {
				frames = append(frames, Frame{Data: cloneBytes(f.pending)})
				f.pending = f.pending[:0]
			}
		}
	}

	if len(f.pending) > maxFrameSize {
		return frames, ErrFrameTooLarge
	}
	return frames, nil
}

// PumpFrames reads r until EOF, cancellation, a Done frame, or handle
// returning false, delivering frames in arrival order. Cancellation is
// checked between reads and between frames, so no frame is delivered once
// ctx is done. A nil return means the stream ended normally or handle asked
// to stop.
func PumpFrames(ctx context.Context, r io.Reader, format FrameFormat, handle func(Frame) bool) error {
	framer := NewFramer(format)
	buffer := make([]byte, readChunkSize)

	deliver := func(frames []Frame) (bool, error) {
		for _, frame := range frames {
			if err := ctx.Err(); err != nil {
				return false, err
			}
			if !handle(frame) || frame.Done {
				return false, nil
			}
		}
		return true, nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, readErr := r.Read(buffer)
		if n > 0 {
			frames, feedErr := framer.Feed(buffer[:n])
			more, err := deliver(frames)
			if err != nil || !more {
				return err
			}
			if feedErr != nil {
				return feedErr
			}
		}

		if readErr == io.EOF {
			_, err := deliver(framer.Flush())
			return err
		}
		if readErr != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("stream read error: %w", readErr)
		}
	}
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
