package ai

import (
	"context"
	"net/http"

	"github.com/leofalp/polychat/internal/utils"
)

// PreparedRequest is a ready-to-send vendor request.
type PreparedRequest struct {
	HTTP    *http.Request
	Framing utils.FrameFormat
	// Streaming is false when the vendor answers a stream call with a single
	// JSON body (image generation endpoints). The adapter then parses it with
	// ParseJSONResponse and replays it as a stream.
	Streaming bool
	// Model is the model actually addressed, for logging.
	Model string
}

// Codec is the vendor-specific half of an HTTP adapter: it builds requests
// and parses responses but never touches the network.
type Codec interface {
	// Name identifies the vendor family in logs and attributes.
	Name() string

	// PrepareRequest builds the vendor HTTP request for request. It performs
	// no network I/O; attachment bytes may be read through the resolver.
	PrepareRequest(ctx context.Context, request ChatRequest) (*PreparedRequest, error)

	// ParseJSONResponse parses one complete non-streaming body. ok is false
	// when the body has an unrecognized shape.
	ParseJSONResponse(data []byte) (reply *Reply, ok bool)

	// NewDeltaParser returns a parser holding fresh state for one stream.
	NewDeltaParser() DeltaParser

	// PrepareModelsRequest builds the catalog request.
	PrepareModelsRequest(ctx context.Context) (*http.Request, error)

	// ParseModels parses the catalog body.
	ParseModels(data []byte) ([]ModelID, error)
}

// DeltaParser turns framed stream payloads into events. It owns the state
// that spans frames (tool-call fragments, image accumulation) and therefore
// serves exactly one stream.
type DeltaParser interface {
	// ParseDeltaJSONResponse parses one frame. It may return no events
	// (keep-alives, accumulation-only frames) or several. A nil frame yields
	// a single decodingFailed terminal event.
	ParseDeltaJSONResponse(data []byte) []StreamEvent
}

// StreamFinisher is implemented by delta parsers that hold state which must
// be flushed when the body ends without an in-band terminal frame.
type StreamFinisher interface {
	Finish() []StreamEvent
}

// NoDataEvent is the terminal event for an empty frame.
func NoDataEvent() StreamEvent {
	return ErrorEvent(NewError(KindDecodingFailed, "no data in event"))
}

// DecodingFailedEvent is the terminal event for a structurally malformed frame.
func DecodingFailedEvent(format string, args ...any) StreamEvent {
	return ErrorEvent(NewError(KindDecodingFailed, format, args...))
}
