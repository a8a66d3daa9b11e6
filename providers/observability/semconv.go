package observability

// Attribute keys, span names and metric names shared by adapters and the
// client so that every backend sees the same vocabulary.

const (
	// AttrLLMProvider is the adapter name (e.g. "openai", "ollama").
	AttrLLMProvider = "llm.provider"
	// AttrLLMModel is the model identifier sent with the request.
	AttrLLMModel = "llm.model"
	// AttrLLMEndpoint is the redacted request URL.
	AttrLLMEndpoint = "llm.endpoint"
	// AttrLLMFinishReason is the vendor finish reason of a terminal event.
	AttrLLMFinishReason = "llm.finish_reason"
	// AttrLLMTemperature is the sampling temperature actually sent.
	AttrLLMTemperature = "llm.temperature"
	// AttrLLMStreaming is true for streaming calls.
	AttrLLMStreaming = "llm.streaming"
)

const (
	// AttrRequestID is the client-assigned id of one call.
	AttrRequestID = "request.id"
	// AttrRequestMessagesCount is the number of messages in the request.
	AttrRequestMessagesCount = "request.messages_count"
	// AttrRequestToolsCount is the number of tools offered to the model.
	AttrRequestToolsCount = "request.tools_count"
	// AttrResponseLength is the length of the final reply text.
	AttrResponseLength = "response.length"
	// AttrResponseToolCalls is the number of tool calls in the reply.
	AttrResponseToolCalls = "response.tool_calls"
	// AttrStreamEvents is the number of events a stream delivered.
	AttrStreamEvents = "stream.events"
)

const (
	// AttrHTTPMethod is the HTTP method.
	AttrHTTPMethod = "http.method"
	// AttrHTTPStatusCode is the HTTP response status code.
	AttrHTTPStatusCode = "http.status_code"
	// AttrHTTPURL is the redacted request URL.
	AttrHTTPURL = "http.url"
	// AttrHTTPResponseBodySize is the response body size in bytes.
	AttrHTTPResponseBodySize = "http.response.body.size"
)

const (
	// AttrError is the error message.
	AttrError = "error"
	// AttrErrorKind is the error taxonomy kind (e.g. "rateLimited").
	AttrErrorKind = "error.kind"
	// AttrDuration is the operation duration.
	AttrDuration = "duration"
	// AttrAttempt is the 1-based retry attempt number.
	AttrAttempt = "attempt"
)

const (
	// SpanClientSendMessage wraps one non-streaming client call.
	SpanClientSendMessage = "client.send_message"
	// SpanClientStreamMessage wraps one streaming client call, ended when the
	// stream delivers its terminal event.
	SpanClientStreamMessage = "client.stream_message"
)

const (
	// EventStreamTerminal marks the terminal event of a stream.
	EventStreamTerminal = "stream.terminal"

	// EventRetry marks a retried attempt.
	EventRetry = "client.retry"
)

const (
	// MetricClientRequestCount counts client calls.
	MetricClientRequestCount = "polychat.client.request.count"
	// MetricClientRequestDuration records call duration in milliseconds.
	MetricClientRequestDuration = "polychat.client.request.duration"
	// MetricClientErrorCount counts failed client calls.
	MetricClientErrorCount = "polychat.client.error.count"
)
