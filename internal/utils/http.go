package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/leofalp/polychat/providers/observability"
)

// maxResponseBodySize is the maximum response body size (10 MB). Enforced via
// io.LimitReader to prevent unbounded memory allocation from rogue responses.
const maxResponseBodySize int64 = 10 * 1024 * 1024

// DefaultTimeout bounds a whole generation round-trip, body included.
// Generation can take minutes.
const DefaultTimeout = 10 * time.Minute

// HeaderOption is a single header applied by [NewJSONRequest].
type HeaderOption struct {
	Key   string
	Value string
}

// NewHTTPClient returns a client with [DefaultTimeout].
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: DefaultTimeout}
}

// NewJSONRequest marshals body and builds a request with JSON content type.
// A nil body produces a request without payload (GET catalog calls).
// It performs no network I/O.
func NewJSONRequest(ctx context.Context, method, url string, body any, headers ...HeaderOption) (*http.Request, error) {
	var reader io.Reader
	var jsonBody []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("error marshaling body: %w", err)
		}
		jsonBody = encoded
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	if jsonBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, header := range headers {
		if header.Value == "" {
			continue
		}
		req.Header.Set(header.Key, header.Value)
	}

	return req, nil
}

// Do sends req and returns the response together with its fully read body.
// The body is always closed. Status codes are not interpreted here; callers
// classify them. A non-nil error means the request never produced a usable
// response (transport failure, cancellation, body read failure).
func Do(client *http.Client, req *http.Request) (*http.Response, []byte, error) {
	response, err := Open(client, req)
	if err != nil {
		return response, nil, err
	}
	defer CloseWithLog(response.Body)

	body, err := ReadLimited(response.Body)
	if err != nil {
		return response, nil, fmt.Errorf("error reading response body: %w", err)
	}

	if span := observability.SpanFromContext(req.Context()); span != nil {
		span.AddEvent("http.response.received",
			observability.Int(observability.AttrHTTPStatusCode, response.StatusCode),
			observability.Int(observability.AttrHTTPResponseBodySize, len(body)),
		)
	}

	return response, body, nil
}

// Open sends req and returns the response with the body left open for
// incremental reading. The caller must close the body.
func Open(client *http.Client, req *http.Request) (*http.Response, error) {
	span := observability.SpanFromContext(req.Context())

	httpClient := client
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	if span != nil {
		span.AddEvent("http.request.prepared",
			observability.String(observability.AttrHTTPMethod, req.Method),
			observability.String(observability.AttrHTTPURL, RedactURL(req.URL.String())),
		)
	}

	requestStart := time.Now()
	response, err := httpClient.Do(req)
	requestDuration := time.Since(requestStart)

	if err != nil {
		// *url.Error embeds the full request URL, query-string credentials included.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			urlErr.URL = RedactURL(urlErr.URL)
		}
		if span != nil {
			span.AddEvent("http.request.error",
				observability.Error(err),
				observability.Duration("http.request.duration", requestDuration),
			)
		}
		return nil, fmt.Errorf("error sending request: %w", err)
	}

	if span != nil {
		span.AddEvent("http.response.started",
			observability.Int(observability.AttrHTTPStatusCode, response.StatusCode),
			observability.Duration("http.request.duration", requestDuration),
		)
	}

	return response, nil
}

// ReadLimited reads at most maxResponseBodySize bytes from r.
func ReadLimited(r io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, maxResponseBodySize))
}

// CloseWithLog closes c and logs, rather than returns, any close error.
func CloseWithLog(c io.Closer) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		slog.Warn("failed to close response body", "error", err.Error())
	}
}
