package client

import (
	"context"
	"io"
	"net/http"
	"time"
)

// ProgressFunc is invoked as a download streams to disk. total is -1 when
// the server did not send a Content-Length.
type ProgressFunc func(received, total int64)

// Request is one outbound HTTP request issued by the core. Accept carries
// the negotiated vendor media type (built by pkg/registry.AcceptHeader);
// Transport implementations must send it verbatim.
type Request struct {
	Method  string
	URL     string
	Accept  string
	Headers map[string]string
	Body    io.Reader
	Timeout time.Duration
}

// Response is the decoded shape of an HTTP response the core can inspect.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Transport is the external HTTP collaborator (spec.md §6). The core never
// opens a socket itself; every registry operation routes through this
// interface, and the download orchestrator additionally uses the streaming
// Download variant.
type Transport interface {
	// Execute issues req and buffers the response body.
	Execute(ctx context.Context, req Request) (Response, error)
	// Download issues req and streams the response body to destination,
	// invoking progress (if non-nil) as bytes arrive. The returned Response
	// has an empty Body; status and headers are still populated.
	Download(ctx context.Context, req Request, destination string, progress ProgressFunc) (Response, error)
}
