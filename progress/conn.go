package progress

import (
	"context"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/attunefin/attune-go/errors"
)

// Conn abstracts the WebSocket connection for testability.
// The real implementation wraps gorilla/websocket; tests use an in-memory pipe.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Dialer establishes a Conn for a stream URL.
type Dialer interface {
	Dial(ctx context.Context, rawURL string) (Conn, error)
}

// NewDialer returns the gorilla/websocket-backed Dialer used outside tests.
func NewDialer() Dialer {
	return &wsDialer{dialer: websocket.DefaultDialer}
}

type wsDialer struct {
	dialer *websocket.Dialer
}

func (d *wsDialer) Dial(ctx context.Context, rawURL string) (Conn, error) {
	conn, resp, err := d.dialer.DialContext(ctx, rawURL, nil)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, errors.Wrap(err, "websocket dial failed")
	}
	return conn, nil
}

// EndpointResolver builds the job-scoped stream URL from the subscription
// identity. Injected so the client never reads ambient environment state.
type EndpointResolver func(jobID, authToken string) string

// Endpoint returns the standard resolver for an Attune backend base URL.
// The base may use an http(s) or ws(s) scheme; a secure base yields a
// secure socket. The job ID lands in the path and the token in the query:
//
//	wss://host/ws/upload-progress/{jobId}?token={authToken}
func Endpoint(baseURL string) EndpointResolver {
	return func(jobID, authToken string) string {
		base := strings.TrimRight(baseURL, "/")
		switch {
		case strings.HasPrefix(base, "https://"):
			base = "wss://" + strings.TrimPrefix(base, "https://")
		case strings.HasPrefix(base, "http://"):
			base = "ws://" + strings.TrimPrefix(base, "http://")
		}
		return base + "/ws/upload-progress/" + url.PathEscape(jobID) +
			"?token=" + url.QueryEscape(authToken)
	}
}
