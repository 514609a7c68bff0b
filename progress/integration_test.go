package progress

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// progressServer is a minimal in-process stand-in for the backend stream
// endpoint, driven over real HTTP with a real upgrader.
type progressServer struct {
	t        *testing.T
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns []*websocket.Conn
	pings int
	path  string
	token string
}

func newProgressServer(t *testing.T) (*progressServer, *httptest.Server) {
	ps := &progressServer{t: t}
	srv := httptest.NewServer(http.HandlerFunc(ps.handle))
	t.Cleanup(srv.Close)
	return ps, srv
}

func (s *progressServer) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.path = r.URL.Path
	s.token = r.URL.Query().Get("token")
	s.mu.Unlock()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.conns = append(s.conns, conn)
	s.mu.Unlock()

	// Echo keepalives; everything else from the client is ignored.
	go func() {
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if mt == websocket.TextMessage && string(data) == "ping" {
				s.mu.Lock()
				s.pings++
				s.mu.Unlock()
				_ = conn.WriteMessage(websocket.TextMessage, []byte("pong"))
			}
		}
	}()
}

func (s *progressServer) send(frame string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(s.t, s.conns, "no client connected")
	conn := s.conns[len(s.conns)-1]
	require.NoError(s.t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))
}

func (s *progressServer) closeWith(code int, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(s.t, s.conns, "no client connected")
	conn := s.conns[len(s.conns)-1]
	msg := websocket.FormatCloseMessage(code, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	_ = conn.Close()
}

func (s *progressServer) pingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pings
}

func (s *progressServer) requestPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

func (s *progressServer) requestToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func TestIntegration_LiveStream(t *testing.T) {
	ps, srv := newProgressServer(t)

	tr := NewTracker(nil)
	client, err := NewClient(Options{
		JobID:        "job-live",
		AuthToken:    "tok-live",
		BaseURL:      srv.URL,
		Handler:      tr,
		PingInterval: 20 * time.Millisecond,
		Logger:       zaptest.NewLogger(t).Sugar(),
	})
	require.NoError(t, err)
	defer client.Disconnect()

	client.Connect()
	waitState(t, client, StateConnected)

	assert.Equal(t, "/ws/upload-progress/job-live", ps.requestPath())
	assert.Equal(t, "tok-live", ps.requestToken())

	ps.send(`{"jobId":"job-live","progress":50,"status":"processing","stage":"parsing","message":"halfway","timestamp":"T1"}`)
	require.Eventually(t, func() bool { return tr.Progress() == 50 },
		2*time.Second, 5*time.Millisecond)

	// The keepalive runs on a real ticker here; the echoed pongs must not
	// disturb the projection.
	require.Eventually(t, func() bool { return ps.pingCount() >= 2 },
		2*time.Second, 5*time.Millisecond)
	assert.Equal(t, float64(50), tr.Progress())
	assert.False(t, tr.HasError())

	ps.send(`{"jobId":"job-live","progress":100,"status":"completed","stage":"categorization","message":"done","timestamp":"T2"}`)
	require.Eventually(t, func() bool { return tr.IsComplete() },
		2*time.Second, 5*time.Millisecond)

	client.Disconnect()
	assert.Equal(t, StateDisconnected, client.State())
}

func TestIntegration_AuthRejection(t *testing.T) {
	ps, srv := newProgressServer(t)

	client, err := NewClient(Options{
		JobID:     "job-denied",
		AuthToken: "expired",
		BaseURL:   srv.URL,
		Handler:   HandlerFuncs{},
		Logger:    zaptest.NewLogger(t).Sugar(),
	})
	require.NoError(t, err)
	defer client.Disconnect()

	client.Connect()
	waitState(t, client, StateConnected)

	ps.closeWith(websocket.ClosePolicyViolation, "invalid token")

	require.Eventually(t, func() bool { return client.State() == StateDisconnected },
		2*time.Second, 5*time.Millisecond)
	assert.Equal(t, ErrMsgAuthRejected, client.Err())
}

func TestIntegration_WSSchemeDerivedFromHTTPBase(t *testing.T) {
	_, srv := newProgressServer(t)
	require.True(t, strings.HasPrefix(srv.URL, "http://"))

	resolve := Endpoint(srv.URL)
	got := resolve("j", "t")
	assert.True(t, strings.HasPrefix(got, "ws://"), "resolved %q", got)
}
