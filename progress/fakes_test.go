package progress

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/attunefin/attune-go/errors"
)

// fakeClock is a manually-advanced Clock. Advance fires due timers
// synchronously in the caller's goroutine, which keeps backoff chains
// deterministic: a fired retry that schedules another retry is picked up
// within the same Advance call once its deadline passes.
type fakeClock struct {
	mu      sync.Mutex
	now     time.Duration
	timers  []*fakeTimer
	tickers []*fakeTicker
}

type fakeTimer struct {
	clk     *fakeClock
	when    time.Duration
	delay   time.Duration
	f       func()
	fired   bool
	stopped bool
}

type fakeTicker struct {
	mu      sync.Mutex
	ch      chan time.Time
	stopped bool
}

func newFakeClock() *fakeClock { return &fakeClock{} }

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clk: c, when: c.now + d, delay: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) NewTicker(d time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTicker{ch: make(chan time.Time, 1)}
	c.tickers = append(c.tickers, t)
	return t
}

// Advance moves the clock forward and fires every timer that comes due,
// including timers scheduled by timers fired during the same call.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now + d
	for {
		var due *fakeTimer
		for _, t := range c.timers {
			if !t.fired && !t.stopped && t.when <= target {
				if due == nil || t.when < due.when {
					due = t
				}
			}
		}
		if due == nil {
			break
		}
		if due.when > c.now {
			c.now = due.when
		}
		due.fired = true
		f := due.f
		c.mu.Unlock()
		f()
		c.mu.Lock()
	}
	c.now = target
	c.mu.Unlock()
}

// pendingDelays returns the scheduling delays of timers that have neither
// fired nor been stopped, in creation order.
func (c *fakeClock) pendingDelays() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []time.Duration
	for _, t := range c.timers {
		if !t.fired && !t.stopped {
			out = append(out, t.delay)
		}
	}
	return out
}

// scheduledDelays returns the delays of every timer ever scheduled,
// fired or not, in creation order.
func (c *fakeClock) scheduledDelays() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []time.Duration
	for _, t := range c.timers {
		out = append(out, t.delay)
	}
	return out
}

func (c *fakeClock) lastTicker() *fakeTicker {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.tickers) == 0 {
		return nil
	}
	return c.tickers[len(c.tickers)-1]
}

func (t *fakeTimer) Stop() bool {
	t.clk.mu.Lock()
	defer t.clk.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }

func (t *fakeTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

func (t *fakeTicker) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// tick delivers one tick to the keepalive loop.
func (t *fakeTicker) tick() {
	t.ch <- time.Now()
}

type frame struct {
	data []byte
	err  error
}

// fakeConn is an in-memory Conn. Frames are pushed from the test; Close
// unblocks any pending read with a normal-closure error.
type fakeConn struct {
	frames    chan frame
	closeCh   chan struct{}
	closeOnce sync.Once

	// writeDelay holds each WriteMessage open so tests can observe whether
	// a second writer enters while one is in flight.
	writeDelay time.Duration
	inWrite    atomic.Int32
	overlaps   atomic.Int32

	mu     sync.Mutex
	writes []string
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		frames:  make(chan frame, 16),
		closeCh: make(chan struct{}),
	}
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case fr := <-f.frames:
		if fr.err != nil {
			return 0, nil, fr.err
		}
		return websocket.TextMessage, fr.data, nil
	case <-f.closeCh:
		return 0, nil, &websocket.CloseError{Code: websocket.CloseNormalClosure, Text: "connection closed"}
	}
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	if f.inWrite.Add(1) > 1 {
		f.overlaps.Add(1)
	}
	defer f.inWrite.Add(-1)
	if f.writeDelay > 0 {
		time.Sleep(f.writeDelay)
	}

	select {
	case <-f.closeCh:
		return errors.New("write on closed connection")
	default:
	}
	if messageType == websocket.TextMessage {
		f.mu.Lock()
		f.writes = append(f.writes, string(data))
		f.mu.Unlock()
	}
	return nil
}

func (f *fakeConn) Close() error {
	f.closeOnce.Do(func() { close(f.closeCh) })
	return nil
}

// push delivers a text frame to the client's read loop.
func (f *fakeConn) push(data string) {
	f.frames <- frame{data: []byte(data)}
}

// fail terminates the read loop with the given error.
func (f *fakeConn) fail(err error) {
	f.frames <- frame{err: err}
}

func (f *fakeConn) sentFrames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.writes))
	copy(out, f.writes)
	return out
}

func (f *fakeConn) pingCount() int {
	n := 0
	for _, w := range f.sentFrames() {
		if w == pingFrame {
			n++
		}
	}
	return n
}

// fakeDialer serves a scripted sequence of dial outcomes. Once the script
// is exhausted every further dial fails.
type fakeDialer struct {
	mu     sync.Mutex
	script []dialOutcome
	urls   []string
}

type dialOutcome struct {
	conn *fakeConn
	err  error
}

func newFakeDialer() *fakeDialer { return &fakeDialer{} }

func (d *fakeDialer) queueConn(c *fakeConn) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.script = append(d.script, dialOutcome{conn: c})
}

func (d *fakeDialer) queueError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.script = append(d.script, dialOutcome{err: err})
}

func (d *fakeDialer) Dial(ctx context.Context, rawURL string) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.urls = append(d.urls, rawURL)
	if len(d.script) == 0 {
		return nil, errors.New("no connection scripted")
	}
	next := d.script[0]
	d.script = d.script[1:]
	if next.err != nil {
		return nil, next.err
	}
	return next.conn, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.urls)
}

func (d *fakeDialer) dialedURLs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.urls))
	copy(out, d.urls)
	return out
}

// recordingHandler captures every callback for assertions.
type recordingHandler struct {
	mu        sync.Mutex
	events    []*Event
	completes []*Event
	errs      []error
}

func (h *recordingHandler) OnProgress(ev *Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, ev)
}

func (h *recordingHandler) OnComplete(ev *Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.completes = append(h.completes, ev)
}

func (h *recordingHandler) OnError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errs = append(h.errs, err)
}

func (h *recordingHandler) eventCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.events)
}

func (h *recordingHandler) completeCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.completes)
}

func (h *recordingHandler) errorCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.errs)
}

func (h *recordingHandler) lastEvent() *Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.events) == 0 {
		return nil
	}
	return h.events[len(h.events)-1]
}

func (h *recordingHandler) allEvents() []*Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*Event, len(h.events))
	copy(out, h.events)
	return out
}
