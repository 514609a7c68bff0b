package progress

import "sync"

// Default projection values shown before the first event arrives.
const (
	initialStatus  = "connecting"
	initialMessage = "Connecting to progress tracking..."
)

// Tracker flattens the event stream into the convenience fields a display
// surface renders: percent complete, stage, message, plus two one-way
// latches. IsComplete and HasError never revert once set, regardless of
// later events.
//
// Tracker implements EventHandler; wire it as the client's Handler and it
// will forward every callback to an optional downstream handler after
// updating its projection.
type Tracker struct {
	mu       sync.Mutex
	next     EventHandler
	progress float64
	status   string
	stage    Stage
	message  string
	details  map[string]interface{}
	complete bool
	failed   bool
	errMsg   string
}

// NewTracker creates a tracker. next may be nil.
func NewTracker(next EventHandler) *Tracker {
	return &Tracker{
		next:    next,
		status:  initialStatus,
		message: initialMessage,
	}
}

// OnProgress updates the projection from the latest event.
func (t *Tracker) OnProgress(ev *Event) {
	t.mu.Lock()
	t.progress = ev.Progress
	t.status = string(ev.Status)
	t.stage = ev.Stage
	t.message = ev.Message
	t.details = ev.Details
	t.mu.Unlock()

	if t.next != nil {
		t.next.OnProgress(ev)
	}
}

// OnComplete latches IsComplete.
func (t *Tracker) OnComplete(ev *Event) {
	t.mu.Lock()
	t.complete = true
	t.mu.Unlock()

	if t.next != nil {
		t.next.OnComplete(ev)
	}
}

// OnError latches HasError and records the message.
func (t *Tracker) OnError(err error) {
	t.mu.Lock()
	t.failed = true
	t.errMsg = err.Error()
	t.mu.Unlock()

	if t.next != nil {
		t.next.OnError(err)
	}
}

// Progress returns the latest percent complete (0 before any event).
func (t *Tracker) Progress() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.progress
}

// Status returns the latest status, "connecting" before the first event.
func (t *Tracker) Status() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Stage returns the latest processing stage.
func (t *Tracker) Stage() Stage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stage
}

// Message returns the latest human-readable status text.
func (t *Tracker) Message() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.message
}

// Details returns the latest passthrough details map, nil if absent.
func (t *Tracker) Details() map[string]interface{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.details
}

// IsComplete reports whether a completed event has ever been seen.
func (t *Tracker) IsComplete() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.complete
}

// HasError reports whether any error has ever been surfaced.
func (t *Tracker) HasError() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.failed
}

// Err returns the most recent error message, "" if none.
func (t *Tracker) Err() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.errMsg
}
