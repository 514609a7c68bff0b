package progress

// EventHandler receives the client's callbacks. Implementations must not
// block: callbacks are delivered from the read loop, in transport order.
type EventHandler interface {
	// OnProgress is invoked for every successfully parsed event.
	OnProgress(ev *Event)

	// OnComplete is invoked each time an event with StatusCompleted arrives.
	// A server that re-sends its final event after a reconnect triggers it
	// again; the stream carries no dedup key.
	OnComplete(ev *Event)

	// OnError is invoked for transport faults, parse failures and
	// server-reported job errors.
	OnError(err error)
}

// HandlerFuncs adapts plain functions to EventHandler. Nil fields are
// ignored, so callers wire only the callbacks they care about.
type HandlerFuncs struct {
	Progress func(ev *Event)
	Complete func(ev *Event)
	Error    func(err error)
}

func (h HandlerFuncs) OnProgress(ev *Event) {
	if h.Progress != nil {
		h.Progress(ev)
	}
}

func (h HandlerFuncs) OnComplete(ev *Event) {
	if h.Complete != nil {
		h.Complete(ev)
	}
}

func (h HandlerFuncs) OnError(err error) {
	if h.Error != nil {
		h.Error(err)
	}
}
