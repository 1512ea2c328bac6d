package tellevo

import (
	"fmt"
	"sync"
)

type notificationKind int

const (
	notifyData notificationKind = iota
	notifyStatus
	notifyError
)

type notification struct {
	kind   notificationKind
	event  StreamEvent
	status StatusEvent
	err    error
}

type subscriber[T any] struct {
	id uint64
	fn func(T)
}

// dispatcher routes notifications to registered callbacks. Notifications are
// queued in the order the client produced them and drained by one goroutine
// at a time, so callbacks never overlap and may safely call back into the
// client.
type dispatcher struct {
	logger Logger

	mu       sync.Mutex
	nextID   uint64
	onData   []subscriber[StreamEvent]
	onStatus []subscriber[StatusEvent]
	onError  []subscriber[error]
	queue    []notification
	draining bool
}

func newDispatcher(logger Logger) *dispatcher {
	return &dispatcher{logger: logger}
}

func (d *dispatcher) subscribeData(fn func(StreamEvent)) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	id := d.nextID
	d.onData = append(d.onData, subscriber[StreamEvent]{id: id, fn: fn})
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.onData = removeSubscriber(d.onData, id)
	}
}

func (d *dispatcher) subscribeStatus(fn func(StatusEvent)) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	id := d.nextID
	d.onStatus = append(d.onStatus, subscriber[StatusEvent]{id: id, fn: fn})
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.onStatus = removeSubscriber(d.onStatus, id)
	}
}

func (d *dispatcher) subscribeError(fn func(error)) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	id := d.nextID
	d.onError = append(d.onError, subscriber[error]{id: id, fn: fn})
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.onError = removeSubscriber(d.onError, id)
	}
}

func removeSubscriber[T any](subs []subscriber[T], id uint64) []subscriber[T] {
	out := make([]subscriber[T], 0, len(subs))
	for _, s := range subs {
		if s.id != id {
			out = append(out, s)
		}
	}
	return out
}

// enqueue appends n to the delivery queue. The client calls it while holding
// its own lock so queue order matches transition order.
func (d *dispatcher) enqueue(n notification) {
	d.mu.Lock()
	d.queue = append(d.queue, n)
	d.mu.Unlock()
}

// drain delivers queued notifications unless another goroutine is already
// draining, in which case that goroutine picks them up.
func (d *dispatcher) drain() {
	d.mu.Lock()
	if d.draining {
		d.mu.Unlock()
		return
	}
	d.draining = true
	for len(d.queue) > 0 {
		n := d.queue[0]
		d.queue = d.queue[1:]
		switch n.kind {
		case notifyData:
			subs := append([]subscriber[StreamEvent](nil), d.onData...)
			d.mu.Unlock()
			for _, s := range subs {
				d.call("data", func() { s.fn(n.event) })
			}
		case notifyStatus:
			subs := append([]subscriber[StatusEvent](nil), d.onStatus...)
			d.mu.Unlock()
			for _, s := range subs {
				d.call("status", func() { s.fn(n.status) })
			}
		case notifyError:
			subs := append([]subscriber[error](nil), d.onError...)
			d.mu.Unlock()
			for _, s := range subs {
				d.call("error", func() { s.fn(n.err) })
			}
		}
		d.mu.Lock()
	}
	d.draining = false
	d.mu.Unlock()
}

// call runs one callback, isolating panics so the next subscriber still runs.
func (d *dispatcher) call(kind string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			err := NewError(ErrorSubscriber, fmt.Sprintf("%s subscriber panicked: %v", kind, r))
			d.logger.Error("subscriber failed", map[string]any{"kind": kind, "error": err.Error()})
		}
	}()
	fn()
}
