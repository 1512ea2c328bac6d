package tellevo

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// manualClock fires timers only when a test asks it to.
type manualClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
}

type manualTimer struct {
	clock   *manualClock
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{clock: c, d: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// pending returns the durations of armed timers, sorted.
func (c *manualClock) pending() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []time.Duration
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			out = append(out, t.d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// fire runs the first armed timer with duration d and advances Now by d.
// It reports whether such a timer existed.
func (c *manualClock) fire(d time.Duration) bool {
	c.mu.Lock()
	var target *manualTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && t.d == d {
			target = t
			break
		}
	}
	if target == nil {
		c.mu.Unlock()
		return false
	}
	target.fired = true
	c.now = c.now.Add(d)
	c.mu.Unlock()

	target.f()
	return true
}

type readResult struct {
	data []byte
	err  error
}

// scriptedTransport replays frames pushed by the test.
type scriptedTransport struct {
	frames chan readResult
	done   chan struct{}

	mu        sync.Mutex
	writes    []any
	writeErr  error
	closed    bool
	closeCode websocket.StatusCode
}

func newScriptedTransport() *scriptedTransport {
	return &scriptedTransport{
		frames: make(chan readResult, 64),
		done:   make(chan struct{}),
	}
}

func (s *scriptedTransport) Read(ctx context.Context) ([]byte, error) {
	select {
	case r := <-s.frames:
		return r.data, r.err
	case <-s.done:
		return nil, errors.New("use of closed transport")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *scriptedTransport) Write(_ context.Context, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	s.writes = append(s.writes, v)
	return nil
}

func (s *scriptedTransport) Close(code websocket.StatusCode, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.closeCode = code
	close(s.done)
	return nil
}

func (s *scriptedTransport) push(v any) {
	var b []byte
	switch f := v.(type) {
	case string:
		b = []byte(f)
	case []byte:
		b = f
	default:
		b, _ = json.Marshal(f)
	}
	s.frames <- readResult{data: b}
}

func (s *scriptedTransport) closeWith(code websocket.StatusCode, reason string) {
	s.frames <- readResult{err: websocket.CloseError{Code: code, Reason: reason}}
}

func (s *scriptedTransport) failWith(err error) {
	s.frames <- readResult{err: err}
}

func (s *scriptedTransport) setWriteErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeErr = err
}

func (s *scriptedTransport) written() []any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]any(nil), s.writes...)
}

func (s *scriptedTransport) closedWith() (bool, websocket.StatusCode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed, s.closeCode
}

type dialResult struct {
	t   Transport
	err error
}

// scriptedDialer hands out whatever the test queued, in order.
type scriptedDialer struct {
	results chan dialResult

	mu   sync.Mutex
	urls []string
}

func newScriptedDialer() *scriptedDialer {
	return &scriptedDialer{results: make(chan dialResult, 16)}
}

func (d *scriptedDialer) Dial(ctx context.Context, url string) (Transport, error) {
	d.mu.Lock()
	d.urls = append(d.urls, url)
	d.mu.Unlock()
	select {
	case r := <-d.results:
		return r.t, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (d *scriptedDialer) accept(t Transport) { d.results <- dialResult{t: t} }
func (d *scriptedDialer) refuse(err error)   { d.results <- dialResult{err: err} }

func (d *scriptedDialer) dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.urls)
}

// recorder captures everything the client emits.
type recorder struct {
	mu       sync.Mutex
	events   []StreamEvent
	statuses []ConnectionState
	errs     []error
}

func record(c *Client) *recorder {
	r := &recorder{}
	c.OnData(func(ev StreamEvent) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, ev)
	})
	c.OnStatus(func(ev StatusEvent) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.statuses = append(r.statuses, ev.NewState)
	})
	c.OnError(func(err error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.errs = append(r.errs, err)
	})
	return r
}

func (r *recorder) data() []StreamEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]StreamEvent(nil), r.events...)
}

func (r *recorder) states() []ConnectionState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ConnectionState(nil), r.statuses...)
}

func (r *recorder) errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}
