package tellevo

import (
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config controls how the stream client connects.
type Config struct {
	// URL is the resolved websocket endpoint, see package endpoint.
	URL string

	ConnectTimeout       time.Duration
	HeartbeatInterval    time.Duration
	ReconnectBaseDelay   time.Duration
	MaxReconnectAttempts int
	// ManualReconnectDelay is the pause between Disconnect and Connect
	// inside Reconnect.
	ManualReconnectDelay time.Duration
	WriteTimeout         time.Duration

	// Dialer opens transports. Nil uses the websocket dialer.
	Dialer Dialer
	// Clock schedules timers. Nil uses the wall clock.
	Clock Clock
	// Registerer receives the client's Prometheus collectors. Nil disables
	// metrics.
	Registerer prometheus.Registerer
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ConnectTimeout:       10 * time.Second,
		HeartbeatInterval:    30 * time.Second,
		ReconnectBaseDelay:   time.Second,
		MaxReconnectAttempts: 5,
		ManualReconnectDelay: 500 * time.Millisecond,
		WriteTimeout:         10 * time.Second,
	}
}

func (c Config) validate() error {
	if c.URL == "" {
		return NewError(ErrorInvalidConfig, "empty URL")
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return WrapError(ErrorInvalidConfig, "malformed URL", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return NewError(ErrorInvalidConfig, "URL scheme must be ws or wss, got "+u.Scheme)
	}
	if u.Host == "" {
		return NewError(ErrorInvalidConfig, "URL has no host")
	}
	if c.ConnectTimeout <= 0 || c.HeartbeatInterval <= 0 || c.ReconnectBaseDelay <= 0 {
		return NewError(ErrorInvalidConfig, "timeouts and delays must be positive")
	}
	if c.MaxReconnectAttempts < 0 || c.ManualReconnectDelay < 0 {
		return NewError(ErrorInvalidConfig, "reconnect limits must not be negative")
	}
	return nil
}

// ReconnectPolicy tracks the backoff state between a loss and the next
// successful connection.
type ReconnectPolicy struct {
	Attempt     int
	BaseDelay   time.Duration
	MaxAttempts int
}

// Delay returns the wait before reconnect attempt n (1-based):
// BaseDelay * 2^(n-1).
func (p ReconnectPolicy) Delay(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	return p.BaseDelay << (n - 1)
}

// Exhausted reports whether no further automatic attempts remain.
func (p ReconnectPolicy) Exhausted() bool {
	return p.Attempt >= p.MaxAttempts
}

// Next consumes one attempt and returns its delay.
func (p *ReconnectPolicy) Next() time.Duration {
	p.Attempt++
	return p.Delay(p.Attempt)
}

// Reset clears the attempt counter.
func (p *ReconnectPolicy) Reset() {
	p.Attempt = 0
}
