package tellevo

// ConnectionState represents the current state of the stream connection.
type ConnectionState int

const (
	// StateIdle means Connect has never been called.
	StateIdle ConnectionState = iota

	// StateConnecting means a dial is in flight or a reconnect is scheduled.
	StateConnecting

	// StateConnected means the socket is open and frames are delivered.
	StateConnected

	// StateDisconnected means the client is not connected and will not retry
	// on its own.
	StateDisconnected
)

// String returns the string representation of a ConnectionState.
func (s ConnectionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name.
func (s ConnectionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// StatusEvent is delivered to status subscribers on every state change.
type StatusEvent struct {
	OldState ConnectionState
	NewState ConnectionState
	// Attempt is the reconnect attempt counter at the time of the change.
	Attempt int
}

// Ready states reported by ConnectionInfo, mirroring the browser websocket
// readyState values the dashboard tooling expects.
const (
	ReadyStateNone       = -1
	ReadyStateConnecting = 0
	ReadyStateOpen       = 1
)
