package tellevo

import (
	"bytes"
	"encoding/json"
	"math"
	"time"
)

// StreamEvent is one validated sale notification from the ventas feed.
type StreamEvent struct {
	ID          int64     `json:"id"`
	Email       string    `json:"email"`
	CompanyName string    `json:"nombre_empresa"`
	SentAt      time.Time `json:"fecha_envio"`
}

// Layouts accepted for fecha_envio. The backend forwards whatever the sales
// service produced, which is not always RFC 3339.
var sentAtLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// DecodeEvent parses and validates one inbound frame. Frames that are not JSON
// fail with ErrorSerialization; JSON that does not have the StreamEvent shape
// fails with ErrorInvalidEvent.
func DecodeEvent(data []byte) (StreamEvent, error) {
	if !json.Valid(data) {
		return StreamEvent{}, NewError(ErrorSerialization, "frame is not valid JSON")
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return StreamEvent{}, WrapError(ErrorInvalidEvent, "frame is not a JSON object", err)
	}
	if fields == nil {
		return StreamEvent{}, NewError(ErrorInvalidEvent, "frame is null")
	}

	var ev StreamEvent
	var ok bool
	if ev.ID, ok = integerField(fields["id"]); !ok {
		return StreamEvent{}, NewError(ErrorInvalidEvent, "id must be an integer")
	}
	if ev.Email, ok = stringField(fields["email"]); !ok {
		return StreamEvent{}, NewError(ErrorInvalidEvent, "email must be a string")
	}
	if ev.CompanyName, ok = stringField(fields["nombre_empresa"]); !ok {
		return StreamEvent{}, NewError(ErrorInvalidEvent, "nombre_empresa must be a string")
	}
	sentAt, ok := stringField(fields["fecha_envio"])
	if !ok || sentAt == "" {
		return StreamEvent{}, NewError(ErrorInvalidEvent, "fecha_envio must be a non-empty string")
	}
	if ev.SentAt, ok = parseSentAt(sentAt); !ok {
		return StreamEvent{}, NewError(ErrorInvalidEvent, "fecha_envio is not a timestamp: "+sentAt)
	}
	return ev, nil
}

func integerField(raw json.RawMessage) (int64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return 0, false
	}
	n, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	if i, err := n.Int64(); err == nil {
		return i, true
	}
	// 1.0 and 1e3 are integers too.
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || f >= 1<<63 || f < -(1<<63) {
		return 0, false
	}
	return int64(f), true
}

func stringField(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func parseSentAt(s string) (time.Time, bool) {
	for _, layout := range sentAtLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
