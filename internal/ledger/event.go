package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// TimeFormat is the text layout of every timestamp hull stores.
const TimeFormat = time.RFC3339Nano

// Event is one ledger row.
type Event struct {
	ID        int64           `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Kind      Kind            `json:"-"`
	Tag       string          `json:"kind"` // raw stored tag; the only name an unrecognized kind has
	Payload   json.RawMessage `json:"payload"`
}

// Unrecognized reports whether the event carries a tag this build does not know.
func (e Event) Unrecognized() bool {
	return e.Kind == KindUnrecognized
}

// DecodeError reports a payload that could not be decoded into its entity.
type DecodeError struct {
	EventID int64
	Tag     string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode event %d (%s): %v", e.EventID, e.Tag, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsDecodeError reports whether err wraps a *DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

// Decode unmarshals the event payload into T. Decoding is lenient: fields
// unknown to T are ignored and missing fields are left at their zero value.
// A payload that is not a JSON object fails with *DecodeError.
func Decode[T any](ev Event) (T, error) {
	var out T
	if len(ev.Payload) == 0 {
		return out, &DecodeError{EventID: ev.ID, Tag: ev.Tag, Err: errors.New("empty payload")}
	}
	if err := json.Unmarshal(ev.Payload, &out); err != nil {
		var zero T
		return zero, &DecodeError{EventID: ev.ID, Tag: ev.Tag, Err: err}
	}
	return out, nil
}
