package ledger

import (
	"encoding/json"
	"fmt"
	"time"
)

// Time is a payload timestamp. It marshals as TimeFormat in UTC and
// unmarshals anything ParseTime accepts, so payloads holding SQLite's
// datetime('now') text still decode. null and "" leave it zero.
type Time struct {
	time.Time
}

// TimeOf wraps t in UTC.
func TimeOf(t time.Time) Time {
	return Time{Time: t.UTC()}
}

// MarshalJSON implements json.Marshaler.
func (t Time) MarshalJSON() ([]byte, error) {
	return json.Marshal(FormatTime(t.Time))
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Time) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	if s == "" {
		*t = Time{}
		return nil
	}
	parsed, err := ParseTime(s)
	if err != nil {
		return err
	}
	*t = Time{Time: parsed}
	return nil
}
