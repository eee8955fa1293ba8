package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// DeadlineLayout is the wire format the backend accepts for deadlines.
const DeadlineLayout = "2006-01-02 15:04:05-07:00"

var deadlineLayouts = []string{
	DeadlineLayout,
	"2006-01-02 15:04:05Z07:00",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Deadline is an absolute timestamp carrying its timezone offset on the wire.
type Deadline struct {
	time.Time
}

// NewDeadline wraps t, dropping sub-second precision.
func NewDeadline(t time.Time) Deadline {
	return Deadline{Time: t.Truncate(time.Second)}
}

// ParseDeadline parses any of the layouts the backend is known to emit.
func ParseDeadline(s string) (Deadline, error) {
	for _, layout := range deadlineLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Deadline{Time: t}, nil
		}
	}
	return Deadline{}, fmt.Errorf("%w: unrecognised deadline %q", ErrInvalidRecord, s)
}

// String formats the deadline in the wire layout.
func (d Deadline) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DeadlineLayout)
}

func (d Deadline) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Local().Format(DeadlineLayout))
}

func (d *Deadline) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*d = Deadline{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: deadline: %v", ErrInvalidRecord, err)
	}
	if s == "" {
		*d = Deadline{}
		return nil
	}
	parsed, err := ParseDeadline(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalYAML writes the deadline in the wire layout.
func (d Deadline) MarshalYAML() (any, error) {
	return d.String(), nil
}
