package timing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Mark is an optional timestamp in seconds since capture start. The zero
// value is unset, which keeps a legitimate 0.0 distinct from "not yet seen".
type Mark struct {
	sec float64
	set bool
}

// At returns a set Mark.
func At(sec float64) Mark {
	return Mark{sec: sec, set: true}
}

// Get returns the timestamp and whether it is set.
func (m Mark) Get() (float64, bool) {
	return m.sec, m.set
}

// IsSet reports whether the timestamp has been assigned.
func (m Mark) IsSet() bool {
	return m.set
}

// IsZero reports whether the Mark is unset so encoders can omit it.
func (m Mark) IsZero() bool {
	return !m.set
}

// Or returns the timestamp, or fallback when unset.
func (m Mark) Or(fallback float64) float64 {
	if m.set {
		return m.sec
	}
	return fallback
}

// Set assigns sec unconditionally.
func (m *Mark) Set(sec float64) {
	m.sec = sec
	m.set = true
}

// SetIfUnset assigns sec only when the Mark is unset and reports whether it did.
func (m *Mark) SetIfUnset(sec float64) bool {
	if m.set {
		return false
	}
	m.Set(sec)
	return true
}

func (m Mark) String() string {
	if !m.set {
		return "-"
	}
	return strconv.FormatFloat(m.sec, 'f', 3, 64)
}

// MarshalJSON writes the timestamp as a number, or null when unset.
func (m Mark) MarshalJSON() ([]byte, error) {
	if !m.set {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, m.sec, 'f', -1, 64), nil
}

// UnmarshalJSON accepts a number or null.
func (m *Mark) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*m = Mark{}
		return nil
	}
	var sec float64
	if err := json.Unmarshal(data, &sec); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	m.Set(sec)
	return nil
}
