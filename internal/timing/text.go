package timing

import (
	"bytes"
	"encoding/json"
)

// Text is a string field that page payloads sometimes send as a number or as
// false. Numbers keep their literal form; false and null become empty.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0, bytes.Equal(data, []byte("null")), bytes.Equal(data, []byte("false")):
		*t = ""
		return nil
	case bytes.Equal(data, []byte("true")):
		*t = "true"
		return nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*t = Text(n.String())
		return nil
	}
}

func (t Text) String() string {
	return string(t)
}
