package parse

import "encoding/json"

// Values round-trip through the external state store as JSON, keeping the
// scalar and map shapes distinct.

type valueJSON struct {
	Scalar *string           `json:"scalar,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
	Multi  bool              `json:"multi,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.present {
		return []byte("null"), nil
	}
	if v.multi {
		return json.Marshal(valueJSON{Fields: v.fields, Multi: true})
	}
	s := v.scalar
	return json.Marshal(valueJSON{Scalar: &s})
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = Value{}
		return nil
	}
	var raw valueJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Multi {
		*v = Fields(raw.Fields)
		return nil
	}
	var s string
	if raw.Scalar != nil {
		s = *raw.Scalar
	}
	*v = Scalar(s)
	return nil
}
