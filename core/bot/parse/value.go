package parse

// Value is the result of a parse: either a single scalar or a mapping of
// field name to value. The two shapes are explicit so that "no value",
// "empty string", and "empty map" never blur together.
type Value struct {
	scalar  string
	fields  map[string]string
	multi   bool
	present bool
}

// Scalar wraps a single value.
func Scalar(s string) Value { return Value{scalar: s, present: true} }

// Fields wraps a field-name-to-value mapping.
func Fields(m map[string]string) Value {
	if m == nil {
		m = map[string]string{}
	}
	return Value{fields: m, multi: true, present: true}
}

// IsZero reports whether the value is absent entirely.
func (v Value) IsZero() bool { return !v.present }

// IsMap reports whether the value carries a field mapping.
func (v Value) IsMap() bool { return v.multi }

// Scalar returns the single value, or the empty string for map values.
func (v Value) Scalar() string { return v.scalar }

// Map returns the field mapping, or nil for scalar values.
func (v Value) Map() map[string]string {
	if !v.multi {
		return nil
	}
	return v.fields
}

// Get returns the named field of a map value.
func (v Value) Get(name string) (string, bool) {
	if !v.multi {
		return "", false
	}
	s, ok := v.fields[name]
	return s, ok
}

func (v Value) String() string {
	if v.multi {
		out := "{"
		sep := ""
		for k, val := range v.fields {
			out += sep + k + ": " + val
			sep = ", "
		}
		return out + "}"
	}
	return v.scalar
}
