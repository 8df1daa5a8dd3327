package features

import (
	"math"
	"strconv"
	"strings"
)

// Form holds the raw, user-editable text of every input field.
// Fields that were never set are missing.
type Form map[Key]string

// FormFrom renders a vector into form text, one decimal place kept as typed.
func FormFrom(v Vector) Form {
	f := make(Form, Count)
	for i := range v {
		f[Key(i)] = strconv.FormatFloat(v[i], 'f', -1, 64)
	}
	return f
}

// Clone returns an independent copy of the form.
func (f Form) Clone() Form {
	out := make(Form, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Vector validates every field in canonical order and stops at the first invalid one.
func (f Form) Vector() (Vector, error) {
	var v Vector
	for i := 0; i < Count; i++ {
		k := Key(i)
		raw, ok := f[k]
		raw = strings.TrimSpace(raw)
		if !ok || raw == "" {
			return Vector{}, &FieldError{Key: k, Reason: ReasonMissing}
		}
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Vector{}, &FieldError{Key: k, Reason: ReasonNotNumeric}
		}
		if err := checkValue(k, n); err != nil {
			return Vector{}, err
		}
		v[i] = n
	}
	return v, nil
}

// Lenient parses every field, treating anything unparsable as zero.
// It feeds the current-feature charts, which draw whatever the user typed.
func (f Form) Lenient() Vector {
	var v Vector
	for k, raw := range f {
		if !k.Valid() {
			continue
		}
		if n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil && !math.IsNaN(n) && !math.IsInf(n, 0) {
			v[k] = n
		}
	}
	return v
}
