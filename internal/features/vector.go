package features

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// Vector holds one value per schema key. The array form makes the key set exhaustive.
type Vector [Count]float64

// Get returns the value stored for k.
func (v Vector) Get(k Key) float64 {
	return v[k]
}

// Map returns the vector keyed by wire name.
func (v Vector) Map() map[string]float64 {
	m := make(map[string]float64, Count)
	for i, f := range schema {
		m[f.Name] = v[i]
	}
	return m
}

// MarshalJSON encodes the vector as an object of wire name to number.
func (v Vector) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Map())
}

// UnmarshalJSON requires every key to be present with a finite, non-negative number.
func (v *Vector) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode feature vector: %w", err)
	}
	var out Vector
	for i, f := range schema {
		msg, ok := raw[f.Name]
		if !ok {
			return &FieldError{Key: Key(i), Reason: ReasonMissing}
		}
		var n float64
		if err := json.Unmarshal(msg, &n); err != nil {
			return &FieldError{Key: Key(i), Reason: ReasonNotNumeric}
		}
		if err := checkValue(Key(i), n); err != nil {
			return err
		}
		out[i] = n
	}
	*v = out
	return nil
}

// Pair is a feature together with its value, used for ordered chart data.
type Pair struct {
	Feature Feature
	Value   float64
}

// ByCategory returns the values of every feature in c, in canonical order.
func (v Vector) ByCategory(c Category) []Pair {
	var out []Pair
	for i, f := range schema {
		if f.Category == c {
			out = append(out, Pair{Feature: f, Value: v[i]})
		}
	}
	return out
}

// Normalized returns every value mapped onto the 0-100 scale.
func (v Vector) Normalized() Vector {
	var out Vector
	for i := range v {
		out[i] = Normalize(Key(i), v[i])
	}
	return out
}

// Reason classifies an invalid field.
type Reason int

const (
	ReasonMissing Reason = iota
	ReasonNotNumeric
	ReasonNegative
)

// ErrInvalidField matches every *FieldError through errors.Is.
var ErrInvalidField = errors.New("invalid feature value")

// FieldError identifies the first invalid field of an input.
type FieldError struct {
	Key    Key
	Reason Reason
}

func (e *FieldError) Error() string {
	if e.Reason == ReasonNegative {
		return fmt.Sprintf("Invalid input for %s. Value must not be negative.", e.Key)
	}
	return fmt.Sprintf("Invalid input for %s. Please enter a number.", e.Key)
}

func (e *FieldError) Is(target error) bool {
	return target == ErrInvalidField
}

func checkValue(k Key, n float64) error {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return &FieldError{Key: k, Reason: ReasonNotNumeric}
	}
	if n < 0 {
		return &FieldError{Key: k, Reason: ReasonNegative}
	}
	return nil
}
