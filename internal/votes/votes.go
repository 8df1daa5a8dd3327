// Package votes aggregates per-tree predictions into an ordered histogram.
package votes

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// VoteSet holds one predicted label per ensemble member, in ensemble order.
type VoteSet []string

// Bucket is one histogram entry.
type Bucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Histogram maps label to vote count. Bucket order is the order in which each
// label was first seen in the VoteSet and must be kept as is when rendering.
type Histogram []Bucket

// Aggregate scans votes once, left to right.
func Aggregate(votes VoteSet) Histogram {
	h := Histogram{}
	pos := make(map[string]int)
	for _, label := range votes {
		i, ok := pos[label]
		if !ok {
			i = len(h)
			pos[label] = i
			h = append(h, Bucket{Label: label})
		}
		h[i].Count++
	}
	return h
}

// Labels returns the bucket labels in order.
func (h Histogram) Labels() []string {
	out := make([]string, len(h))
	for i, b := range h {
		out[i] = b.Label
	}
	return out
}

// Counts returns the bucket counts in order.
func (h Histogram) Counts() []int {
	out := make([]int, len(h))
	for i, b := range h {
		out[i] = b.Count
	}
	return out
}

// Count returns the votes cast for label.
func (h Histogram) Count(label string) int {
	for _, b := range h {
		if b.Label == label {
			return b.Count
		}
	}
	return 0
}

// Total returns the number of votes, which equals the VoteSet length.
func (h Histogram) Total() int {
	n := 0
	for _, b := range h {
		n += b.Count
	}
	return n
}

// Leader returns the first bucket holding the highest count.
func (h Histogram) Leader() (Bucket, bool) {
	if len(h) == 0 {
		return Bucket{}, false
	}
	best := h[0]
	for _, b := range h[1:] {
		if b.Count > best.Count {
			best = b
		}
	}
	return best, true
}

// MarshalJSON encodes the histogram as an object whose key order follows the buckets.
func (h Histogram) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, b := range h {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(b.Label)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(b.Count))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object, keeping its key order.
func (h *Histogram) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return err
	}
	out := Histogram{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		label, _ := tok.(string)
		var n int
		if err := dec.Decode(&n); err != nil {
			return err
		}
		out = append(out, Bucket{Label: label, Count: n})
	}
	*h = out
	return nil
}
