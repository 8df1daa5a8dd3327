// Package features declares the fixed feature schema of the learning-style classifier.
// It defines the 17 named numeric features, their semantic category and plausible
// value range, the Vector type that carries one value per feature, and the form
// parsing that turns raw user input into a validated Vector.
package features

import (
	"fmt"
	"math"
	"strconv"
)

// Key identifies one of the fixed features. Keys index a Vector.
type Key int

const (
	TImage Key = iota
	TVideo
	TRead
	TAudio
	THierarchies
	TPowerpoint
	TConcrete
	TResult
	NStandardQuestionsCorrect
	NMsgsPosted
	TSolveExcercise
	NGroupDiscussions
	SkippedLos
	NNextButtonUsed
	TSpentInSession
	NQuestionsOnDetails
	NQuestionsOnOutlines

	// Count is the number of features in the schema.
	Count = int(NQuestionsOnOutlines) + 1
)

// Category groups features for display.
type Category string

const (
	MaterialUsage       Category = "Learning material usage"
	PerformanceActivity Category = "Performance & activity"
	LearningFocus       Category = "Learning focus"
)

// Categories returns the display categories in rendering order.
func Categories() []Category {
	return []Category{MaterialUsage, PerformanceActivity, LearningFocus}
}

// Range is a closed interval used for normalization and generation only.
// Input values may legitimately fall outside it.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Feature describes one schema entry.
type Feature struct {
	Key      Key
	Name     string // wire name, e.g. T_image
	Label    string // display text
	Category Category
	Range    Range
	Unit     string // "s" for durations, "%" for percentages
}

var schema = [Count]Feature{
	{TImage, "T_image", "Time on images", MaterialUsage, Range{5.0, 10.0}, "s"},
	{TVideo, "T_video", "Time on videos", MaterialUsage, Range{5.0, 15.0}, "s"},
	{TRead, "T_read", "Time reading", MaterialUsage, Range{5.0, 15.0}, "s"},
	{TAudio, "T_audio", "Time on audio", MaterialUsage, Range{5.0, 10.0}, "s"},
	{THierarchies, "T_hierarchies", "Time on hierarchies", MaterialUsage, Range{2.0, 7.0}, "s"},
	{TPowerpoint, "T_powerpoint", "Time on slides", MaterialUsage, Range{2.0, 7.0}, "s"},
	{TConcrete, "T_concrete", "Time on concrete examples", MaterialUsage, Range{2.0, 8.0}, "s"},
	{TResult, "T_result", "Time on results", MaterialUsage, Range{4.0, 8.0}, "s"},
	{NStandardQuestionsCorrect, "N_standard_questions_correct", "Standard questions correct", PerformanceActivity, Range{15.0, 100.0}, "%"},
	{NMsgsPosted, "N_msgs_posted", "Messages posted", PerformanceActivity, Range{25.5, 250.0}, ""},
	{TSolveExcercise, "T_solve_excercise", "Time solving exercises", PerformanceActivity, Range{6.0, 12.0}, "s"},
	{NGroupDiscussions, "N_group_discussions", "Group discussions", PerformanceActivity, Range{5.0, 15.0}, ""},
	{SkippedLos, "Skipped_los", "Skipped learning objects", PerformanceActivity, Range{0.0, 15.0}, ""},
	{NNextButtonUsed, "N_next_button_used", "Next button used", PerformanceActivity, Range{25.5, 250.0}, ""},
	{TSpentInSession, "T_spent_in_session", "Time in session", PerformanceActivity, Range{10.0, 25.0}, "s"},
	{NQuestionsOnDetails, "N_questions_on_details", "Questions on details", LearningFocus, Range{25.0, 150.0}, ""},
	{NQuestionsOnOutlines, "N_questions_on_outlines", "Questions on outlines", LearningFocus, Range{25.0, 150.0}, ""},
}

var byName = func() map[string]Key {
	m := make(map[string]Key, Count)
	for _, f := range schema {
		m[f.Name] = f.Key
	}
	return m
}()

// Schema returns every feature in canonical order.
func Schema() []Feature {
	out := make([]Feature, Count)
	copy(out, schema[:])
	return out
}

// Keys returns every key in canonical order.
func Keys() []Key {
	keys := make([]Key, Count)
	for i := range keys {
		keys[i] = Key(i)
	}
	return keys
}

// Lookup resolves a wire name such as "T_image" to its key.
func Lookup(name string) (Key, bool) {
	k, ok := byName[name]
	return k, ok
}

// Valid reports whether k is a schema key.
func (k Key) Valid() bool {
	return k >= 0 && int(k) < Count
}

// Feature returns the schema entry for k.
func (k Key) Feature() Feature {
	return schema[k]
}

func (k Key) String() string {
	if !k.Valid() {
		return fmt.Sprintf("Key(%d)", int(k))
	}
	return schema[k].Name
}

// Normalize maps v onto a 0-100 scale using the feature range, clamped at both ends.
func Normalize(k Key, v float64) float64 {
	r := schema[k].Range
	if r.Max <= r.Min {
		return v
	}
	n := (v - r.Min) / (r.Max - r.Min)
	return math.Max(0, math.Min(1, n)) * 100
}

// FormatValue renders v with the unit suffix of the feature.
func FormatValue(k Key, v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + schema[k].Unit
}
