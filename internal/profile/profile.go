// Package profile stores the reference feature vectors of the four learning-style
// archetypes. They seed the sample loaders, the synthetic generator and the reset defaults.
package profile

import (
	"fmt"
	"strings"

	"learnstyle/internal/features"
)

// Style names a profile as the controls refer to it.
type Style string

const (
	Visual      Style = "visual"
	Auditory    Style = "auditory"
	ReadWrite   Style = "readwrite"
	Kinesthetic Style = "kinesthetic"
)

// Class labels returned by the prediction service.
const (
	LabelVisual      = "Visual Learner"
	LabelAuditory    = "Auditory Learner"
	LabelReadWrite   = "Read/Write Learner"
	LabelKinesthetic = "Kinesthetic Learner"
)

// Profile is a named reference vector.
type Profile struct {
	Style  Style
	Label  string
	Vector features.Vector
}

var styles = []Style{Visual, Auditory, ReadWrite, Kinesthetic}

var profiles = map[Style]Profile{
	Visual: {Visual, LabelVisual, features.Vector{
		5.5, 12.5, 10.5, 8.5, 6.5, 5.5, 3.0, 5.5,
		27.0, 106.0, 10.0, 8.5, 3.5, 232.5, 20.0,
		77.0, 56.5,
	}},
	Auditory: {Auditory, LabelAuditory, features.Vector{
		5.5, 8.5, 6.0, 8.0, 2.5, 4.5, 7.5, 7.0,
		82.5, 168.0, 7.0, 10.0, 4.0, 215.5, 10.0,
		34.0, 60.0,
	}},
	ReadWrite: {ReadWrite, LabelReadWrite, features.Vector{
		5.5, 5.0, 5.0, 6.0, 4.5, 3.0, 4.0, 7.5,
		74.0, 175.0, 10.0, 10.5, 0.5, 197.5, 16.5,
		44.0, 111.0,
	}},
	Kinesthetic: {Kinesthetic, LabelKinesthetic, features.Vector{
		5.5, 9.0, 5.5, 7.5, 2.5, 3.5, 5.5, 7.0,
		47.5, 61.0, 6.5, 11.5, 2.5, 31.0, 19.5,
		127.5, 85.0,
	}},
}

var defaults = features.Vector{
	7, 10, 11, 8, 5, 4, 5, 6,
	60, 120, 9, 10, 5, 150, 18,
	80, 70,
}

// Styles returns the profile styles in their fixed order.
func Styles() []Style {
	out := make([]Style, len(styles))
	copy(out, styles)
	return out
}

// Lookup returns the profile for style. Matching ignores case and surrounding space.
func Lookup(style string) (Profile, error) {
	p, ok := profiles[Style(strings.ToLower(strings.TrimSpace(style)))]
	if !ok {
		return Profile{}, fmt.Errorf("unknown profile %q", style)
	}
	return p, nil
}

// All returns every profile in Styles order.
func All() []Profile {
	out := make([]Profile, 0, len(styles))
	for _, s := range styles {
		out = append(out, profiles[s])
	}
	return out
}

// Defaults returns the vector restored by a reset.
func Defaults() features.Vector {
	return defaults
}
