// Package synth produces noisy, plausible feature vectors from the stored profiles.
// Output is intentionally unseeded: two calls are expected to differ.
package synth

import (
	"math"
	"math/rand"

	"learnstyle/internal/features"
	"learnstyle/internal/profile"

	"gonum.org/v1/gonum/stat/distuv"
)

// NoiseRatio bounds the relative noise applied to every base value.
const NoiseRatio = 0.1

// Sample is one generated vector with the profile it was drawn from.
type Sample struct {
	Profile profile.Profile
	Vector  features.Vector
}

// Generator draws samples from the profile store.
type Generator struct {
	profiles []profile.Profile
	pick     func(n int) int
}

// New returns a generator over every stored profile.
func New() *Generator {
	return &Generator{
		profiles: profile.All(),
		pick:     rand.Intn,
	}
}

// Generate chooses a profile uniformly at random and perturbs each of its values.
func (g *Generator) Generate() Sample {
	p := g.profiles[g.pick(len(g.profiles))]
	return Sample{Profile: p, Vector: Perturb(p.Vector)}
}

// Perturb returns max(0, base + U(-0.1*base, 0.1*base)) per key, rounded to one decimal.
func Perturb(base features.Vector) features.Vector {
	var out features.Vector
	for i, b := range base {
		spread := math.Abs(b) * NoiseRatio
		noise := distuv.Uniform{Min: -spread, Max: spread}.Rand()
		out[i] = round1(math.Max(0, b+noise))
	}
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
