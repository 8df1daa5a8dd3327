package orchestrator

import "learnstyle/internal/profile"

// DefaultConfidence is shown for every successful prediction.
const DefaultConfidence = 85

const fallbackDescription = "Learning style identified successfully."

var descriptions = map[string]string{
	profile.LabelVisual:      "You learn best through visual aids like charts, diagrams, and images. Visual learners prefer to see information presented graphically.",
	profile.LabelAuditory:    "You learn best through listening and verbal instruction. Auditory learners benefit from discussions and spoken explanations.",
	profile.LabelReadWrite:   "You learn best through reading and writing activities. You prefer text-based information and note-taking.",
	profile.LabelKinesthetic: "You learn best through hands-on activities and physical engagement. You prefer learning by doing and experiencing.",
}

var recommendations = map[string][]string{
	profile.LabelVisual: {
		"Use mind maps and flowcharts to organize information",
		"Incorporate videos and visual presentations in learning",
		"Create colorful notes with highlighting and diagrams",
		"Use flashcards with images and visual cues",
	},
	profile.LabelAuditory: {
		"Participate in group discussions and study groups",
		"Listen to educational podcasts and audio materials",
		"Read aloud or use text-to-speech software",
		"Explain concepts verbally to reinforce learning",
	},
	profile.LabelReadWrite: {
		"Take detailed written notes during lessons",
		"Create written summaries and outlines",
		"Use lists, bullet points, and structured formats",
		"Engage in writing exercises and journaling",
	},
	profile.LabelKinesthetic: {
		"Use hands-on activities and experiments",
		"Take frequent breaks and incorporate movement",
		"Use physical objects and manipulatives",
		"Apply learning through real-world projects",
	},
}

// Describe returns the paragraph shown under a predicted label.
func Describe(label string) string {
	if d, ok := descriptions[label]; ok {
		return d
	}
	return fallbackDescription
}

// Recommend returns the study tips for label, or nil for an unknown label.
func Recommend(label string) []string {
	recs, ok := recommendations[label]
	if !ok {
		return nil
	}
	return append([]string(nil), recs...)
}
