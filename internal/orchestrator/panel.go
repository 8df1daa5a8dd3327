package orchestrator

import (
	"fmt"

	"learnstyle/internal/features"
	"learnstyle/internal/votes"
)

// State is the request lifecycle of the predict action.
type State int

const (
	Idle State = iota
	InFlight
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case InFlight:
		return "in_flight"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	for st := Idle; st <= Failed; st++ {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", text)
}

// Result panel texts.
const (
	ResultReady     = "Ready to analyze"
	ResultNone      = "N/A"
	ResultAnalyzing = "Analyzing..."
	ResultFailed    = "Prediction Failed"

	DescriptionReady = "Load data and click analyze to see your learning style prediction."
)

// Startup banners.
const (
	BannerChartData = "Could not load chart data from the backend."
	BannerTreeData  = "Could not load tree visualization data from the backend."
)

// Panel is everything the user sees besides the charts.
type Panel struct {
	State           State             `json:"state"`
	ControlsEnabled bool              `json:"controls_enabled"`
	Result          string            `json:"result"`
	Description     string            `json:"description,omitempty"`
	Confidence      int               `json:"confidence,omitempty"`
	Recommendations []string          `json:"recommendations,omitempty"`
	Error           string            `json:"error,omitempty"`
	Votes           votes.Histogram   `json:"votes,omitempty"`
	Tree            int               `json:"tree"`
	Fields          map[string]string `json:"fields"`
}

func (p Panel) clone() Panel {
	out := p
	out.Recommendations = append([]string(nil), p.Recommendations...)
	if p.Votes != nil {
		out.Votes = append(votes.Histogram{}, p.Votes...)
	}
	out.Fields = make(map[string]string, len(p.Fields))
	for k, v := range p.Fields {
		out.Fields[k] = v
	}
	return out
}

func formFields(f features.Form) map[string]string {
	out := make(map[string]string, len(f))
	for k, v := range f {
		out[k.String()] = v
	}
	return out
}
