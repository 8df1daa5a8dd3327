package client

// ChartData is the /chart-data summary. Each part is nil when absent.
type ChartData struct {
	StyleDistribution *StyleDistribution `json:"style_distribution,omitempty"`
	FeatureImportance *FeatureImportance `json:"feature_importance,omitempty"`
	ModelPerformance  *ModelPerformance  `json:"model_performance,omitempty"`
}

// StyleDistribution counts training samples per class.
type StyleDistribution struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
	Error  string    `json:"error,omitempty"`
}

// Usable reports whether the part can be drawn.
func (d *StyleDistribution) Usable() bool {
	return d != nil && d.Error == "" && len(d.Labels) > 0 && len(d.Labels) == len(d.Values)
}

// FeatureImportance ranks input features by model importance.
type FeatureImportance struct {
	Features   []string  `json:"features"`
	Importance []float64 `json:"importance"`
	Error      string    `json:"error,omitempty"`
}

func (f *FeatureImportance) Usable() bool {
	return f != nil && f.Error == "" && len(f.Features) > 0 && len(f.Features) == len(f.Importance)
}

// ModelPerformance holds scores in the 0-1 range.
type ModelPerformance struct {
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	Error     string  `json:"error,omitempty"`
}

func (m *ModelPerformance) Usable() bool {
	return m != nil && m.Error == ""
}
