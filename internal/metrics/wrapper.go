package metrics

import "strconv"

// Wrapper exposes the metrics through the small method sets the orchestrator
// and relay depend on, so neither imports Prometheus types.
type Wrapper struct {
	m *Metrics
}

func NewWrapper(m *Metrics) *Wrapper {
	return &Wrapper{m: m}
}

func (w *Wrapper) PredictionsInc() {
	w.m.PredictionsTotal.Inc()
}

func (w *Wrapper) PredictionFailuresInc(kind string) {
	w.m.PredictionFailures.WithLabelValues(kind).Inc()
}

func (w *Wrapper) PredictionLatencyObserve(seconds float64) {
	w.m.PredictionLatency.Observe(seconds)
}

func (w *Wrapper) PredictedLabelInc(label string) {
	w.m.PredictedLabels.WithLabelValues(label).Inc()
}

func (w *Wrapper) VoteFetchFailuresInc() {
	w.m.VoteFetchFailures.Inc()
}

func (w *Wrapper) StaleResultsInc() {
	w.m.StaleResults.Inc()
}

func (w *Wrapper) BusyRejectionsInc() {
	w.m.BusyRejections.Inc()
}

func (w *Wrapper) TreeRendersInc() {
	w.m.TreeRenders.Inc()
}

func (w *Wrapper) StructuralErrorsInc() {
	w.m.StructuralErrors.Inc()
}

func (w *Wrapper) RelayRequestsInc(status int) {
	w.m.RelayRequests.WithLabelValues(strconv.Itoa(status)).Inc()
}

func (w *Wrapper) RelayUpstreamErrorsInc() {
	w.m.RelayUpstreamErrors.Inc()
}

func (w *Wrapper) RelayLatencyObserve(seconds float64) {
	w.m.RelayLatency.Observe(seconds)
}
