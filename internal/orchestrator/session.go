// Package orchestrator drives a prediction session: input actions, the
// predict then vote-fetch sequence, the result panel and the tree explorer.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"learnstyle/internal/client"
	"learnstyle/internal/ensemble"
	"learnstyle/internal/features"
	"learnstyle/internal/profile"
	"learnstyle/internal/render"
	"learnstyle/internal/storage"
	"learnstyle/internal/synth"
	"learnstyle/internal/treegraph"
	"learnstyle/internal/votes"
)

var (
	// ErrBusy is returned for input-triggering actions while a prediction is in flight.
	ErrBusy = errors.New("a prediction is already in flight")
	// ErrTreeNotFound is returned when no ensemble member has the requested index.
	ErrTreeNotFound = errors.New("tree not found")
)

// Service is the prediction service as the session uses it. *client.Client satisfies it.
type Service interface {
	Predict(ctx context.Context, v features.Vector) (client.Prediction, error)
	TreeVotes(ctx context.Context, v features.Vector) (votes.VoteSet, error)
	TreeData(ctx context.Context) (*ensemble.Metadata, error)
	ChartData(ctx context.Context) (client.ChartData, error)
}

// Metrics receives session counters. *metrics.Wrapper satisfies it.
type Metrics interface {
	PredictionsInc()
	PredictionFailuresInc(kind string)
	PredictionLatencyObserve(seconds float64)
	PredictedLabelInc(label string)
	VoteFetchFailuresInc()
	StaleResultsInc()
	BusyRejectionsInc()
	TreeRendersInc()
	StructuralErrorsInc()
}

// Journal records primary outcomes and their vote follow-ups. *storage.Store satisfies it.
type Journal interface {
	Append(e storage.Entry) (storage.Entry, error)
	AttachVotes(id string, h votes.Histogram, voteErr string) error
}

// TreeOption is one entry of the tree selector.
type TreeOption struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

type Option func(*Session)

func WithMetrics(m Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

func WithJournal(j Journal) Option {
	return func(s *Session) { s.journal = j }
}

func WithGenerator(g *synth.Generator) Option {
	return func(s *Session) { s.gen = g }
}

// Session is one user's view. All methods are safe for concurrent use; the busy
// flag admits a single predict action at a time.
type Session struct {
	svc     Service
	charts  *render.Adapter
	metrics Metrics
	journal Journal
	gen     *synth.Generator

	mu         sync.Mutex
	form       features.Form
	source     string
	panel      Panel
	busy       bool
	generation uint64
	metadata   *ensemble.Metadata

	obsMu     sync.Mutex
	observers map[int]func(Panel)
	nextObs   int
}

// New creates a session showing the default input.
func New(svc Service, charts *render.Adapter, opts ...Option) *Session {
	s := &Session{
		svc:       svc,
		charts:    charts,
		metrics:   nopMetrics{},
		gen:       synth.New(),
		form:      features.FormFrom(profile.Defaults()),
		source:    "defaults",
		observers: make(map[int]func(Panel)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.panel = Panel{
		State:           Idle,
		ControlsEnabled: true,
		Result:          ResultReady,
		Description:     DescriptionReady,
		Tree:            -1,
	}
	return s
}

// Subscribe registers fn to receive a snapshot after every panel change.
// The returned function removes it.
func (s *Session) Subscribe(fn func(Panel)) func() {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	return func() {
		s.obsMu.Lock()
		defer s.obsMu.Unlock()
		delete(s.observers, id)
	}
}

// Snapshot returns a copy of the current panel.
func (s *Session) Snapshot() Panel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Form returns a copy of the current input fields.
func (s *Session) Form() features.Form {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.form.Clone()
}

// Predict validates the form, asks for a verdict and then for the per-tree votes.
// It returns the validation or primary-call error; vote failures are only logged.
func (s *Session) Predict(ctx context.Context) error {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		s.metrics.BusyRejectionsInc()
		return ErrBusy
	}

	// Every predict action supersedes the previous one, including one that
	// fails validation, so a pending vote fetch can no longer apply.
	s.generation++
	gen := s.generation
	s.panel.Votes = nil
	s.destroy(render.SlotVotes)

	v, err := s.form.Vector()
	if err != nil {
		s.failLocked(err.Error())
		snap := s.snapshotLocked()
		s.mu.Unlock()

		s.metrics.PredictionFailuresInc("validation")
		log.Warn().Err(err).Msg("prediction input rejected")
		s.notify(snap)
		return err
	}

	s.busy = true
	source := s.source
	s.panel.State = InFlight
	s.panel.ControlsEnabled = false
	s.panel.Result = ResultAnalyzing
	s.panel.Recommendations = nil
	s.panel.Error = ""
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	s.metrics.PredictionsInc()

	start := time.Now()
	pred, err := s.svc.Predict(ctx, v)
	latency := time.Since(start)
	s.metrics.PredictionLatencyObserve(latency.Seconds())

	entry := storage.Entry{Source: source, Features: v, Latency: latency}

	s.mu.Lock()
	s.busy = false
	if gen != s.generation {
		s.mu.Unlock()
		s.metrics.StaleResultsInc()
		return nil
	}
	if err != nil {
		s.failLocked(err.Error())
		snap = s.snapshotLocked()
		s.mu.Unlock()

		s.metrics.PredictionFailuresInc(failureKind(err))
		logFailure(err, source)
		entry.Error = errorDetail(err)
		s.record(entry)
		s.notify(snap)
		return err
	}

	s.panel.State = Succeeded
	s.panel.ControlsEnabled = true
	s.panel.Result = pred.LearningStyle
	s.panel.Description = Describe(pred.LearningStyle)
	s.panel.Confidence = DefaultConfidence
	s.panel.Recommendations = Recommend(pred.LearningStyle)
	s.panel.Error = ""
	snap = s.snapshotLocked()
	current := s.form.Lenient()
	s.mu.Unlock()

	s.metrics.PredictedLabelInc(pred.LearningStyle)
	log.Info().
		Str("label", pred.LearningStyle).
		Int("raw", pred.RawPrediction).
		Dur("latency", latency).
		Msg("prediction succeeded")

	entry.Label = pred.LearningStyle
	entry.RawPrediction = pred.RawPrediction
	entryID := s.record(entry)
	s.notify(snap)
	s.renderFeatures(current)

	s.fetchVotes(ctx, gen, v, entryID)
	return nil
}

// fetchVotes is the follow-up of a successful prediction. Its failure never
// changes the panel state.
func (s *Session) fetchVotes(ctx context.Context, gen uint64, v features.Vector, entryID string) {
	set, err := s.svc.TreeVotes(ctx, v)
	if err != nil {
		s.metrics.VoteFetchFailuresInc()
		log.Warn().Err(err).Str("detail", errorDetail(err)).Msg("could not fetch tree votes")
		s.attachVotes(entryID, nil, err.Error())
		return
	}
	h := votes.Aggregate(set)

	var chart render.Artifact
	var chartErr error
	if len(h) > 0 {
		chart, chartErr = render.VoteChart(h)
	}

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		s.metrics.StaleResultsInc()
		log.Debug().Uint64("generation", gen).Msg("discarding votes for a superseded prediction")
		return
	}
	s.panel.Votes = h
	if len(h) > 0 && chartErr == nil {
		_, chartErr = s.charts.Replace(chart)
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if chartErr != nil {
		log.Warn().Err(chartErr).Msg("could not draw vote chart")
	}
	s.attachVotes(entryID, h, "")
	s.notify(snap)
}

// LoadSample replaces the form with a stored profile.
func (s *Session) LoadSample(style string) error {
	p, err := profile.Lookup(style)
	if err != nil {
		return err
	}
	return s.replaceForm(p.Vector, "sample:"+string(p.Style), ResultNone, false)
}

// GenerateRandom replaces the form with a noisy copy of a random profile.
func (s *Session) GenerateRandom() (synth.Sample, error) {
	sample := s.gen.Generate()
	if err := s.replaceForm(sample.Vector, "random:"+string(sample.Profile.Style), ResultNone, false); err != nil {
		return synth.Sample{}, err
	}
	return sample, nil
}

// ResetDefaults restores the default input and clears the verdict.
func (s *Session) ResetDefaults() error {
	return s.replaceForm(profile.Defaults(), "defaults", ResultReady, true)
}

// SetField replaces one raw field value. Editing is allowed while a prediction
// is in flight; the next predict action validates it.
func (s *Session) SetField(key features.Key, raw string) error {
	if !key.Valid() {
		return fmt.Errorf("unknown feature key %d", key)
	}
	s.mu.Lock()
	s.form[key] = raw
	s.source = "manual"
	v := s.form.Lenient()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.renderFeatures(v)
	s.notify(snap)
	return nil
}

func (s *Session) replaceForm(v features.Vector, source, result string, reset bool) error {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		s.metrics.BusyRejectionsInc()
		return ErrBusy
	}
	s.form = features.FormFrom(v)
	s.source = source
	s.panel.State = Idle
	s.panel.ControlsEnabled = true
	s.panel.Result = result
	s.panel.Error = ""
	if reset {
		s.panel.Description = DescriptionReady
		s.panel.Confidence = 0
		s.panel.Recommendations = nil
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.renderFeatures(v)
	s.notify(snap)
	return nil
}

// Start loads the chart summary and the ensemble metadata and draws the first
// tree. Failures are shown on the banner; the session stays usable either way.
func (s *Session) Start(ctx context.Context) error {
	var errs []error

	s.renderFeatures(s.Form().Lenient())

	if data, err := s.svc.ChartData(ctx); err != nil {
		log.Error().Err(err).Str("detail", errorDetail(err)).Msg("could not fetch chart data")
		s.setBanner(BannerChartData)
		errs = append(errs, fmt.Errorf("chart data: %w", err))
	} else {
		s.renderSummary(data)
	}

	s.mu.Lock()
	loaded := s.metadata != nil
	s.mu.Unlock()
	if loaded {
		return errors.Join(errs...)
	}

	meta, err := s.svc.TreeData(ctx)
	if err != nil {
		log.Error().Err(err).Str("detail", errorDetail(err)).Msg("could not fetch tree structure data")
		s.setBanner(BannerTreeData)
		errs = append(errs, fmt.Errorf("tree data: %w", err))
		return errors.Join(errs...)
	}

	s.mu.Lock()
	if s.metadata == nil {
		s.metadata = meta
	}
	meta = s.metadata
	s.mu.Unlock()

	log.Info().Int("trees", meta.Len()).Msg("ensemble metadata loaded")
	if first, ok := meta.First(); ok {
		if err := s.SelectTree(first.Index); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// TreeOptions lists the selectable trees in service order.
func (s *Session) TreeOptions() []TreeOption {
	s.mu.Lock()
	meta := s.metadata
	s.mu.Unlock()

	trees := meta.Trees()
	out := make([]TreeOption, len(trees))
	for i, t := range trees {
		out[i] = TreeOption{Index: t.Index, Text: "Tree #" + strconv.Itoa(t.Index+1)}
	}
	return out
}

// SelectTree compiles the tree with the given tree_index and replaces the graph.
func (s *Session) SelectTree(index int) error {
	s.mu.Lock()
	meta := s.metadata
	s.mu.Unlock()

	t, ok := meta.Tree(index)
	if !ok {
		return s.structural(fmt.Errorf("tree %d: %w", index, ErrTreeNotFound))
	}
	graph, err := treegraph.CompileTree(t)
	if err != nil {
		return s.structural(err)
	}
	if _, err := s.charts.Replace(render.TreeGraph(index, graph)); err != nil {
		log.Error().Err(err).Int("tree", index).Msg("could not draw tree graph")
		return err
	}
	s.metrics.TreeRendersInc()

	s.mu.Lock()
	s.panel.Tree = index
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
	return nil
}

// Close destroys every chart the session drew.
func (s *Session) Close() error {
	return s.charts.Close()
}

func (s *Session) structural(err error) error {
	s.metrics.StructuralErrorsInc()
	log.Error().Err(err).Msg("cannot render tree")
	s.setBanner("Error: " + err.Error())
	return err
}

func (s *Session) setBanner(msg string) {
	s.mu.Lock()
	s.panel.Error = msg
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

func (s *Session) failLocked(msg string) {
	s.panel.State = Failed
	s.panel.ControlsEnabled = true
	s.panel.Result = ResultFailed
	s.panel.Error = "Error: " + msg
	s.panel.Recommendations = nil
	s.panel.Confidence = 0
	s.panel.Description = ""
}

func (s *Session) snapshotLocked() Panel {
	p := s.panel.clone()
	p.Fields = formFields(s.form)
	return p
}

func (s *Session) notify(p Panel) {
	s.obsMu.Lock()
	fns := make([]func(Panel), 0, len(s.observers))
	for i := 0; i < s.nextObs; i++ {
		if fn, ok := s.observers[i]; ok {
			fns = append(fns, fn)
		}
	}
	s.obsMu.Unlock()

	for _, fn := range fns {
		fn(p)
	}
}

func (s *Session) renderFeatures(v features.Vector) {
	for _, c := range features.Categories() {
		s.draw(render.CategoryChart(c, v))
	}
	s.draw(render.ProfileChart(v))
}

func (s *Session) renderSummary(data client.ChartData) {
	if d := data.StyleDistribution; d.Usable() {
		s.draw(render.StyleDistributionChart(d.Labels, d.Values))
	} else if d != nil && d.Error != "" {
		log.Warn().Str("error", d.Error).Msg("style distribution unavailable")
	}
	if f := data.FeatureImportance; f.Usable() {
		s.draw(render.FeatureImportanceChart(f.Features, f.Importance))
	} else if f != nil && f.Error != "" {
		log.Warn().Str("error", f.Error).Msg("feature importance unavailable")
	}
	if m := data.ModelPerformance; m.Usable() {
		s.draw(render.PerformanceChart(m.Accuracy, m.Precision, m.Recall))
	} else if m != nil && m.Error != "" {
		log.Warn().Str("error", m.Error).Msg("model performance unavailable")
	}
}

func (s *Session) draw(a render.Artifact, err error) {
	if err == nil {
		_, err = s.charts.Replace(a)
	}
	if err != nil {
		log.Warn().Err(err).Str("slot", string(a.Slot)).Msg("could not draw chart")
	}
}

func (s *Session) destroy(slot render.Slot) {
	if err := s.charts.Destroy(slot); err != nil {
		log.Warn().Err(err).Str("slot", string(slot)).Msg("could not erase chart")
	}
}

func (s *Session) record(e storage.Entry) string {
	if s.journal == nil {
		return ""
	}
	stored, err := s.journal.Append(e)
	if err != nil {
		log.Warn().Err(err).Msg("could not record prediction")
		return ""
	}
	return stored.ID
}

func (s *Session) attachVotes(id string, h votes.Histogram, voteErr string) {
	if s.journal == nil || id == "" {
		return
	}
	if err := s.journal.AttachVotes(id, h, voteErr); err != nil {
		log.Warn().Err(err).Str("entry", id).Msg("could not record tree votes")
	}
}

func logFailure(err error, source string) {
	log.Error().Err(err).Str("detail", errorDetail(err)).Str("source", source).Msg("prediction failed")
}

// errorDetail returns the transport cause hidden behind the banner message.
func errorDetail(err error) string {
	var te *client.TransportError
	if errors.As(err, &te) {
		return te.Detail()
	}
	return err.Error()
}

func failureKind(err error) string {
	var te *client.TransportError
	switch {
	case errors.Is(err, client.ErrService):
		return "service"
	case errors.As(err, &te):
		return "transport"
	default:
		return "decode"
	}
}

type nopMetrics struct{}

func (nopMetrics) PredictionsInc()                  {}
func (nopMetrics) PredictionFailuresInc(string)     {}
func (nopMetrics) PredictionLatencyObserve(float64) {}
func (nopMetrics) PredictedLabelInc(string)         {}
func (nopMetrics) VoteFetchFailuresInc()            {}
func (nopMetrics) StaleResultsInc()                 {}
func (nopMetrics) BusyRejectionsInc()               {}
func (nopMetrics) TreeRendersInc()                  {}
func (nopMetrics) StructuralErrorsInc()             {}
