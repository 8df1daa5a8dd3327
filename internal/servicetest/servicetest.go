// Package servicetest runs an in-process stand-in for the prediction service.
// It serves /predict, /predict-all-trees, /tree-data and /chart-data with
// canned or configurable answers and counts every call.
package servicetest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/gorilla/mux"

	"learnstyle/internal/common"
	"learnstyle/internal/features"
	"learnstyle/internal/profile"
)

// DefaultTrees is the /tree-data payload served unless replaced.
const DefaultTrees = `[
  {"tree_index": 0, "structure": {"name": "T_video <= 10.75", "children": [
    {"name": "N_questions_on_details <= 105.0", "children": [
      {"name": "Auditory Learner"},
      {"name": "Kinesthetic Learner"}
    ]},
    {"name": "Visual Learner"}
  ]}},
  {"tree_index": 1, "structure": {"name": "N_next_button_used <= 120.0", "children": [
    {"name": "Kinesthetic Learner"},
    {"name": "N_questions_on_outlines <= 85.0", "children": [
      {"name": "Visual Learner"},
      {"name": "Read/Write Learner"}
    ]}
  ]}},
  {"tree_index": 2, "structure": {"name": "T_read <= 8.0", "children": [
    {"name": "Auditory Learner"},
    {"name": "Read/Write Learner"}
  ]}}
]`

// DefaultCharts is the /chart-data payload served unless replaced.
const DefaultCharts = `{
  "style_distribution": {"labels": ["Visual Learner", "Auditory Learner", "Read/Write Learner", "Kinesthetic Learner"], "values": [28, 24, 22, 26]},
  "feature_importance": {"features": ["T_video", "N_next_button_used", "N_questions_on_details"], "importance": [0.21, 0.17, 0.12]},
  "model_performance": {"accuracy": 0.91, "precision": 0.9, "recall": 0.89}
}`

// DefaultTreeCount is how many votes /predict-all-trees returns by default.
const DefaultTreeCount = 5

type failure struct {
	status  int
	message string
}

// Service is a fake prediction service bound to a local httptest server.
type Service struct {
	*httptest.Server

	mu       sync.Mutex
	classify func(features.Vector) string
	votes    []string
	trees    string
	charts   string
	fail     map[string]failure
	calls    map[string]int
	bodies   map[string][]byte
	hooks    map[string]func()
}

// New starts a service. Close it when done.
func New() *Service {
	s := &Service{
		classify: Nearest,
		trees:    DefaultTrees,
		charts:   DefaultCharts,
		fail:     make(map[string]failure),
		calls:    make(map[string]int),
		bodies:   make(map[string][]byte),
		hooks:    make(map[string]func()),
	}

	r := mux.NewRouter()
	r.HandleFunc(common.PathPredict, s.handlePredict).Methods(http.MethodPost)
	r.HandleFunc(common.PathPredictAllTrees, s.handleVotes).Methods(http.MethodPost)
	r.HandleFunc(common.PathTreeData, s.handleTrees).Methods(http.MethodGet)
	r.HandleFunc(common.PathChartData, s.handleCharts).Methods(http.MethodGet)
	r.Use(s.record)

	s.Server = httptest.NewServer(r)
	return s
}

// PredictURL is the full URL of the primary prediction endpoint.
func (s *Service) PredictURL() string {
	return s.URL + common.PathPredict
}

// SetClassifier replaces the function choosing the /predict label.
func (s *Service) SetClassifier(fn func(features.Vector) string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.classify = fn
}

// SetVotes fixes the /predict-all-trees answer. No arguments means an empty vote list.
func (s *Service) SetVotes(votes ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.votes = append([]string{}, votes...)
}

// SetTrees replaces the raw /tree-data payload.
func (s *Service) SetTrees(raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trees = raw
}

// SetCharts replaces the raw /chart-data payload.
func (s *Service) SetCharts(raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.charts = raw
}

// Fail makes path answer with status. A non-empty message is sent as {"error": message},
// an empty one sends a body without an error field.
func (s *Service) Fail(path string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[path] = failure{status: status, message: message}
}

// Recover undoes Fail for path.
func (s *Service) Recover(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.fail, path)
}

// OnRequest runs fn inside the handler for path before the answer is written.
// Tests use it to hold a request open.
func (s *Service) OnRequest(path string, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks[path] = fn
}

// Calls returns how many requests reached path.
func (s *Service) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

// LastBody returns the body of the latest request to path.
func (s *Service) LastBody(path string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bodies[path]
}

func (s *Service) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))

		s.mu.Lock()
		s.calls[r.URL.Path]++
		s.bodies[r.URL.Path] = body
		hook := s.hooks[r.URL.Path]
		f, failing := s.fail[r.URL.Path]
		s.mu.Unlock()

		if hook != nil {
			hook()
		}
		if failing {
			writeFailure(w, f)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Service) handlePredict(w http.ResponseWriter, r *http.Request) {
	var v features.Vector
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("Invalid input data format: %v", err)})
		return
	}
	s.mu.Lock()
	label := s.classify(v)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"learning_style": label,
		"raw_prediction": rawPrediction(label),
	})
}

func (s *Service) handleVotes(w http.ResponseWriter, r *http.Request) {
	var v features.Vector
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("Invalid input data format: %v", err)})
		return
	}
	s.mu.Lock()
	votes := s.votes
	if votes == nil {
		label := s.classify(v)
		votes = make([]string, DefaultTreeCount)
		for i := range votes {
			votes[i] = label
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"tree_votes": votes})
}

func (s *Service) handleTrees(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	raw := s.trees
	s.mu.Unlock()
	writeRaw(w, http.StatusOK, raw)
}

func (s *Service) handleCharts(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	raw := s.charts
	s.mu.Unlock()
	writeRaw(w, http.StatusOK, raw)
}

// Nearest labels v with the profile closest to it on the normalized scale.
func Nearest(v features.Vector) string {
	n := v.Normalized()
	best, bestDist := "", math.Inf(1)
	for _, p := range profile.All() {
		pn := p.Vector.Normalized()
		var d float64
		for i := range n {
			d += (n[i] - pn[i]) * (n[i] - pn[i])
		}
		if d < bestDist {
			best, bestDist = p.Label, d
		}
	}
	return best
}

func rawPrediction(label string) int {
	for i, p := range profile.All() {
		if p.Label == label {
			return i
		}
	}
	return -1
}

func writeFailure(w http.ResponseWriter, f failure) {
	if f.message == "" {
		writeJSON(w, f.status, map[string]string{"detail": http.StatusText(f.status)})
		return
	}
	writeJSON(w, f.status, map[string]string{"error": f.message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeRaw(w http.ResponseWriter, status int, raw string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, raw)
}
