// Package dashboard serves the live view of a session. The Dashboard is a
// render.Surface: every draw and erase is kept for HTTP readers and streamed to
// websocket clients together with panel updates.
//
// Action endpoints drive the bound session the way the on-page controls do.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"learnstyle/internal/ensemble"
	"learnstyle/internal/features"
	"learnstyle/internal/orchestrator"
	"learnstyle/internal/render"
	"learnstyle/internal/synth"
)

// Session is the part of *orchestrator.Session the live view drives.
type Session interface {
	Snapshot() orchestrator.Panel
	Subscribe(fn func(orchestrator.Panel)) func()
	Predict(ctx context.Context) error
	LoadSample(style string) error
	GenerateRandom() (synth.Sample, error)
	ResetDefaults() error
	SetField(key features.Key, raw string) error
	SelectTree(index int) error
	TreeOptions() []orchestrator.TreeOption
}

// Event types sent over the websocket.
const (
	EventDraw  = "draw"
	EventErase = "erase"
	EventPanel = "panel"
)

// Event is one websocket message. Mermaid sources travel inline; PNG charts are
// fetched from /artifacts/{slot}?v={version}.
type Event struct {
	Type    string              `json:"type"`
	Slot    render.Slot         `json:"slot,omitempty"`
	Kind    render.Kind         `json:"kind,omitempty"`
	Title   string              `json:"title,omitempty"`
	Text    string              `json:"text,omitempty"`
	Version uint64              `json:"version,omitempty"`
	Panel   *orchestrator.Panel `json:"panel,omitempty"`
}

// State is the GET /state payload.
type State struct {
	Panel orchestrator.Panel        `json:"panel"`
	Trees []orchestrator.TreeOption `json:"trees"`
	Slots []ArtifactInfo            `json:"slots"`
}

// ArtifactInfo describes a visible artifact without its data.
type ArtifactInfo struct {
	Slot    render.Slot `json:"slot"`
	Kind    render.Kind `json:"kind"`
	Title   string      `json:"title"`
	Version uint64      `json:"version"`
}

type shown struct {
	artifact render.Artifact
	version  uint64
}

type Dashboard struct {
	server   *http.Server
	router   *mux.Router
	upgrader websocket.Upgrader

	sessionMu   sync.RWMutex
	session     Session
	unsubscribe func()

	artifactsMu sync.RWMutex
	artifacts   map[render.Slot]shown
	version     uint64

	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex

	broadcastChannel chan Event
	stopChannel      chan struct{}
	stopOnce         sync.Once

	mu        sync.Mutex
	isRunning bool
}

// New creates a dashboard for port. metricsHandler serves /metrics; nil uses the
// default Prometheus registry. The broadcaster runs until Stop.
func New(port int, metricsHandler http.Handler) *Dashboard {
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	d := &Dashboard{
		router:           mux.NewRouter(),
		upgrader:         websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		artifacts:        make(map[render.Slot]shown),
		clients:          make(map[*websocket.Conn]bool),
		broadcastChannel: make(chan Event, 256),
		stopChannel:      make(chan struct{}),
	}

	r := d.router
	r.HandleFunc("/", d.handlePage).Methods(http.MethodGet)
	r.HandleFunc("/state", d.handleState).Methods(http.MethodGet)
	r.HandleFunc("/artifacts", d.handleArtifacts).Methods(http.MethodGet)
	r.HandleFunc("/artifacts/{slot}", d.handleArtifact).Methods(http.MethodGet)
	r.HandleFunc("/ws", d.handleWebSocket).Methods(http.MethodGet)
	r.Handle("/metrics", metricsHandler).Methods(http.MethodGet)

	actions := r.PathPrefix("/actions").Methods(http.MethodPost).Subrouter()
	actions.HandleFunc("/predict", d.handlePredict)
	actions.HandleFunc("/sample/{style}", d.handleSample)
	actions.HandleFunc("/random", d.handleRandom)
	actions.HandleFunc("/reset", d.handleReset)
	actions.HandleFunc("/tree/{index:[0-9]+}", d.handleTree)
	r.HandleFunc("/fields/{key}", d.handleField).Methods(http.MethodPut, http.MethodPost)

	d.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go d.clientBroadcaster()
	return d
}

// Bind attaches the session the action endpoints drive and streams its panel.
func (d *Dashboard) Bind(s Session) {
	d.sessionMu.Lock()
	defer d.sessionMu.Unlock()
	if d.unsubscribe != nil {
		d.unsubscribe()
	}
	d.session = s
	d.unsubscribe = s.Subscribe(func(p orchestrator.Panel) {
		d.enqueue(Event{Type: EventPanel, Panel: &p})
	})
}

// Handler exposes the router, mainly for httptest.
func (d *Dashboard) Handler() http.Handler {
	return d.router
}

// Start serves the dashboard in the background.
func (d *Dashboard) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.isRunning {
		return fmt.Errorf("dashboard is already running")
	}

	go func() {
		log.Info().Str("address", d.server.Addr).Msg("starting live view")
		if err := d.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("live view server failed")
		}
	}()

	d.isRunning = true
	return nil
}

// Stop closes every websocket, ends the broadcaster and shuts the server down.
func (d *Dashboard) Stop(ctx context.Context) error {
	d.stopOnce.Do(func() { close(d.stopChannel) })

	d.sessionMu.Lock()
	if d.unsubscribe != nil {
		d.unsubscribe()
		d.unsubscribe = nil
	}
	d.sessionMu.Unlock()

	d.clientsMu.Lock()
	for client := range d.clients {
		client.Close()
	}
	d.clients = make(map[*websocket.Conn]bool)
	d.clientsMu.Unlock()

	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.isRunning {
		return nil
	}
	if err := d.server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("failed to shut down live view")
		return err
	}
	d.isRunning = false
	log.Info().Msg("live view stopped")
	return nil
}

// Draw shows a and tells every client.
func (d *Dashboard) Draw(a render.Artifact) error {
	d.artifactsMu.Lock()
	if _, ok := d.artifacts[a.Slot]; ok {
		d.artifactsMu.Unlock()
		return fmt.Errorf("slot %s drawn twice without erase", a.Slot)
	}
	d.version++
	s := shown{artifact: a, version: d.version}
	d.artifacts[a.Slot] = s
	d.artifactsMu.Unlock()

	d.enqueue(drawEvent(s))
	return nil
}

// Erase removes whatever slot shows.
func (d *Dashboard) Erase(slot render.Slot) error {
	d.artifactsMu.Lock()
	_, ok := d.artifacts[slot]
	delete(d.artifacts, slot)
	d.artifactsMu.Unlock()

	if ok {
		d.enqueue(Event{Type: EventErase, Slot: slot})
	}
	return nil
}

// Artifact returns what slot currently shows.
func (d *Dashboard) Artifact(slot render.Slot) (render.Artifact, bool) {
	d.artifactsMu.RLock()
	defer d.artifactsMu.RUnlock()
	s, ok := d.artifacts[slot]
	return s.artifact, ok
}

func drawEvent(s shown) Event {
	e := Event{
		Type:    EventDraw,
		Slot:    s.artifact.Slot,
		Kind:    s.artifact.Kind,
		Title:   s.artifact.Title,
		Version: s.version,
	}
	if s.artifact.Kind == render.KindMermaid {
		e.Text = string(s.artifact.Data)
	}
	return e
}

func (d *Dashboard) enqueue(e Event) {
	select {
	case d.broadcastChannel <- e:
	default:
		log.Warn().Str("type", e.Type).Str("slot", string(e.Slot)).Msg("live view event dropped")
	}
}

func (d *Dashboard) clientBroadcaster() {
	for {
		select {
		case e := <-d.broadcastChannel:
			d.broadcastToClients(e)
		case <-d.stopChannel:
			return
		}
	}
}

func (d *Dashboard) broadcastToClients(e Event) {
	data, err := json.Marshal(e)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal live view event")
		return
	}

	d.clientsMu.Lock()
	defer d.clientsMu.Unlock()
	for client := range d.clients {
		client.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := client.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Debug().Err(err).Msg("dropping websocket client")
			client.Close()
			delete(d.clients, client)
		}
	}
}

// snapshotEvents replays the current view for a new client.
func (d *Dashboard) snapshotEvents() []Event {
	d.artifactsMu.RLock()
	list := make([]shown, 0, len(d.artifacts))
	for _, s := range d.artifacts {
		list = append(list, s)
	}
	d.artifactsMu.RUnlock()
	sort.Slice(list, func(i, j int) bool { return list[i].version < list[j].version })

	events := make([]Event, 0, len(list)+1)
	if s := d.currentSession(); s != nil {
		p := s.Snapshot()
		events = append(events, Event{Type: EventPanel, Panel: &p})
	}
	for _, s := range list {
		events = append(events, drawEvent(s))
	}
	return events
}

func (d *Dashboard) currentSession() Session {
	d.sessionMu.RLock()
	defer d.sessionMu.RUnlock()
	return d.session
}

func (d *Dashboard) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := d.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade websocket connection")
		return
	}
	defer conn.Close()

	// The initial replay is written under the client lock so it cannot
	// interleave with a broadcast.
	d.clientsMu.Lock()
	for _, e := range d.snapshotEvents() {
		if err := conn.WriteJSON(e); err != nil {
			d.clientsMu.Unlock()
			return
		}
	}
	d.clients[conn] = true
	d.clientsMu.Unlock()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	d.clientsMu.Lock()
	delete(d.clients, conn)
	d.clientsMu.Unlock()
}

func (d *Dashboard) handleState(w http.ResponseWriter, _ *http.Request) {
	s := d.currentSession()
	if s == nil {
		writeError(w, http.StatusServiceUnavailable, "no session attached")
		return
	}
	writeJSON(w, http.StatusOK, State{
		Panel: s.Snapshot(),
		Trees: s.TreeOptions(),
		Slots: d.artifactList(),
	})
}

func (d *Dashboard) artifactList() []ArtifactInfo {
	d.artifactsMu.RLock()
	defer d.artifactsMu.RUnlock()
	out := make([]ArtifactInfo, 0, len(d.artifacts))
	for _, s := range d.artifacts {
		out = append(out, ArtifactInfo{Slot: s.artifact.Slot, Kind: s.artifact.Kind, Title: s.artifact.Title, Version: s.version})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slot < out[j].Slot })
	return out
}

func (d *Dashboard) handleArtifacts(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, d.artifactList())
}

func (d *Dashboard) handleArtifact(w http.ResponseWriter, r *http.Request) {
	a, ok := d.Artifact(render.Slot(mux.Vars(r)["slot"]))
	if !ok {
		writeError(w, http.StatusNotFound, "nothing drawn in this slot")
		return
	}
	w.Header().Set("Content-Type", a.ContentType())
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(a.Data)
}

// handlePredict detaches from the request: a caller hanging up does not abort
// the prediction, the client timeout still bounds it.
func (d *Dashboard) handlePredict(w http.ResponseWriter, r *http.Request) {
	ctx := context.WithoutCancel(r.Context())
	d.act(w, func(s Session) error { return s.Predict(ctx) })
}

func (d *Dashboard) handleSample(w http.ResponseWriter, r *http.Request) {
	style := mux.Vars(r)["style"]
	d.act(w, func(s Session) error {
		err := s.LoadSample(style)
		if err != nil && !errors.Is(err, orchestrator.ErrBusy) {
			return errBadRequest{err}
		}
		return err
	})
}

func (d *Dashboard) handleRandom(w http.ResponseWriter, _ *http.Request) {
	d.act(w, func(s Session) error {
		_, err := s.GenerateRandom()
		return err
	})
}

func (d *Dashboard) handleReset(w http.ResponseWriter, _ *http.Request) {
	d.act(w, func(s Session) error { return s.ResetDefaults() })
}

func (d *Dashboard) handleTree(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid tree index")
		return
	}
	d.act(w, func(s Session) error { return s.SelectTree(index) })
}

func (d *Dashboard) handleField(w http.ResponseWriter, r *http.Request) {
	key, ok := features.Lookup(mux.Vars(r)["key"])
	if !ok {
		writeError(w, http.StatusNotFound, "unknown feature")
		return
	}
	var body struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "body must be {\"value\": \"...\"}")
		return
	}
	d.act(w, func(s Session) error { return s.SetField(key, body.Value) })
}

type errBadRequest struct{ error }

func (e errBadRequest) Unwrap() error { return e.error }

// act runs fn against the bound session and answers with the resulting panel.
// Failures that the panel already shows still carry the panel in the body.
func (d *Dashboard) act(w http.ResponseWriter, fn func(Session) error) {
	s := d.currentSession()
	if s == nil {
		writeError(w, http.StatusServiceUnavailable, "no session attached")
		return
	}

	err := fn(s)
	status := statusFor(err)
	if status == http.StatusConflict || status == http.StatusBadRequest {
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, status, s.Snapshot())
}

func statusFor(err error) int {
	var bad errBadRequest
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, orchestrator.ErrBusy):
		return http.StatusConflict
	case errors.As(err, &bad):
		return http.StatusBadRequest
	case errors.Is(err, features.ErrInvalidField), errors.Is(err, ensemble.ErrArity):
		return http.StatusUnprocessableEntity
	case errors.Is(err, orchestrator.ErrTreeNotFound):
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
