package dashboard

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"learnstyle/internal/client"
	"learnstyle/internal/common"
	"learnstyle/internal/features"
	"learnstyle/internal/metrics"
	"learnstyle/internal/orchestrator"
	"learnstyle/internal/profile"
	"learnstyle/internal/render"
	"learnstyle/internal/servicetest"
)

type fixture struct {
	svc     *servicetest.Service
	live    *Dashboard
	session *orchestrator.Session
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	svc := servicetest.New()
	t.Cleanup(svc.Close)

	registry := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(registry)
	live := New(8080, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	t.Cleanup(func() { _ = live.Stop(context.Background()) })

	c := client.New(svc.PredictURL(), svc.URL, 2*time.Second)
	s := orchestrator.New(c, render.NewAdapter(live), orchestrator.WithMetrics(metrics.NewWrapper(m)))
	live.Bind(s)
	return &fixture{svc: svc, live: live, session: s}
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.live.Handler().ServeHTTP(rec, req)
	return rec
}

func decodePanel(t *testing.T, rec *httptest.ResponseRecorder) orchestrator.Panel {
	t.Helper()
	var p orchestrator.Panel
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	return p
}

func TestSurfaceDrawErase(t *testing.T) {
	live := New(8080, nil)
	t.Cleanup(func() { _ = live.Stop(context.Background()) })

	a := render.TreeGraph(0, "graph TD\nn0[\"x\"]\n")
	require.NoError(t, live.Draw(a))
	assert.Error(t, live.Draw(a), "occupied slot")

	got, ok := live.Artifact(render.SlotTree)
	require.True(t, ok)
	assert.Equal(t, a.Data, got.Data)

	require.NoError(t, live.Erase(render.SlotTree))
	require.NoError(t, live.Erase(render.SlotTree))
	_, ok = live.Artifact(render.SlotTree)
	assert.False(t, ok)
}

func TestArtifactEndpoints(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.Start(context.Background()))

	rec := f.do(http.MethodGet, "/artifacts/"+string(render.SlotTree), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "graph TD\n"))

	rec = f.do(http.MethodGet, "/artifacts/"+string(render.SlotProfile), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	rec = f.do(http.MethodGet, "/artifacts/"+string(render.SlotVotes), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(http.MethodGet, "/artifacts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []ArtifactInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.NotEmpty(t, list)
}

func TestStateWithoutSession(t *testing.T) {
	live := New(8080, nil)
	t.Cleanup(func() { _ = live.Stop(context.Background()) })

	req := httptest.NewRequest(http.MethodGet, "/state", nil)
	rec := httptest.NewRecorder()
	live.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestState(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.Start(context.Background()))

	rec := f.do(http.MethodGet, "/state", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var st State
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, orchestrator.Idle, st.Panel.State)
	assert.Equal(t, orchestrator.ResultReady, st.Panel.Result)
	assert.Equal(t, 0, st.Panel.Tree)
	assert.NotEmpty(t, st.Slots)
	assert.Len(t, st.Trees, 3)
}

func TestActions(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.Start(context.Background()))

	rec := f.do(http.MethodPost, "/actions/sample/visual", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, orchestrator.ResultNone, decodePanel(t, rec).Result)

	rec = f.do(http.MethodPost, "/actions/predict", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, profile.LabelVisual, decodePanel(t, rec).Result)

	rec = f.do(http.MethodPost, "/actions/sample/tactile", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/actions/random", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodPost, "/actions/tree/2", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, f.session.Snapshot().Tree)

	rec = f.do(http.MethodPost, "/actions/tree/9", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(http.MethodPost, "/actions/reset", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, orchestrator.ResultReady, decodePanel(t, rec).Result)
}

func TestFieldUpdateThenInvalidPredict(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPut, "/fields/T_video", `{"value": "abc"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc", f.session.Form()[features.TVideo])

	rec = f.do(http.MethodPost, "/actions/predict", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "Error: Invalid input for T_video. Please enter a number.", decodePanel(t, rec).Error)
	assert.Equal(t, 0, f.svc.Calls(common.PathPredict))

	rec = f.do(http.MethodPut, "/fields/T_unknown", `{"value": "1"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(http.MethodPut, "/fields/T_video", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServiceFailureAnswersBadGateway(t *testing.T) {
	f := newFixture(t)
	f.svc.Fail(common.PathPredict, http.StatusInternalServerError, "Model not trained.")

	rec := f.do(http.MethodPost, "/actions/predict", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "Error: Model not trained.", decodePanel(t, rec).Error)
}

func TestPredictSurvivesCallerHangup(t *testing.T) {
	f := newFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.svc.OnRequest(common.PathPredict, func() {
		cancel()
		time.Sleep(50 * time.Millisecond)
	})

	req := httptest.NewRequest(http.MethodPost, "/actions/predict", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	f.live.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	p := f.session.Snapshot()
	assert.Equal(t, orchestrator.Succeeded, p.State)
	assert.Empty(t, p.Error)
	assert.Equal(t, 1, f.svc.Calls(common.PathPredictAllTrees))
}

func TestPageAndMetrics(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `data-slot="tree-graph"`)
	assert.Contains(t, body, `data-key="T_image"`)
	assert.Contains(t, body, "/actions/sample/kinesthetic")

	require.NoError(t, f.session.Predict(context.Background()))
	rec = f.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "predictions_total")
}

func readUntil(t *testing.T, conn *websocket.Conn, match func(Event) bool) Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var e Event
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, &e))
		if match(e) {
			return e
		}
	}
}

func TestWebSocketStreamsView(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.Start(context.Background()))

	srv := httptest.NewServer(f.live.Handler())
	t.Cleanup(srv.Close)

	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	first := readUntil(t, conn, func(Event) bool { return true })
	require.Equal(t, EventPanel, first.Type)
	assert.Equal(t, orchestrator.ResultReady, first.Panel.Result)

	tree := readUntil(t, conn, func(e Event) bool { return e.Type == EventDraw && e.Slot == render.SlotTree })
	assert.Equal(t, render.KindMermaid, tree.Kind)
	assert.True(t, strings.HasPrefix(tree.Text, "graph TD\n"))

	rec := f.do(http.MethodPost, "/actions/predict", "")
	require.Equal(t, http.StatusOK, rec.Code)

	done := readUntil(t, conn, func(e Event) bool {
		return e.Type == EventPanel && e.Panel.State == orchestrator.Succeeded
	})
	assert.Equal(t, orchestrator.DefaultConfidence, done.Panel.Confidence)

	votes := readUntil(t, conn, func(e Event) bool { return e.Type == EventDraw && e.Slot == render.SlotVotes })
	assert.Equal(t, render.KindPNG, votes.Kind)
	assert.Empty(t, votes.Text)

	img, err := http.Get(srv.URL + "/artifacts/" + string(render.SlotVotes))
	require.NoError(t, err)
	defer img.Body.Close()
	data, err := io.ReadAll(img.Body)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "\x89PNG"))
}
