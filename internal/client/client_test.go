package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"learnstyle/internal/common"
	"learnstyle/internal/features"
	"learnstyle/internal/profile"
	"learnstyle/internal/servicetest"
)

func newTestClient(t *testing.T) (*Client, *servicetest.Service) {
	t.Helper()
	svc := servicetest.New()
	t.Cleanup(svc.Close)
	return New(svc.PredictURL(), svc.URL, 2*time.Second), svc
}

func visual(t *testing.T) features.Vector {
	t.Helper()
	p, err := profile.Lookup("visual")
	require.NoError(t, err)
	return p.Vector
}

func TestPredict(t *testing.T) {
	c, svc := newTestClient(t)

	got, err := c.Predict(context.Background(), visual(t))
	require.NoError(t, err)
	assert.Equal(t, profile.LabelVisual, got.LearningStyle)
	assert.Equal(t, 1, svc.Calls(common.PathPredict))

	var sent map[string]float64
	require.NoError(t, json.Unmarshal(svc.LastBody(common.PathPredict), &sent))
	assert.Len(t, sent, features.Count)
	assert.Equal(t, 12.5, sent["T_video"])
}

func TestPredictServiceErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		message string
		want    string
	}{
		{"error field used", http.StatusInternalServerError, "Model not trained.", "Model not trained."},
		{"bad request", http.StatusBadRequest, "No input data provided", "No input data provided"},
		{"no error field", http.StatusBadGateway, "", "HTTP error! status: 502"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, svc := newTestClient(t)
			svc.Fail(common.PathPredict, tt.status, tt.message)

			_, err := c.Predict(context.Background(), visual(t))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrService))

			var se *ServiceError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.status, se.Status)
			assert.Equal(t, tt.want, se.Error())
		})
	}
}

func TestPredictTransportError(t *testing.T) {
	svc := servicetest.New()
	url := svc.PredictURL()
	svc.Close()

	c := New(url, svc.URL, time.Second)
	_, err := c.Predict(context.Background(), visual(t))
	require.Error(t, err)

	var te *TransportError
	assert.True(t, errors.As(err, &te))
	assert.Equal(t, "predict", te.Op)
	assert.False(t, errors.Is(err, ErrService))

	assert.Equal(t, "Could not reach the prediction service.", err.Error())
	assert.NotContains(t, err.Error(), url)
	assert.Contains(t, te.Detail(), url)
	assert.NotNil(t, errors.Unwrap(err))
}

func TestPredictHonoursContext(t *testing.T) {
	c, svc := newTestClient(t)
	release := make(chan struct{})
	svc.OnRequest(common.PathPredict, func() { <-release })
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Predict(ctx, visual(t))
	var te *TransportError
	assert.True(t, errors.As(err, &te))
}

func TestTreeVotes(t *testing.T) {
	c, svc := newTestClient(t)
	svc.SetVotes("Visual Learner", "Auditory Learner", "Visual Learner")

	got, err := c.TreeVotes(context.Background(), visual(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"Visual Learner", "Auditory Learner", "Visual Learner"}, []string(got))
}

func TestTreeVotesFailureReportsStatusOnly(t *testing.T) {
	c, svc := newTestClient(t)
	svc.Fail(common.PathPredictAllTrees, http.StatusInternalServerError, "Model not trained.")

	_, err := c.TreeVotes(context.Background(), visual(t))
	require.Error(t, err)
	assert.Equal(t, "HTTP error! status: 500", err.Error())
}

func TestTreeData(t *testing.T) {
	c, _ := newTestClient(t)

	m, err := c.TreeData(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, m.Len())

	first, ok := m.First()
	require.True(t, ok)
	assert.Equal(t, "T_video <= 10.75", first.Structure.Label)
}

func TestTreeDataErrors(t *testing.T) {
	c, svc := newTestClient(t)
	svc.Fail(common.PathTreeData, http.StatusNotFound, "Tree data not found. Please train the model first.")

	_, err := c.TreeData(context.Background())
	var se *ServiceError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Status)

	svc.Recover(common.PathTreeData)
	svc.SetTrees(`{"not": "a list"}`)
	_, err = c.TreeData(context.Background())
	assert.Error(t, err)
}

func TestChartData(t *testing.T) {
	c, svc := newTestClient(t)

	data, err := c.ChartData(context.Background())
	require.NoError(t, err)
	assert.True(t, data.StyleDistribution.Usable())
	assert.True(t, data.FeatureImportance.Usable())
	assert.True(t, data.ModelPerformance.Usable())
	assert.InDelta(t, 0.91, data.ModelPerformance.Accuracy, 1e-9)

	svc.SetCharts(`{"style_distribution": {"error": "no data"}, "model_performance": {"accuracy": 0.5, "precision": 0.5, "recall": 0.5}}`)
	data, err = c.ChartData(context.Background())
	require.NoError(t, err)
	assert.False(t, data.StyleDistribution.Usable())
	assert.False(t, data.FeatureImportance.Usable())
	assert.True(t, data.ModelPerformance.Usable())
}
