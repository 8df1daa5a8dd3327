// Package client talks to the prediction service: the primary /predict call
// (usually through the relay) and the introspection endpoints used for tree
// votes, tree structures and the chart summary.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"learnstyle/internal/common"
	"learnstyle/internal/ensemble"
	"learnstyle/internal/features"
	"learnstyle/internal/votes"
)

// Prediction is the body of a successful /predict answer.
type Prediction struct {
	LearningStyle string `json:"learning_style"`
	RawPrediction int    `json:"raw_prediction"`
}

type Client struct {
	predictURL string
	base       string
	rest       *resty.Client
}

// New builds a client. predictURL is the full primary endpoint; serviceURL is the
// base of /predict-all-trees, /tree-data and /chart-data.
func New(predictURL, serviceURL string, timeout time.Duration) *Client {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(10 * time.Second)
	}
	r.SetHeader("Accept", "application/json")
	return &Client{
		predictURL: predictURL,
		base:       strings.TrimRight(serviceURL, "/"),
		rest:       r,
	}
}

// Predict sends v to the primary endpoint. A non-2xx answer becomes a *ServiceError
// carrying the body's error field when present.
func (c *Client) Predict(ctx context.Context, v features.Vector) (Prediction, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return Prediction{}, fmt.Errorf("encode features: %w", err)
	}
	resp, err := c.rest.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(c.predictURL)
	if err != nil {
		return Prediction{}, &TransportError{Op: "predict", URL: c.predictURL, Err: err}
	}
	if resp.IsError() || resp.StatusCode() >= 300 {
		return Prediction{}, serviceError(resp.StatusCode(), resp.Body(), true)
	}

	var p Prediction
	if err := json.Unmarshal(resp.Body(), &p); err != nil {
		return Prediction{}, fmt.Errorf("decode prediction: %w", err)
	}
	if p.LearningStyle == "" {
		return Prediction{}, fmt.Errorf("decode prediction: missing learning_style")
	}
	return p, nil
}

// TreeVotes asks every ensemble member for its label.
func (c *Client) TreeVotes(ctx context.Context, v features.Vector) (votes.VoteSet, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode features: %w", err)
	}
	var out struct {
		TreeVotes votes.VoteSet `json:"tree_votes"`
	}
	req := c.rest.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body)
	if err := c.do(req, "POST", common.PathPredictAllTrees, &out); err != nil {
		return nil, err
	}
	if out.TreeVotes == nil {
		return nil, fmt.Errorf("decode tree votes: missing tree_votes")
	}
	return out.TreeVotes, nil
}

// TreeData fetches and indexes the ensemble structure.
func (c *Client) TreeData(ctx context.Context) (*ensemble.Metadata, error) {
	var raw json.RawMessage
	if err := c.do(c.rest.R().SetContext(ctx), "GET", common.PathTreeData, &raw); err != nil {
		return nil, err
	}
	return ensemble.Decode(raw)
}

// ChartData fetches the model summary.
func (c *Client) ChartData(ctx context.Context) (ChartData, error) {
	var out ChartData
	if err := c.do(c.rest.R().SetContext(ctx), "GET", common.PathChartData, &out); err != nil {
		return ChartData{}, err
	}
	return out, nil
}

// do runs an introspection request. Failures report the status only.
func (c *Client) do(req *resty.Request, method, path string, out any) error {
	url := c.base + path
	resp, err := req.Execute(method, url)
	if err != nil {
		return &TransportError{Op: strings.TrimPrefix(path, "/"), URL: url, Err: err}
	}
	if resp.IsError() || resp.StatusCode() >= 300 {
		return serviceError(resp.StatusCode(), resp.Body(), false)
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("decode %s: %w", strings.TrimPrefix(path, "/"), err)
	}
	return nil
}
