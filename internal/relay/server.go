// Package relay forwards prediction requests from callers to the prediction
// service, passing the upstream status and body back unchanged.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"learnstyle/internal/common"
)

const maxBodyBytes = 1 << 20

// Metrics receives relay counters. *metrics.Wrapper satisfies it.
type Metrics interface {
	RelayRequestsInc(status int)
	RelayUpstreamErrorsInc()
	RelayLatencyObserve(seconds float64)
}

type Server struct {
	upstream string
	rest     *resty.Client
	metrics  Metrics
	router   *mux.Router
	server   *http.Server
}

// New builds a relay listening on port and forwarding POST /predict to upstream.
// metricsHandler serves /metrics; nil uses the default Prometheus registry.
func New(upstream string, port int, timeout time.Duration, m Metrics, metricsHandler http.Handler) *Server {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	}
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}

	s := &Server{
		upstream: upstream,
		rest:     r,
		metrics:  m,
		router:   mux.NewRouter(),
	}

	s.router.Use(requestID, cors)
	s.router.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", metricsHandler).Methods(http.MethodGet)
	s.router.HandleFunc(common.PathPredict, s.handlePredict).Methods(http.MethodPost)
	s.router.HandleFunc(common.PathPredict, preflight).Methods(http.MethodOptions)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: timeout + 5*time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins serving HTTP requests
func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Str("upstream", s.upstream).Msg("starting relay")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "relay is running")
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "upstream": s.upstream})
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	id := w.Header().Get(common.HeaderRequestID)
	logger := log.With().Str("request_id", id).Logger()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil || !isJSONObject(body) {
		logger.Warn().Msg("rejected predict request with invalid JSON body")
		s.reply(w, http.StatusBadRequest, errorBody(common.ErrMsgInvalidJSON))
		return
	}

	if _, err := url.ParseRequestURI(s.upstream); err != nil {
		logger.Error().Err(err).Msg("error setting up upstream request")
		s.reply(w, http.StatusInternalServerError, errorBody(common.ErrMsgUpstreamSetup))
		return
	}

	start := time.Now()
	resp, err := s.rest.R().
		SetContext(r.Context()).
		SetHeader("Content-Type", "application/json").
		SetHeader(common.HeaderRequestID, id).
		SetBody(body).
		Post(s.upstream)
	s.observe(time.Since(start))
	if err != nil {
		logger.Error().Err(err).Msg("no response from prediction service")
		if s.metrics != nil {
			s.metrics.RelayUpstreamErrorsInc()
		}
		s.reply(w, http.StatusInternalServerError, errorBody(common.ErrMsgNoUpstreamResponse))
		return
	}

	logger.Info().
		Int("status", resp.StatusCode()).
		Dur("latency", time.Since(start)).
		Msg("relayed predict request")

	contentType := resp.Header().Get("Content-Type")
	if contentType == "" {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(resp.StatusCode())
	_, _ = w.Write(resp.Body())
	if s.metrics != nil {
		s.metrics.RelayRequestsInc(resp.StatusCode())
	}
}

func (s *Server) reply(w http.ResponseWriter, status int, body any) {
	writeJSON(w, status, body)
	if s.metrics != nil {
		s.metrics.RelayRequestsInc(status)
	}
}

func (s *Server) observe(d time.Duration) {
	if s.metrics != nil {
		s.metrics.RelayLatencyObserve(d.Seconds())
	}
}

func isJSONObject(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return false
	}
	var obj map[string]json.RawMessage
	return json.Unmarshal(trimmed, &obj) == nil
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && !errors.Is(err, http.ErrHandlerTimeout) {
		log.Debug().Err(err).Msg("failed to write response")
	}
}

// requestID tags every request with X-Request-ID, generating one when absent.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(common.HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(common.HeaderRequestID, id)
		next.ServeHTTP(w, r)
	})
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+common.HeaderRequestID)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		next.ServeHTTP(w, r)
	})
}

func preflight(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
