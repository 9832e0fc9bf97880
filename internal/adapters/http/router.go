package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/tradepilot/tradepilot/internal/core/domain"
	"github.com/tradepilot/tradepilot/internal/core/ports"
	"github.com/tradepilot/tradepilot/internal/observability/metrics"
)

type RouterOptions struct {
	// RateLimitRPS caps inbound asks; zero disables the limiter.
	RateLimitRPS float64
	// MaxInFlight bounds concurrent asks before shedding load.
	MaxInFlight int
	// MetricsHandler serves the shared prometheus registry on /metrics.
	MetricsHandler http.Handler
	HTTPMetrics    *metrics.HTTPMetrics
}

type Router struct {
	ask  ports.AskService
	opts RouterOptions
}

func NewRouter(ask ports.AskService, opts RouterOptions) *Router {
	return &Router{ask: ask, opts: opts}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/ask", rt.askQuestion)
	if rt.opts.MetricsHandler != nil {
		mux.Handle("/metrics", rt.opts.MetricsHandler)
	}

	var handler http.Handler = mux
	if rt.opts.MaxInFlight > 0 {
		handler = backpressureMiddleware(handler, rt.opts.MaxInFlight, 50*time.Millisecond)
	}
	if rt.opts.RateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.opts.RateLimitRPS)
	}
	if rt.opts.HTTPMetrics != nil {
		handler = metricsMiddleware(handler, rt.opts.HTTPMetrics)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Answer  string             `json:"answer"`
	Sources []domain.SourceRef `json:"sources,omitempty"`
}

func (rt *Router) askQuestion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return
	}

	answer, err := rt.ask.Ask(r.Context(), req.Question)
	if err != nil {
		// The single place where pipeline errors become user-facing text.
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": userMessage(err)})
		return
	}

	writeJSON(w, http.StatusOK, askResponse{Answer: answer.Text, Sources: answer.Sources})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
