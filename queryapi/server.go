package queryapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"trafficgen/query"
)

// maxBodyBytes caps the size of a /query request body.
const maxBodyBytes = 1 << 20

// Server answers /query by translating the JSON request into a PromQL
// range query against Prometheus.
type Server struct {
	API  v1.API
	Step time.Duration // resolution of the range query
	Log  *zap.Logger

	reg      *prometheus.Registry
	requests *prometheus.CounterVec
}

// New returns a server querying the Prometheus instance at prometheusURL.
func New(prometheusURL string, step time.Duration, log *zap.Logger) (*Server, error) {
	client, err := api.NewClient(api.Config{Address: prometheusURL})
	if err != nil {
		return nil, fmt.Errorf("create prometheus client: %w", err)
	}

	reg := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queryapi_requests_total",
			Help: "Requests handled by the /query endpoint, by status code",
		},
		[]string{"code"},
	)
	reg.MustRegister(requests)

	return &Server{
		API:      v1.NewAPI(client),
		Step:     step,
		Log:      log,
		reg:      reg,
		requests: requests,
	}, nil
}

// Handler routes /query and /metrics.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/query", promhttp.InstrumentHandlerCounter(s.requests, http.HandlerFunc(s.handleQuery)))
	mux.Handle("/metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{}))
	return mux
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req query.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "Request payload too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rng, err := req.ParseRange()
	switch {
	case errors.Is(err, query.ErrInvalidStart):
		http.Error(w, "Invalid start time format", http.StatusBadRequest)
		return
	case errors.Is(err, query.ErrInvalidEnd):
		http.Error(w, "Invalid end time format", http.StatusBadRequest)
		return
	}

	promql := req.Selector()
	log := s.Log.With(zap.String("query", promql))
	log.Info("executing range query", zap.Time("start", rng.Start), zap.Time("end", rng.End), zap.Duration("step", s.Step))

	result, warnings, err := s.API.QueryRange(r.Context(), promql, v1.Range{
		Start: rng.Start,
		End:   rng.End,
		Step:  s.Step,
	})
	if err != nil {
		log.Error("prometheus query failed", zap.Error(err))
		http.Error(w, fmt.Sprintf("Failed to query Prometheus: %v", err), http.StatusInternalServerError)
		return
	}
	if len(warnings) > 0 {
		log.Warn("prometheus returned warnings", zap.Strings("warnings", warnings))
	}
	log.Debug("prometheus responded", zap.Stringer("type", result.Type()))

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		log.Error("writing response failed", zap.Error(err))
	}
}
