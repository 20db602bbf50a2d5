package observability

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"route", "method"},
	)

	EmbedRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "embed_requests_total",
			Help: "Total number of embedding requests by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)
	EmbedRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "embed_request_duration_seconds",
			Help:    "Embedding request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"provider"},
	)
	EmbedCacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "embed_cache_hits_total",
			Help: "Total number of embedding cache hits",
		},
	)

	MatchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "match_requests_total",
			Help: "Total number of matching calls by outcome",
		},
		[]string{"outcome"},
	)
	MatchCandidatesReturned = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "match_candidates_returned",
			Help:    "Distribution of recommendation list sizes",
			Buckets: []float64{0, 1, 2, 3, 4, 5, 10},
		},
	)
	MatchWidenedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "match_widened_total",
			Help: "Matching calls that widened retrieval after filtering emptied the pool",
		},
	)

	RequestTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mentorship_request_transitions_total",
			Help: "Total mentorship request transitions by target status and outcome",
		},
		[]string{"to", "outcome"},
	)

	VectorIndexSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "vector_index_size",
			Help: "Number of mentor vectors currently indexed",
		},
	)

	FeedbackEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedback_events_total",
			Help: "Feedback events by stage (published, consumed, applied)",
		},
		[]string{"stage"},
	)
	WeightAdjustmentsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "weight_adjustments_total",
			Help: "Completed weight adjustment cycles",
		},
	)
)

func InitMetrics() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(EmbedRequestsTotal)
	prometheus.MustRegister(EmbedRequestDuration)
	prometheus.MustRegister(EmbedCacheHitsTotal)
	prometheus.MustRegister(MatchRequestsTotal)
	prometheus.MustRegister(MatchCandidatesReturned)
	prometheus.MustRegister(MatchWidenedTotal)
	prometheus.MustRegister(RequestTransitionsTotal)
	prometheus.MustRegister(VectorIndexSize)
	prometheus.MustRegister(FeedbackEventsTotal)
	prometheus.MustRegister(WeightAdjustmentsTotal)
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		// Route pattern may be unavailable outside chi router; guard nil
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			route = r.URL.Path
		}
		method := r.Method
		status := ww.Status()
		HTTPRequestsTotal.WithLabelValues(route, method, http.StatusText(status)).Inc()
		HTTPRequestDuration.WithLabelValues(route, method).Observe(dur)
	})
}

// ObserveMatch records the outcome and size of one matching call.
func ObserveMatch(outcome string, returned int) {
	MatchRequestsTotal.WithLabelValues(outcome).Inc()
	MatchCandidatesReturned.Observe(float64(returned))
}

// ObserveTransition records one mentorship request transition attempt.
func ObserveTransition(to, outcome string) {
	RequestTransitionsTotal.WithLabelValues(to, outcome).Inc()
}
