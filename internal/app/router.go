// Package app wires configuration, adapters and usecases into runnable
// server and worker processes.
package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpserver "github.com/fairyhunter13/mentor-match/internal/adapter/httpserver"
	"github.com/fairyhunter13/mentor-match/internal/adapter/observability"
	"github.com/fairyhunter13/mentor-match/internal/config"
)

// ParseOrigins splits a comma-separated origin list into a slice, trimming
// spaces. An empty input allows every origin.
func ParseOrigins(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == "*" {
		return []string{"*"}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// BuildRouter constructs the HTTP handler with all middlewares and routes.
func BuildRouter(cfg config.Config, srv *httpserver.Server) http.Handler {
	r := chi.NewRouter()
	r.Use(httpserver.Recoverer())
	r.Use(httpserver.RequestID())
	r.Use(httpserver.TimeoutMiddleware(30 * time.Second))
	r.Use(httpserver.TraceMiddleware)
	r.Use(httpserver.AccessLog())
	r.Use(observability.HTTPMetricsMiddleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   ParseOrigins(cfg.CORSAllowOrigins),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Rate limit mutating endpoints
	r.Group(func(wr chi.Router) {
		wr.Use(httprate.LimitByIP(cfg.RateLimitPerMin, 1*time.Minute))

		wr.Post("/v1/mentors", srv.CreateMentorHandler())
		wr.Put("/v1/mentors/{id}", srv.UpdateMentorHandler())
		wr.Delete("/v1/mentors/{id}", srv.DeactivateMentorHandler())
		wr.Post("/v1/mentees", srv.CreateMenteeHandler())
		wr.Put("/v1/mentees/{id}", srv.UpdateMenteeHandler())

		wr.Post("/v1/match", srv.MatchHandler())

		wr.Post("/v1/requests", srv.CreateRequestHandler())
		wr.Put("/v1/requests/{id}/accept", srv.AcceptRequestHandler())
		wr.Put("/v1/requests/{id}/reject", srv.RejectRequestHandler())
		wr.Put("/v1/requests/{id}/cancel", srv.CancelRequestHandler())
		wr.Put("/v1/requests/{id}/complete", srv.CompleteRequestHandler())

		wr.Post("/v1/feedback", srv.SubmitFeedbackHandler())
	})

	// Read-only endpoints
	r.Get("/v1/mentors/{id}", srv.GetMentorHandler())
	r.Get("/v1/mentees/{id}", srv.GetMenteeHandler())
	r.Get("/v1/requests", srv.ListRequestsHandler())
	r.Get("/v1/requests/{id}", srv.GetRequestHandler())

	// Health and metrics
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) { promhttp.Handler().ServeHTTP(w, r) })
	r.Get("/readyz", srv.ReadyzHandler())

	return httpserver.SecurityHeaders(r)
}
