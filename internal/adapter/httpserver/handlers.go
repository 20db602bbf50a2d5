package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/fairyhunter13/mentor-match/internal/config"
	"github.com/fairyhunter13/mentor-match/internal/domain"
	"github.com/fairyhunter13/mentor-match/internal/usecase"
)

// Server aggregates handler dependencies.
type Server struct {
	Cfg         config.Config
	Profiles    usecase.ProfileService
	Matcher     usecase.MatchService
	Mentorships usecase.MentorshipService
	Feedback    usecase.FeedbackService

	DBCheck       func(ctx context.Context) error
	RedisCheck    func(ctx context.Context) error
	IndexCheck    func(ctx context.Context) error
	EmbedderCheck func(ctx context.Context) error
}

// NewServer constructs an HTTP server with all handlers and checks wired.
func NewServer(cfg config.Config, profiles usecase.ProfileService, matcher usecase.MatchService, mentorships usecase.MentorshipService, feedback usecase.FeedbackService, dbCheck, redisCheck, indexCheck, embedderCheck func(context.Context) error) *Server {
	return &Server{
		Cfg:           cfg,
		Profiles:      profiles,
		Matcher:       matcher,
		Mentorships:   mentorships,
		Feedback:      feedback,
		DBCheck:       dbCheck,
		RedisCheck:    redisCheck,
		IndexCheck:    indexCheck,
		EmbedderCheck: embedderCheck,
	}
}

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() { vld = validator.New() })
	return vld
}

// decodeJSON caps the body, decodes into v and runs struct validation.
// Validation failures surface per-field tags in the error details.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, r, fmt.Errorf("%w: invalid json", domain.ErrInvalidArgument), nil)
		return false
	}
	if err := getValidator().Struct(v); err != nil {
		verrs := map[string]string{}
		if ve, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range ve {
				verrs[strings.ToLower(fe.Field())] = fe.Tag()
			}
		}
		writeError(w, r, fmt.Errorf("%w: validation failed", domain.ErrInvalidArgument), verrs)
		return false
	}
	return true
}

// CreateMentorHandler registers a new mentor profile.
func (s *Server) CreateMentorHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req mentorPayload
		if !decodeJSON(w, r, &req) {
			return
		}
		m, err := s.Profiles.CreateMentor(r.Context(), req.toDomain(""))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusCreated, toMentorResponse(m))
	}
}

// UpdateMentorHandler replaces a mentor profile.
func (s *Server) UpdateMentorHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var req mentorPayload
		if !decodeJSON(w, r, &req) {
			return
		}
		m, err := s.Profiles.UpdateMentor(r.Context(), req.toDomain(id))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, toMentorResponse(m))
	}
}

// GetMentorHandler returns one mentor profile.
func (s *Server) GetMentorHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, err := s.Profiles.Mentors.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, toMentorResponse(m))
	}
}

// DeactivateMentorHandler removes a mentor from matching.
func (s *Server) DeactivateMentorHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.Profiles.DeactivateMentor(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeError(w, r, err, nil)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// CreateMenteeHandler registers a new mentee profile.
func (s *Server) CreateMenteeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req menteePayload
		if !decodeJSON(w, r, &req) {
			return
		}
		m, err := s.Profiles.CreateMentee(r.Context(), req.toDomain(""))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusCreated, toMenteeResponse(m))
	}
}

// UpdateMenteeHandler replaces a mentee profile.
func (s *Server) UpdateMenteeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var req menteePayload
		if !decodeJSON(w, r, &req) {
			return
		}
		m, err := s.Profiles.UpdateMentee(r.Context(), req.toDomain(id))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, toMenteeResponse(m))
	}
}

// GetMenteeHandler returns one mentee profile.
func (s *Server) GetMenteeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, err := s.Profiles.Mentees.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, toMenteeResponse(m))
	}
}

// MatchHandler returns ranked mentor recommendations. The body carries either
// an existing mentee_id, or an inline mentee profile that is created (or, with
// an id, refreshed) before matching.
func (s *Server) MatchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			MenteeID        string              `json:"mentee_id" validate:"omitempty,max=100"`
			TopK            int                 `json:"top_k" validate:"omitempty,min=1,max=50"`
			Name            string              `json:"name" validate:"omitempty,max=200"`
			Bio             string              `json:"bio" validate:"max=4000"`
			Goals           string              `json:"goals" validate:"max=4000"`
			MentorshipStyle string              `json:"mentorship_style" validate:"max=2000"`
			Availability    domain.Availability `json:"availability"`
			Preferences     domain.Preferences  `json:"preferences"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.TopK == 0 {
			req.TopK = s.Cfg.MatchTopK
		}
		profile := menteePayload{
			Name:            req.Name,
			Bio:             req.Bio,
			Goals:           req.Goals,
			MentorshipStyle: req.MentorshipStyle,
			Availability:    req.Availability,
			Preferences:     req.Preferences,
		}

		menteeID := req.MenteeID
		switch {
		case menteeID == "":
			m, err := s.Profiles.CreateMentee(r.Context(), profile.toDomain(""))
			if err != nil {
				writeError(w, r, err, nil)
				return
			}
			menteeID = m.ID
		case req.Name != "":
			// An id plus profile fields re-matches with refreshed data.
			if _, err := s.Profiles.UpdateMentee(r.Context(), profile.toDomain(menteeID)); err != nil {
				writeError(w, r, err, nil)
				return
			}
		}

		res, err := s.Matcher.Match(r.Context(), menteeID, req.TopK)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, toMatchResponse(menteeID, res.Candidates, res.Message, res.Widened))
	}
}

// CreateRequestHandler opens a mentorship request.
func (s *Server) CreateRequestHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			MenteeID string `json:"mentee_id" validate:"required,max=100"`
			MentorID string `json:"mentor_id" validate:"required,max=100"`
			Message  string `json:"message" validate:"max=2000"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		out, err := s.Mentorships.Request(r.Context(), req.MenteeID, req.MentorID, req.Message)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusCreated, toRequestResponse(out))
	}
}

// GetRequestHandler returns one mentorship request.
func (s *Server) GetRequestHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := s.Mentorships.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, toRequestResponse(out))
	}
}

// AcceptRequestHandler moves a request to ACCEPTED, reserving a mentor slot.
func (s *Server) AcceptRequestHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := s.Mentorships.Accept(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, toRequestResponse(out))
	}
}

// RejectRequestHandler declines a request or ends an accepted mentorship early.
func (s *Server) RejectRequestHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Reason string `json:"rejection_reason" validate:"max=2000"`
		}
		// The reason is optional; an empty body means none.
		if r.ContentLength != 0 {
			if !decodeJSON(w, r, &req) {
				return
			}
		}
		out, err := s.Mentorships.Reject(r.Context(), chi.URLParam(r, "id"), req.Reason)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, toRequestResponse(out))
	}
}

// CancelRequestHandler withdraws a pending request.
func (s *Server) CancelRequestHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := s.Mentorships.Cancel(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, toRequestResponse(out))
	}
}

// CompleteRequestHandler finishes an accepted mentorship.
func (s *Server) CompleteRequestHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := s.Mentorships.Complete(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, toRequestResponse(out))
	}
}

// ListRequestsHandler returns one party's requests, newest first. Exactly one
// of mentor_id / mentee_id selects the party.
func (s *Server) ListRequestsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mentorID := r.URL.Query().Get("mentor_id")
		menteeID := r.URL.Query().Get("mentee_id")
		var (
			out []domain.MentorshipRequest
			err error
		)
		switch {
		case mentorID != "" && menteeID == "":
			out, err = s.Mentorships.ListByMentor(r.Context(), mentorID)
		case menteeID != "" && mentorID == "":
			out, err = s.Mentorships.ListByMentee(r.Context(), menteeID)
		default:
			writeError(w, r, fmt.Errorf("%w: exactly one of mentor_id or mentee_id required", domain.ErrInvalidArgument), nil)
			return
		}
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"requests": toRequestResponses(out)})
	}
}

// SubmitFeedbackHandler records a post-mentorship rating.
func (s *Server) SubmitFeedbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			MenteeID string `json:"mentee_id" validate:"required,max=100"`
			MentorID string `json:"mentor_id" validate:"required,max=100"`
			Rating   int    `json:"rating" validate:"required,min=1,max=5"`
			Comment  string `json:"comment" validate:"max=4000"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		f, err := s.Feedback.Submit(r.Context(), domain.Feedback{
			MenteeID: req.MenteeID,
			MentorID: req.MentorID,
			Rating:   req.Rating,
			Comment:  req.Comment,
		})
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"id": f.ID})
	}
}

// ReadyzHandler returns a readiness handler that probes the DB, Redis, the
// vector index and the embedding provider. Unwired checks are skipped.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	type check struct {
		Name    string `json:"name"`
		OK      bool   `json:"ok"`
		Details string `json:"details,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		checks := make([]check, 0, 4)
		run := func(name string, fn func(context.Context) error) {
			if fn == nil {
				return
			}
			if err := fn(ctx); err != nil {
				checks = append(checks, check{Name: name, OK: false, Details: err.Error()})
			} else {
				checks = append(checks, check{Name: name, OK: true})
			}
		}
		run("db", s.DBCheck)
		run("redis", s.RedisCheck)
		run("index", s.IndexCheck)
		run("embedder", s.EmbedderCheck)
		ok := true
		for _, c := range checks {
			if !c.OK {
				ok = false
				break
			}
		}
		st := http.StatusOK
		if !ok {
			st = http.StatusServiceUnavailable
		}
		writeJSON(w, st, map[string]interface{}{"checks": checks})
	}
}
