package httpserver

import (
	"time"

	"github.com/fairyhunter13/mentor-match/internal/domain"
	"github.com/fairyhunter13/mentor-match/internal/matching"
	"github.com/fairyhunter13/mentor-match/pkg/textx"
)

type mentorPayload struct {
	Name         string              `json:"name" validate:"required,max=200"`
	Bio          string              `json:"bio" validate:"max=4000"`
	Expertise    string              `json:"expertise" validate:"max=2000"`
	Capacity     int                 `json:"capacity" validate:"required,min=1,max=1000"`
	Availability domain.Availability `json:"availability"`
	Preferences  domain.Preferences  `json:"preferences"`
	Demographics map[string]string   `json:"demographics"`
	Active       *bool               `json:"active"`
}

func (p mentorPayload) toDomain(id string) domain.MentorProfile {
	m := domain.MentorProfile{
		ID:           id,
		Name:         p.Name,
		Bio:          p.Bio,
		Expertise:    p.Expertise,
		Capacity:     p.Capacity,
		Availability: p.Availability,
		Preferences:  p.Preferences,
		Demographics: p.Demographics,
		Active:       true,
	}
	if p.Active != nil {
		m.Active = *p.Active
	}
	return m
}

type mentorResponse struct {
	ID             string              `json:"id"`
	Name           string              `json:"name"`
	Bio            string              `json:"bio,omitempty"`
	Expertise      string              `json:"expertise,omitempty"`
	Capacity       int                 `json:"capacity"`
	CurrentMentees int                 `json:"current_mentees"`
	Availability   domain.Availability `json:"availability"`
	Preferences    domain.Preferences  `json:"preferences"`
	Demographics   map[string]string   `json:"demographics,omitempty"`
	Active         bool                `json:"active"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

func toMentorResponse(m domain.MentorProfile) mentorResponse {
	return mentorResponse{
		ID:             m.ID,
		Name:           m.Name,
		Bio:            m.Bio,
		Expertise:      m.Expertise,
		Capacity:       m.Capacity,
		CurrentMentees: m.CurrentMentees,
		Availability:   m.Availability,
		Preferences:    m.Preferences,
		Demographics:   m.Demographics,
		Active:         m.Active,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

type menteePayload struct {
	Name            string              `json:"name" validate:"required,max=200"`
	Bio             string              `json:"bio" validate:"max=4000"`
	Goals           string              `json:"goals" validate:"max=4000"`
	MentorshipStyle string              `json:"mentorship_style" validate:"max=2000"`
	Availability    domain.Availability `json:"availability"`
	Preferences     domain.Preferences  `json:"preferences"`
}

func (p menteePayload) toDomain(id string) domain.MenteeProfile {
	return domain.MenteeProfile{
		ID:              id,
		Name:            p.Name,
		Bio:             p.Bio,
		Goals:           p.Goals,
		MentorshipStyle: p.MentorshipStyle,
		Availability:    p.Availability,
		Preferences:     p.Preferences,
	}
}

type menteeResponse struct {
	ID              string              `json:"id"`
	Name            string              `json:"name"`
	Bio             string              `json:"bio,omitempty"`
	Goals           string              `json:"goals,omitempty"`
	MentorshipStyle string              `json:"mentorship_style,omitempty"`
	Availability    domain.Availability `json:"availability"`
	Preferences     domain.Preferences  `json:"preferences"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

func toMenteeResponse(m domain.MenteeProfile) menteeResponse {
	return menteeResponse{
		ID:              m.ID,
		Name:            m.Name,
		Bio:             m.Bio,
		Goals:           m.Goals,
		MentorshipStyle: m.MentorshipStyle,
		Availability:    m.Availability,
		Preferences:     m.Preferences,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

type recommendationResponse struct {
	MentorID          string   `json:"mentor_id"`
	Name              string   `json:"name"`
	Bio               string   `json:"bio,omitempty"`
	Expertise         string   `json:"expertise,omitempty"`
	Score             float64  `json:"score"`
	Similarity        float64  `json:"similarity"`
	OverlapMinutes    int      `json:"overlap_minutes"`
	PreferenceMatches int      `json:"preference_matches"`
	Explanations      []string `json:"explanations"`
}

type matchResponse struct {
	MenteeID        string                   `json:"mentee_id"`
	Recommendations []recommendationResponse `json:"recommendations"`
	Message         string                   `json:"message,omitempty"`
	Widened         bool                     `json:"widened"`
}

// bioSnippetLen caps the mentor bio carried in match responses.
const bioSnippetLen = 280

func toMatchResponse(menteeID string, cands []matching.ScoredCandidate, message string, widened bool) matchResponse {
	out := matchResponse{
		MenteeID:        menteeID,
		Recommendations: make([]recommendationResponse, 0, len(cands)),
		Message:         message,
		Widened:         widened,
	}
	for _, c := range cands {
		out.Recommendations = append(out.Recommendations, recommendationResponse{
			MentorID:          c.Mentor.ID,
			Name:              c.Mentor.Name,
			Bio:               textx.Snippet(c.Mentor.Bio, bioSnippetLen),
			Expertise:         c.Mentor.Expertise,
			Score:             c.FinalScore,
			Similarity:        c.Similarity,
			OverlapMinutes:    c.OverlapMinutes,
			PreferenceMatches: c.PreferenceMatches,
			Explanations:      c.Explanations,
		})
	}
	return out
}

type requestResponse struct {
	ID              string     `json:"id"`
	MenteeID        string     `json:"mentee_id"`
	MentorID        string     `json:"mentor_id"`
	Status          string     `json:"status"`
	Message         string     `json:"message,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	RequestedAt     time.Time  `json:"requested_at"`
	AcceptedAt      *time.Time `json:"accepted_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func toRequestResponse(r domain.MentorshipRequest) requestResponse {
	return requestResponse{
		ID:              r.ID,
		MenteeID:        r.MenteeID,
		MentorID:        r.MentorID,
		Status:          string(r.Status),
		Message:         r.Message,
		RejectionReason: r.RejectionReason,
		RequestedAt:     r.RequestedAt,
		AcceptedAt:      r.AcceptedAt,
		CompletedAt:     r.CompletedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func toRequestResponses(rs []domain.MentorshipRequest) []requestResponse {
	out := make([]requestResponse, 0, len(rs))
	for _, r := range rs {
		out = append(out, toRequestResponse(r))
	}
	return out
}
