package matching

import (
	"strings"

	"github.com/fairyhunter13/mentor-match/internal/domain"
)

// FilteredCandidate is a retrieval hit annotated with structured sub-signals.
type FilteredCandidate struct {
	Mentor            domain.MentorProfile
	Similarity        float64
	OverlapMinutes    int
	OverlapKnown      bool
	PreferenceMatches int
}

// Filter applies structured constraints to the retrieval hits. Mentors at
// capacity (or inactive) are dropped; everything else is annotated with
// availability overlap and preference match count. Preference mismatch is a
// soft signal and never excludes a candidate. The similarity ordering of the
// input is preserved: this stage annotates and removes, it never reorders.
func Filter(mentee domain.MenteeProfile, hits []domain.SearchHit, mentors map[string]domain.MentorProfile) []FilteredCandidate {
	out := make([]FilteredCandidate, 0, len(hits))
	for _, h := range hits {
		m, ok := mentors[h.MentorID]
		if !ok {
			continue
		}
		if !m.Eligible() {
			continue
		}
		overlap, known := OverlapMinutes(mentee.Availability, m.Availability)
		out = append(out, FilteredCandidate{
			Mentor:            m,
			Similarity:        h.Similarity,
			OverlapMinutes:    overlap,
			OverlapKnown:      known,
			PreferenceMatches: PreferenceMatches(mentee.Preferences, m.Preferences),
		})
	}
	return out
}

// PreferenceMatches counts matching preference entries over the industry and
// language dimensions, case-insensitively. A dimension left empty by either
// side means "any" and counts as a single wildcard match.
func PreferenceMatches(mentee, mentor domain.Preferences) int {
	return dimensionMatches(mentee.Industries, mentor.Industries) +
		dimensionMatches(mentee.Languages, mentor.Languages)
}

func dimensionMatches(want, have []string) int {
	if len(want) == 0 || len(have) == 0 {
		return 1
	}
	set := make(map[string]struct{}, len(have))
	for _, h := range have {
		set[strings.ToLower(strings.TrimSpace(h))] = struct{}{}
	}
	n := 0
	seen := make(map[string]struct{}, len(want))
	for _, w := range want {
		k := strings.ToLower(strings.TrimSpace(w))
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		if _, ok := set[k]; ok {
			n++
		}
	}
	return n
}
