package matching

import (
	"fmt"
	"sort"

	"github.com/fairyhunter13/mentor-match/internal/domain"
)

// ScoredCandidate is a final, ordered recommendation entry.
type ScoredCandidate struct {
	Mentor            domain.MentorProfile
	FinalScore        float64
	Similarity        float64
	OverlapMinutes    int
	OverlapKnown      bool
	PreferenceMatches int
	Explanations      []string
}

// neutralSignal is used where a sub-signal carries no ranking information in
// the current batch (unknown overlap, or a degenerate min==max spread).
const neutralSignal = 0.5

// Rerank combines similarity with the structured sub-signals into one score
// per candidate and returns the top-K in descending score order.
//
//	final = w_sim*similarity + w_overlap*norm(overlap) + w_pref*norm(prefs)
//
// Overlap and preference counts are min-max normalized over the current
// candidate batch, so final scores are only comparable within a single
// matching call, never across calls. Ties break on higher raw similarity,
// then on lower mentor id, making the ordering fully deterministic.
func Rerank(cands []FilteredCandidate, w domain.Weights, topK int) []ScoredCandidate {
	if len(cands) == 0 || topK <= 0 {
		return nil
	}
	w = w.Normalized()

	overlapNorm := normalizeOverlap(cands)
	prefNorm := normalizePrefs(cands)

	scored := make([]ScoredCandidate, 0, len(cands))
	for i, c := range cands {
		simPart := w.Similarity * c.Similarity
		overlapPart := w.Overlap * overlapNorm[i]
		prefPart := w.Preference * prefNorm[i]
		sc := ScoredCandidate{
			Mentor:            c.Mentor,
			FinalScore:        simPart + overlapPart + prefPart,
			Similarity:        c.Similarity,
			OverlapMinutes:    c.OverlapMinutes,
			OverlapKnown:      c.OverlapKnown,
			PreferenceMatches: c.PreferenceMatches,
		}
		sc.Explanations = explain(c, simPart, overlapPart, prefPart)
		scored = append(scored, sc)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.FinalScore != b.FinalScore {
			return a.FinalScore > b.FinalScore
		}
		if a.Similarity != b.Similarity {
			return a.Similarity > b.Similarity
		}
		return a.Mentor.ID < b.Mentor.ID
	})

	if topK < len(scored) {
		scored = scored[:topK]
	}
	return scored
}

func normalizeOverlap(cands []FilteredCandidate) []float64 {
	lo, hi := 0, 0
	first := true
	for _, c := range cands {
		if !c.OverlapKnown {
			continue
		}
		if first || c.OverlapMinutes < lo {
			lo = c.OverlapMinutes
		}
		if first || c.OverlapMinutes > hi {
			hi = c.OverlapMinutes
		}
		first = false
	}
	out := make([]float64, len(cands))
	for i, c := range cands {
		switch {
		case !c.OverlapKnown:
			out[i] = neutralSignal
		case hi == lo:
			out[i] = neutralSignal
		default:
			out[i] = float64(c.OverlapMinutes-lo) / float64(hi-lo)
		}
	}
	return out
}

func normalizePrefs(cands []FilteredCandidate) []float64 {
	lo, hi := cands[0].PreferenceMatches, cands[0].PreferenceMatches
	for _, c := range cands[1:] {
		if c.PreferenceMatches < lo {
			lo = c.PreferenceMatches
		}
		if c.PreferenceMatches > hi {
			hi = c.PreferenceMatches
		}
	}
	out := make([]float64, len(cands))
	for i, c := range cands {
		if hi == lo {
			out[i] = neutralSignal
			continue
		}
		out[i] = float64(c.PreferenceMatches-lo) / float64(hi-lo)
	}
	return out
}

// explain renders human-readable reasons for the sub-signals that contributed
// meaningfully, ordered by contribution magnitude descending. Deterministic
// for identical inputs.
func explain(c FilteredCandidate, simPart, overlapPart, prefPart float64) []string {
	type reason struct {
		contrib float64
		text    string
	}
	reasons := make([]reason, 0, 3)
	switch {
	case c.Similarity >= 0.75:
		reasons = append(reasons, reason{simPart, fmt.Sprintf("strong bio/goal alignment (similarity %.2f)", c.Similarity)})
	case c.Similarity >= 0.40:
		reasons = append(reasons, reason{simPart, fmt.Sprintf("good bio/goal alignment (similarity %.2f)", c.Similarity)})
	}
	if c.OverlapKnown && c.OverlapMinutes > 0 {
		reasons = append(reasons, reason{overlapPart, fmt.Sprintf("%s of overlapping availability per week", formatMinutes(c.OverlapMinutes))})
	}
	if c.PreferenceMatches > 0 {
		noun := "preferences"
		if c.PreferenceMatches == 1 {
			noun = "preference"
		}
		reasons = append(reasons, reason{prefPart, fmt.Sprintf("shares %d %s", c.PreferenceMatches, noun)})
	}
	sort.SliceStable(reasons, func(i, j int) bool { return reasons[i].contrib > reasons[j].contrib })
	out := make([]string, len(reasons))
	for i, r := range reasons {
		out[i] = r.text
	}
	return out
}

func formatMinutes(m int) string {
	h, rem := m/60, m%60
	switch {
	case h > 0 && rem > 0:
		return fmt.Sprintf("%dh %dmin", h, rem)
	case h > 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dmin", rem)
	}
}
