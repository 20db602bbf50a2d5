package matching

import (
	"sync/atomic"

	"github.com/fairyhunter13/mentor-match/internal/domain"
)

// Signal names the re-ranking sub-signal that dominated a match.
type Signal string

const (
	SignalSimilarity Signal = "similarity"
	SignalOverlap    Signal = "overlap"
	SignalPreference Signal = "preference"
)

// FeedbackSignal pairs a rating with the signal that dominated the match the
// rating refers to.
type FeedbackSignal struct {
	Rating   int
	Dominant Signal
}

// maxNudge bounds how far a single adjustment cycle can move any weight.
const maxNudge = 0.05

// minWeight keeps every signal alive so a bad streak cannot zero one out.
const minWeight = 0.05

// AdjustWeights nudges the current weights from aggregated feedback: signals
// that preceded above-average ratings gain weight, signals that preceded
// below-average ratings lose it. Each weight moves at most maxNudge per cycle
// and the result is renormalized to sum to 1. An empty batch returns the
// current weights unchanged.
func AdjustWeights(cur domain.Weights, batch []FeedbackSignal) domain.Weights {
	cur = cur.Normalized()
	sums := map[Signal]float64{}
	counts := map[Signal]int{}
	total, n := 0.0, 0
	for _, f := range batch {
		if f.Rating < 1 || f.Rating > 5 {
			continue
		}
		sums[f.Dominant] += float64(f.Rating)
		counts[f.Dominant]++
		total += float64(f.Rating)
		n++
	}
	if n == 0 {
		return cur
	}
	globalMean := total / float64(n)

	nudge := func(s Signal) float64 {
		c := counts[s]
		if c == 0 {
			return 0
		}
		// Rating deltas live in [-4, 4]; scale into [-maxNudge, maxNudge].
		d := (sums[s]/float64(c) - globalMean) / 4 * maxNudge
		return clamp(d, -maxNudge, maxNudge)
	}

	next := domain.Weights{
		Similarity: clampMin(cur.Similarity+nudge(SignalSimilarity), minWeight),
		Overlap:    clampMin(cur.Overlap+nudge(SignalOverlap), minWeight),
		Preference: clampMin(cur.Preference+nudge(SignalPreference), minWeight),
	}
	return next.Normalized()
}

// DominantSignal classifies a scored match by its largest sub-signal on fixed
// scales (similarity as-is, overlap against two hours per week, preference
// count against four matches). Fixed scales keep the classification stable
// across batches, unlike the batch-relative re-rank normalization.
func DominantSignal(similarity float64, overlapMinutes int, overlapKnown bool, prefMatches int) Signal {
	sim := clamp(similarity, 0, 1)
	ov := neutralSignal
	if overlapKnown {
		ov = clamp(float64(overlapMinutes)/120, 0, 1)
	}
	pref := clamp(float64(prefMatches)/4, 0, 1)
	// Deterministic priority on ties: similarity, then overlap.
	best, sig := sim, SignalSimilarity
	if ov > best {
		best, sig = ov, SignalOverlap
	}
	if pref > best {
		sig = SignalPreference
	}
	return sig
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampMin(v, lo float64) float64 {
	if v < lo {
		return lo
	}
	return v
}

// WeightHolder is the hot-swappable weight configuration shared between the
// serving path and the background adjuster. Reads never block writes.
type WeightHolder struct {
	v atomic.Pointer[domain.Weights]
}

// NewWeightHolder returns a holder primed with w.
func NewWeightHolder(w domain.Weights) *WeightHolder {
	h := &WeightHolder{}
	h.Store(w)
	return h
}

// Load returns the current weights.
func (h *WeightHolder) Load() domain.Weights {
	if p := h.v.Load(); p != nil {
		return *p
	}
	return domain.DefaultWeights()
}

// Store swaps in new weights after normalizing them.
func (h *WeightHolder) Store(w domain.Weights) {
	n := w.Normalized()
	h.v.Store(&n)
}
