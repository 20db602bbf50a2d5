// Package matching implements the pure matching pipeline: structured
// filtering, availability overlap, weighted re-ranking with explanations,
// and feedback-driven weight adjustment.
package matching

import (
	"strings"

	"github.com/fairyhunter13/mentor-match/internal/domain"
)

var weekdays = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// parseTimeRange parses "HH:MM-HH:MM" into minutes from midnight.
// Malformed ranges are skipped rather than failing the whole comparison.
func parseTimeRange(s string) (start, end int, ok bool) {
	from, to, found := strings.Cut(s, "-")
	if !found {
		return 0, 0, false
	}
	start, ok = parseClock(strings.TrimSpace(from))
	if !ok {
		return 0, 0, false
	}
	end, ok = parseClock(strings.TrimSpace(to))
	if !ok {
		return 0, 0, false
	}
	return start, end, true
}

func parseClock(s string) (int, bool) {
	hh, mm, found := strings.Cut(s, ":")
	if !found || len(hh) != 2 || len(mm) != 2 {
		return 0, false
	}
	h, ok1 := atoi2(hh)
	m, ok2 := atoi2(mm)
	if !ok1 || !ok2 || h > 23 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

func atoi2(s string) (int, bool) {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

// OverlapMinutes returns the total overlapping minutes per week between the
// two declared window sets, and whether the comparison was possible at all.
// When either side declares no windows the overlap is unknown and the
// re-ranker treats the signal as neutral instead of zero.
func OverlapMinutes(a, b domain.Availability) (minutes int, known bool) {
	if !a.HasWindows() || !b.HasWindows() {
		return 0, false
	}
	total := 0
	for _, day := range weekdays {
		for _, ar := range a.Windows[day] {
			as, ae, ok := parseTimeRange(ar)
			if !ok {
				continue
			}
			for _, br := range b.Windows[day] {
				bs, be, ok := parseTimeRange(br)
				if !ok {
					continue
				}
				lo := max(as, bs)
				hi := min(ae, be)
				if hi > lo {
					total += hi - lo
				}
			}
		}
	}
	return total, true
}
