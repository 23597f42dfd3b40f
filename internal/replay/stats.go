package replay

import (
	"fmt"
	"io"
	"sort"

	"zonematch/internal/metrics"
)

// ZoneStats is the per-zone payment breakdown.
type ZoneStats struct {
	Total        int `json:"total"`
	NoCandidates int `json:"no_candidates"`
	GraceMatches int `json:"grace_matches"`
}

// Stats holds the running counters updated during a replay.
type Stats struct {
	ZoneEvents  int64 `json:"zone_events"`
	Payments    int   `json:"payments"`
	UnknownZone int   `json:"unknown_zone"`

	// Buckets counts payments by current-occupancy size: 0, 1, 2, 3+.
	Buckets    map[string]int        `json:"buckets"`
	MatchTypes map[MatchType]int     `json:"match_types"`
	ByZone     map[string]*ZoneStats `json:"by_zone"`
}

// NewStats returns zeroed counters.
func NewStats() *Stats {
	return &Stats{
		Buckets:    make(map[string]int),
		MatchTypes: make(map[MatchType]int),
		ByZone:     make(map[string]*ZoneStats),
	}
}

// Record tallies one evaluated payment.
func (s *Stats) Record(zoneName string, candidateCount int, matchType MatchType) {
	bucket := Bucket(candidateCount)
	s.Buckets[bucket]++
	s.MatchTypes[matchType]++
	metrics.CandidateBuckets.WithLabelValues(bucket).Inc()
	metrics.PaymentsEvaluated.WithLabelValues(string(matchType)).Inc()

	zs, ok := s.ByZone[zoneName]
	if !ok {
		zs = &ZoneStats{}
		s.ByZone[zoneName] = zs
	}
	zs.Total++
	if candidateCount == 0 {
		zs.NoCandidates++
	}
	if matchType == MatchGrace {
		zs.GraceMatches++
	}
}

// Bucket names the candidate-count bucket for n.
func Bucket(n int) string {
	if n >= 3 {
		return "person_3+"
	}
	return fmt.Sprintf("person_%d", n)
}

// WriteReport prints the human-readable summary.
func (s *Stats) WriteReport(w io.Writer, label string, exitGraceMS int64) {
	fmt.Fprintf(w, "input: %s\n", label)
	fmt.Fprintf(w, "exit_grace_ms: %d\n", exitGraceMS)
	fmt.Fprintf(w, "total_zone_events: %d\n", s.ZoneEvents)
	fmt.Fprintf(w, "total_payments: %d\n", s.Payments)
	if s.UnknownZone > 0 {
		fmt.Fprintf(w, "unknown_zone_payments: %d\n", s.UnknownZone)
	}

	fmt.Fprintf(w, "\nCandidate counts (current occupancy at payment time):\n")
	for _, bucket := range []string{"person_0", "person_1", "person_2", "person_3+"} {
		count := s.Buckets[bucket]
		fmt.Fprintf(w, "  %s: %d (%.1f%%)\n", bucket, count, pct(count, s.Payments))
	}

	fmt.Fprintf(w, "\nMatch types (with exit grace window):\n")
	for _, mt := range []MatchType{MatchCurrent, MatchGrace, MatchNone} {
		count := s.MatchTypes[mt]
		fmt.Fprintf(w, "  %s: %d (%.1f%%)\n", mt, count, pct(count, s.Payments))
	}

	fmt.Fprintf(w, "\nBy zone:\n")
	zones := make([]string, 0, len(s.ByZone))
	for name := range s.ByZone {
		zones = append(zones, name)
	}
	sort.Strings(zones)
	for _, name := range zones {
		zs := s.ByZone[name]
		fmt.Fprintf(w, "  %s: %d total, %d without candidates", name, zs.Total, zs.NoCandidates)
		if zs.GraceMatches > 0 {
			fmt.Fprintf(w, ", %d grace", zs.GraceMatches)
		}
		fmt.Fprintln(w)
	}
}

func pct(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}
