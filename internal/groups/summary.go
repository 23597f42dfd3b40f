package groups

import (
	"fmt"
	"io"
	"sort"

	"zonematch/internal/session"
)

// BaselineSummary diagnoses the payments the terminal itself reported
// as group purchases (party size >= 2), judged on raw sessions. It is
// the reference the staged variants are diffed against.
type BaselineSummary struct {
	Groups           int         `json:"groups"`
	SizeHist         map[int]int `json:"size_hist"`
	PresentLt2       int         `json:"present_lt2"`
	SpreadViolations int         `json:"entry_spread_gt"`
	OtherZoneHits    int         `json:"other_zone_hits"`
}

// Baseline evaluates the terminal-reported groups.
func (e *Evaluator) Baseline(payments []SharedPayment, sets *SessionSets) BaselineSummary {
	b := BaselineSummary{SizeHist: make(map[int]int)}
	for _, sp := range payments {
		if sp.GroupSize <= 1 {
			continue
		}
		b.Groups++
		b.SizeHist[len(sp.Members)]++

		zone, ok := e.zones.ID(sp.Key.Zone)
		if !ok {
			continue
		}

		var present []MemberEvidence
		for _, pid := range sp.Members {
			if s := session.At(sets.Raw[pid], zone, sp.Key.TS); s != nil {
				present = append(present, MemberEvidence{PersonID: pid, Present: true, EntryTS: s.Start, Qualified: true})
			}
		}
		if len(present) < 2 {
			b.PresentLt2++
			continue
		}
		if entrySpread(present) > e.params.EntrySpreadMS {
			b.SpreadViolations++
		}
		for _, m := range present {
			total := session.OtherZoneDwellMS(sets.Raw[m.PersonID], zone, sp.Key.TS, e.params.OtherZoneWindowMS, e.params.Alignment)
			if session.ActiveThreshold(total, e.params.OtherZoneMinMS) {
				b.OtherZoneHits++
				break
			}
		}
	}
	return b
}

// Summary aggregates one group-evaluation run.
type Summary struct {
	Journeys       int `json:"journeys"`
	SharedPayments int `json:"shared_payments"`
	Exits          int `json:"exits"`
	Clusters       int `json:"clusters"`
	ClustersGe2    int `json:"clusters_ge2"`
	ClustersShared int `json:"clusters_with_shared_key"`
	SharedKeys     int `json:"shared_keys"`

	StageB int `json:"stage_b"`
	StageC int `json:"stage_c"`
	StageD int `json:"stage_d"`
	StageE int `json:"stage_e"`

	Baseline BaselineSummary `json:"baseline"`
}

// Record tallies one evaluated shared key.
func (s *Summary) Record(c Candidate) {
	s.SharedKeys++
	if c.StageB {
		s.StageB++
	}
	if c.StageC {
		s.StageC++
	}
	if c.StageD {
		s.StageD++
	}
	if c.StageE {
		s.StageE++
	}
}

// WriteReport prints the run summary.
func (s *Summary) WriteReport(w io.Writer) {
	fmt.Fprintf(w, "journeys: %d\n", s.Journeys)
	fmt.Fprintf(w, "shared payment keys: %d\n", s.SharedPayments)
	fmt.Fprintf(w, "exit events: %d\n", s.Exits)
	fmt.Fprintf(w, "exit clusters: %d (>=2 people: %d, with shared payment: %d)\n",
		s.Clusters, s.ClustersGe2, s.ClustersShared)

	fmt.Fprintf(w, "\nbaseline (terminal-reported groups): %d", s.Baseline.Groups)
	if len(s.Baseline.SizeHist) > 0 {
		fmt.Fprintf(w, "  size_hist %s", formatHist(s.Baseline.SizeHist))
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  present<2: %d  entry_spread_gt: %d  other_zone_hits: %d\n",
		s.Baseline.PresentLt2, s.Baseline.SpreadViolations, s.Baseline.OtherZoneHits)

	fmt.Fprintf(w, "\nevaluated shared keys: %d\n", s.SharedKeys)
	fmt.Fprintf(w, "  stage_b (presence+dwell):    %d\n", s.StageB)
	fmt.Fprintf(w, "  stage_c (entry spread):      %d\n", s.StageC)
	fmt.Fprintf(w, "  stage_d (focus):             %d\n", s.StageD)
	fmt.Fprintf(w, "  stage_e (flicker tolerant):  %d\n", s.StageE)
}

func formatHist(hist map[int]int) string {
	sizes := make([]int, 0, len(hist))
	for size := range hist {
		sizes = append(sizes, size)
	}
	sort.Ints(sizes)
	out := ""
	for i, size := range sizes {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%d:%d", size, hist[size])
	}
	return out
}
