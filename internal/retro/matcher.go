package retro

import (
	"fmt"
	"io"
	"sort"

	"zonematch/internal/event"
	"zonematch/internal/replay"
)

// Params are the thresholds driving the retrospective comparison.
type Params struct {
	// LateGraceMS extends the corrected cutoff past the payment
	// receive time.
	LateGraceMS int64
	// ExitGraceMS and LookbackMS shape the session-covering test.
	ExitGraceMS int64
	LookbackMS  int64
	// MergeGapMS is the flicker-merge gap used when building sessions.
	MergeGapMS int64
}

// Comparison is the verdict delta for one payment.
type Comparison struct {
	Zone      event.ZoneID    `json:"zone_id"`
	TS        int64           `json:"ts_ms"`
	Initial   []event.TrackID `json:"initial_candidates"`
	Corrected []event.TrackID `json:"corrected_candidates"`
	Added     []event.TrackID `json:"added_candidates,omitempty"`
	Removed   []event.TrackID `json:"removed_candidates,omitempty"`
}

// Changed reports whether the corrected view disagrees with the causal
// one.
func (c *Comparison) Changed() bool {
	return len(c.Added) > 0 || len(c.Removed) > 0
}

// Matcher runs the initial-vs-corrected comparison. Payments must be
// evaluated in ascending timestamp order so both cutoff indexes only
// ever move forward.
type Matcher struct {
	params    Params
	initial   *CutoffIndex
	corrected *CutoffIndex
	events    []event.Event
}

// NewMatcher builds a matcher over one day's sensor events.
func NewMatcher(events []event.Event, params Params) *Matcher {
	return &Matcher{
		params:    params,
		initial:   NewCutoffIndex(events, params.MergeGapMS),
		corrected: NewCutoffIndex(events, params.MergeGapMS),
		events:    events,
	}
}

// Compare evaluates one payment time against both cutoffs.
func (m *Matcher) Compare(zone event.ZoneID, t int64) Comparison {
	m.initial.AdvanceTo(t)
	m.corrected.AdvanceTo(t + m.params.LateGraceMS)

	initial := m.initial.CandidatesAt(zone, t, m.params.LookbackMS, m.params.ExitGraceMS)
	corrected := m.corrected.CandidatesAt(zone, t, m.params.LookbackMS, m.params.ExitGraceMS)

	return Comparison{
		Zone:      zone,
		TS:        t,
		Initial:   initial,
		Corrected: corrected,
		Added:     diff(corrected, initial),
		Removed:   diff(initial, corrected),
	}
}

// LateEntries returns the zone entries that became visible only inside
// the grace window after t, either by receive time or by event time.
// These explain why a corrected verdict gained candidates.
func (m *Matcher) LateEntries(zone event.ZoneID, t int64) []LateEntry {
	var entries []LateEntry
	windowEnd := t + m.params.LateGraceMS
	for _, ev := range m.events {
		if ev.Kind != event.KindZoneEntry || ev.Zone != zone {
			continue
		}
		lateByRecv := ev.RecvTS > t && ev.RecvTS <= windowEnd
		lateByEvent := ev.TS >= t && ev.TS <= windowEnd
		if !lateByRecv && !lateByEvent {
			continue
		}
		entries = append(entries, LateEntry{
			Track:       ev.Track,
			EventMS:     ev.TS,
			RecvMS:      ev.RecvTS,
			DtEventMS:   ev.TS - t,
			DtRecvMS:    ev.RecvTS - t,
			LateByEvent: lateByEvent,
			LateByRecv:  lateByRecv,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].EventMS < entries[j].EventMS })
	return entries
}

// LateEntry documents one sensor entry arriving around a payment.
type LateEntry struct {
	Track       event.TrackID `json:"track_id"`
	EventMS     int64         `json:"event_ms"`
	RecvMS      int64         `json:"recv_ms"`
	DtEventMS   int64         `json:"dt_event_ms"`
	DtRecvMS    int64         `json:"dt_recv_ms"`
	LateByEvent bool          `json:"late_by_event"`
	LateByRecv  bool          `json:"late_by_recv"`
}

// LateRecord is the JSONL row emitted for payments whose candidate set
// changed between cutoffs.
type LateRecord struct {
	ReceiptID string          `json:"receipt_id"`
	ZoneName  string          `json:"zone"`
	Kiosk     string          `json:"kiosk"`
	PaymentMS int64           `json:"payment_ms"`
	GraceMS   int64           `json:"grace_ms"`
	Initial   []event.TrackID `json:"initial_candidates"`
	Corrected []event.TrackID `json:"corrected_candidates"`
	Added     []event.TrackID `json:"added_candidates"`
	Removed   []event.TrackID `json:"removed_candidates"`
	Late      []LateEntry     `json:"late_entries,omitempty"`
}

// Summary accumulates the bucket counts for both cutoffs.
type Summary struct {
	Payments         int            `json:"payments"`
	InitialBuckets   map[string]int `json:"initial_buckets"`
	CorrectedBuckets map[string]int `json:"corrected_buckets"`
	Changed          int            `json:"changed"`
}

// NewSummary returns zeroed counters.
func NewSummary() *Summary {
	return &Summary{
		InitialBuckets:   make(map[string]int),
		CorrectedBuckets: make(map[string]int),
	}
}

// Record tallies one comparison.
func (s *Summary) Record(c Comparison) {
	s.Payments++
	s.InitialBuckets[replay.Bucket(len(c.Initial))]++
	s.CorrectedBuckets[replay.Bucket(len(c.Corrected))]++
	if c.Changed() {
		s.Changed++
	}
}

// WriteReport prints the side-by-side bucket summary.
func (s *Summary) WriteReport(w io.Writer, graceMS int64) {
	fmt.Fprintf(w, "payments: %d\n", s.Payments)
	fmt.Fprintf(w, "late_grace_ms: %d\n", graceMS)
	fmt.Fprintf(w, "\ninitial (cutoff = payment receive time):\n")
	writeBuckets(w, s.InitialBuckets)
	fmt.Fprintf(w, "corrected (cutoff = payment receive time + grace):\n")
	writeBuckets(w, s.CorrectedBuckets)
	fmt.Fprintf(w, "candidates_changed: %d\n", s.Changed)
}

func writeBuckets(w io.Writer, buckets map[string]int) {
	for _, bucket := range []string{"person_0", "person_1", "person_2", "person_3+"} {
		fmt.Fprintf(w, "  %s: %d\n", bucket, buckets[bucket])
	}
}

// diff returns the members of a not present in b, preserving a's order.
func diff(a, b []event.TrackID) []event.TrackID {
	inB := make(map[event.TrackID]struct{}, len(b))
	for _, t := range b {
		inB[t] = struct{}{}
	}
	var out []event.TrackID
	for _, t := range a {
		if _, ok := inB[t]; !ok {
			out = append(out, t)
		}
	}
	return out
}
