// Package replay re-runs a day of sensor and payment logs as one
// causally-ordered sequence, maintaining live per-zone occupancy the way
// the real-time gateway does. It never looks ahead: every payment is
// evaluated against only the state accumulated so far.
package replay

import (
	"sort"

	"zonematch/internal/config"
	"zonematch/internal/event"
	"zonematch/internal/metrics"
)

// maxRecentExits caps the per-zone recent-exit buffer; once exceeded the
// buffer is pruned back to the grace window.
const maxRecentExits = 100

// MatchType classifies how a payment found its candidates.
type MatchType string

const (
	// MatchCurrent means the zone was occupied at payment time.
	MatchCurrent MatchType = "current"
	// MatchGrace means the zone was empty but someone exited within
	// the grace window.
	MatchGrace MatchType = "grace"
	// MatchNone means no plausible candidate was found.
	MatchNone MatchType = "none"
)

// MatchResult is the verdict for one payment event.
type MatchResult struct {
	Payment         event.Payment   `json:"payment"`
	TS              int64           `json:"ts_ms"`
	Zone            event.ZoneID    `json:"zone_id"`
	Candidates      []event.TrackID `json:"candidates"`
	GraceCandidates []event.TrackID `json:"grace_candidates,omitempty"`
	MatchType       MatchType       `json:"match_type"`
}

// Matched reports whether anyone was found at all.
func (r *MatchResult) Matched() bool {
	return r.MatchType != MatchNone
}

type recentExit struct {
	track  event.TrackID
	exitTS int64
}

// Replayer holds the mutable replay state. It is exclusively owned by
// the single Run loop; nothing else mutates occupancy or the exit
// buffers.
type Replayer struct {
	zones   *config.ZoneTable
	graceMS int64

	occupancy   map[event.ZoneID]map[event.TrackID]struct{}
	recentExits map[event.ZoneID][]recentExit
	stats       *Stats
}

// New creates a Replayer using the zone lookup and exit grace window.
func New(zones *config.ZoneTable, exitGraceMS int64) *Replayer {
	return &Replayer{
		zones:       zones,
		graceMS:     exitGraceMS,
		occupancy:   make(map[event.ZoneID]map[event.TrackID]struct{}),
		recentExits: make(map[event.ZoneID][]recentExit),
		stats:       NewStats(),
	}
}

// Stats returns the running counters accumulated so far.
func (r *Replayer) Stats() *Stats {
	return r.stats
}

// Occupants returns the tracks currently inside the zone, sorted.
func (r *Replayer) Occupants(zone event.ZoneID) []event.TrackID {
	return sortedTracks(r.occupancy[zone])
}

// Run merges the sensor stream and the payment list into one sequence
// and replays it, invoking emit for every payment verdict. The sensor
// stream and payment list must each be sorted by timestamp; at equal
// timestamps sensor events are applied first so occupancy reflects an
// entry before a same-instant payment is evaluated.
func (r *Replayer) Run(sensor func() (event.Event, bool), payments []event.Event, emit func(MatchResult)) {
	next, ok := sensor()
	pi := 0
	for ok || pi < len(payments) {
		// Sensor wins ties so the payment sees the updated state.
		if ok && (pi >= len(payments) || next.TS <= payments[pi].TS) {
			r.applySensor(next)
			next, ok = sensor()
			continue
		}
		if res, found := r.evaluate(payments[pi]); found {
			emit(res)
		}
		pi++
	}
}

func (r *Replayer) applySensor(ev event.Event) {
	if !r.zones.IsPOS(ev.Zone) {
		return
	}
	r.stats.ZoneEvents++
	metrics.ZoneEventsReplayed.Inc()

	switch ev.Kind {
	case event.KindZoneEntry:
		set, ok := r.occupancy[ev.Zone]
		if !ok {
			set = make(map[event.TrackID]struct{})
			r.occupancy[ev.Zone] = set
		}
		set[ev.Track] = struct{}{}
	case event.KindZoneExit:
		delete(r.occupancy[ev.Zone], ev.Track)
		r.recentExits[ev.Zone] = append(r.recentExits[ev.Zone], recentExit{track: ev.Track, exitTS: ev.TS})
	}
}

// evaluate resolves a payment's zone and snapshots who is plausibly
// there. found is false when the zone name is unknown; that payment is
// counted but produces no result.
func (r *Replayer) evaluate(ev event.Event) (MatchResult, bool) {
	r.stats.Payments++

	zone, ok := r.zones.ID(ev.Payment.ZoneName)
	if !ok {
		r.stats.UnknownZone++
		return MatchResult{}, false
	}

	candidates := sortedTracks(r.occupancy[zone])

	cutoff := ev.TS - r.graceMS
	var grace []event.TrackID
	seen := make(map[event.TrackID]struct{}, len(candidates))
	for _, t := range candidates {
		seen[t] = struct{}{}
	}
	for _, ex := range r.recentExits[zone] {
		if ex.exitTS < cutoff {
			continue
		}
		if _, dup := seen[ex.track]; dup {
			continue
		}
		seen[ex.track] = struct{}{}
		grace = append(grace, ex.track)
	}
	sort.Slice(grace, func(i, j int) bool { return grace[i] < grace[j] })

	matchType := MatchNone
	switch {
	case len(candidates) > 0:
		matchType = MatchCurrent
	case len(grace) > 0:
		matchType = MatchGrace
	}

	r.stats.Record(ev.Payment.ZoneName, len(candidates), matchType)
	r.pruneExits(zone, cutoff)

	return MatchResult{
		Payment:         *ev.Payment,
		TS:              ev.TS,
		Zone:            zone,
		Candidates:      candidates,
		GraceCandidates: grace,
		MatchType:       matchType,
	}, true
}

// pruneExits bounds the recent-exit buffer by age once it grows past
// the count cap.
func (r *Replayer) pruneExits(zone event.ZoneID, cutoff int64) {
	exits := r.recentExits[zone]
	if len(exits) <= maxRecentExits {
		return
	}
	kept := exits[:0]
	for _, ex := range exits {
		if ex.exitTS >= cutoff {
			kept = append(kept, ex)
		}
	}
	r.recentExits[zone] = kept
}

func sortedTracks(set map[event.TrackID]struct{}) []event.TrackID {
	if len(set) == 0 {
		return nil
	}
	tracks := make([]event.TrackID, 0, len(set))
	for t := range set {
		tracks = append(tracks, t)
	}
	sort.Slice(tracks, func(i, j int) bool { return tracks[i] < tracks[j] })
	return tracks
}
