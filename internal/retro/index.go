// Package retro answers "who was present at zone Z at time T" from
// precomputed sessions, under two knowledge cutoffs: what a causal
// decision knew at payment time, and what it would have known a grace
// window later. The delta quantifies how often late sensor data changes
// the verdict.
package retro

import (
	"sort"

	"zonematch/internal/event"
	"zonematch/internal/session"
)

// CutoffIndex maintains per-person merged sessions built from only the
// sensor events received up to a cutoff. Instead of rebuilding every
// session set per distinct cutoff, it keeps a cursor over the
// receive-time-sorted event list and rebuilds only the tracks that
// gained events since the last query.
//
// Group tracks are excluded: this analysis is about individual people.
type CutoffIndex struct {
	events     []event.Event // sorted by receive time
	mergeGapMS int64
	cursor     int
	cutoff     int64
	tracks     map[event.TrackID]*trackState
}

type trackState struct {
	events []event.Event // sorted by event time
	dirty  bool
	merged []session.Session
}

// NewCutoffIndex copies and receive-time-sorts the sensor events.
func NewCutoffIndex(events []event.Event, mergeGapMS int64) *CutoffIndex {
	sorted := make([]event.Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].RecvTS < sorted[j].RecvTS })
	return &CutoffIndex{
		events:     sorted,
		mergeGapMS: mergeGapMS,
		tracks:     make(map[event.TrackID]*trackState),
	}
}

// AdvanceTo makes all events received at or before cutoffMS visible.
// Cutoffs must be non-decreasing; an earlier cutoff is a no-op, queries
// always see the furthest point advanced to.
func (ix *CutoffIndex) AdvanceTo(cutoffMS int64) {
	if cutoffMS < ix.cutoff {
		return
	}
	ix.cutoff = cutoffMS
	for ix.cursor < len(ix.events) && ix.events[ix.cursor].RecvTS <= cutoffMS {
		ev := ix.events[ix.cursor]
		ix.cursor++
		if ev.Track.IsGroup() {
			continue
		}
		st, ok := ix.tracks[ev.Track]
		if !ok {
			st = &trackState{}
			ix.tracks[ev.Track] = st
		}
		st.insert(ev)
	}
}

// insert keeps the track's event list ordered by event time. Events
// arrive nearly sorted, so insertion scans from the tail.
func (st *trackState) insert(ev event.Event) {
	st.dirty = true
	st.events = append(st.events, ev)
	for i := len(st.events) - 1; i > 0 && st.events[i-1].TS > st.events[i].TS; i-- {
		st.events[i-1], st.events[i] = st.events[i], st.events[i-1]
	}
}

// Sessions returns the track's flicker-merged sessions as of the
// current cutoff, rebuilding them only when new events arrived.
func (ix *CutoffIndex) Sessions(track event.TrackID) []session.Session {
	st, ok := ix.tracks[track]
	if !ok {
		return nil
	}
	if st.dirty {
		st.merged = session.Merge(session.Build(st.events), ix.mergeGapMS)
		st.dirty = false
	}
	return st.merged
}

// CandidatesAt returns the person tracks whose merged session covers t
// at the given zone: a closed session covers start..end+exitGraceMS, an
// open one covers start..start+lookbackMS. Results are sorted.
func (ix *CutoffIndex) CandidatesAt(zone event.ZoneID, t, lookbackMS, exitGraceMS int64) []event.TrackID {
	var candidates []event.TrackID
	for track := range ix.tracks {
		for _, s := range ix.Sessions(track) {
			if s.Zone != zone {
				continue
			}
			var covers bool
			if s.Closed {
				covers = s.Start <= t && t <= s.End+exitGraceMS
			} else {
				covers = s.Start <= t && t <= s.Start+lookbackMS
			}
			if covers {
				candidates = append(candidates, track)
				break
			}
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i] < candidates[j] })
	return candidates
}
