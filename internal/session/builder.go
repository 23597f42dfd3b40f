package session

import (
	"sort"

	"zonematch/internal/event"
)

// Build folds one person's zone events into presence sessions.
//
// The input may be unordered; it is sorted by event time first. An entry
// without an intervening exit supersedes the earlier entry for the same
// zone (the sensor corrected itself, not an error). An exit with no open
// entry is dropped. Zones still open at the end of input yield open
// sessions. Output is sorted by start, then zone.
func Build(events []event.Event) []Session {
	sorted := make([]event.Event, 0, len(events))
	for _, ev := range events {
		if ev.Kind.IsSensor() {
			sorted = append(sorted, ev)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].TS < sorted[j].TS })

	open := make(map[event.ZoneID]int64)
	var sessions []Session
	for _, ev := range sorted {
		switch ev.Kind {
		case event.KindZoneEntry:
			open[ev.Zone] = ev.TS
		case event.KindZoneExit:
			start, ok := open[ev.Zone]
			if !ok {
				continue
			}
			delete(open, ev.Zone)
			sessions = append(sessions, Session{Zone: ev.Zone, Start: start, End: ev.TS, Closed: true})
		}
	}
	for zone, start := range open {
		sessions = append(sessions, Session{Zone: zone, Start: start})
	}

	sortSessions(sessions)
	return sessions
}

func sortSessions(sessions []Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		if sessions[i].Start != sessions[j].Start {
			return sessions[i].Start < sessions[j].Start
		}
		return sessions[i].Zone < sessions[j].Zone
	})
}
