package session

import (
	"sort"

	"zonematch/internal/event"
)

// Merge coalesces adjacent same-zone sessions separated by short gaps,
// treating such gaps as sensor flicker rather than a genuine departure.
//
// Two neighbours stay split when the earlier session is open, when the
// gap exceeds gapMS, or when any other zone has a session overlapping
// the gap (real activity elsewhere proves the person actually left).
// Merging folds left to right: the merged end is the later end, and the
// result is closed only if both inputs were. Merge is idempotent for a
// fixed gapMS.
func Merge(sessions []Session, gapMS int64) []Session {
	if len(sessions) == 0 {
		return nil
	}

	byZone := make(map[event.ZoneID][]Session)
	for _, s := range sessions {
		byZone[s.Zone] = append(byZone[s.Zone], s)
	}

	otherZoneBetween := func(zone event.ZoneID, start, end int64) bool {
		for other, list := range byZone {
			if other == zone {
				continue
			}
			for _, s := range list {
				if Overlaps(start, end, true, s.Start, s.End, s.Closed) {
					return true
				}
			}
		}
		return false
	}

	shouldSplit := func(cur Session, nxtStart int64) bool {
		if !cur.Closed {
			return true
		}
		if nxtStart-cur.End > gapMS {
			return true
		}
		return otherZoneBetween(cur.Zone, cur.End, nxtStart)
	}

	zones := make([]event.ZoneID, 0, len(byZone))
	for zone := range byZone {
		zones = append(zones, zone)
	}
	sort.Slice(zones, func(i, j int) bool { return zones[i] < zones[j] })

	var merged []Session
	for _, zone := range zones {
		list := byZone[zone]
		sort.SliceStable(list, func(i, j int) bool { return list[i].Start < list[j].Start })

		cur := list[0]
		for _, nxt := range list[1:] {
			if shouldSplit(cur, nxt.Start) {
				merged = append(merged, cur)
				cur = nxt
				continue
			}
			if !nxt.Closed || nxt.End > cur.End {
				cur.End = nxt.End
			}
			cur.Closed = cur.Closed && nxt.Closed
		}
		merged = append(merged, cur)
	}

	sortSessions(merged)
	return merged
}
