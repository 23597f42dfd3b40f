// Package groups decides whether a payment shared across several people
// reflects a genuine group (arrived together, stayed focused) or a
// coincidental co-presence, via a staged qualification pipeline over
// per-person journey logs.
package groups

import (
	"sort"

	"zonematch/internal/config"
	"zonematch/internal/event"
	"zonematch/internal/ingest"
	"zonematch/internal/session"
)

// PaymentKey identifies one physical payment across independent
// per-person journeys: the same receipt shows up in every participant's
// journey with identical time, zone, and kiosk.
type PaymentKey struct {
	TS    int64  `json:"ts_ms"`
	Zone  string `json:"zone"`
	Kiosk string `json:"kiosk"`
}

// SharedPayment is a payment key plus everyone whose journey carries it.
type SharedPayment struct {
	Key     PaymentKey `json:"key"`
	Members []string   `json:"members"`
	// GroupSize is the largest terminal-reported party size seen for
	// the key.
	GroupSize int `json:"group_size"`
}

// ExtractPayments collects payment events across journeys and groups
// them by key. Members and results are sorted for determinism.
func ExtractPayments(journeys []ingest.Journey) []SharedPayment {
	byKey := make(map[PaymentKey]*SharedPayment)
	members := make(map[PaymentKey]map[string]struct{})
	for _, j := range journeys {
		for _, ev := range j.Events {
			if ev.Type != ingest.JourneyPayment || ev.Zone == "" {
				continue
			}
			key := PaymentKey{TS: ev.TS, Zone: ev.Zone, Kiosk: ev.Kiosk}
			sp, ok := byKey[key]
			if !ok {
				sp = &SharedPayment{Key: key, GroupSize: 1}
				byKey[key] = sp
				members[key] = make(map[string]struct{})
			}
			members[key][j.PersonID] = struct{}{}
			if ev.GroupSize > sp.GroupSize {
				sp.GroupSize = ev.GroupSize
			}
		}
	}

	out := make([]SharedPayment, 0, len(byKey))
	for key, sp := range byKey {
		for pid := range members[key] {
			sp.Members = append(sp.Members, pid)
		}
		sort.Strings(sp.Members)
		out = append(out, *sp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Key.TS != out[j].Key.TS {
			return out[i].Key.TS < out[j].Key.TS
		}
		if out[i].Key.Zone != out[j].Key.Zone {
			return out[i].Key.Zone < out[j].Key.Zone
		}
		return out[i].Key.Kiosk < out[j].Key.Kiosk
	})
	return out
}

// SessionSets holds each person's raw and flicker-merged POS sessions.
type SessionSets struct {
	Raw    map[string][]session.Session
	Merged map[string][]session.Session
}

// BuildSessions derives both session sets from the journeys. Journey
// zone names resolve through the lookup table; events at zones that are
// not configured POS zones are ignored, as are unknown names.
func BuildSessions(journeys []ingest.Journey, zones *config.ZoneTable, mergeGapMS int64) *SessionSets {
	sets := &SessionSets{
		Raw:    make(map[string][]session.Session, len(journeys)),
		Merged: make(map[string][]session.Session, len(journeys)),
	}
	for _, j := range journeys {
		var events []event.Event
		for _, ev := range j.Events {
			var kind event.Kind
			switch ev.Type {
			case ingest.JourneyZoneEntry:
				kind = event.KindZoneEntry
			case ingest.JourneyZoneExit:
				kind = event.KindZoneExit
			default:
				continue
			}
			zone, ok := zones.ID(ev.Zone)
			if !ok || !zones.IsPOS(zone) {
				continue
			}
			events = append(events, event.Event{TS: ev.TS, Kind: kind, Zone: zone})
		}
		raw := session.Build(events)
		sets.Raw[j.PersonID] = raw
		sets.Merged[j.PersonID] = session.Merge(raw, mergeGapMS)
	}
	return sets
}

// LastExit returns the person's final exit-cross time, ok=false when the
// journey never crossed the exit line.
func LastExit(j ingest.Journey) (int64, bool) {
	var ts int64
	found := false
	for _, ev := range j.Events {
		if ev.Type == ingest.JourneyExitCross {
			ts = ev.TS
			found = true
		}
	}
	return ts, found
}
