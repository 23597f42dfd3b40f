package groups

import (
	"sort"

	"zonematch/internal/ingest"
)

// Exit is one person's final exit-line crossing, with the payment keys
// their journey carries.
type Exit struct {
	PersonID string       `json:"person_id"`
	TS       int64        `json:"exit_ms"`
	Keys     []PaymentKey `json:"payment_keys,omitempty"`
}

// CollectExits extracts one Exit per journey that has an exit crossing.
func CollectExits(journeys []ingest.Journey) []Exit {
	var exits []Exit
	for _, j := range journeys {
		ts, ok := LastExit(j)
		if !ok {
			continue
		}
		ex := Exit{PersonID: j.PersonID, TS: ts}
		for _, ev := range j.Events {
			if ev.Type == ingest.JourneyPayment && ev.Zone != "" {
				ex.Keys = append(ex.Keys, PaymentKey{TS: ev.TS, Zone: ev.Zone, Kiosk: ev.Kiosk})
			}
		}
		exits = append(exits, ex)
	}
	return exits
}

// ClusterExits partitions exits into clusters of people who left within
// windowMS of the cluster's first exit. People leaving together is the
// cheapest signal that a shared payment may be a genuine group.
func ClusterExits(exits []Exit, windowMS int64) [][]Exit {
	if len(exits) == 0 {
		return nil
	}
	sorted := make([]Exit, len(exits))
	copy(sorted, exits)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].TS < sorted[j].TS })

	var clusters [][]Exit
	current := []Exit{sorted[0]}
	start := sorted[0].TS
	for _, ex := range sorted[1:] {
		if ex.TS-start <= windowMS {
			current = append(current, ex)
			continue
		}
		clusters = append(clusters, current)
		current = []Exit{ex}
		start = ex.TS
	}
	clusters = append(clusters, current)
	return clusters
}

// SharedKeys returns the payment keys carried by at least two members
// of the cluster, with the members that share each key.
func SharedKeys(cluster []Exit) map[PaymentKey][]string {
	byKey := make(map[PaymentKey][]string)
	for _, ex := range cluster {
		for _, key := range ex.Keys {
			byKey[key] = append(byKey[key], ex.PersonID)
		}
	}
	for key, members := range byKey {
		if len(members) < 2 {
			delete(byKey, key)
			continue
		}
		sort.Strings(members)
	}
	return byKey
}
