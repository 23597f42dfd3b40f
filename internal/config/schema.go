package config

import (
	"sort"
	"strconv"

	"zonematch/internal/event"
)

// Config is the top-level YAML structure.
type Config struct {
	Zones    ZonesConf    `yaml:"zones"`
	Kiosks   KiosksConf   `yaml:"kiosks"`
	Matching MatchingConf `yaml:"matching"`
	Grouping GroupingConf `yaml:"grouping"`
}

// ZonesConf maps geometry ids to human names and singles out the
// point-of-sale zones the correlator cares about.
type ZonesConf struct {
	Names    map[int]string `yaml:"names"`
	POSZones []int          `yaml:"pos_zones"`
}

// KiosksConf maps payment kiosk identifiers to zone names, used when a
// payment record does not name its zone directly.
type KiosksConf struct {
	IPToZone map[string]string `yaml:"ip_to_zone"`
}

// MatchingConf holds the occupancy-replay and retrospective thresholds.
type MatchingConf struct {
	// ExitGraceMS keeps a just-exited track matchable for this long.
	ExitGraceMS int64 `yaml:"exit_grace_ms"`
	// LateGraceMS extends the retrospective cutoff past the payment
	// receive time to admit late-arriving sensor data.
	LateGraceMS int64 `yaml:"late_grace_ms"`
	// LookbackMS bounds how long an unclosed session keeps covering
	// query times.
	LookbackMS int64 `yaml:"lookback_ms"`
	// FlickerMergeS is the max gap, in seconds, bridged by the session
	// merger.
	FlickerMergeS int `yaml:"flicker_merge_s"`
}

// GroupingConf holds the group-qualification thresholds.
type GroupingConf struct {
	MinDwellMS       int64  `yaml:"min_dwell_ms"`
	EntrySpreadS     int    `yaml:"entry_spread_s"`
	OtherZoneWindowS int    `yaml:"other_zone_window_s"`
	OtherZoneMinS    int    `yaml:"other_zone_min_s"`
	// WindowAlignment selects how the other-zone window sits relative
	// to the payment time: "trailing" or "centered".
	WindowAlignment string `yaml:"window_alignment"`
}

// ZoneTable is the read-only lookup the analysis layers receive instead
// of the raw config document.
type ZoneTable struct {
	idToName map[event.ZoneID]string
	nameToID map[string]event.ZoneID
	pos      map[event.ZoneID]bool
	kioskTo  map[string]string
}

// Table builds the zone lookup from the loaded config.
func (c *Config) Table() *ZoneTable {
	t := &ZoneTable{
		idToName: make(map[event.ZoneID]string, len(c.Zones.Names)),
		nameToID: make(map[string]event.ZoneID, len(c.Zones.Names)),
		pos:      make(map[event.ZoneID]bool, len(c.Zones.POSZones)),
		kioskTo:  make(map[string]string, len(c.Kiosks.IPToZone)),
	}
	for id, name := range c.Zones.Names {
		t.idToName[event.ZoneID(id)] = name
		t.nameToID[name] = event.ZoneID(id)
	}
	for _, id := range c.Zones.POSZones {
		t.pos[event.ZoneID(id)] = true
	}
	for ip, name := range c.Kiosks.IPToZone {
		t.kioskTo[ip] = name
	}
	return t
}

// Name returns the configured name for a zone id, or "zone_<id>" when
// the id is unknown.
func (t *ZoneTable) Name(id event.ZoneID) string {
	if name, ok := t.idToName[id]; ok {
		return name
	}
	return "zone_" + strconv.Itoa(int(id))
}

// ID resolves a zone name. ok is false for unknown names; callers treat
// that as "no match", never as an error.
func (t *ZoneTable) ID(name string) (event.ZoneID, bool) {
	id, ok := t.nameToID[name]
	return id, ok
}

// IsPOS reports whether the zone id is a configured point-of-sale zone.
func (t *ZoneTable) IsPOS(id event.ZoneID) bool {
	return t.pos[id]
}

// POSZones returns the configured point-of-sale zone ids in ascending
// order.
func (t *ZoneTable) POSZones() []event.ZoneID {
	ids := make([]event.ZoneID, 0, len(t.pos))
	for id := range t.pos {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// KioskZone resolves a kiosk identifier to its zone name. ok is false
// for unknown kiosks.
func (t *ZoneTable) KioskZone(kiosk string) (string, bool) {
	name, ok := t.kioskTo[kiosk]
	return name, ok
}

