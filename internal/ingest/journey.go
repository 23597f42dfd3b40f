package ingest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"zonematch/internal/metrics"
)

// JourneyEvent is one event from a per-person journey export.
type JourneyEvent struct {
	Type  string
	TS    int64
	Zone  string
	Kiosk string
	// GroupSize is the terminal-reported party size on payment events.
	GroupSize int
}

// Journey is one person's full event history for a day.
type Journey struct {
	PersonID string
	Events   []JourneyEvent
}

// Journey event types consumed by the group evaluator.
const (
	JourneyZoneEntry = "zone_entry"
	JourneyZoneExit  = "zone_exit"
	JourneyPayment   = "acc"
	JourneyExitCross = "exit_cross"
)

type journeyRecord struct {
	PersonID flexString          `json:"person_id"`
	Events   []journeyEventEntry `json:"events"`
}

type journeyEventEntry struct {
	Type string            `json:"type"`
	TS   string            `json:"ts"`
	Data *journeyEventData `json:"data"`
}

type journeyEventData struct {
	Zone  string `json:"zone"`
	Kiosk string `json:"kiosk"`
	Group int    `json:"group"`
}

// LoadJourneys reads a journey JSONL export. Lines that fail to parse
// or lack a person id are skipped; a missing file is fatal.
func LoadJourneys(path string) ([]Journey, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open journeys %s: %w", path, err)
	}
	defer f.Close()

	var journeys []Journey
	skipped := 0
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec journeyRecord
		if err := json.Unmarshal(line, &rec); err != nil || rec.PersonID == "" {
			skipped++
			metrics.LinesSkipped.WithLabelValues("journey").Inc()
			continue
		}
		j := Journey{PersonID: string(rec.PersonID)}
		for _, entry := range rec.Events {
			ms, err := parseTS(entry.TS)
			if err != nil {
				continue
			}
			ev := JourneyEvent{Type: entry.Type, TS: ms}
			if entry.Data != nil {
				ev.Zone = entry.Data.Zone
				ev.Kiosk = entry.Data.Kiosk
				ev.GroupSize = entry.Data.Group
			}
			j.Events = append(j.Events, ev)
		}
		journeys = append(journeys, j)
	}
	if err := sc.Err(); err != nil {
		return journeys, skipped, fmt.Errorf("read journeys %s: %w", path, err)
	}
	return journeys, skipped, nil
}
