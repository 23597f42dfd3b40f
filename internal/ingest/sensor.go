package ingest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"zonematch/internal/event"
	"zonematch/internal/metrics"
)

// Wire structures for the raw sensor log. Each line wraps a payload
// string holding one or more timestamped frames of scene events.
type sensorRecord struct {
	TSRecv     string `json:"ts_recv"`
	PayloadRaw string `json:"payload_raw"`
}

type sensorPayload struct {
	LiveData *liveData `json:"live_data"`
}

type liveData struct {
	Frames []frame `json:"frames"`
}

type frame struct {
	Time   int64        `json:"time"`
	Events []sceneEvent `json:"events"`
}

type sceneEvent struct {
	Category   string           `json:"category"`
	Type       string           `json:"type"`
	Attributes *eventAttributes `json:"attributes"`
}

type eventAttributes struct {
	TrackID    *int64 `json:"track_id"`
	GeometryID *int   `json:"geometry_id"`
}

// SensorReader streams normalized zone entry/exit events out of a
// sensor JSONL file, one forward pass, without materializing the file.
// Track lifecycle and non-scene events are ignored.
type SensorReader struct {
	path    string
	file    *os.File
	scanner *bufio.Scanner
	pending []event.Event
	skipped int
}

// OpenSensor opens the sensor log at path. A missing file is fatal.
func OpenSensor(path string) (*SensorReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sensor log %s: %w", path, err)
	}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	return &SensorReader{path: path, file: f, scanner: sc}, nil
}

// Next returns the next zone event in file order. ok is false at end of
// input.
func (r *SensorReader) Next() (event.Event, bool) {
	for {
		if len(r.pending) > 0 {
			ev := r.pending[0]
			r.pending = r.pending[1:]
			return ev, true
		}
		if !r.scanner.Scan() {
			return event.Event{}, false
		}
		line := r.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if !r.parseLine(line) {
			r.skipped++
			metrics.LinesSkipped.WithLabelValues("sensor").Inc()
		}
	}
}

// parseLine appends the line's zone events to pending. It reports false
// when the line could not be parsed at all.
func (r *SensorReader) parseLine(line []byte) bool {
	var rec sensorRecord
	if err := json.Unmarshal(line, &rec); err != nil {
		return false
	}
	if rec.PayloadRaw == "" {
		return false
	}

	var recvMS int64
	if rec.TSRecv != "" {
		if ms, err := parseTS(rec.TSRecv); err == nil {
			recvMS = ms
		}
	}

	var payload sensorPayload
	if err := json.Unmarshal([]byte(rec.PayloadRaw), &payload); err != nil {
		return false
	}
	if payload.LiveData == nil {
		return false
	}

	for _, fr := range payload.LiveData.Frames {
		if fr.Time <= 0 {
			continue
		}
		for _, ev := range fr.Events {
			if ev.Category != "SCENE" {
				continue
			}
			var kind event.Kind
			switch ev.Type {
			case "ZONE_ENTRY":
				kind = event.KindZoneEntry
			case "ZONE_EXIT":
				kind = event.KindZoneExit
			default:
				continue
			}
			if ev.Attributes == nil || ev.Attributes.TrackID == nil || ev.Attributes.GeometryID == nil {
				continue
			}
			r.pending = append(r.pending, event.Event{
				TS:     fr.Time,
				RecvTS: recvMS,
				Kind:   kind,
				Track:  event.TrackID(*ev.Attributes.TrackID),
				Zone:   event.ZoneID(*ev.Attributes.GeometryID),
			})
		}
	}
	return true
}

// Skipped returns how many lines were dropped as unparseable.
func (r *SensorReader) Skipped() int {
	return r.skipped
}

// Close releases the underlying file.
func (r *SensorReader) Close() error {
	return r.file.Close()
}

// ReadSensorAll drains a sensor file into memory, for the retrospective
// matcher which needs receive-time ordering across the whole day.
func ReadSensorAll(path string) ([]event.Event, int, error) {
	r, err := OpenSensor(path)
	if err != nil {
		return nil, 0, err
	}
	defer r.Close()

	var events []event.Event
	for {
		ev, ok := r.Next()
		if !ok {
			break
		}
		events = append(events, ev)
	}
	if err := r.scanner.Err(); err != nil && err != io.EOF {
		return events, r.skipped, fmt.Errorf("read sensor log %s: %w", path, err)
	}
	return events, r.skipped, nil
}
