package ingest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/google/uuid"

	"zonematch/internal/config"
	"zonematch/internal/event"
	"zonematch/internal/metrics"
)

type paymentRecord struct {
	TSRecv string         `json:"ts_recv"`
	Fields *paymentFields `json:"fields"`
}

type paymentFields struct {
	KioskIP   string     `json:"kiosk_ip"`
	ReceiptID flexString `json:"receipt_id"`
	POSZone   string     `json:"pos_zone"`
	Group     int        `json:"group"`
}

// LoadPayments reads payment-terminal JSONL files and returns the
// normalized payment events sorted by receive time. The zone name comes
// from the record itself or, failing that, the kiosk mapping; records
// resolving to no zone are kept and later counted as unmatched. Records
// without a receipt id get an opaque generated one.
func LoadPayments(paths []string, zones *config.ZoneTable) ([]event.Event, int, error) {
	var events []event.Event
	skipped := 0

	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, skipped, fmt.Errorf("open payment log %s: %w", path, err)
		}
		sc := bufio.NewScanner(f)
		for sc.Scan() {
			line := sc.Bytes()
			if len(line) == 0 {
				continue
			}
			ev, ok := parsePayment(line, zones)
			if !ok {
				skipped++
				metrics.LinesSkipped.WithLabelValues("payment").Inc()
				continue
			}
			events = append(events, ev)
		}
		err = sc.Err()
		f.Close()
		if err != nil {
			return nil, skipped, fmt.Errorf("read payment log %s: %w", path, err)
		}
	}

	sort.SliceStable(events, func(i, j int) bool { return events[i].TS < events[j].TS })
	return events, skipped, nil
}

func parsePayment(line []byte, zones *config.ZoneTable) (event.Event, bool) {
	var rec paymentRecord
	if err := json.Unmarshal(line, &rec); err != nil {
		return event.Event{}, false
	}
	if rec.TSRecv == "" || rec.Fields == nil {
		return event.Event{}, false
	}
	ms, err := parseTS(rec.TSRecv)
	if err != nil {
		return event.Event{}, false
	}

	kiosk := rec.Fields.KioskIP
	if kiosk == "" {
		kiosk = "unknown"
	}
	zoneName := rec.Fields.POSZone
	if zoneName == "" {
		zoneName, _ = zones.KioskZone(kiosk)
	}
	receipt := string(rec.Fields.ReceiptID)
	if receipt == "" {
		receipt = uuid.NewString()
	}
	group := rec.Fields.Group
	if group < 1 {
		group = 1
	}

	return event.Event{
		TS:     ms,
		RecvTS: ms,
		Kind:   event.KindPayment,
		Payment: &event.Payment{
			ReceiptID: receipt,
			Kiosk:     kiosk,
			ZoneName:  zoneName,
			GroupSize: group,
		},
	}, true
}
