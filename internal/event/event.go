// Package event defines the canonical input model for zone-sensor and
// payment events. Both log sources are normalized into a single Event
// value so the replay and matching layers never look at wire formats.
package event

import "fmt"

// GroupIDBase is the first track id in the group-track namespace. The
// sensor assigns ids at or above 2^31 to tracks it could not separate
// into individuals.
const GroupIDBase TrackID = 1 << 31

// TrackID is a sensor-assigned identity for a tracked object. Ids below
// GroupIDBase identify individuals, ids at or above it identify groups.
type TrackID int64

// IsGroup reports whether the id belongs to the group-track namespace.
func (t TrackID) IsGroup() bool {
	return t >= GroupIDBase
}

// String renders group tracks as "G:<n>" so reports distinguish them
// from person tracks at a glance.
func (t TrackID) String() string {
	if t.IsGroup() {
		return fmt.Sprintf("G:%d", int64(t-GroupIDBase))
	}
	return fmt.Sprintf("%d", int64(t))
}

// ZoneID is a configured geometry id reported by the sensor.
type ZoneID int

// Kind discriminates the event union.
type Kind string

const (
	KindZoneEntry Kind = "zone_entry"
	KindZoneExit  Kind = "zone_exit"
	KindPayment   Kind = "payment"
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	return string(k)
}

// IsSensor reports whether the kind originates from the zone sensor.
func (k Kind) IsSensor() bool {
	return k == KindZoneEntry || k == KindZoneExit
}

// Payment carries the payment-terminal fields of a payment event.
type Payment struct {
	ReceiptID string `json:"receipt_id"`
	Kiosk     string `json:"kiosk"`
	ZoneName  string `json:"zone"`
	// GroupSize is the terminal-reported party size, 1 when absent.
	GroupSize int `json:"group_size,omitempty"`
}

// Event is one normalized event from either source.
//
// TS is the event time in epoch milliseconds: the sensor frame time for
// zone events, the receive time for payments. RecvTS is the receive time
// for both and drives the retrospective cutoff logic. Track and Zone are
// set for sensor events only; Payment is set for payment events only.
type Event struct {
	TS      int64    `json:"ts_ms"`
	RecvTS  int64    `json:"recv_ms,omitempty"`
	Kind    Kind     `json:"kind"`
	Track   TrackID  `json:"track_id,omitempty"`
	Zone    ZoneID   `json:"zone_id,omitempty"`
	Payment *Payment `json:"payment,omitempty"`
}
