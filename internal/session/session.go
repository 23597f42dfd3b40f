// Package session turns per-person zone entry/exit events into presence
// intervals and provides the interval queries shared by the matchers.
package session

import "zonematch/internal/event"

// Session is a contiguous interval during which one person was inside
// one zone. End is only meaningful when Closed is true; an open session
// models a person last seen entering with no exit observed.
type Session struct {
	Zone   event.ZoneID `json:"zone_id"`
	Start  int64        `json:"start_ms"`
	End    int64        `json:"end_ms,omitempty"`
	Closed bool         `json:"closed"`
}

// Alignment selects how the other-zone activity window sits relative to
// the reference time. The two variants observed in production tuning
// disagree on this, so it is an explicit configuration choice.
type Alignment string

const (
	// AlignTrailing uses a window ending at the reference time,
	// matching what a causal runtime can compute.
	AlignTrailing Alignment = "trailing"
	// AlignCentered uses a window centered on the reference time.
	AlignCentered Alignment = "centered"
)

// Overlaps reports whether two intervals share any instant. An open end
// is treated as extending indefinitely.
func Overlaps(start1, end1 int64, closed1 bool, start2, end2 int64, closed2 bool) bool {
	if !closed2 {
		return !closed1 || start2 <= end1
	}
	if !closed1 {
		return end2 >= start1
	}
	return start2 <= end1 && end2 >= start1
}

// At returns the session in the given zone covering t, or nil. Open
// sessions cover every instant from their start onward.
func At(sessions []Session, zone event.ZoneID, t int64) *Session {
	for i := range sessions {
		s := &sessions[i]
		if s.Zone != zone {
			continue
		}
		if t >= s.Start && (!s.Closed || t <= s.End) {
			return s
		}
	}
	return nil
}

// OtherZoneDwellMS sums the time spent in zones other than zone inside
// the activity window around t. Window extent depends on alignment:
// trailing is [t-window, t], centered is [t-window, t+window]. Open
// sessions are clamped to the window end.
func OtherZoneDwellMS(sessions []Session, zone event.ZoneID, t, windowMS int64, align Alignment) int64 {
	windowStart := t - windowMS
	windowEnd := t
	if align == AlignCentered {
		windowEnd = t + windowMS
	}
	var total int64
	for _, s := range sessions {
		if s.Zone == zone {
			continue
		}
		end := s.End
		if !s.Closed {
			end = windowEnd
		}
		lo := max(s.Start, windowStart)
		hi := min(end, windowEnd)
		if hi > lo {
			total += hi - lo
		}
	}
	return total
}

// ActiveThreshold reports whether an other-zone dwell total counts as
// genuine activity. A non-positive minimum means any activity counts.
func ActiveThreshold(totalMS, minMS int64) bool {
	if minMS <= 0 {
		return totalMS > 0
	}
	return totalMS >= minMS
}
