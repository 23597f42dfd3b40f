package groups

import (
	"zonematch/internal/config"
	"zonematch/internal/event"
	"zonematch/internal/metrics"
	"zonematch/internal/session"
)

// Params are the qualification thresholds. All durations are in
// milliseconds; Alignment picks the other-zone window variant.
type Params struct {
	MinDwellMS        int64
	EntrySpreadMS     int64
	OtherZoneWindowMS int64
	OtherZoneMinMS    int64
	Alignment         session.Alignment
}

// MemberEvidence is the audit trail for one member of a shared payment.
type MemberEvidence struct {
	PersonID        string `json:"person_id"`
	Present         bool   `json:"present"`
	EntryTS         int64  `json:"entry_ms,omitempty"`
	DwellMS         int64  `json:"dwell_ms,omitempty"`
	Qualified       bool   `json:"qualified"`
	OtherZoneMS     int64  `json:"other_zone_ms"`
	OtherZoneActive bool   `json:"other_zone_active"`
}

// Candidate is the staged verdict for one shared payment. Stage passage
// is monotonic: E implies D implies C implies B.
type Candidate struct {
	Key     PaymentKey `json:"key"`
	Members []string   `json:"members"`

	Raw    []MemberEvidence `json:"raw_evidence"`
	Merged []MemberEvidence `json:"merged_evidence"`

	EntrySpreadRawMS    int64 `json:"entry_spread_raw_ms"`
	EntrySpreadMergedMS int64 `json:"entry_spread_merged_ms"`

	// StageB: at least two members present with sufficient dwell.
	StageB bool `json:"stage_b"`
	// StageC: qualifying members entered within the spread window.
	StageC bool `json:"stage_c"`
	// StageD: no qualifying member was active elsewhere near the
	// payment, judged on raw sessions.
	StageD bool `json:"stage_d"`
	// StageE: the same focus test on flicker-merged sessions, so brief
	// sensor dropouts inside one visit do not read as other activity.
	StageE bool `json:"stage_e"`
}

// Evaluator runs the qualification pipeline for shared payments.
type Evaluator struct {
	zones  *config.ZoneTable
	params Params
}

// NewEvaluator creates an evaluator over the given zone lookup.
func NewEvaluator(zones *config.ZoneTable, params Params) *Evaluator {
	return &Evaluator{zones: zones, params: params}
}

// Evaluate scores one shared payment against its members' sessions.
// Unknown payment zones qualify nothing: every stage stays false.
func (e *Evaluator) Evaluate(key PaymentKey, members []string, sets *SessionSets) Candidate {
	c := Candidate{Key: key, Members: members}

	zone, ok := e.zones.ID(key.Zone)
	if !ok {
		return c
	}

	c.Raw = e.collectEvidence(zone, key.TS, members, sets.Raw)
	c.Merged = e.collectEvidence(zone, key.TS, members, sets.Merged)

	rawQualified := qualified(c.Raw)
	mergedQualified := qualified(c.Merged)
	c.EntrySpreadRawMS = entrySpread(rawQualified)
	c.EntrySpreadMergedMS = entrySpread(mergedQualified)

	c.StageB = len(rawQualified) >= 2
	c.StageC = c.StageB && c.EntrySpreadRawMS <= e.params.EntrySpreadMS
	c.StageD = c.StageC && noneActive(rawQualified)
	c.StageE = c.StageD &&
		len(mergedQualified) >= 2 &&
		c.EntrySpreadMergedMS <= e.params.EntrySpreadMS &&
		noneActive(mergedQualified)

	for stage, pass := range map[string]bool{
		"b": c.StageB, "c": c.StageC, "d": c.StageD, "e": c.StageE,
	} {
		if pass {
			metrics.GroupStagePasses.WithLabelValues(stage).Inc()
		}
	}
	return c
}

func (e *Evaluator) collectEvidence(zone event.ZoneID, ts int64, members []string, sessions map[string][]session.Session) []MemberEvidence {
	evidence := make([]MemberEvidence, 0, len(members))
	for _, pid := range members {
		ev := MemberEvidence{PersonID: pid}
		personSessions := sessions[pid]
		if s := session.At(personSessions, zone, ts); s != nil {
			ev.Present = true
			ev.EntryTS = s.Start
			ev.DwellMS = ts - s.Start
			ev.Qualified = ev.DwellMS >= e.params.MinDwellMS
		}
		ev.OtherZoneMS = session.OtherZoneDwellMS(personSessions, zone, ts, e.params.OtherZoneWindowMS, e.params.Alignment)
		ev.OtherZoneActive = session.ActiveThreshold(ev.OtherZoneMS, e.params.OtherZoneMinMS)
		evidence = append(evidence, ev)
	}
	return evidence
}

func qualified(evidence []MemberEvidence) []MemberEvidence {
	var out []MemberEvidence
	for _, ev := range evidence {
		if ev.Qualified {
			out = append(out, ev)
		}
	}
	return out
}

// entrySpread is the gap between the earliest and latest entry among
// qualifying members, 0 when fewer than two qualify.
func entrySpread(evidence []MemberEvidence) int64 {
	if len(evidence) < 2 {
		return 0
	}
	lo, hi := evidence[0].EntryTS, evidence[0].EntryTS
	for _, ev := range evidence[1:] {
		if ev.EntryTS < lo {
			lo = ev.EntryTS
		}
		if ev.EntryTS > hi {
			hi = ev.EntryTS
		}
	}
	return hi - lo
}

func noneActive(evidence []MemberEvidence) bool {
	for _, ev := range evidence {
		if ev.OtherZoneActive {
			return false
		}
	}
	return true
}
