package retro_test

import (
	"reflect"
	"strings"
	"testing"

	"zonematch/internal/event"
	"zonematch/internal/retro"
)

func testParams() retro.Params {
	return retro.Params{
		LateGraceMS: 3000,
		ExitGraceMS: 2500,
		LookbackMS:  60_000,
		MergeGapMS:  10_000,
	}
}

func TestMatcherLateDataAddsCandidate(t *testing.T) {
	events := []event.Event{
		sensorEv(event.KindZoneEntry, 1, 4, 1000, 1000),
		// Track 2 entered before the payment but the record arrived
		// half a second after it.
		sensorEv(event.KindZoneEntry, 2, 4, 5000, 10_500),
	}
	m := retro.NewMatcher(events, testParams())

	cmp := m.Compare(4, 10_000)
	if !reflect.DeepEqual(cmp.Initial, []event.TrackID{1}) {
		t.Errorf("Initial = %v, want [1]", cmp.Initial)
	}
	if !reflect.DeepEqual(cmp.Corrected, []event.TrackID{1, 2}) {
		t.Errorf("Corrected = %v, want [1 2]", cmp.Corrected)
	}
	if !reflect.DeepEqual(cmp.Added, []event.TrackID{2}) {
		t.Errorf("Added = %v, want [2]", cmp.Added)
	}
	if len(cmp.Removed) != 0 {
		t.Errorf("Removed = %v, want empty", cmp.Removed)
	}
	if !cmp.Changed() {
		t.Error("Changed() = false, want true")
	}
}

func TestMatcherStableWhenNothingLate(t *testing.T) {
	events := []event.Event{
		sensorEv(event.KindZoneEntry, 1, 4, 1000, 1000),
		sensorEv(event.KindZoneExit, 1, 4, 9000, 9000),
	}
	m := retro.NewMatcher(events, testParams())

	cmp := m.Compare(4, 10_000)
	if cmp.Changed() {
		t.Errorf("Changed() = true for fully timely data: %+v", cmp)
	}
	if !reflect.DeepEqual(cmp.Initial, cmp.Corrected) {
		t.Errorf("Initial %v != Corrected %v", cmp.Initial, cmp.Corrected)
	}
}

func TestMatcherAscendingPayments(t *testing.T) {
	events := []event.Event{
		sensorEv(event.KindZoneEntry, 1, 4, 1000, 1000),
		sensorEv(event.KindZoneEntry, 2, 4, 20_000, 20_000),
	}
	m := retro.NewMatcher(events, testParams())

	first := m.Compare(4, 5000)
	if !reflect.DeepEqual(first.Initial, []event.TrackID{1}) {
		t.Errorf("first Initial = %v, want [1]", first.Initial)
	}
	second := m.Compare(4, 25_000)
	if !reflect.DeepEqual(second.Initial, []event.TrackID{1, 2}) {
		t.Errorf("second Initial = %v, want [1 2]", second.Initial)
	}
}

func TestLateEntries(t *testing.T) {
	events := []event.Event{
		sensorEv(event.KindZoneEntry, 1, 4, 1000, 1000),
		sensorEv(event.KindZoneEntry, 2, 4, 9500, 10_500),  // late by recv
		sensorEv(event.KindZoneEntry, 3, 4, 11_000, 11_000), // late by event time
		sensorEv(event.KindZoneEntry, 4, 4, 20_000, 20_000), // outside grace
		sensorEv(event.KindZoneEntry, 5, 5, 10_500, 10_500), // other zone
	}
	m := retro.NewMatcher(events, testParams())

	late := m.LateEntries(4, 10_000)
	if len(late) != 2 {
		t.Fatalf("got %d late entries, want 2: %+v", len(late), late)
	}
	if late[0].Track != 2 || !late[0].LateByRecv {
		t.Errorf("late[0] = %+v, want track 2 late by recv", late[0])
	}
	if late[1].Track != 3 || !late[1].LateByEvent {
		t.Errorf("late[1] = %+v, want track 3 late by event", late[1])
	}
}

func TestSummary(t *testing.T) {
	s := retro.NewSummary()
	s.Record(retro.Comparison{
		Initial:   nil,
		Corrected: []event.TrackID{2},
		Added:     []event.TrackID{2},
	})
	s.Record(retro.Comparison{
		Initial:   []event.TrackID{1},
		Corrected: []event.TrackID{1},
	})

	if s.Payments != 2 || s.Changed != 1 {
		t.Errorf("Payments = %d, Changed = %d", s.Payments, s.Changed)
	}
	if s.InitialBuckets["person_0"] != 1 || s.InitialBuckets["person_1"] != 1 {
		t.Errorf("InitialBuckets = %v", s.InitialBuckets)
	}
	if s.CorrectedBuckets["person_1"] != 2 {
		t.Errorf("CorrectedBuckets = %v", s.CorrectedBuckets)
	}

	var b strings.Builder
	s.WriteReport(&b, 3000)
	out := b.String()
	for _, want := range []string{"payments: 2", "late_grace_ms: 3000", "candidates_changed: 1"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}
