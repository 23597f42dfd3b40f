package groups_test

import (
	"testing"

	"zonematch/internal/config"
	"zonematch/internal/groups"
	"zonematch/internal/ingest"
	"zonematch/internal/session"
)

func testZones(t *testing.T) *config.ZoneTable {
	t.Helper()
	cfg := &config.Config{}
	cfg.Zones.Names = map[int]string{1: "entrance", 4: "checkout_1", 5: "checkout_2"}
	cfg.Zones.POSZones = []int{4, 5}
	return cfg.Table()
}

func testParams() groups.Params {
	return groups.Params{
		MinDwellMS:        7000,
		EntrySpreadMS:     10_000,
		OtherZoneWindowMS: 30_000,
		OtherZoneMinMS:    0,
		Alignment:         session.AlignTrailing,
	}
}

func journey(id string, events ...ingest.JourneyEvent) ingest.Journey {
	return ingest.Journey{PersonID: id, Events: events}
}

func entryAt(zone string, ts int64) ingest.JourneyEvent {
	return ingest.JourneyEvent{Type: ingest.JourneyZoneEntry, TS: ts, Zone: zone}
}

func exitAt(zone string, ts int64) ingest.JourneyEvent {
	return ingest.JourneyEvent{Type: ingest.JourneyZoneExit, TS: ts, Zone: zone}
}

// Two people enter the checkout together, dwell well past the minimum,
// and one payment covers both: every stage passes.
func TestEvaluateGenuineGroup(t *testing.T) {
	zones := testZones(t)
	journeys := []ingest.Journey{
		journey("p1", entryAt("checkout_1", 0), exitAt("checkout_1", 20_000)),
		journey("p2", entryAt("checkout_1", 2000), exitAt("checkout_1", 18_000)),
	}
	sets := groups.BuildSessions(journeys, zones, 10_000)
	ev := groups.NewEvaluator(zones, testParams())

	key := groups.PaymentKey{TS: 15_000, Zone: "checkout_1", Kiosk: "k1"}
	c := ev.Evaluate(key, []string{"p1", "p2"}, sets)

	if !c.StageB || !c.StageC || !c.StageD || !c.StageE {
		t.Fatalf("all stages should pass: %+v", c)
	}
	if c.EntrySpreadRawMS != 2000 {
		t.Errorf("EntrySpreadRawMS = %d, want 2000", c.EntrySpreadRawMS)
	}
	if len(c.Raw) != 2 || !c.Raw[0].Qualified || !c.Raw[1].Qualified {
		t.Errorf("raw evidence = %+v", c.Raw)
	}
	if c.Raw[0].DwellMS != 15_000 || c.Raw[1].DwellMS != 13_000 {
		t.Errorf("dwells = %d, %d, want 15000, 13000", c.Raw[0].DwellMS, c.Raw[1].DwellMS)
	}
}

func TestEvaluateInsufficientDwell(t *testing.T) {
	zones := testZones(t)
	journeys := []ingest.Journey{
		journey("p1", entryAt("checkout_1", 0), exitAt("checkout_1", 20_000)),
		// p2 shows up seconds before the payment.
		journey("p2", entryAt("checkout_1", 12_000), exitAt("checkout_1", 18_000)),
	}
	sets := groups.BuildSessions(journeys, zones, 10_000)
	ev := groups.NewEvaluator(zones, testParams())

	key := groups.PaymentKey{TS: 15_000, Zone: "checkout_1", Kiosk: "k1"}
	c := ev.Evaluate(key, []string{"p1", "p2"}, sets)

	if c.StageB {
		t.Errorf("only one member qualifies, StageB must fail: %+v", c)
	}
}

func TestEvaluateEntrySpreadTooWide(t *testing.T) {
	zones := testZones(t)
	journeys := []ingest.Journey{
		journey("p1", entryAt("checkout_1", 0), exitAt("checkout_1", 40_000)),
		journey("p2", entryAt("checkout_1", 25_000), exitAt("checkout_1", 40_000)),
	}
	sets := groups.BuildSessions(journeys, zones, 10_000)
	ev := groups.NewEvaluator(zones, testParams())

	key := groups.PaymentKey{TS: 35_000, Zone: "checkout_1", Kiosk: "k1"}
	c := ev.Evaluate(key, []string{"p1", "p2"}, sets)

	if !c.StageB {
		t.Fatalf("both dwell long enough, StageB must pass: %+v", c)
	}
	if c.StageC || c.StageD || c.StageE {
		t.Errorf("spread 25000 > 10000: C, D, E must all fail: %+v", c)
	}
}

func TestEvaluateOtherZoneActivity(t *testing.T) {
	zones := testZones(t)
	journeys := []ingest.Journey{
		journey("p1", entryAt("checkout_1", 0), exitAt("checkout_1", 20_000)),
		journey("p2",
			entryAt("checkout_1", 1000),
			// p2 pops over to the other checkout mid-visit.
			entryAt("checkout_2", 9500),
			exitAt("checkout_2", 10_500),
			exitAt("checkout_1", 20_000),
		),
	}
	sets := groups.BuildSessions(journeys, zones, 10_000)
	ev := groups.NewEvaluator(zones, testParams())

	key := groups.PaymentKey{TS: 15_000, Zone: "checkout_1", Kiosk: "k1"}
	c := ev.Evaluate(key, []string{"p1", "p2"}, sets)

	if !c.StageB || !c.StageC {
		t.Fatalf("presence and spread are fine, B and C must pass: %+v", c)
	}
	if c.StageD || c.StageE {
		t.Errorf("other-zone activity must fail D and E: %+v", c)
	}
}

func TestEvaluateUnknownZone(t *testing.T) {
	zones := testZones(t)
	sets := groups.BuildSessions(nil, zones, 10_000)
	ev := groups.NewEvaluator(zones, testParams())

	key := groups.PaymentKey{TS: 1000, Zone: "nowhere", Kiosk: "k1"}
	c := ev.Evaluate(key, []string{"p1", "p2"}, sets)
	if c.StageB || c.StageC || c.StageD || c.StageE {
		t.Errorf("unknown zone must qualify nothing: %+v", c)
	}
}

// A later stage passing implies every earlier stage passed.
func TestEvaluateStageMonotonicity(t *testing.T) {
	zones := testZones(t)
	journeys := []ingest.Journey{
		journey("p1", entryAt("checkout_1", 0), exitAt("checkout_1", 20_000)),
		journey("p2", entryAt("checkout_1", 2000), exitAt("checkout_1", 18_000)),
		journey("p3", entryAt("checkout_1", 14_000), exitAt("checkout_1", 18_000)),
	}
	sets := groups.BuildSessions(journeys, zones, 10_000)
	ev := groups.NewEvaluator(zones, testParams())

	keys := []groups.PaymentKey{
		{TS: 15_000, Zone: "checkout_1", Kiosk: "k1"},
		{TS: 15_000, Zone: "nowhere", Kiosk: "k1"},
		{TS: 3000, Zone: "checkout_1", Kiosk: "k1"},
	}
	members := [][]string{
		{"p1", "p2"},
		{"p1", "p2"},
		{"p1", "p2", "p3"},
	}
	for i, key := range keys {
		c := ev.Evaluate(key, members[i], sets)
		if c.StageE && !c.StageD || c.StageD && !c.StageC || c.StageC && !c.StageB {
			t.Errorf("stage order violated for key %d: %+v", i, c)
		}
	}
}

func TestExtractPayments(t *testing.T) {
	pay := func(ts int64, zone, kiosk string, group int) ingest.JourneyEvent {
		return ingest.JourneyEvent{Type: ingest.JourneyPayment, TS: ts, Zone: zone, Kiosk: kiosk, GroupSize: group}
	}
	journeys := []ingest.Journey{
		journey("p2", pay(500, "checkout_1", "k1", 2)),
		journey("p1", pay(500, "checkout_1", "k1", 0), pay(900, "checkout_2", "k2", 0)),
	}
	got := groups.ExtractPayments(journeys)
	if len(got) != 2 {
		t.Fatalf("got %d payments, want 2: %+v", len(got), got)
	}
	first := got[0]
	if first.Key.TS != 500 || len(first.Members) != 2 {
		t.Errorf("first = %+v, want shared payment at 500", first)
	}
	if first.Members[0] != "p1" || first.Members[1] != "p2" {
		t.Errorf("members = %v, want sorted [p1 p2]", first.Members)
	}
	if first.GroupSize != 2 {
		t.Errorf("GroupSize = %d, want the max reported 2", first.GroupSize)
	}
	if got[1].Key.Zone != "checkout_2" || len(got[1].Members) != 1 {
		t.Errorf("second = %+v", got[1])
	}
}

func TestBuildSessionsFiltersNonPOS(t *testing.T) {
	zones := testZones(t)
	journeys := []ingest.Journey{
		journey("p1",
			entryAt("entrance", 0),
			exitAt("entrance", 500),
			entryAt("checkout_1", 1000),
			exitAt("checkout_1", 9000),
			entryAt("no_such_zone", 2000),
		),
	}
	sets := groups.BuildSessions(journeys, zones, 10_000)
	raw := sets.Raw["p1"]
	if len(raw) != 1 {
		t.Fatalf("raw sessions = %+v, want only the checkout visit", raw)
	}
	if raw[0].Start != 1000 || raw[0].End != 9000 {
		t.Errorf("session = %+v", raw[0])
	}
}
