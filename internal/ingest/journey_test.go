package ingest

import (
	"encoding/json"
	"testing"
)

func TestLoadJourneys(t *testing.T) {
	path := writeLines(t,
		`{"person_id":7,"events":[`+
			`{"type":"zone_entry","ts":"2026-03-01T10:00:00Z","data":{"zone":"checkout_1"}},`+
			`{"type":"acc","ts":"2026-03-01T10:00:15Z","data":{"zone":"checkout_1","kiosk":"k1","group":2}},`+
			`{"type":"exit_cross","ts":"2026-03-01T10:00:30Z"},`+
			`{"type":"zone_exit","ts":"bad timestamp","data":{"zone":"checkout_1"}}]}`,
		`{"events":[]}`,
		`garbage`,
	)
	journeys, skipped, err := LoadJourneys(path)
	if err != nil {
		t.Fatal(err)
	}
	if skipped != 2 {
		t.Errorf("skipped = %d, want 2", skipped)
	}
	if len(journeys) != 1 {
		t.Fatalf("got %d journeys, want 1", len(journeys))
	}

	j := journeys[0]
	if j.PersonID != "7" {
		t.Errorf("PersonID = %q, want \"7\"", j.PersonID)
	}
	// The unparseable timestamp drops its event, not the journey.
	if len(j.Events) != 3 {
		t.Fatalf("got %d events, want 3: %+v", len(j.Events), j.Events)
	}
	if j.Events[0].Type != JourneyZoneEntry || j.Events[0].Zone != "checkout_1" {
		t.Errorf("first event = %+v", j.Events[0])
	}
	pay := j.Events[1]
	if pay.Type != JourneyPayment || pay.Kiosk != "k1" || pay.GroupSize != 2 {
		t.Errorf("payment event = %+v", pay)
	}
	if j.Events[2].Type != JourneyExitCross {
		t.Errorf("third event = %+v", j.Events[2])
	}
}

func TestParseTimeArg(t *testing.T) {
	cases := []struct {
		name    string
		arg     string
		want    int64
		wantErr bool
	}{
		{"epoch millis", "1700000000000", 1700000000000, false},
		{"iso", "2026-03-01T10:00:00Z", 1772359200000, false},
		{"garbage", "yesterday", 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseTimeArg(tc.arg)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.want {
				t.Errorf("ParseTimeArg(%q) = %d, want %d", tc.arg, got, tc.want)
			}
		})
	}
}

func TestFlexString(t *testing.T) {
	var target struct {
		ID flexString `json:"id"`
	}
	for _, tc := range []struct {
		in   string
		want string
	}{
		{`{"id":"abc"}`, "abc"},
		{`{"id":123}`, "123"},
		{`{"id":1.5}`, "1.5"},
	} {
		if err := json.Unmarshal([]byte(tc.in), &target); err != nil {
			t.Fatalf("%s: %v", tc.in, err)
		}
		if string(target.ID) != tc.want {
			t.Errorf("%s: got %q, want %q", tc.in, target.ID, tc.want)
		}
	}
}
