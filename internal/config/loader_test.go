package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "zones.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const minimalConfig = `
zones:
  names:
    4: checkout_1
    5: checkout_2
  pos_zones: [4, 5]
`

func TestLoaderDefaults(t *testing.T) {
	l, err := NewLoader(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatal(err)
	}
	cfg := l.Config()

	if cfg.Matching.ExitGraceMS != 2500 {
		t.Errorf("ExitGraceMS = %d, want 2500", cfg.Matching.ExitGraceMS)
	}
	if cfg.Matching.LateGraceMS != 3000 {
		t.Errorf("LateGraceMS = %d, want 3000", cfg.Matching.LateGraceMS)
	}
	if cfg.Matching.LookbackMS != 60_000 {
		t.Errorf("LookbackMS = %d, want 60000", cfg.Matching.LookbackMS)
	}
	if cfg.Matching.FlickerMergeS != 10 {
		t.Errorf("FlickerMergeS = %d, want 10", cfg.Matching.FlickerMergeS)
	}
	if cfg.Grouping.MinDwellMS != 7000 {
		t.Errorf("MinDwellMS = %d, want 7000", cfg.Grouping.MinDwellMS)
	}
	if cfg.Grouping.EntrySpreadS != 10 {
		t.Errorf("EntrySpreadS = %d, want 10", cfg.Grouping.EntrySpreadS)
	}
	if cfg.Grouping.OtherZoneWindowS != 30 {
		t.Errorf("OtherZoneWindowS = %d, want 30", cfg.Grouping.OtherZoneWindowS)
	}
	if cfg.Grouping.WindowAlignment != "trailing" {
		t.Errorf("WindowAlignment = %q, want trailing", cfg.Grouping.WindowAlignment)
	}
}

func TestLoaderExplicitValues(t *testing.T) {
	body := minimalConfig + `
matching:
  exit_grace_ms: 1500
grouping:
  window_alignment: centered
`
	l, err := NewLoader(writeConfig(t, body))
	if err != nil {
		t.Fatal(err)
	}
	cfg := l.Config()
	if cfg.Matching.ExitGraceMS != 1500 {
		t.Errorf("ExitGraceMS = %d, want 1500", cfg.Matching.ExitGraceMS)
	}
	if cfg.Grouping.WindowAlignment != "centered" {
		t.Errorf("WindowAlignment = %q, want centered", cfg.Grouping.WindowAlignment)
	}
}

func TestLoaderErrors(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		wantSub string
	}{
		{
			name: "pos zone without name",
			body: `
zones:
  names:
    4: checkout_1
  pos_zones: [4, 9]
`,
			wantSub: "id 9 has no entry",
		},
		{
			name:    "bad alignment",
			body:    minimalConfig + "grouping:\n  window_alignment: sideways\n",
			wantSub: "window_alignment",
		},
		{
			name:    "negative grace",
			body:    minimalConfig + "matching:\n  exit_grace_ms: -1\n",
			wantSub: "exit_grace_ms",
		},
		{
			name:    "not yaml",
			body:    "{{{{",
			wantSub: "parse config",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewLoader(writeConfig(t, tc.body))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.wantSub) {
				t.Errorf("error %q does not mention %q", err, tc.wantSub)
			}
		})
	}
}

func TestLoaderMissingFile(t *testing.T) {
	_, err := NewLoader(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "absent.yaml") {
		t.Errorf("error should name the path: %v", err)
	}
}

func TestLoaderReloadNotifies(t *testing.T) {
	path := writeConfig(t, minimalConfig)
	l, err := NewLoader(path)
	if err != nil {
		t.Fatal(err)
	}

	var seen *Config
	l.OnChange(func(c *Config) { seen = c })

	updated := minimalConfig + "matching:\n  exit_grace_ms: 9999\n"
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Reload(); err != nil {
		t.Fatal(err)
	}
	if seen == nil {
		t.Fatal("OnChange callback not invoked")
	}
	if seen.Matching.ExitGraceMS != 9999 {
		t.Errorf("reloaded ExitGraceMS = %d, want 9999", seen.Matching.ExitGraceMS)
	}
	if l.Config().Matching.ExitGraceMS != 9999 {
		t.Error("Config() does not reflect the reload")
	}
}

func TestZoneTable(t *testing.T) {
	cfg := &Config{}
	cfg.Zones.Names = map[int]string{4: "checkout_1"}
	cfg.Zones.POSZones = []int{4}
	cfg.Kiosks.IPToZone = map[string]string{"10.0.40.11": "checkout_1"}
	table := cfg.Table()

	if got := table.Name(4); got != "checkout_1" {
		t.Errorf("Name(4) = %q", got)
	}
	if got := table.Name(99); got != "zone_99" {
		t.Errorf("Name(99) = %q, want zone_99", got)
	}
	if id, ok := table.ID("checkout_1"); !ok || id != 4 {
		t.Errorf("ID(checkout_1) = %d, %v", id, ok)
	}
	if _, ok := table.ID("nope"); ok {
		t.Error("ID(nope) should not resolve")
	}
	if !table.IsPOS(4) || table.IsPOS(99) {
		t.Error("IsPOS misclassifies")
	}
	if zone, ok := table.KioskZone("10.0.40.11"); !ok || zone != "checkout_1" {
		t.Errorf("KioskZone = %q, %v", zone, ok)
	}
}

func TestValidateAppliedDefaultsPass(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}
