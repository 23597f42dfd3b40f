package config

import (
	"fmt"
	"strings"
)

// Validate checks the config for:
//   - POS zone ids that have no name entry
//   - non-positive thresholds
//   - an unknown window_alignment value
func Validate(cfg *Config) error {
	var errs []string

	for _, id := range cfg.Zones.POSZones {
		if _, ok := cfg.Zones.Names[id]; !ok {
			errs = append(errs, fmt.Sprintf("zones.pos_zones: id %d has no entry in zones.names", id))
		}
	}
	for ip, name := range cfg.Kiosks.IPToZone {
		if name == "" {
			errs = append(errs, fmt.Sprintf("kiosks.ip_to_zone[%s]: zone name must not be empty", ip))
		}
	}

	if cfg.Matching.ExitGraceMS < 0 {
		errs = append(errs, "matching.exit_grace_ms must not be negative")
	}
	if cfg.Matching.LateGraceMS < 0 {
		errs = append(errs, "matching.late_grace_ms must not be negative")
	}
	if cfg.Matching.LookbackMS <= 0 {
		errs = append(errs, "matching.lookback_ms must be positive")
	}
	if cfg.Matching.FlickerMergeS < 0 {
		errs = append(errs, "matching.flicker_merge_s must not be negative")
	}

	if cfg.Grouping.MinDwellMS < 0 {
		errs = append(errs, "grouping.min_dwell_ms must not be negative")
	}
	if cfg.Grouping.EntrySpreadS < 0 {
		errs = append(errs, "grouping.entry_spread_s must not be negative")
	}
	if cfg.Grouping.OtherZoneWindowS < 0 {
		errs = append(errs, "grouping.other_zone_window_s must not be negative")
	}
	switch cfg.Grouping.WindowAlignment {
	case "trailing", "centered":
	default:
		errs = append(errs, fmt.Sprintf("grouping.window_alignment: unknown value %q (want trailing or centered)", cfg.Grouping.WindowAlignment))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
