package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"zonematch/internal/ingest"
	"zonematch/internal/retro"
)

var whoCmd = &cobra.Command{
	Use:   "who",
	Short: "List the tracks whose sessions cover a zone at a point in time",
	RunE: func(cmd *cobra.Command, args []string) error {
		sensorPath, _ := cmd.Flags().GetString("sensor")
		zoneName, _ := cmd.Flags().GetString("zone")
		atArg, _ := cmd.Flags().GetString("at")
		graceArg, _ := cmd.Flags().GetInt64("grace-ms")

		zones := cfg.Table()
		zone, ok := zones.ID(zoneName)
		if !ok {
			return fmt.Errorf("unknown zone %q", zoneName)
		}
		at, err := ingest.ParseTimeArg(atArg)
		if err != nil {
			return fmt.Errorf("parse --at: %w", err)
		}

		events, _, err := ingest.ReadSensorAll(sensorPath)
		if err != nil {
			return err
		}

		graceMS := cfg.Matching.ExitGraceMS
		if cmd.Flags().Changed("grace-ms") {
			graceMS = graceArg
		}
		mergeGapMS := int64(cfg.Matching.FlickerMergeS) * 1000

		ix := retro.NewCutoffIndex(events, mergeGapMS)
		ix.AdvanceTo(at + cfg.Matching.LateGraceMS)

		candidates := ix.CandidatesAt(zone, at, cfg.Matching.LookbackMS, graceMS)
		fmt.Fprintf(os.Stdout, "zone %s at %d: %d candidate(s)\n", zoneName, at, len(candidates))
		for _, track := range candidates {
			fmt.Fprintf(os.Stdout, "  %s\n", track)
			for _, s := range ix.Sessions(track) {
				if s.Zone != zone {
					continue
				}
				if s.Closed {
					fmt.Fprintf(os.Stdout, "    [%d .. %d] dwell %dms\n", s.Start, s.End, s.End-s.Start)
				} else {
					fmt.Fprintf(os.Stdout, "    [%d .. open]\n", s.Start)
				}
			}
		}
		return nil
	},
}

func init() {
	whoCmd.Flags().String("sensor", "", "sensor JSONL log path (required)")
	whoCmd.Flags().String("zone", "", "zone name (required)")
	whoCmd.Flags().String("at", "", "query time, epoch ms or RFC3339 (required)")
	whoCmd.Flags().Int64("grace-ms", 0, "override exit grace window")
	whoCmd.MarkFlagRequired("sensor")
	whoCmd.MarkFlagRequired("zone")
	whoCmd.MarkFlagRequired("at")
}
