package main

import (
	"log/slog"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"zonematch/internal/groups"
	"zonematch/internal/ingest"
	"zonematch/internal/report"
	"zonematch/internal/session"
)

var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "Evaluate shared-payment group candidates from journey logs",
	RunE: func(cmd *cobra.Command, args []string) error {
		journeyPath, _ := cmd.Flags().GetString("journeys")
		jsonlPath, _ := cmd.Flags().GetString("jsonl")

		zones := cfg.Table()

		journeys, skipped, err := ingest.LoadJourneys(journeyPath)
		if err != nil {
			return err
		}
		if skipped > 0 {
			slog.Warn("journey lines skipped", "count", skipped)
		}

		mergeGapMS := int64(cfg.Matching.FlickerMergeS) * 1000
		sets := groups.BuildSessions(journeys, zones, mergeGapMS)
		payments := groups.ExtractPayments(journeys)
		exits := groups.CollectExits(journeys)
		clusters := groups.ClusterExits(exits, cfg.Matching.ExitGraceMS)

		ev := groups.NewEvaluator(zones, groups.Params{
			MinDwellMS:        cfg.Grouping.MinDwellMS,
			EntrySpreadMS:     int64(cfg.Grouping.EntrySpreadS) * 1000,
			OtherZoneWindowMS: int64(cfg.Grouping.OtherZoneWindowS) * 1000,
			OtherZoneMinMS:    int64(cfg.Grouping.OtherZoneMinS) * 1000,
			Alignment:         session.Alignment(cfg.Grouping.WindowAlignment),
		})

		var out *report.JSONL
		if jsonlPath != "" {
			out, err = report.CreateJSONL(jsonlPath)
			if err != nil {
				return err
			}
			defer out.Close()
		}

		summary := groups.Summary{
			Journeys:       len(journeys),
			SharedPayments: len(payments),
			Exits:          len(exits),
			Clusters:       len(clusters),
		}
		for _, cluster := range clusters {
			if len(cluster) >= 2 {
				summary.ClustersGe2++
			}
			shared := groups.SharedKeys(cluster)
			if len(shared) > 0 {
				summary.ClustersShared++
			}

			keys := make([]groups.PaymentKey, 0, len(shared))
			for key := range shared {
				keys = append(keys, key)
			}
			sort.Slice(keys, func(i, j int) bool {
				if keys[i].TS != keys[j].TS {
					return keys[i].TS < keys[j].TS
				}
				if keys[i].Zone != keys[j].Zone {
					return keys[i].Zone < keys[j].Zone
				}
				return keys[i].Kiosk < keys[j].Kiosk
			})

			for _, key := range keys {
				cand := ev.Evaluate(key, shared[key], sets)
				summary.Record(cand)
				if out != nil {
					if err := out.Write(cand); err != nil {
						return err
					}
				}
			}
		}

		summary.Baseline = ev.Baseline(payments, sets)
		summary.WriteReport(os.Stdout)
		return nil
	},
}

func init() {
	groupsCmd.Flags().String("journeys", "", "journey JSONL path (required)")
	groupsCmd.Flags().String("jsonl", "", "write evaluated candidates as JSONL")
	groupsCmd.MarkFlagRequired("journeys")
}
