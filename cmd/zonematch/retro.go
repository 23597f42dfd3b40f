package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"zonematch/internal/ingest"
	"zonematch/internal/report"
	"zonematch/internal/retro"
)

var retroCmd = &cobra.Command{
	Use:   "retro",
	Short: "Compare causal candidates against what late sensor data would have changed",
	RunE: func(cmd *cobra.Command, args []string) error {
		sensorPath, _ := cmd.Flags().GetString("sensor")
		paymentPaths, _ := cmd.Flags().GetStringSlice("payments")
		latePath, _ := cmd.Flags().GetString("late-report")
		ignoreFirst, _ := cmd.Flags().GetBool("ignore-first-payment")

		zones := cfg.Table()

		events, skipped, err := ingest.ReadSensorAll(sensorPath)
		if err != nil {
			return err
		}
		slog.Info("sensor events loaded", "count", len(events), "skipped_lines", skipped)

		payments, _, err := ingest.LoadPayments(paymentPaths, zones)
		if err != nil {
			return err
		}
		if ignoreFirst && len(payments) > 0 {
			payments = payments[1:]
		}

		var late *report.JSONL
		if latePath != "" {
			late, err = report.CreateJSONL(latePath)
			if err != nil {
				return err
			}
			defer late.Close()
		}

		matcher := retro.NewMatcher(events, retro.Params{
			LateGraceMS: cfg.Matching.LateGraceMS,
			ExitGraceMS: cfg.Matching.ExitGraceMS,
			LookbackMS:  cfg.Matching.LookbackMS,
			MergeGapMS:  int64(cfg.Matching.FlickerMergeS) * 1000,
		})

		summary := retro.NewSummary()
		for _, p := range payments {
			zone, ok := zones.ID(p.Payment.ZoneName)
			if !ok {
				continue
			}
			cmp := matcher.Compare(zone, p.TS)
			summary.Record(cmp)

			if cmp.Changed() && late != nil {
				rec := retro.LateRecord{
					ReceiptID: p.Payment.ReceiptID,
					ZoneName:  p.Payment.ZoneName,
					Kiosk:     p.Payment.Kiosk,
					PaymentMS: p.TS,
					GraceMS:   cfg.Matching.LateGraceMS,
					Initial:   cmp.Initial,
					Corrected: cmp.Corrected,
					Added:     cmp.Added,
					Removed:   cmp.Removed,
					Late:      matcher.LateEntries(zone, p.TS),
				}
				if err := late.Write(rec); err != nil {
					return err
				}
			}
		}

		summary.WriteReport(os.Stdout, cfg.Matching.LateGraceMS)
		return nil
	},
}

func init() {
	retroCmd.Flags().String("sensor", "", "sensor JSONL log path (required)")
	retroCmd.Flags().StringSlice("payments", nil, "payment JSONL log paths (required, repeatable)")
	retroCmd.Flags().String("late-report", "", "write JSONL records for payments whose candidates changed")
	retroCmd.Flags().Bool("ignore-first-payment", true, "skip the first payment (startup artifact)")
	retroCmd.MarkFlagRequired("sensor")
	retroCmd.MarkFlagRequired("payments")
}
