package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"zonematch/internal/ingest"
	"zonematch/internal/metrics"
	"zonematch/internal/replay"
	"zonematch/internal/report"
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay sensor and payment logs causally and match payments to occupants",
	RunE: func(cmd *cobra.Command, args []string) error {
		sensorPath, _ := cmd.Flags().GetString("sensor")
		paymentPaths, _ := cmd.Flags().GetStringSlice("payments")
		jsonlPath, _ := cmd.Flags().GetString("jsonl")
		ignoreFirst, _ := cmd.Flags().GetBool("ignore-first-payment")

		graceMS := cfg.Matching.ExitGraceMS
		if cmd.Flags().Changed("exit-grace-ms") {
			graceMS, _ = cmd.Flags().GetInt64("exit-grace-ms")
		}

		runID := uuid.NewString()
		slog.Info("replay starting", "run_id", runID, "sensor", sensorPath, "exit_grace_ms", graceMS)
		metrics.ReplayRuns.Inc()

		stats, err := runReplay(sensorPath, paymentPaths, graceMS, ignoreFirst, jsonlPath)
		if err != nil {
			return err
		}

		stats.WriteReport(os.Stdout, sensorPath, graceMS)
		return nil
	},
}

func init() {
	replayCmd.Flags().String("sensor", "", "sensor JSONL log path (required)")
	replayCmd.Flags().StringSlice("payments", nil, "payment JSONL log paths (required, repeatable)")
	replayCmd.Flags().String("jsonl", "", "write per-payment match results to this JSONL file")
	replayCmd.Flags().Int64("exit-grace-ms", 0, "override the configured exit grace window")
	replayCmd.Flags().Bool("ignore-first-payment", true, "skip the first payment (startup artifact)")
	replayCmd.MarkFlagRequired("sensor")
	replayCmd.MarkFlagRequired("payments")
}

func runReplay(sensorPath string, paymentPaths []string, graceMS int64, ignoreFirst bool, jsonlPath string) (*replay.Stats, error) {
	zones := cfg.Table()

	payments, skipped, err := ingest.LoadPayments(paymentPaths, zones)
	if err != nil {
		return nil, err
	}
	if ignoreFirst && len(payments) > 0 {
		payments = payments[1:]
	}
	slog.Info("payments loaded", "count", len(payments), "skipped_lines", skipped)

	sensor, err := ingest.OpenSensor(sensorPath)
	if err != nil {
		return nil, err
	}
	defer sensor.Close()

	var out *report.JSONL
	if jsonlPath != "" {
		out, err = report.CreateJSONL(jsonlPath)
		if err != nil {
			return nil, err
		}
		defer out.Close()
	}

	r := replay.New(zones, graceMS)
	var writeErr error
	r.Run(sensor.Next, payments, func(res replay.MatchResult) {
		slog.Debug("payment evaluated",
			"receipt", res.Payment.ReceiptID,
			"zone", res.Payment.ZoneName,
			"match_type", res.MatchType,
			"candidates", res.Candidates)
		if out != nil && writeErr == nil {
			writeErr = out.Write(res)
		}
	})
	if writeErr != nil {
		return nil, writeErr
	}
	if sensor.Skipped() > 0 {
		slog.Warn("sensor lines skipped", "count", sensor.Skipped())
	}
	if out != nil {
		fmt.Fprintf(os.Stderr, "wrote %d match results to %s\n", out.Count(), jsonlPath)
	}
	return r.Stats(), nil
}
