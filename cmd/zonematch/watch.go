package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"zonematch/internal/config"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-run the replay whenever the input logs change and serve metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		sensorPath, _ := cmd.Flags().GetString("sensor")
		paymentPaths, _ := cmd.Flags().GetStringSlice("payments")
		listen, _ := cmd.Flags().GetString("listen")
		ignoreFirst, _ := cmd.Flags().GetBool("ignore-first-payment")

		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		loader.OnChange(func(c *config.Config) {
			cfg = c
			slog.Info("config reloaded", "path", cfgPath)
		})
		stopCfg, err := loader.Watch()
		if err != nil {
			return err
		}
		defer stopCfg()

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return err
		}
		defer watcher.Close()

		// Watch the parent directories: log files are typically
		// replaced by rotation rather than written in place.
		dirs := map[string]struct{}{filepath.Dir(sensorPath): {}}
		for _, p := range paymentPaths {
			dirs[filepath.Dir(p)] = struct{}{}
		}
		for dir := range dirs {
			if err := watcher.Add(dir); err != nil {
				return err
			}
		}

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ok\n"))
		})
		srv := &http.Server{Addr: listen, Handler: mux}
		go func() {
			slog.Info("metrics server listening", "addr", listen)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("metrics server failed", "error", err)
			}
		}()

		watched := make(map[string]struct{}, 1+len(paymentPaths))
		watched[filepath.Clean(sensorPath)] = struct{}{}
		for _, p := range paymentPaths {
			watched[filepath.Clean(p)] = struct{}{}
		}

		rerun := func() {
			stats, err := runReplay(sensorPath, paymentPaths, cfg.Matching.ExitGraceMS, ignoreFirst, "")
			if err != nil {
				slog.Error("replay failed", "error", err)
				return
			}
			stats.WriteReport(os.Stdout, sensorPath, cfg.Matching.ExitGraceMS)
		}
		rerun()

		// Debounce bursts of writes into one rerun.
		var timer *time.Timer
		pending := make(chan struct{}, 1)
		for {
			select {
			case <-ctx.Done():
				slog.Info("shutting down")
				shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer shutCancel()
				return srv.Shutdown(shutCtx)
			case ev, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if _, hit := watched[filepath.Clean(ev.Name)]; !hit {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(500*time.Millisecond, func() {
					select {
					case pending <- struct{}{}:
					default:
					}
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				slog.Warn("watcher error", "error", err)
			case <-pending:
				slog.Info("input changed, rerunning replay")
				rerun()
			}
		}
	},
}

func init() {
	watchCmd.Flags().String("sensor", "", "sensor JSONL log path (required)")
	watchCmd.Flags().StringSlice("payments", nil, "payment JSONL log paths (required, repeatable)")
	watchCmd.Flags().String("listen", ":9190", "metrics/health listen address")
	watchCmd.Flags().Bool("ignore-first-payment", true, "skip the first payment (startup artifact)")
	watchCmd.MarkFlagRequired("sensor")
	watchCmd.MarkFlagRequired("payments")
}
