// Package config loads the zone/kiosk lookup document and the matching
// thresholds from a YAML file.
package config

import (
	"fmt"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Loader reads the YAML config file and watches it for changes.
type Loader struct {
	path     string
	mu       sync.RWMutex
	current  *Config
	onChange []func(*Config)
}

// NewLoader creates a Loader and performs the initial load. A missing or
// unreadable config file is fatal and reported with its path.
func NewLoader(path string) (*Loader, error) {
	l := &Loader{path: path}
	cfg, err := l.load()
	if err != nil {
		return nil, err
	}
	l.current = cfg
	return l, nil
}

// Config returns the current (latest) configuration.
func (l *Loader) Config() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// OnChange registers a callback invoked whenever the config reloads.
func (l *Loader) OnChange(fn func(*Config)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = append(l.onChange, fn)
}

// Watch starts a background goroutine that hot-reloads the config on
// file changes. Call the returned stop function to clean up.
func (l *Loader) Watch() (stop func(), err error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config watcher: %w", err)
	}
	if err := w.Add(l.path); err != nil {
		w.Close()
		return nil, fmt.Errorf("config watcher add %s: %w", l.path, err)
	}

	done := make(chan struct{})
	go func() {
		defer w.Close()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
					if _, err := l.Reload(); err != nil {
						// Keep the old config on a bad reload.
						continue
					}
				}
			case <-w.Errors:
				// Ignore watcher errors.
			case <-done:
				return
			}
		}
	}()

	return func() { close(done) }, nil
}

// Reload forces an immediate re-read of the config file.
func (l *Loader) Reload() (*Config, error) {
	cfg, err := l.load()
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.current = cfg
	callbacks := make([]func(*Config), len(l.onChange))
	copy(callbacks, l.onChange)
	l.mu.Unlock()
	for _, fn := range callbacks {
		fn(cfg)
	}
	return cfg, nil
}

func (l *Loader) load() (*Config, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", l.path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", l.path, err)
	}
	applyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", l.path, err)
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Matching.ExitGraceMS == 0 {
		cfg.Matching.ExitGraceMS = 2500
	}
	if cfg.Matching.LateGraceMS == 0 {
		cfg.Matching.LateGraceMS = 3000
	}
	if cfg.Matching.LookbackMS == 0 {
		cfg.Matching.LookbackMS = 60_000
	}
	if cfg.Matching.FlickerMergeS == 0 {
		cfg.Matching.FlickerMergeS = 10
	}
	if cfg.Grouping.MinDwellMS == 0 {
		cfg.Grouping.MinDwellMS = 7000
	}
	if cfg.Grouping.EntrySpreadS == 0 {
		cfg.Grouping.EntrySpreadS = 10
	}
	if cfg.Grouping.OtherZoneWindowS == 0 {
		cfg.Grouping.OtherZoneWindowS = 30
	}
	if cfg.Grouping.WindowAlignment == "" {
		cfg.Grouping.WindowAlignment = "trailing"
	}
}
