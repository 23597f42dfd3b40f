// Package report writes per-event analysis records as newline-delimited
// JSON for downstream inspection.
package report

import (
	"encoding/json"
	"fmt"
	"os"
)

// JSONL appends one JSON document per line to a file.
type JSONL struct {
	path  string
	f     *os.File
	enc   *json.Encoder
	count int
}

// CreateJSONL truncates/creates the output file.
func CreateJSONL(path string) (*JSONL, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output %s: %w", path, err)
	}
	return &JSONL{path: path, f: f, enc: json.NewEncoder(f)}, nil
}

// Write appends one record.
func (w *JSONL) Write(record any) error {
	if err := w.enc.Encode(record); err != nil {
		return fmt.Errorf("write %s: %w", w.path, err)
	}
	w.count++
	return nil
}

// Count returns how many records were written.
func (w *JSONL) Count() int {
	return w.count
}

// Close flushes and closes the file.
func (w *JSONL) Close() error {
	return w.f.Close()
}
