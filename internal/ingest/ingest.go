// Package ingest parses the newline-delimited JSON log formats produced
// by the gateway: raw sensor records, payment-terminal records, and
// per-person journey exports. Malformed lines are counted and skipped,
// never fatal; only a missing file is an error.
package ingest

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// parseTS converts an ISO8601 timestamp to epoch milliseconds.
func parseTS(ts string) (int64, error) {
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return 0, fmt.Errorf("parse timestamp %q: %w", ts, err)
	}
	return t.UnixMilli(), nil
}

// ParseTimeArg accepts either epoch milliseconds or an ISO8601 string,
// for CLI time arguments.
func ParseTimeArg(value string) (int64, error) {
	if ms, err := strconv.ParseInt(value, 10, 64); err == nil {
		return ms, nil
	}
	return parseTS(value)
}

// flexString decodes a JSON string or number into a string, for fields
// that appear as either across log producers.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}
