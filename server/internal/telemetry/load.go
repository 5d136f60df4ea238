package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned by Load for file extensions it cannot read.
var ErrUnsupportedFormat = errors.New("telemetry: unsupported dataset format")

// Load reads every record from the file at path and returns a ready Dataset.
// The format is chosen by extension: ".json" or ".parquet".
//
// Loading is all-or-nothing. On any error Load returns a Failed dataset
// carrying the error together with the error itself, so callers can log the
// failure and still serve the degraded Dataset.
func Load(path string) (*Dataset, error) {
	records, err := readRecords(path)
	if err != nil {
		err = fmt.Errorf("telemetry: load %q: %w", path, err)
		return Failed(path, err), err
	}
	ds := New(path, records)
	if ds.Err() != nil {
		return ds, fmt.Errorf("telemetry: load %q: %w", path, ds.Err())
	}
	return ds, nil
}

func readRecords(path string) ([]Record, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return DecodeJSON(f)
	case ".parquet":
		return readParquet(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// jsonRecord mirrors Record with pointer fields so missing keys are detectable.
type jsonRecord struct {
	Region    *string  `json:"region"`
	LatencyMs *float64 `json:"latency_ms"`
	UptimePct *float64 `json:"uptime_pct"`
}

// DecodeJSON reads a JSON array of {region, latency_ms, uptime_pct} objects
// from r. Every field is required and validated; trailing data after the
// array is an error.
func DecodeJSON(r io.Reader) ([]Record, error) {
	dec := json.NewDecoder(r)
	var raw []jsonRecord
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("decode json: unexpected data after top-level array")
	}

	out := make([]Record, 0, len(raw))
	for i, jr := range raw {
		if jr.Region == nil || jr.LatencyMs == nil || jr.UptimePct == nil {
			return nil, fmt.Errorf("row %d: region, latency_ms and uptime_pct are required", i)
		}
		rec := Record{Region: *jr.Region, LatencyMs: *jr.LatencyMs, UptimePct: *jr.UptimePct}
		if err := validate(rec); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// validate checks the per-record invariants shared by every source format.
func validate(r Record) error {
	if r.Region == "" {
		return errors.New("region must not be empty")
	}
	if math.IsNaN(r.LatencyMs) || math.IsInf(r.LatencyMs, 0) || r.LatencyMs < 0 {
		return fmt.Errorf("latency_ms %v must be a finite non-negative number", r.LatencyMs)
	}
	if math.IsNaN(r.UptimePct) || math.IsInf(r.UptimePct, 0) {
		return fmt.Errorf("uptime_pct %v must be a finite number", r.UptimePct)
	}
	return nil
}
