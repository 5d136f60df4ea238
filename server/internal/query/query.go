package query

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
)

// ErrMalformedRequest is wrapped by every error Decode returns.
var ErrMalformedRequest = errors.New("malformed request")

// Query is one request for per-region statistics.
type Query struct {
	Regions     []string
	ThresholdMs float64
}

// wireQuery is the JSON request shape. Raw fields let Decode tell absent and
// null apart from wrongly typed values.
type wireQuery struct {
	Regions     json.RawMessage `json:"regions"`
	ThresholdMs json.RawMessage `json:"threshold_ms"`
}

// Decode reads a single JSON object from r and returns the Query it
// describes. Missing or null "regions" becomes an empty list and missing or
// null "threshold_ms" becomes 0. Unknown keys are ignored. Read errors from r
// stay in the returned error's chain.
func Decode(r io.Reader) (Query, error) {
	dec := json.NewDecoder(r)

	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return Query{}, fmt.Errorf("%w: invalid JSON: %w", ErrMalformedRequest, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return Query{}, malformed("unexpected data after JSON object")
	}
	if raw = bytes.TrimSpace(raw); len(raw) == 0 || raw[0] != '{' {
		return Query{}, malformed("body must be a JSON object")
	}

	var w wireQuery
	if err := json.Unmarshal(raw, &w); err != nil {
		return Query{}, malformed("body must be a JSON object: %v", err)
	}

	q := Query{Regions: []string{}}
	if !isNull(w.Regions) {
		if err := json.Unmarshal(w.Regions, &q.Regions); err != nil {
			return Query{}, malformed("regions must be an array of strings")
		}
		if q.Regions == nil {
			q.Regions = []string{}
		}
	}
	if !isNull(w.ThresholdMs) {
		if err := json.Unmarshal(w.ThresholdMs, &q.ThresholdMs); err != nil {
			return Query{}, malformed("threshold_ms must be a number")
		}
		if math.IsInf(q.ThresholdMs, 0) {
			return Query{}, malformed("threshold_ms must be finite")
		}
	}
	return q, nil
}

// isNull reports whether raw is absent or the JSON literal null.
func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedRequest, fmt.Sprintf(format, args...))
}
