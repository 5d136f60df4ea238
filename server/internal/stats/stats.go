package stats

import (
	"math"
	"slices"
	"strconv"

	"github.com/obsidianstack/regionstats/server/internal/telemetry"
)

// Output precision, in decimal places.
const (
	LatencyPlaces = 2
	UptimePlaces  = 3
)

// P95 is the quantile reported as p95 latency.
const P95 = 0.95

// Summary holds the rounded statistics for one region.
type Summary struct {
	AvgLatency float64
	P95Latency float64
	AvgUptime  float64
	Breaches   int
}

// Aggregate computes the Summary of g. A breach is a record whose latency is
// strictly greater than thresholdMs. The zero Group yields the zero Summary.
func Aggregate(g telemetry.Group, thresholdMs float64) Summary {
	records := g.Records()
	n := len(records)
	if n == 0 {
		return Summary{}
	}

	latencies := make([]float64, n)
	var latencySum, uptimeSum float64
	var breaches int
	for i, r := range records {
		latencies[i] = r.LatencyMs
		latencySum += r.LatencyMs
		uptimeSum += r.UptimePct
		if r.LatencyMs > thresholdMs {
			breaches++
		}
	}
	slices.Sort(latencies)

	return Summary{
		AvgLatency: Round(latencySum/float64(n), LatencyPlaces),
		P95Latency: Round(Percentile(latencies, P95), LatencyPlaces),
		AvgUptime:  Round(uptimeSum/float64(n), UptimePlaces),
		Breaches:   breaches,
	}
}

// Percentile returns the p-quantile of sorted (ascending) using linear
// interpolation between the order statistics at floor and ceil of p*(n-1).
// It returns 0 for an empty slice.
func Percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := p * float64(len(sorted)-1)
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	if lower == upper {
		return sorted[lower]
	}
	weight := pos - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// Round rounds v to places decimal digits. Ties are broken to even, judged on
// the exact binary value of v, so 2.675 (stored as 2.67499...) rounds to 2.67
// and 0.125 rounds to 0.12. NaN and infinities are returned unchanged.
func Round(v float64, places int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	out, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', places, 64), 64)
	if err != nil {
		return v
	}
	if out == 0 {
		return 0 // drop the sign of -0
	}
	return out
}
