package query

import (
	"errors"
	"fmt"

	"github.com/obsidianstack/regionstats/server/internal/stats"
	"github.com/obsidianstack/regionstats/server/internal/telemetry"
)

// ErrDataUnavailable is returned by Handle when the Dataset failed to load or
// is empty. It wraps the underlying load error.
var ErrDataUnavailable = errors.New("telemetry data unavailable")

// RegionStat is one output row.
type RegionStat struct {
	Region     string  `json:"region"`
	AvgLatency float64 `json:"avg_latency"`
	P95Latency float64 `json:"p95_latency"`
	AvgUptime  float64 `json:"avg_uptime"`
	Breaches   int     `json:"breaches"`
}

// Observer is notified of every region lookup Handle performs. It is how the
// transport layer counts hits and misses without the core knowing about
// metrics. A nil Observer is allowed.
type Observer interface {
	RegionLookup(region string, found bool)
}

// Handle resolves q against ds. Regions are processed in request order,
// duplicates independently; regions without records are omitted. The result
// is never nil.
func Handle(ds *telemetry.Dataset, q Query) ([]RegionStat, error) {
	return HandleObserved(ds, q, nil)
}

// HandleObserved is Handle with lookup notifications sent to obs.
func HandleObserved(ds *telemetry.Dataset, q Query, obs Observer) ([]RegionStat, error) {
	if err := ds.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}

	out := make([]RegionStat, 0, len(q.Regions))
	for _, region := range q.Regions {
		g, ok := ds.Region(region)
		if obs != nil {
			obs.RegionLookup(region, ok)
		}
		if !ok {
			continue
		}
		s := stats.Aggregate(g, q.ThresholdMs)
		out = append(out, RegionStat{
			Region:     region,
			AvgLatency: s.AvgLatency,
			P95Latency: s.P95Latency,
			AvgUptime:  s.AvgUptime,
			Breaches:   s.Breaches,
		})
	}
	return out, nil
}
