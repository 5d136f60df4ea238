package telemetry

import (
	"errors"
	"slices"
	"time"
)

// ErrEmptyDataset is reported by Dataset.Err when a source was read
// successfully but contained no records.
var ErrEmptyDataset = errors.New("telemetry: dataset is empty")

// Record is one latency/uptime observation.
type Record struct {
	Region    string  `json:"region" parquet:"region,dict"`
	LatencyMs float64 `json:"latency_ms" parquet:"latency_ms"`
	UptimePct float64 `json:"uptime_pct" parquet:"uptime_pct"`
}

// Dataset is an ordered, read-only collection of records with a region index
// built at construction time. All methods are safe for concurrent use.
type Dataset struct {
	records  []Record
	byRegion map[string][]Record
	regions  []string // first-seen order
	source   string
	loadedAt time.Time
	err      error
}

// New builds a Dataset from records. The slice is copied; callers may reuse it.
// A Dataset built from zero records reports ErrEmptyDataset from Err.
func New(source string, records []Record) *Dataset {
	d := &Dataset{
		records:  slices.Clone(records),
		byRegion: make(map[string][]Record),
		source:   source,
		loadedAt: time.Now(),
	}
	for _, r := range d.records {
		if _, ok := d.byRegion[r.Region]; !ok {
			d.regions = append(d.regions, r.Region)
		}
		d.byRegion[r.Region] = append(d.byRegion[r.Region], r)
	}
	for region, rs := range d.byRegion {
		d.byRegion[region] = slices.Clip(rs)
	}
	if len(d.records) == 0 {
		d.err = ErrEmptyDataset
	}
	return d
}

// Failed returns an empty Dataset that reports err from Err.
func Failed(source string, err error) *Dataset {
	if err == nil {
		err = ErrEmptyDataset
	}
	return &Dataset{
		byRegion: map[string][]Record{},
		source:   source,
		loadedAt: time.Now(),
		err:      err,
	}
}

// Err returns nil when the Dataset holds data, or the reason it does not.
func (d *Dataset) Err() error { return d.err }

// Source returns the path (or label) the Dataset was loaded from.
func (d *Dataset) Source() string { return d.source }

// LoadedAt returns the time the Dataset was constructed.
func (d *Dataset) LoadedAt() time.Time { return d.loadedAt }

// Len returns the total number of records.
func (d *Dataset) Len() int { return len(d.records) }

// Records returns a copy of all records in load order.
func (d *Dataset) Records() []Record { return slices.Clone(d.records) }

// Regions returns the distinct regions in the order they first appear.
func (d *Dataset) Regions() []string { return slices.Clone(d.regions) }

// Filter returns the records whose region equals region exactly, in load
// order. The match is case-sensitive and untrimmed. An unknown region yields
// an empty result. The returned slice is shared and must not be modified.
func (d *Dataset) Filter(region string) []Record {
	return d.byRegion[region]
}

// Region returns the records for region as a Group. ok is false when the
// region has no records, so a Group obtained this way is never empty.
func (d *Dataset) Region(region string) (g Group, ok bool) {
	rs := d.byRegion[region]
	if len(rs) == 0 {
		return Group{}, false
	}
	return Group{region: region, records: rs}, true
}

// Group is the non-empty set of records for one region.
type Group struct {
	region  string
	records []Record
}

// Name returns the region the Group was selected by.
func (g Group) Name() string { return g.region }

// Len returns the number of records in the Group.
func (g Group) Len() int { return len(g.records) }

// Records returns the Group's records. The slice is shared and must not be
// modified.
func (g Group) Records() []Record { return g.records }
