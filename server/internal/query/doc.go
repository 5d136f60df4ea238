// Package query turns a decoded Query into per-region statistics.
//
// Decode validates a JSON request body and applies defaults (regions → empty,
// threshold_ms → 0). Handle resolves each requested region against a
// telemetry.Dataset in request order, aggregates the regions that have data,
// and omits the ones that do not. A Dataset that failed to load makes every
// call fail with ErrDataUnavailable.
package query
