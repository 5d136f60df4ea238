// Package telemetry holds the immutable in-memory telemetry dataset the
// service answers queries from. A Dataset is loaded once at startup from a
// JSON or Parquet file, indexed by region, and only read afterwards, so it is
// safe for concurrent use without locking.
//
// A failed or empty load still produces a Dataset: one whose Err method
// reports why the data is unavailable.
package telemetry
