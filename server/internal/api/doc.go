// Package api implements the HTTP surface of regionstats-server.
//
// New(dataset, metrics, opts) returns an http.Handler that serves:
//
//	POST /                 — per-region latency/uptime statistics
//	POST /api/v1/latency   — same as POST /
//	GET  /                 — service info message
//	GET  /api/v1/dataset   — source, record count and regions of the loaded dataset
//	GET  /healthz          — liveness, always 200
//	GET  /readyz           — 200 when the dataset loaded, 503 otherwise
//	GET  /metrics          — Prometheus text exposition
//
// Query and dataset endpoints return 500 with an "error" field when the
// dataset failed to load; malformed bodies get 400 and oversized ones 413.
// Every response carries X-Request-ID; CORS preflights are answered with 204.
// Wrong methods get 405. No external HTTP framework is used.
package api
