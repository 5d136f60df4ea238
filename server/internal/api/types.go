package api

import "github.com/obsidianstack/regionstats/server/internal/query"

// QueryResponse is the payload for a successful POST / query.
type QueryResponse struct {
	Regions []query.RegionStat `json:"regions"`
}

// InfoResponse is the payload for GET /.
type InfoResponse struct {
	Message string `json:"message"`
}

// StatusResponse is the payload for GET /healthz and a ready GET /readyz.
type StatusResponse struct {
	Status string `json:"status"`
}

// DatasetResponse is the payload for GET /api/v1/dataset.
type DatasetResponse struct {
	Source   string   `json:"source"`
	Records  int      `json:"records"`
	Regions  []string `json:"regions"`
	LoadedAt string   `json:"loaded_at"` // RFC3339
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
