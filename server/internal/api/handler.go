package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/obsidianstack/regionstats/server/internal/metrics"
	"github.com/obsidianstack/regionstats/server/internal/query"
	"github.com/obsidianstack/regionstats/server/internal/telemetry"
)

const infoMessage = "API is running. Use a POST request to get statistics."

// Options configures the transport around the query core.
type Options struct {
	// MaxBodyBytes caps query request bodies; <= 0 means 1 MiB.
	MaxBodyBytes int64

	// AllowedOrigins lists CORS origins; "*" allows any. Empty disables CORS.
	AllowedOrigins []string

	// AllowCredentials sets Access-Control-Allow-Credentials.
	AllowCredentials bool
}

// Handler serves the query API over a Dataset that was loaded once at
// startup. The Dataset is never modified, so requests are served in parallel
// without locking.
type Handler struct {
	ds      *telemetry.Dataset
	metrics *metrics.Metrics
	maxBody int64
	mux     *http.ServeMux
	chain   http.Handler
}

// New creates a Handler wired to ds and registers all routes. A nil m gets a
// private metrics set.
func New(ds *telemetry.Dataset, m *metrics.Metrics, opts Options) http.Handler {
	if m == nil {
		m = metrics.New()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	h := &Handler{ds: ds, metrics: m, maxBody: opts.MaxBodyBytes, mux: http.NewServeMux()}

	h.mux.HandleFunc("/{$}", h.root)
	h.mux.HandleFunc("/api/v1/latency", h.latency)
	h.mux.HandleFunc("/api/v1/dataset", h.dataset)
	h.mux.HandleFunc("/healthz", h.healthz)
	h.mux.HandleFunc("/readyz", h.readyz)
	h.mux.Handle("/metrics", getOnly(m.Handler()))
	h.mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		jsonErr(w, http.StatusNotFound, "not found")
	})

	h.chain = requestID(instrument(m, cors(opts, h.mux)))
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.chain.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// root serves GET / (service info) and POST / (query).
func (h *Handler) root(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		jsonResp(w, http.StatusOK, InfoResponse{Message: infoMessage})
	case http.MethodPost:
		h.query(w, r)
	default:
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// latency serves POST /api/v1/latency, an alias of POST /.
func (h *Handler) latency(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	h.query(w, r)
}

// query decodes the request body and returns per-region statistics.
// Data availability is checked before the body is read.
func (h *Handler) query(w http.ResponseWriter, r *http.Request) {
	if err := h.ds.Err(); err != nil {
		h.unavailable(w, r, err)
		return
	}

	q, err := query.Decode(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonErr(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}
	h.metrics.ObserveQuery(len(q.Regions))

	out, err := query.HandleObserved(h.ds, q, h.metrics)
	if err != nil {
		h.unavailable(w, r, err)
		return
	}
	jsonResp(w, http.StatusOK, QueryResponse{Regions: out})
}

// dataset returns GET /api/v1/dataset: what was loaded and from where.
func (h *Handler) dataset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := h.ds.Err(); err != nil {
		h.unavailable(w, r, err)
		return
	}
	jsonResp(w, http.StatusOK, DatasetResponse{
		Source:   h.ds.Source(),
		Records:  h.ds.Len(),
		Regions:  h.ds.Regions(),
		LoadedAt: h.ds.LoadedAt().UTC().Format(time.RFC3339),
	})
}

// healthz reports liveness; it succeeds even when the dataset failed to load.
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// readyz reports whether queries can be answered.
func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := h.ds.Err(); err != nil {
		jsonErr(w, http.StatusServiceUnavailable, unavailableMessage(h.ds))
		return
	}
	jsonResp(w, http.StatusOK, StatusResponse{Status: "ready"})
}

func (h *Handler) unavailable(w http.ResponseWriter, r *http.Request, err error) {
	slog.Debug("api: dataset unavailable",
		"path", r.URL.Path, "request_id", RequestIDFrom(r.Context()), "err", err)
	jsonErr(w, http.StatusInternalServerError, unavailableMessage(h.ds))
}

// --- helpers ----------------------------------------------------------------

func unavailableMessage(ds *telemetry.Dataset) string {
	if errors.Is(ds.Err(), telemetry.ErrEmptyDataset) {
		return fmt.Sprintf("Data file at path %s contains no records", ds.Source())
	}
	return fmt.Sprintf("Server could not load data file from path: %s", ds.Source())
}

func getOnly(next http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		next.ServeHTTP(w, r)
	}
}

func jsonResp(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
