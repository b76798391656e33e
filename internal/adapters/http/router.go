package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/ionmode-enricher/internal/config"
	"github.com/kirillkom/ionmode-enricher/internal/core/domain"
	"github.com/kirillkom/ionmode-enricher/internal/core/ports"
	"github.com/kirillkom/ionmode-enricher/internal/infrastructure/adducttable"
	"github.com/kirillkom/ionmode-enricher/internal/observability/metrics"
)

const (
	maxJSONBodyBytes  = 16 << 20
	maxTableBodyBytes = 8 << 20
)

type Router struct {
	cfg      config.Config
	deriver  ports.IonmodeDeriver
	ingestor ports.RecordIngestor
	records  ports.RecordReader
	tables   ports.ObjectStorage
	metrics  *metrics.HTTPServerMetrics
	logger   *slog.Logger
}

func NewRouter(
	cfg config.Config,
	deriver ports.IonmodeDeriver,
	ingestor ports.RecordIngestor,
	records ports.RecordReader,
	tables ports.ObjectStorage,
) *Router {
	return &Router{
		cfg:      cfg,
		deriver:  deriver,
		ingestor: ingestor,
		records:  records,
		tables:   tables,
		logger:   slog.Default(),
	}
}

func (rt *Router) WithLogger(logger *slog.Logger) *Router {
	if logger != nil {
		rt.logger = logger
	}
	return rt
}

// WithMetrics exposes /metrics and records per-request metrics.
func (rt *Router) WithMetrics(m *metrics.HTTPServerMetrics) *Router {
	rt.metrics = m
	return rt
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/ionmode/derive", rt.deriveIonmode)
	mux.HandleFunc("/v1/ionmode/derive-batch", rt.deriveIonmodeBatch)
	mux.HandleFunc("/v1/records", rt.ingestRecord)
	mux.HandleFunc("/v1/records/", rt.getRecordByID)
	mux.HandleFunc("/v1/adduct-tables/", rt.uploadAdductTable)

	var handler http.Handler = mux
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
		handler = rt.metrics.Middleware("api", handler)
	}
	handler = backpressureMiddleware(handler, rt.cfg.APIBackpressureMaxInFlight, time.Duration(rt.cfg.APIBackpressureWaitMS)*time.Millisecond)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	handler = accessLogMiddleware(handler, rt.logger)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type deriveRequest struct {
	Record        *domain.Record `json:"record"`
	AdductsSource string         `json:"adducts_source"`
}

type deriveBatchRequest struct {
	Records       []*domain.Record `json:"records"`
	AdductsSource string           `json:"adducts_source"`
}

func (rt *Router) deriveIonmode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req deriveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	source, err := adducttable.RequestedSource(req.AdductsSource, rt.cfg.AdductsSource)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	record, err := rt.deriver.Derive(r.Context(), req.Record, source)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"record": record})
}

func (rt *Router) deriveIonmodeBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req deriveBatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if limit := rt.cfg.DeriveBatchMaxRecords; limit > 0 && len(req.Records) > limit {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{
			"error": fmt.Sprintf("batch exceeds %d records", limit),
		})
		return
	}

	source, err := adducttable.RequestedSource(req.AdductsSource, rt.cfg.AdductsSource)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	records, err := rt.deriver.DeriveBatch(r.Context(), req.Records, source)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}

func (rt *Router) ingestRecord(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var record domain.Record
	if err := decodeJSON(w, r, &record); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	stored, err := rt.ingestor.Ingest(r.Context(), &record)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, stored)
}

func (rt *Router) getRecordByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/records/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "record id is required"})
		return
	}

	record, err := rt.records.GetByID(r.Context(), id)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// uploadAdductTable stores a table file so it can be referenced as an
// adducts_source. A name that is already cached keeps serving the first
// version until the process restarts.
func (rt *Router) uploadAdductTable(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/v1/adduct-tables/")
	if !adducttable.IsStoredTableName(name) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "table name must be a plain file name ending in .yaml, .yml, .json, .csv or .xlsx"})
		return
	}

	body := http.MaxBytesReader(w, r.Body, maxTableBodyBytes)
	if err := rt.tables.Save(r.Context(), name, body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "table too large"})
			return
		}
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"adducts_source": name})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, out any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)).Decode(out)
}

func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		rt.logger.Error("request_failed", "request_id", requestIDFromContext(r.Context()), "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
