package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kirillkom/ionmode-enricher/internal/config"
	"github.com/kirillkom/ionmode-enricher/internal/core/domain"
)

type deriverFake struct {
	err         error
	lastSource  string
	batchCalled bool
}

func (f *deriverFake) Derive(_ context.Context, record *domain.Record, source string) (*domain.Record, error) {
	f.lastSource = source
	if f.err != nil {
		return nil, f.err
	}
	if record == nil {
		return nil, nil
	}
	out := record.Clone()
	out.Set(domain.KeyIonmode, string(domain.IonmodePositive))
	return out, nil
}

func (f *deriverFake) DeriveBatch(ctx context.Context, records []*domain.Record, source string) ([]*domain.Record, error) {
	f.batchCalled = true
	out := make([]*domain.Record, len(records))
	for i, record := range records {
		derived, err := f.Derive(ctx, record, source)
		if err != nil {
			return nil, err
		}
		out[i] = derived
	}
	return out, nil
}

type ingestorFake struct {
	err      error
	received *domain.Record
}

func (f *ingestorFake) Ingest(_ context.Context, record *domain.Record) (*domain.StoredRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.received = record
	id := record.ID
	if id == "" {
		id = "generated-id"
	}
	return &domain.StoredRecord{
		Record: domain.Record{ID: id, Metadata: record.Metadata},
		Status: domain.StatusReceived,
	}, nil
}

type readerFake struct {
	err error
}

func (f *readerFake) GetByID(_ context.Context, id string) (*domain.StoredRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	now := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	return &domain.StoredRecord{
		Record:    domain.Record{ID: id, Metadata: map[string]any{"adduct": "[M+H]+", "ionmode": "positive"}},
		Status:    domain.StatusEnriched,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

type tableStoreFake struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newTableStoreFake() *tableStoreFake {
	return &tableStoreFake{files: map[string][]byte{}}
}

func (f *tableStoreFake) Save(_ context.Context, key string, data io.Reader) error {
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[key] = raw
	return nil
}

func (f *tableStoreFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.files[key]
	if !ok {
		return nil, domain.WrapError(domain.ErrSourceNotFound, "open", io.EOF)
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

func newTestHandler(cfg config.Config) http.Handler {
	return NewRouter(cfg, &deriverFake{}, &ingestorFake{}, &readerFake{}, newTableStoreFake()).Handler()
}

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func TestDeriveReturnsEnrichedRecord(t *testing.T) {
	deriver := &deriverFake{}
	handler := NewRouter(config.Config{AdductsSource: "lab.yaml"}, deriver, &ingestorFake{}, &readerFake{}, newTableStoreFake()).Handler()

	res := postJSON(t, handler, "/v1/ionmode/derive", map[string]any{
		"record": map[string]any{"id": "r1", "metadata": map[string]any{"adduct": "[M+H]+"}},
	})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}

	var payload struct {
		Record *domain.Record `json:"record"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got, _ := payload.Record.GetString(domain.KeyIonmode); got != "positive" {
		t.Fatalf("expected ionmode positive, got %q", got)
	}
	if deriver.lastSource != "lab.yaml" {
		t.Fatalf("expected configured source to be used, got %q", deriver.lastSource)
	}
}

func TestDeriveRequestSourceOverridesConfig(t *testing.T) {
	deriver := &deriverFake{}
	handler := NewRouter(config.Config{AdductsSource: "lab.yaml"}, deriver, &ingestorFake{}, &readerFake{}, newTableStoreFake()).Handler()

	res := postJSON(t, handler, "/v1/ionmode/derive", map[string]any{
		"record":         map[string]any{"metadata": map[string]any{}},
		"adducts_source": "known_adducts.csv",
	})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if deriver.lastSource != "known_adducts.csv" {
		t.Fatalf("expected request source, got %q", deriver.lastSource)
	}
}

func TestDeriveRejectsPathAndURLSources(t *testing.T) {
	deriver := &deriverFake{}
	handler := NewRouter(config.Config{AdductsSource: "lab.yaml"}, deriver, &ingestorFake{}, &readerFake{}, newTableStoreFake()).Handler()

	for _, source := range []string{
		"/etc/ionmode/secret.yaml",
		"../secret.yaml",
		"http://169.254.169.254/latest/meta-data.json",
		"https://example.org/adducts.json?x=1",
	} {
		for _, path := range []string{"/v1/ionmode/derive", "/v1/ionmode/derive-batch"} {
			res := postJSON(t, handler, path, map[string]any{
				"record":         map[string]any{"metadata": map[string]any{"adduct": "[M+H]+"}},
				"records":        []map[string]any{{"metadata": map[string]any{}}},
				"adducts_source": source,
			})
			if res.Code != http.StatusBadRequest {
				t.Fatalf("%s with source %q: expected 400, got %d", path, source, res.Code)
			}
		}
	}
	if deriver.lastSource != "" || deriver.batchCalled {
		t.Fatalf("deriver must not run for rejected sources")
	}
}

func TestAccessLogUsesInjectedLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	handler := NewRouter(config.Config{}, &deriverFake{}, &ingestorFake{}, &readerFake{err: domain.WrapError(domain.ErrRecordNotFound, "get", io.EOF)}, newTableStoreFake()).
		WithLogger(logger).
		Handler()

	req := httptest.NewRequest(http.MethodGet, "/v1/records/missing", nil)
	req.Header.Set(requestIDHeader, "req-7")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if entry["msg"] != "http_request" || entry["level"] != "WARN" {
		t.Fatalf("unexpected log entry: %v", entry)
	}
	if entry["request_id"] != "req-7" || entry["status"] != float64(http.StatusNotFound) {
		t.Fatalf("expected request id and status in log entry: %v", entry)
	}
}

func TestDeriveNullRecordReturnsNull(t *testing.T) {
	handler := newTestHandler(config.Config{})

	res := postJSON(t, handler, "/v1/ionmode/derive", map[string]any{"record": nil})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), `"record":null`) {
		t.Fatalf("expected null record in response, got %s", res.Body.String())
	}
}

func TestDeriveBatchEnforcesMaxRecords(t *testing.T) {
	deriver := &deriverFake{}
	handler := NewRouter(config.Config{DeriveBatchMaxRecords: 2}, deriver, &ingestorFake{}, &readerFake{}, newTableStoreFake()).Handler()

	records := []map[string]any{{"metadata": map[string]any{}}, {"metadata": map[string]any{}}, {"metadata": map[string]any{}}}
	res := postJSON(t, handler, "/v1/ionmode/derive-batch", map[string]any{"records": records})
	if res.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", res.Code)
	}
	if deriver.batchCalled {
		t.Fatalf("deriver must not run for oversized batch")
	}

	res = postJSON(t, handler, "/v1/ionmode/derive-batch", map[string]any{"records": records[:2]})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var payload struct {
		Records []*domain.Record `json:"records"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(payload.Records))
	}
}

func TestIngestRecordReturnsAccepted(t *testing.T) {
	ingestor := &ingestorFake{}
	handler := NewRouter(config.Config{}, &deriverFake{}, ingestor, &readerFake{}, newTableStoreFake()).Handler()

	res := postJSON(t, handler, "/v1/records", map[string]any{"metadata": map[string]any{"adduct": "[M-H]-"}})
	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", res.Code)
	}
	if ingestor.received == nil {
		t.Fatalf("expected record to reach ingestor")
	}

	var stored domain.StoredRecord
	if err := json.Unmarshal(res.Body.Bytes(), &stored); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if stored.ID != "generated-id" || stored.Status != domain.StatusReceived {
		t.Fatalf("unexpected stored record: %+v", stored)
	}
}

func TestRecordsEndpointRejectsWrongMethod(t *testing.T) {
	handler := newTestHandler(config.Config{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/records", nil))
	if res.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", res.Code)
	}
}

func TestUploadAdductTableStoresFile(t *testing.T) {
	store := newTableStoreFake()
	handler := NewRouter(config.Config{}, &deriverFake{}, &ingestorFake{}, &readerFake{}, store).Handler()

	body := "adduct,ionmode\n[M+H]+,positive\n[M-H]-,negative\n"
	req := httptest.NewRequest(http.MethodPut, "/v1/adduct-tables/lab.csv", strings.NewReader(body))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", res.Code, res.Body.String())
	}
	if got := string(store.files["lab.csv"]); got != body {
		t.Fatalf("stored table mismatch: %q", got)
	}
}

func TestUploadAdductTableRejectsBadNames(t *testing.T) {
	handler := newTestHandler(config.Config{})

	for _, name := range []string{"lab.txt", ".hidden.yaml", "nested%2Flab.yaml"} {
		req := httptest.NewRequest(http.MethodPut, "/v1/adduct-tables/"+name, strings.NewReader("x"))
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)
		if res.Code != http.StatusBadRequest {
			t.Fatalf("name %q: expected 400, got %d", name, res.Code)
		}
	}
}
