package adducttable

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kirillkom/ionmode-enricher/internal/core/domain"
	"github.com/kirillkom/ionmode-enricher/internal/infrastructure/resilience"
)

func TestHTTPSourceLoadsRemoteTableOnce(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/tables/lab.yaml" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(labYAML))
	}))
	defer server.Close()

	loader := NewLoader(&Router{Remote: NewHTTPSource(time.Second, nil)})
	url := server.URL + "/tables/lab.yaml"

	for i := 0; i < 3; i++ {
		table, err := loader.Get(context.Background(), url)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if mode, _ := table.Classify("[M+Na]+"); mode != domain.IonmodePositive {
			t.Fatalf("expected [M+Na]+ positive, got %q", mode)
		}
	}
	if got := hits.Load(); got != 1 {
		t.Fatalf("expected one remote fetch, got %d", got)
	}
}

func TestHTTPSourceMapsFailuresToSourceNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/slow.yaml" {
			time.Sleep(200 * time.Millisecond)
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	executor := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    2,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
		BreakerEnabled:      false,
	}, nil)
	src := NewHTTPSource(20*time.Millisecond, executor)

	for _, path := range []string{"/missing.yaml", "/slow.yaml"} {
		_, err := src.Open(context.Background(), server.URL+path)
		if !domain.IsKind(err, domain.ErrSourceNotFound) {
			t.Fatalf("%s: expected ErrSourceNotFound, got %v", path, err)
		}
	}
}

func TestHTTPSourceRejectsOversizedTable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(labYAML))
	}))
	defer server.Close()

	truncating := NewHTTPSource(time.Second, nil)
	truncating.maxBytes = int64(len(labYAML) - 10)
	cache := NewCache()
	loader := NewLoader(&Router{Remote: truncating}, WithCache(cache))

	_, err := loader.Get(context.Background(), server.URL+"/lab.yaml")
	if !domain.IsKind(err, domain.ErrMalformedTable) {
		t.Fatalf("expected ErrMalformedTable for oversized body, got %v", err)
	}
	if cache.Len() != 0 {
		t.Fatalf("oversized table must not be cached")
	}

	exact := NewHTTPSource(time.Second, nil)
	exact.maxBytes = int64(len(labYAML))
	table, err := NewLoader(&Router{Remote: exact}).Get(context.Background(), server.URL+"/lab.yaml")
	if err != nil {
		t.Fatalf("table at the size limit should load, got %v", err)
	}
	if mode, _ := table.Classify("[M-H]-"); mode != domain.IonmodeNegative {
		t.Fatalf("expected [M-H]- negative, got %q", mode)
	}
}

func TestHTTPSourceKeepsBreakerPerHost(t *testing.T) {
	var flakyHits atomic.Int32
	flaky := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flakyHits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer flaky.Close()
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(labYAML))
	}))
	defer healthy.Close()

	executor := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    1,
		RetryInitialBackoff: time.Millisecond,
		BreakerEnabled:      true,
		BreakerMinRequests:  1,
		BreakerFailureRatio: 0.5,
		BreakerOpenTimeout:  time.Minute,
	}, nil)
	src := NewHTTPSource(time.Second, executor)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := src.Open(ctx, flaky.URL+"/lab.yaml"); !domain.IsKind(err, domain.ErrSourceNotFound) {
			t.Fatalf("flaky call %d: expected ErrSourceNotFound, got %v", i, err)
		}
	}
	if got := flakyHits.Load(); got != 1 {
		t.Fatalf("expected open breaker to short-circuit the second call, got %d hits", got)
	}

	rc, err := src.Open(ctx, healthy.URL+"/lab.yaml")
	if err != nil {
		t.Fatalf("healthy host must not share the flaky host's breaker: %v", err)
	}
	_ = rc.Close()
}
