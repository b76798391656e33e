package adducttable

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/kirillkom/ionmode-enricher/internal/core/domain"
	"github.com/kirillkom/ionmode-enricher/internal/infrastructure/resilience"
)

const defaultMaxTableBytes = 8 << 20

// HTTPSource fetches tables over HTTP(S). Fetch failures, including a
// timeout or an open circuit, surface as ErrSourceNotFound. A body over
// the size limit is ErrMalformedTable.
type HTTPSource struct {
	httpClient *http.Client
	timeout    time.Duration
	maxBytes   int64
	executor   *resilience.Executor
}

func NewHTTPSource(timeout time.Duration, executor *resilience.Executor) *HTTPSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSource{
		httpClient: &http.Client{},
		timeout:    timeout,
		maxBytes:   defaultMaxTableBytes,
		executor:   executor,
	}
}

func (s *HTTPSource) Open(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil, domain.WrapError(domain.ErrSourceNotFound, "fetch adduct table", fmt.Errorf("invalid table url %q", rawURL))
	}

	var body []byte
	call := func(callCtx context.Context) error {
		data, err := s.fetch(callCtx, rawURL)
		if err != nil {
			return err
		}
		body = data
		return nil
	}

	if s.executor != nil {
		// One breaker per host.
		err = s.executor.Execute(ctx, "adducttable.fetch:"+u.Host, call, resilience.ClassifyHTTPError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrSourceNotFound, "fetch adduct table", err)
	}
	if int64(len(body)) > s.maxBytes {
		return nil, domain.WrapError(domain.ErrMalformedTable, "fetch adduct table", fmt.Errorf("%s exceeds %d bytes", rawURL, s.maxBytes))
	}
	return io.NopCloser(bytes.NewReader(body)), nil
}

// fetch reads at most maxBytes+1 so an oversized body is detectable.
func (s *HTTPSource) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create table request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("table request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, resilience.NewHTTPStatusError("fetch adduct table", resp)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read table body: %w", err)
	}
	return data, nil
}
