package adducttable

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kirillkom/ionmode-enricher/internal/core/domain"
)

const (
	LoadResultHit    = "hit"
	LoadResultLoaded = "loaded"
	LoadResultShared = "shared"
	LoadResultError  = "error"
)

// LoadObserver receives one event per Get call.
type LoadObserver interface {
	ObserveTableLoad(result string, duration time.Duration)
}

type Option func(*Loader)

func WithCache(cache *Cache) Option {
	return func(l *Loader) { l.cache = cache }
}

func WithObserver(observer LoadObserver) Option {
	return func(l *Loader) { l.observer = observer }
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

// Loader resolves adduct tables by source and keeps every successfully
// parsed table for the lifetime of its cache.
type Loader struct {
	source   Source
	cache    *Cache
	inflight singleflight.Group
	observer LoadObserver
	logger   *slog.Logger
}

func NewLoader(source Source, opts ...Option) *Loader {
	l := &Loader{source: source}
	for _, opt := range opts {
		opt(l)
	}
	if l.cache == nil {
		l.cache = NewCache()
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	return l
}

func (l *Loader) Get(ctx context.Context, source string) (*domain.AdductTable, error) {
	start := time.Now()
	key := CacheKey(source)

	if table, ok := l.cache.Lookup(key); ok {
		l.observe(LoadResultHit, start)
		return table, nil
	}

	// Shared loads outlive the caller that started them. Only that caller
	// reports the load; waiters report shared.
	loadCtx := context.WithoutCancel(ctx)
	leader := false
	v, err, _ := l.inflight.Do(key, func() (any, error) {
		leader = true
		if table, ok := l.cache.Lookup(key); ok {
			return lookup{table: table, cached: true}, nil
		}
		table, err := l.load(loadCtx, key)
		if err != nil {
			return nil, err
		}
		return lookup{table: l.cache.StoreIfAbsent(key, table)}, nil
	})
	if err != nil {
		l.observe(LoadResultError, start)
		return nil, err
	}

	res := v.(lookup)
	switch {
	case res.cached:
		l.observe(LoadResultHit, start)
	case leader:
		l.observe(LoadResultLoaded, start)
	default:
		l.observe(LoadResultShared, start)
	}
	return res.table, nil
}

type lookup struct {
	table  *domain.AdductTable
	cached bool
}

func (l *Loader) load(ctx context.Context, key string) (*domain.AdductTable, error) {
	rc, err := l.source.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	format := FormatYAML
	if key != DefaultSource {
		format = FormatOf(key)
		if format == "" {
			return nil, domain.WrapError(domain.ErrMalformedTable, "load adduct table", fmt.Errorf("cannot infer format of %s", key))
		}
	}

	table, err := Parse(format, rc)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}

	if overlap := table.Overlap(); len(overlap) > 0 {
		l.logger.Warn("adduct_table_overlap", "source", key, "adducts", overlap, "resolved_as", domain.IonmodePositive)
	}
	l.logger.Info("adduct_table_loaded",
		"source", key,
		"positive", len(table.Positive()),
		"negative", len(table.Negative()),
	)
	return table, nil
}

func (l *Loader) observe(result string, start time.Time) {
	if l.observer != nil {
		l.observer.ObserveTableLoad(result, time.Since(start))
	}
}
