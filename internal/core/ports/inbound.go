package ports

import (
	"context"

	"github.com/kirillkom/ionmode-enricher/internal/core/domain"
)

// IonmodeDeriver is the inbound contract for ionmode enrichment.
type IonmodeDeriver interface {
	Derive(ctx context.Context, record *domain.Record, source string) (*domain.Record, error)
	DeriveBatch(ctx context.Context, records []*domain.Record, source string) ([]*domain.Record, error)
}

// RecordIngestor accepts records for asynchronous enrichment.
type RecordIngestor interface {
	Ingest(ctx context.Context, record *domain.Record) (*domain.StoredRecord, error)
}

// RecordReader is the inbound read model for persisted records.
type RecordReader interface {
	GetByID(ctx context.Context, id string) (*domain.StoredRecord, error)
}

// RecordEnricher is the inbound contract for asynchronous record processing.
type RecordEnricher interface {
	EnrichByID(ctx context.Context, recordID string) error
}
