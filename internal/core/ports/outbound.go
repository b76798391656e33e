package ports

import (
	"context"
	"io"

	"github.com/kirillkom/ionmode-enricher/internal/core/domain"
)

// AdductTableProvider resolves a reference table by source name. An empty
// source selects the built-in default.
type AdductTableProvider interface {
	Get(ctx context.Context, source string) (*domain.AdductTable, error)
}

// AdductNormalizer turns a raw adduct string into its canonical form.
type AdductNormalizer interface {
	Clean(raw string) string
}

// RecordRepository persists and reads record state.
type RecordRepository interface {
	Create(ctx context.Context, record *domain.StoredRecord) error
	GetByID(ctx context.Context, id string) (*domain.StoredRecord, error)
	UpdateStatus(ctx context.Context, id string, status domain.RecordStatus, errMessage string) error
	SaveMetadata(ctx context.Context, id string, metadata map[string]any) error
}

// ObjectStorage stores uploaded adduct table files.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes ingestion events.
type MessageQueue interface {
	PublishRecordIngested(ctx context.Context, recordID string) error
	SubscribeRecordIngested(ctx context.Context, handler func(context.Context, string) error) error
}

// DerivationObserver receives derivation outcomes for metrics.
type DerivationObserver interface {
	ObserveDerivation(outcome string)
}
