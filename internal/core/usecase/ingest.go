package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/ionmode-enricher/internal/core/domain"
	"github.com/kirillkom/ionmode-enricher/internal/core/ports"
)

type IngestRecordUseCase struct {
	repo  ports.RecordRepository
	queue ports.MessageQueue
}

func NewIngestRecordUseCase(repo ports.RecordRepository, queue ports.MessageQueue) *IngestRecordUseCase {
	return &IngestRecordUseCase{
		repo:  repo,
		queue: queue,
	}
}

// Ingest persists the record and schedules enrichment. Records without an
// id get a fresh UUID.
func (uc *IngestRecordUseCase) Ingest(ctx context.Context, record *domain.Record) (*domain.StoredRecord, error) {
	if record == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ingest record", errors.New("record is required"))
	}

	id := strings.TrimSpace(record.ID)
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now().UTC()

	stored := &domain.StoredRecord{
		Record:    *domain.NewRecord(id, record.Clone().Metadata),
		Status:    domain.StatusReceived,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := uc.repo.Create(ctx, stored); err != nil {
		return nil, fmt.Errorf("create record: %w", err)
	}
	if err := uc.queue.PublishRecordIngested(ctx, stored.ID); err != nil {
		return nil, fmt.Errorf("publish ingestion event: %w", err)
	}
	return stored, nil
}
