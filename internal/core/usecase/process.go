package usecase

import (
	"context"
	"fmt"

	"github.com/kirillkom/ionmode-enricher/internal/core/domain"
	"github.com/kirillkom/ionmode-enricher/internal/core/ports"
)

// EnrichRecordUseCase derives ionmode for persisted records, as driven by
// the worker.
type EnrichRecordUseCase struct {
	repo    ports.RecordRepository
	deriver ports.IonmodeDeriver
	source  string
}

func NewEnrichRecordUseCase(repo ports.RecordRepository, deriver ports.IonmodeDeriver, source string) *EnrichRecordUseCase {
	return &EnrichRecordUseCase{
		repo:    repo,
		deriver: deriver,
		source:  source,
	}
}

func (uc *EnrichRecordUseCase) EnrichByID(ctx context.Context, recordID string) error {
	if err := uc.markStatus(ctx, recordID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	if err := uc.enrich(ctx, recordID); err != nil {
		if failErr := uc.markFailed(ctx, recordID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.markStatus(ctx, recordID, domain.StatusEnriched, ""); err != nil {
		return fmt.Errorf("set status=enriched: %w", err)
	}
	return nil
}

func (uc *EnrichRecordUseCase) enrich(ctx context.Context, recordID string) error {
	stored, err := uc.repo.GetByID(ctx, recordID)
	if err != nil {
		return fmt.Errorf("fetch record by id: %w", err)
	}

	derived, err := uc.deriver.Derive(ctx, &stored.Record, uc.source)
	if err != nil {
		return fmt.Errorf("derive ionmode: %w", err)
	}

	if err := uc.repo.SaveMetadata(ctx, recordID, derived.Metadata); err != nil {
		return fmt.Errorf("save metadata: %w", err)
	}
	return nil
}

func (uc *EnrichRecordUseCase) markStatus(ctx context.Context, recordID string, status domain.RecordStatus, errMessage string) error {
	return uc.repo.UpdateStatus(ctx, recordID, status, errMessage)
}

func (uc *EnrichRecordUseCase) markFailed(ctx context.Context, recordID string, processErr error) error {
	return uc.markStatus(ctx, recordID, domain.StatusFailed, processErr.Error())
}
