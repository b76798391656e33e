package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/ionmode-enricher/internal/core/domain"
	"github.com/kirillkom/ionmode-enricher/internal/core/ports"
)

const (
	OutcomeFromAdduct = "from_adduct"
	OutcomeKept       = "kept"
	OutcomeUnresolved = "unresolved"
	OutcomeRejected   = "rejected"
)

type IonmodeOptions struct {
	// HarmonizeCase lowercases ionmode before derivation instead of
	// rejecting mixed-case values.
	HarmonizeCase    bool
	BatchConcurrency int
}

type IonmodeUseCase struct {
	tables     ports.AdductTableProvider
	normalizer ports.AdductNormalizer
	observer   ports.DerivationObserver
	logger     *slog.Logger
	opts       IonmodeOptions
}

func NewIonmodeUseCase(
	tables ports.AdductTableProvider,
	normalizer ports.AdductNormalizer,
	observer ports.DerivationObserver,
	logger *slog.Logger,
	opts IonmodeOptions,
) *IonmodeUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.BatchConcurrency <= 0 {
		opts.BatchConcurrency = 8
	}
	return &IonmodeUseCase{
		tables:     tables,
		normalizer: normalizer,
		observer:   observer,
		logger:     logger,
		opts:       opts,
	}
}

// Derive fills in a missing or unconfirmed ionmode from the record's adduct
// using the table named by source. The input record is never modified.
func (uc *IonmodeUseCase) Derive(ctx context.Context, record *domain.Record, source string) (*domain.Record, error) {
	if record == nil {
		return nil, nil
	}
	table, err := uc.tables.Get(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("resolve adduct table: %w", err)
	}
	if uc.opts.HarmonizeCase {
		record = HarmonizeIonmodeCase(record)
	}
	return uc.DeriveWithTable(record, table)
}

// DeriveBatch derives every record against one table. The first failure
// cancels the remaining work and is returned.
func (uc *IonmodeUseCase) DeriveBatch(ctx context.Context, records []*domain.Record, source string) ([]*domain.Record, error) {
	if len(records) == 0 {
		return []*domain.Record{}, nil
	}
	table, err := uc.tables.Get(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("resolve adduct table: %w", err)
	}

	out := make([]*domain.Record, len(records))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(uc.opts.BatchConcurrency)
	for i, record := range records {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			if uc.opts.HarmonizeCase {
				record = HarmonizeIonmodeCase(record)
			}
			derived, err := uc.DeriveWithTable(record, table)
			if err != nil {
				return fmt.Errorf("record %d: %w", i, err)
			}
			out[i] = derived
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// DeriveWithTable applies the derivation policy against an already
// resolved table. A confirmed polarity is never overridden.
func (uc *IonmodeUseCase) DeriveWithTable(record *domain.Record, table *domain.AdductTable) (*domain.Record, error) {
	if record == nil {
		return nil, nil
	}
	out := record.Clone()

	adduct, _ := out.GetString(domain.KeyAdduct)
	if adduct != "" {
		adduct = uc.normalizer.Clean(adduct)
	}

	raw, _ := out.GetString(domain.KeyIonmode)
	if raw != "" && !domain.IsLowercase(raw) {
		uc.observe(OutcomeRejected)
		return nil, domain.WrapError(
			domain.ErrUnnormalizedIonmode,
			"derive ionmode",
			fmt.Errorf("record %q has ionmode %q; lowercase it first", out.ID, raw),
		)
	}

	ionmode := domain.Ionmode(raw)
	outcome := OutcomeKept
	if !ionmode.IsPolarity() {
		derived, found := table.Classify(adduct)
		ionmode = derived
		outcome = OutcomeUnresolved
		if found {
			outcome = OutcomeFromAdduct
			uc.logger.Info("ionmode_derived",
				"record_id", out.ID,
				"adduct", adduct,
				"ionmode", string(ionmode),
			)
		}
	}

	out.Set(domain.KeyIonmode, string(ionmode))
	uc.observe(outcome)
	return out, nil
}

func (uc *IonmodeUseCase) observe(outcome string) {
	if uc.observer != nil {
		uc.observer.ObserveDerivation(outcome)
	}
}
