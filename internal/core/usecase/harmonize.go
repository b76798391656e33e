package usecase

import (
	"strings"

	"github.com/kirillkom/ionmode-enricher/internal/core/domain"
)

// HarmonizeIonmodeCase returns a copy with a trimmed, lowercased ionmode.
// Records without a string ionmode are returned unchanged.
func HarmonizeIonmodeCase(record *domain.Record) *domain.Record {
	raw, ok := record.GetString(domain.KeyIonmode)
	if !ok {
		return record
	}
	lowered := strings.ToLower(strings.TrimSpace(raw))
	if lowered == raw {
		return record
	}
	out := record.Clone()
	out.Set(domain.KeyIonmode, lowered)
	return out
}
