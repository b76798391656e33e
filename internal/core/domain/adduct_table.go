package domain

import (
	"errors"
	"slices"
	"strings"
)

// AdductTable classifies canonical adduct strings by polarity. It is
// immutable once built and safe for concurrent reads.
type AdductTable struct {
	positive map[string]struct{}
	negative map[string]struct{}
}

// NewAdductTable builds a table from the two adduct lists. Blank entries
// are skipped. It fails when neither list carries a usable adduct.
func NewAdductTable(positive, negative []string) (*AdductTable, error) {
	t := &AdductTable{
		positive: toSet(positive),
		negative: toSet(negative),
	}
	if len(t.positive) == 0 && len(t.negative) == 0 {
		return nil, WrapError(ErrMalformedTable, "build adduct table", errors.New("no positive or negative adducts"))
	}
	return t, nil
}

func toSet(values []string) map[string]struct{} {
	out := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out[v] = struct{}{}
	}
	return out
}

// Classify returns the polarity for an adduct. Adducts listed in both sets
// resolve to positive.
func (t *AdductTable) Classify(adduct string) (Ionmode, bool) {
	if t == nil || adduct == "" {
		return IonmodeUnknown, false
	}
	if _, ok := t.positive[adduct]; ok {
		return IonmodePositive, true
	}
	if _, ok := t.negative[adduct]; ok {
		return IonmodeNegative, true
	}
	return IonmodeUnknown, false
}

func (t *AdductTable) Positive() []string { return sortedKeys(t.positive) }

func (t *AdductTable) Negative() []string { return sortedKeys(t.negative) }

// Overlap lists adducts present in both sets.
func (t *AdductTable) Overlap() []string {
	out := make([]string, 0)
	for k := range t.positive {
		if _, ok := t.negative[k]; ok {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return out
}

// Equal reports whether both tables hold the same classification sets.
func (t *AdductTable) Equal(other *AdductTable) bool {
	if t == nil || other == nil {
		return t == other
	}
	return slices.Equal(t.Positive(), other.Positive()) && slices.Equal(t.Negative(), other.Negative())
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
