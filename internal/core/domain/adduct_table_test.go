package domain

import "testing"

func TestNewAdductTableRejectsEmptySets(t *testing.T) {
	_, err := NewAdductTable(nil, []string{" ", ""})
	if !IsKind(err, ErrMalformedTable) {
		t.Fatalf("expected ErrMalformedTable, got %v", err)
	}
}

func TestClassify(t *testing.T) {
	table, err := NewAdductTable([]string{"[M+H]+", "[M+Na]+"}, []string{"[M-H]-"})
	if err != nil {
		t.Fatalf("NewAdductTable() error = %v", err)
	}

	cases := []struct {
		adduct string
		want   Ionmode
		found  bool
	}{
		{adduct: "[M+H]+", want: IonmodePositive, found: true},
		{adduct: "[M-H]-", want: IonmodeNegative, found: true},
		{adduct: "[M+X]+", want: IonmodeUnknown, found: false},
		{adduct: "", want: IonmodeUnknown, found: false},
	}
	for _, tc := range cases {
		got, found := table.Classify(tc.adduct)
		if got != tc.want || found != tc.found {
			t.Fatalf("Classify(%q) = %q,%v want %q,%v", tc.adduct, got, found, tc.want, tc.found)
		}
	}
}

func TestClassifyOverlapResolvesPositive(t *testing.T) {
	table, err := NewAdductTable([]string{"[M]+-"}, []string{"[M]+-", "[M-H]-"})
	if err != nil {
		t.Fatalf("NewAdductTable() error = %v", err)
	}
	if got, _ := table.Classify("[M]+-"); got != IonmodePositive {
		t.Fatalf("expected overlap to resolve positive, got %q", got)
	}
	if overlap := table.Overlap(); len(overlap) != 1 || overlap[0] != "[M]+-" {
		t.Fatalf("unexpected overlap: %v", overlap)
	}
}

func TestEqual(t *testing.T) {
	a, _ := NewAdductTable([]string{"[M+H]+", "[M+Na]+"}, []string{"[M-H]-"})
	b, _ := NewAdductTable([]string{"[M+Na]+", "[M+H]+"}, []string{"[M-H]-"})
	c, _ := NewAdductTable([]string{"[M+H]+"}, []string{"[M-H]-"})
	if !a.Equal(b) {
		t.Fatalf("expected order-insensitive equality")
	}
	if a.Equal(c) {
		t.Fatalf("expected different tables to differ")
	}
}
