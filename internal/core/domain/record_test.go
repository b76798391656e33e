package domain

import "testing"

func TestCloneIsIndependentOfOriginal(t *testing.T) {
	orig := NewRecord("rec-1", map[string]any{
		"adduct":     "[M+H]+",
		"peaks":      []any{1.0, 2.0},
		"instrument": map[string]any{"name": "qtof"},
	})

	clone := orig.Clone()
	clone.Set("ionmode", "positive")
	clone.Metadata["peaks"].([]any)[0] = 9.0
	clone.Metadata["instrument"].(map[string]any)["name"] = "orbitrap"

	if _, ok := orig.Get("ionmode"); ok {
		t.Fatalf("expected original to stay without ionmode")
	}
	if got := orig.Metadata["peaks"].([]any)[0]; got != 1.0 {
		t.Fatalf("expected original peaks untouched, got %v", got)
	}
	if got := orig.Metadata["instrument"].(map[string]any)["name"]; got != "qtof" {
		t.Fatalf("expected original nested map untouched, got %v", got)
	}
}

func TestCloneNilRecord(t *testing.T) {
	var r *Record
	if r.Clone() != nil {
		t.Fatalf("expected nil clone")
	}
}

func TestGetStringIgnoresNonStringValues(t *testing.T) {
	r := NewRecord("rec-1", map[string]any{"ionmode": 1})
	if _, ok := r.GetString("ionmode"); ok {
		t.Fatalf("expected non-string ionmode to be ignored")
	}
}
