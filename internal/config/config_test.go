package config

import "testing"

func TestLoadIncludesDerivationDefaults(t *testing.T) {
	t.Setenv("ADDUCTS_SOURCE", "")
	t.Setenv("ADDUCTS_REMOTE_TIMEOUT_SECONDS", "")
	t.Setenv("DERIVE_LOWERCASE_IONMODE", "")
	t.Setenv("DERIVE_BATCH_CONCURRENCY", "")
	t.Setenv("API_RATE_LIMIT_RPS", "")
	t.Setenv("NATS_SUBJECT", "")
	t.Setenv("API_BACKPRESSURE_MAX_IN_FLIGHT", "")
	t.Setenv("ADDUCTS_REMOTE_ENABLED", "")

	cfg := Load()
	if cfg.AdductsSource != "" {
		t.Fatalf("expected built-in adduct table by default, got %q", cfg.AdductsSource)
	}
	if cfg.AdductsRemoteEnabled {
		t.Fatalf("expected remote adduct tables disabled by default")
	}
	if cfg.AdductsRemoteTimeoutSeconds != 10 {
		t.Fatalf("expected default remote timeout 10, got %d", cfg.AdductsRemoteTimeoutSeconds)
	}
	if cfg.DeriveLowercaseIonmode {
		t.Fatalf("expected strict ionmode case by default")
	}
	if cfg.DeriveBatchConcurrency != 8 {
		t.Fatalf("expected default batch concurrency 8, got %d", cfg.DeriveBatchConcurrency)
	}
	if cfg.APIRateLimitRPS != 0 {
		t.Fatalf("expected rate limiting disabled by default, got %v", cfg.APIRateLimitRPS)
	}
	if cfg.APIBackpressureMaxInFlight != 64 {
		t.Fatalf("expected default in-flight limit 64, got %d", cfg.APIBackpressureMaxInFlight)
	}
	if cfg.NATSSubject != "records.ingested" {
		t.Fatalf("expected default subject records.ingested, got %q", cfg.NATSSubject)
	}
}

func TestLoadParsesDerivationOverrides(t *testing.T) {
	t.Setenv("ADDUCTS_SOURCE", "lab.csv")
	t.Setenv("DERIVE_LOWERCASE_IONMODE", "true")
	t.Setenv("DERIVE_BATCH_CONCURRENCY", "3")
	t.Setenv("API_RATE_LIMIT_RPS", "2.5")
	t.Setenv("ADDUCTS_REMOTE_TIMEOUT_SECONDS", "not-a-number")

	cfg := Load()
	if cfg.AdductsSource != "lab.csv" {
		t.Fatalf("expected adduct source override, got %q", cfg.AdductsSource)
	}
	if !cfg.DeriveLowercaseIonmode {
		t.Fatalf("expected lowercase harmonization enabled")
	}
	if cfg.DeriveBatchConcurrency != 3 {
		t.Fatalf("expected batch concurrency 3, got %d", cfg.DeriveBatchConcurrency)
	}
	if cfg.APIRateLimitRPS != 2.5 {
		t.Fatalf("expected rate 2.5, got %v", cfg.APIRateLimitRPS)
	}
	if cfg.AdductsRemoteTimeoutSeconds != 10 {
		t.Fatalf("expected invalid timeout to fall back to 10, got %d", cfg.AdductsRemoteTimeoutSeconds)
	}
}
