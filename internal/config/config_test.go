package config

import "testing"

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")
	t.Setenv("MANAGER_PIN", "")

	cfg := Load()
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
	if cfg.ManagerPIN != "" {
		t.Fatalf("expected empty MANAGER_PIN when unset, got %q", cfg.ManagerPIN)
	}
}

func TestLoadFallsBackOnInvalidTaxRate(t *testing.T) {
	t.Setenv("TAX_RATE_PERCENT", "abc")
	if cfg := Load(); cfg.TaxRatePercent != 9 {
		t.Fatalf("expected default tax rate 9, got %v", cfg.TaxRatePercent)
	}

	t.Setenv("TAX_RATE_PERCENT", "10")
	if cfg := Load(); cfg.TaxRatePercent != 10 {
		t.Fatalf("expected tax rate 10, got %v", cfg.TaxRatePercent)
	}
}

func TestAddressUsesPort(t *testing.T) {
	if got := (Config{Port: "9090"}).Address(); got != ":9090" {
		t.Fatalf("expected :9090, got %s", got)
	}
}
