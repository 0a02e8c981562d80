package config

import (
	"errors"
	"testing"
	"time"

	"uc_coin/internal/tap"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "ENERGY_MAX", "COMBO_WINDOW", "WELCOME_BONUS", "METRICS_ENABLED", "TRUST_PROXY", "TAP_BASE_RATE"} {
		t.Setenv(key, "")
	}
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Addr() != ":8080" {
		t.Errorf("addr = %q", cfg.Addr())
	}
	if cfg.EnergyMax != 1000 || cfg.ComboWindow != 3*time.Second || cfg.WelcomeBonus != 500 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	def := tap.DefaultConfig()
	if cfg.Tap.BaseRate != def.BaseRate || cfg.Tap.Levels != def.Levels || len(cfg.Tap.Ranks) != len(def.Ranks) {
		t.Errorf("tap config = %+v", cfg.Tap)
	}
	if !cfg.MetricsEnabled {
		t.Error("metrics should be on by default")
	}
	if cfg.TrustProxy {
		t.Error("forwarding headers should not be trusted by default")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,https://a.example")
	t.Setenv("ENERGY_MAX", "500")
	t.Setenv("COMBO_WINDOW", "5")
	t.Setenv("PROMO_WINDOW", "1h")
	t.Setenv("METRICS_ENABLED", "off")
	t.Setenv("TRUST_PROXY", "true")
	t.Setenv("TAP_BASE_RATE", "2.5")
	t.Setenv("LEVEL_EXPONENT", "2")
	t.Setenv("LEDGER_SIZE", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Addr() != ":9000" {
		t.Errorf("addr = %q", cfg.Addr())
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Errorf("cors = %v", cfg.CORSOrigins)
	}
	if cfg.ComboWindow != 5*time.Second || cfg.PromoWindow != time.Hour {
		t.Errorf("durations = %v %v", cfg.ComboWindow, cfg.PromoWindow)
	}
	if cfg.MetricsEnabled {
		t.Error("METRICS_ENABLED=off ignored")
	}
	if !cfg.TrustProxy {
		t.Error("TRUST_PROXY=true ignored")
	}
	if cfg.Tap.BaseRate != 2.5 || cfg.Tap.Levels.Exponent != 2 {
		t.Errorf("tap = %+v", cfg.Tap)
	}
	if cfg.LedgerSize != 50 {
		t.Errorf("bad number should keep the default, got %d", cfg.LedgerSize)
	}

	s := cfg.Session()
	if s.EnergyLimit != 500 || s.ComboWindow != 5*time.Second || s.LedgerSize != 50 {
		t.Errorf("session config = %+v", s)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"ENERGY_MAX":         "0",
		"TAP_CRIT_CHANCE":    "1.5",
		"PROMO_MAX_ATTEMPTS": "0",
		"LEVEL_BASE_XP":      "0",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			_, err := Load()
			if !errors.Is(err, ErrInvalidConfig) && !errors.Is(err, tap.ErrInvalidConfig) {
				t.Fatalf("%s=%s: err = %v", key, val, err)
			}
		})
	}
}
