package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"uc_coin/internal/session"
	"uc_coin/internal/tap"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Port        string
	CORSOrigins []string
	RedisURL    string
	BotToken    string

	MissionsFile string
	PromoCode    string

	EnergyMax         int64
	EnergyRegenPerSec float64
	ComboWindow       time.Duration
	WelcomeBonus      int64
	LedgerSize        int
	URLTimer          time.Duration

	PromoMaxAttempts int
	PromoWindow      time.Duration
	HTTPRatePerMin   int
	TrustProxy       bool
	MetricsEnabled   bool

	Tap tap.Config
}

func optionalEnv(key string) string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		log.Printf("missing env: %s, using default", key)
	}
	return val
}

func envInt64(key string, def int64) int64 {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func envFloat64(key string, def float64) float64 {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	n, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return def
	}
	return n
}

func envBool(key string, def bool) bool {
	val := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if val == "" {
		return def
	}
	switch val {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

// envDuration accepts Go durations ("90s", "1h") or a plain number of seconds.
func envDuration(key string, def time.Duration) time.Duration {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(val, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	return def
}

func Load() (Config, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	cfg := Config{
		Port:        port,
		CORSOrigins: parseCSV(os.Getenv("CORS_ALLOWED_ORIGINS")),
		RedisURL:    strings.TrimSpace(os.Getenv("REDIS_URL")),
		BotToken:    optionalEnv("BOT_TOKEN"),

		MissionsFile: strings.TrimSpace(os.Getenv("MISSIONS_FILE")),
		PromoCode:    strings.TrimSpace(os.Getenv("PROMO_CODE")),

		EnergyMax:         envInt64("ENERGY_MAX", 1000),
		EnergyRegenPerSec: envFloat64("ENERGY_REGEN_PER_SEC", 1.0),
		ComboWindow:       envDuration("COMBO_WINDOW", 3*time.Second),
		WelcomeBonus:      envInt64("WELCOME_BONUS", 500),
		LedgerSize:        int(envInt64("LEDGER_SIZE", 50)),
		URLTimer:          time.Duration(envInt64("URL_TIMER_SECONDS", 15)) * time.Second,

		PromoMaxAttempts: int(envInt64("PROMO_MAX_ATTEMPTS", 5)),
		PromoWindow:      envDuration("PROMO_WINDOW", 10*time.Minute),
		HTTPRatePerMin:   int(envInt64("HTTP_RATE_PER_MIN", 600)),
		TrustProxy:       envBool("TRUST_PROXY", false),
		MetricsEnabled:   envBool("METRICS_ENABLED", true),

		Tap: loadTapConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch {
	case c.EnergyMax <= 0:
		return fmt.Errorf("%w: ENERGY_MAX must be > 0", ErrInvalidConfig)
	case c.EnergyRegenPerSec < 0:
		return fmt.Errorf("%w: ENERGY_REGEN_PER_SEC must be >= 0", ErrInvalidConfig)
	case c.ComboWindow < 0:
		return fmt.Errorf("%w: COMBO_WINDOW must be >= 0", ErrInvalidConfig)
	case c.WelcomeBonus < 0:
		return fmt.Errorf("%w: WELCOME_BONUS must be >= 0", ErrInvalidConfig)
	case c.LedgerSize <= 0:
		return fmt.Errorf("%w: LEDGER_SIZE must be > 0", ErrInvalidConfig)
	case c.URLTimer <= 0:
		return fmt.Errorf("%w: URL_TIMER_SECONDS must be > 0", ErrInvalidConfig)
	case c.PromoMaxAttempts <= 0 || c.PromoWindow <= 0:
		return fmt.Errorf("%w: PROMO_MAX_ATTEMPTS and PROMO_WINDOW must be > 0", ErrInvalidConfig)
	case c.HTTPRatePerMin < 0:
		return fmt.Errorf("%w: HTTP_RATE_PER_MIN must be >= 0", ErrInvalidConfig)
	}
	if err := c.Tap.Validate(); err != nil {
		return err
	}
	return nil
}

func (c Config) Session() session.Config {
	return session.Config{
		EnergyLimit:       c.EnergyMax,
		EnergyRegenPerSec: c.EnergyRegenPerSec,
		ComboWindow:       c.ComboWindow,
		WelcomeBonus:      c.WelcomeBonus,
		LedgerSize:        c.LedgerSize,
	}
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	if strings.Contains(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

func parseCSV(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	seen := map[string]struct{}{}
	for _, p := range parts {
		s := strings.TrimSpace(p)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
