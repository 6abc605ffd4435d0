// Package config loads the driver's configuration from environment
// variables (and an optional .env file), the same load order the teacher
// uses: .env first, then process environment, with typed defaults for
// every field except the scenario path, which has no default and which
// Validate requires.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/closedloop/econsim/internal/ledger"
)

// Config holds the driver-level knobs that sit outside the ledger's own
// Policy: where artifacts are written, how verbose logging is, the PRNG
// seed, and the outer run-loop stop conditions (spec.md §6 "run": {mode,
// max_days, quiet_days, default_handling, rollover_enabled}).
type Config struct {
	ScenarioPath string // path to the scenario file (internal/scenario.Load)
	ArtifactDir  string // directory for the sqlite artifact store
	LogLevel     string // debug, info, warn, error
	Seed         int64  // dealer PRNG seed

	MaxDays   int
	QuietDays int

	DefaultMode     string // "fail-fast" or "expel-agent"
	RolloverEnabled bool
	InvariantMode   string // "off", "commit", "daily"

	DealerEnabled bool
}

// Load reads configuration from the environment, applying the teacher's
// load order: .env file (if present, ignored if absent) then process
// environment, each field falling back to a documented default.
func Load() (*Config, error) {
	_ = godotenv.Load()

	artifactDir := getEnv("ECONSIM_ARTIFACT_DIR", "./artifacts")
	absDir, err := filepath.Abs(artifactDir)
	if err != nil {
		return nil, fmt.Errorf("config: resolve artifact dir: %w", err)
	}
	if err := os.MkdirAll(absDir, 0o755); err != nil {
		return nil, fmt.Errorf("config: create artifact dir: %w", err)
	}

	cfg := &Config{
		ScenarioPath:    getEnv("ECONSIM_SCENARIO", ""),
		ArtifactDir:     absDir,
		LogLevel:        getEnv("ECONSIM_LOG_LEVEL", "info"),
		Seed:            getEnvAsInt64("ECONSIM_SEED", 1),
		MaxDays:         getEnvAsInt("ECONSIM_MAX_DAYS", 365),
		QuietDays:       getEnvAsInt("ECONSIM_QUIET_DAYS", 3),
		DefaultMode:     getEnv("ECONSIM_DEFAULT_MODE", string(ledger.ModeFailFast)),
		RolloverEnabled: getEnvAsBool("ECONSIM_ROLLOVER_ENABLED", false),
		InvariantMode:   getEnv("ECONSIM_INVARIANT_MODE", ledger.InvariantCheckCommit),
		DealerEnabled:   getEnvAsBool("ECONSIM_DEALER_ENABLED", false),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations that would make the driver unable to
// start at all; everything else is a matter of scenario-specific policy
// decided by the (out-of-core) scenario loader.
func (c *Config) Validate() error {
	if c.ScenarioPath == "" {
		return fmt.Errorf("config: ECONSIM_SCENARIO must name a scenario file")
	}
	if c.MaxDays <= 0 {
		return fmt.Errorf("config: max_days must be positive, got %d", c.MaxDays)
	}
	if c.QuietDays <= 0 {
		return fmt.Errorf("config: quiet_days must be positive, got %d", c.QuietDays)
	}
	switch ledger.DefaultMode(c.DefaultMode) {
	case ledger.ModeFailFast, ledger.ModeExpelAgent:
	default:
		return fmt.Errorf("config: unknown default_mode %q", c.DefaultMode)
	}
	switch c.InvariantMode {
	case ledger.InvariantCheckOff, ledger.InvariantCheckCommit, ledger.InvariantCheckDaily:
	default:
		return fmt.Errorf("config: unknown invariant mode %q", c.InvariantMode)
	}
	return nil
}

// Policy builds the ledger.Policy this configuration describes. MOPRank
// overrides are a scenario-level concern (policy_overrides in spec.md
// §6) and are layered on by the caller after this base is built.
func (c *Config) Policy() *ledger.Policy {
	return &ledger.Policy{
		DefaultMode:        ledger.DefaultMode(c.DefaultMode),
		RolloverEnabled:    c.RolloverEnabled,
		InvariantCheckMode: c.InvariantMode,
	}
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}
