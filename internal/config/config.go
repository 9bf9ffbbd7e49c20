// Package config loads process bootstrap configuration for the cmd/
// binaries from environment variables (optionally populated by a .env
// file), following the teacher pack's walletserver/config.Load pattern
// (godotenv.Load then os.Getenv with defaults). Like internal/logging,
// this is ambient bootstrap wiring: spec.md §1 places "configuration
// loading" out of scope for the core itself.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/das-systems/das-core/attention"
	"github.com/das-systems/das-core/hebbian"
)

// Config holds everything a cmd/ binary needs to wire the core packages
// together.
type Config struct {
	// LogLevel is passed to internal/logging.Config.Level.
	LogLevel string
	// LogJSON is passed to internal/logging.Config.JSON.
	LogJSON bool

	// AttentionWorkers is the Attention pool's fixed worker-thread count
	// (spec.md §4.8, default attention.DefaultWorkerCount).
	AttentionWorkers int

	// Spreader holds the TokenSpreader's tunables (spec.md §4.7).
	Spreader hebbian.SpreaderConfig
}

// Load reads an optional .env file (missing is not an error, matching a
// binary run with only real environment variables set) and then env vars,
// falling back to documented spec defaults for anything unset.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return Config{}, err
		}
	}

	cfg := Config{
		LogLevel:         getEnv("DAS_LOG_LEVEL", "info"),
		LogJSON:          getEnvBool("DAS_LOG_JSON", false),
		AttentionWorkers: getEnvInt("DAS_ATTENTION_WORKERS", attention.DefaultWorkerCount),
		Spreader:         hebbian.DefaultSpreaderConfig(),
	}
	cfg.Spreader.RentRate = getEnvFloat("DAS_RENT_RATE", cfg.Spreader.RentRate)
	cfg.Spreader.SpreadingRateLowerBound = getEnvFloat("DAS_SPREADING_RATE_LOWERBOUND", cfg.Spreader.SpreadingRateLowerBound)
	cfg.Spreader.SpreadingRateUpperBound = getEnvFloat("DAS_SPREADING_RATE_UPPERBOUND", cfg.Spreader.SpreadingRateUpperBound)
	cfg.Spreader.MaxStimulatePerCycle = getEnvInt("DAS_MAX_STIMULATE_PER_CYCLE", cfg.Spreader.MaxStimulatePerCycle)
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
