// Package config loads OptionChain-Simulator's ambient settings from
// the environment, the way slack-trading's utils.InitEnvironmentVariables
// loads its .env files, generalized to also apply the defaults the
// session engine requires when a variable is unset.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/shopspring/decimal"
)

const (
	DEV_ENV_FILENAME  = ".env.development"
	PROD_ENV_FILENAME = ".env.production"
)

// Config holds every environment-configurable knob named in SPEC_FULL.md §6.1.
type Config struct {
	SessionTTL         time.Duration
	SweepInterval      time.Duration
	DefaultChainSize   int
	DefaultTick        decimal.Decimal
	DefaultSpread      decimal.Decimal
	HTTPPort           string
	HistoricalSource   string
}

// Load reads an optional .env file (mirroring the teacher's
// GO_ENV-switched dev/prod file pair) and then resolves every setting,
// falling back to the spec-mandated default whenever a variable is
// unset or unparsable.
func Load() (*Config, error) {
	if os.Getenv("ENV") != "production" {
		envFile := DEV_ENV_FILENAME
		if os.Getenv("GO_ENV") == "production" {
			envFile = PROD_ENV_FILENAME
		}

		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return nil, fmt.Errorf("config: failed to load %s: %w", envFile, err)
			}
		}
	} else {
		log.Info("config: running in production environment, skipping .env file")
	}

	cfg := &Config{
		SessionTTL:       durationEnv("SESSION_TTL_SECONDS", 1800*time.Second),
		SweepInterval:    durationEnv("SWEEP_INTERVAL_SECONDS", 60*time.Second),
		DefaultChainSize: intEnv("DEFAULT_CHAIN_SIZE", 15),
		DefaultTick:      decimalEnv("DEFAULT_TICK", decimal.NewFromFloat(0.02)),
		DefaultSpread:    decimalEnv("DEFAULT_SPREAD", decimal.NewFromFloat(0.02)),
		HTTPPort:         stringEnv("HTTP_PORT", "8080"),
		HistoricalSource: stringEnv("HISTORICAL_SOURCE", "memory"),
	}

	return cfg, nil
}

func stringEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func intEnv(name string, fallback int) int {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warnf("config: invalid %s=%q, using default %d", name, v, fallback)
		return fallback
	}

	return n
}

func durationEnv(name string, fallback time.Duration) time.Duration {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}

	secs, err := strconv.Atoi(v)
	if err != nil {
		log.Warnf("config: invalid %s=%q, using default %s", name, v, fallback)
		return fallback
	}

	return time.Duration(secs) * time.Second
}

func decimalEnv(name string, fallback decimal.Decimal) decimal.Decimal {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}

	d, err := decimal.NewFromString(v)
	if err != nil {
		log.Warnf("config: invalid %s=%q, using default %s", name, v, fallback)
		return fallback
	}

	return d
}
