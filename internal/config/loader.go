package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures environment driven configuration values for the service.
type Config struct {
	HTTPPort              int
	SQLiteDSN             string
	GenerationTick        time.Duration
	GenerationCooldown    time.Duration
	GenerationHorizonDays int
	GenerationRunAfter    time.Duration
}

// Load parses configuration values from the current process environment.
//
// Every value has a sensible default; set values are validated and reported
// together so a misconfigured deployment fails with the full list.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:              8080,
		SQLiteDSN:             "file:timetrack.db",
		GenerationTick:        time.Hour,
		GenerationCooldown:    5 * time.Minute,
		GenerationHorizonDays: 7,
		GenerationRunAfter:    30 * time.Minute,
	}

	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("TIMETRACK_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "TIMETRACK_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("TIMETRACK_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if tickValue := strings.TrimSpace(os.Getenv("TIMETRACK_GENERATION_TICK")); tickValue != "" {
		tick, err := time.ParseDuration(tickValue)
		if err != nil || tick <= 0 {
			invalid = append(invalid, "TIMETRACK_GENERATION_TICK")
		} else {
			cfg.GenerationTick = tick
		}
	}

	if cooldownValue := strings.TrimSpace(os.Getenv("TIMETRACK_GENERATION_COOLDOWN")); cooldownValue != "" {
		cooldown, err := time.ParseDuration(cooldownValue)
		if err != nil || cooldown <= 0 {
			invalid = append(invalid, "TIMETRACK_GENERATION_COOLDOWN")
		} else {
			cfg.GenerationCooldown = cooldown
		}
	}

	if horizonValue := strings.TrimSpace(os.Getenv("TIMETRACK_GENERATION_HORIZON_DAYS")); horizonValue != "" {
		horizon, err := strconv.Atoi(horizonValue)
		if err != nil || horizon < 0 {
			invalid = append(invalid, "TIMETRACK_GENERATION_HORIZON_DAYS")
		} else {
			cfg.GenerationHorizonDays = horizon
		}
	}

	if runAfterValue := strings.TrimSpace(os.Getenv("TIMETRACK_GENERATION_RUN_AFTER")); runAfterValue != "" {
		runAfter, err := parseTimeOfDay(runAfterValue)
		if err != nil {
			invalid = append(invalid, "TIMETRACK_GENERATION_RUN_AFTER")
		} else {
			cfg.GenerationRunAfter = runAfter
		}
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variable values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// parseTimeOfDay converts an "HH:MM" string into an offset from midnight.
func parseTimeOfDay(value string) (time.Duration, error) {
	parsed, err := time.Parse("15:04", value)
	if err != nil {
		return 0, err
	}
	return time.Duration(parsed.Hour())*time.Hour + time.Duration(parsed.Minute())*time.Minute, nil
}
