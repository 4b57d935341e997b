// Package simulator produces synthetic generator telemetry with a
// daily load curve.
package simulator

import (
	"errors"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines the simulated generator's behavior.
type Config struct {
	IntervalSeconds int     `yaml:"interval_seconds"`
	MinPowerKW      float64 `yaml:"min_power_kw"`
	MaxPowerKW      float64 `yaml:"max_power_kw"`
	FuelFactor      float64 `yaml:"fuel_factor"`
	SeedHours       int     `yaml:"seed_hours"`
}

// LoadConfig loads simulator settings from the environment, with an
// optional YAML file named by SIMULATOR_CONFIG overriding it.
func LoadConfig() (Config, error) {
	cfg := Config{
		IntervalSeconds: getenvIntDefault("SIMULATION_INTERVAL_SECONDS", 2),
		MinPowerKW:      getenvFloatDefault("MIN_POWER_LOAD_KW", 50),
		MaxPowerKW:      getenvFloatDefault("MAX_POWER_LOAD_KW", 300),
		FuelFactor:      getenvFloatDefault("FUEL_EFFICIENCY_FACTOR", 0.3),
		SeedHours:       getenvIntDefault("SEED_HOURS", 24),
	}

	if path := os.Getenv("SIMULATOR_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	if cfg.IntervalSeconds < 1 {
		return cfg, errors.New("simulator: interval must be at least 1 second")
	}
	if cfg.MinPowerKW < 0 || cfg.MaxPowerKW <= cfg.MinPowerKW {
		return cfg, errors.New("simulator: power range must satisfy 0 <= min < max")
	}
	if cfg.FuelFactor <= 0 {
		return cfg, errors.New("simulator: fuel factor must be positive")
	}
	if cfg.SeedHours < 0 {
		return cfg, errors.New("simulator: seed hours must not be negative")
	}
	return cfg, nil
}

// Interval returns the simulation tick as a duration.
func (c Config) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvFloatDefault(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
