// Package config loads the server configuration from the environment.
package config

import (
	"runtime"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds the full server configuration. Optimization fields are
// the server-side defaults for runs that do not specify their own
// parameters.
type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	HTTP        struct {
		Port            int           `env:"HTTP_PORT" envDefault:"8080"`
		ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
		WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
		IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	}
	Logging struct {
		Level  string `env:"LOG_LEVEL" envDefault:"info"`
		Format string `env:"LOG_FORMAT" envDefault:"json"`
		Output string `env:"LOG_OUTPUT" envDefault:"stderr"`
	}
	Optimization struct {
		WorkerCount       int           `env:"OPT_WORKER_COUNT" envDefault:"0"`
		Mutation          float64       `env:"OPT_MUTATION" envDefault:"0.5"`
		Recombination     float64       `env:"OPT_RECOMBINATION" envDefault:"0.7"`
		PopsizeMultiplier int           `env:"OPT_POPSIZE_MULTIPLIER" envDefault:"10"`
		MaxIterations     int           `env:"OPT_MAX_ITERATIONS" envDefault:"1000"`
		StopAfter         time.Duration `env:"OPT_STOP_AFTER" envDefault:"0"`
		Parallel          bool          `env:"OPT_PARALLEL" envDefault:"true"`
	}
}

// Load parses the configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	// Worker count 0 means one worker per CPU
	if cfg.Optimization.WorkerCount <= 0 {
		cfg.Optimization.WorkerCount = runtime.NumCPU()
	}

	// Development gets debug logging unless overridden
	if cfg.Environment == "development" && cfg.Logging.Level == "" {
		cfg.Logging.Level = "debug"
	}

	return cfg, nil
}
