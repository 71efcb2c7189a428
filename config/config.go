// Package config gathers the settings shared by the binaries. Values come
// from flags whose defaults are read from the environment, which in turn may
// be seeded from a .env file.
package config

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"runtime"
	"slices"
	"strconv"
	"time"

	"github.com/brensch/speed/engine/decision"
	"github.com/joho/godotenv"
)

type Config struct {
	// URL is the game server websocket endpoint, KEY its API key.
	URL     string
	Key     string
	TimeURL string

	Strategy string
	Solver   string
	// Depth overrides the strategy's forecast depth when positive.
	Depth int
	// CutoffWeight and ImportanceWeight override the strategy when set.
	CutoffWeight     *float64
	ImportanceWeight *float64
	Boost            float64
	QueueSize        int
	Threads          int

	// SafetyBuffer is subtracted from the server deadline before deciding.
	SafetyBuffer time.Duration
	JoinGrace    time.Duration

	RecordDir string
	LogFormat string
	LogLevel  string
}

func DefaultConfig() Config {
	return Config{
		Strategy:     "balanced",
		Solver:       decision.KindGraph,
		Boost:        0.8,
		QueueSize:    10000,
		Threads:      runtime.NumCPU(),
		SafetyBuffer: 500 * time.Millisecond,
		JoinGrace:    100 * time.Millisecond,
		LogFormat:    "pretty",
		LogLevel:     "info",
	}
}

// LoadEnvFile copies the variables of path into the environment without
// overriding ones already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// RegisterFlags binds c to fs. Defaults come from the environment first and
// from c second.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.URL, "url", getEnvOrDefault("URL", c.URL), "Game server websocket URL")
	fs.StringVar(&c.Key, "key", getEnvOrDefault("KEY", c.Key), "Game server API key")
	fs.StringVar(&c.TimeURL, "time-url", getEnvOrDefault("TIME_URL", c.TimeURL), "Server clock endpoint (optional)")

	fs.StringVar(&c.Strategy, "strategy", getEnvOrDefault("STRATEGY", c.Strategy), "Weight preset: aggressive, balanced, defensive or dynamic")
	fs.StringVar(&c.Solver, "solver", getEnvOrDefault("SOLVER", c.Solver), "Solver: graph, classic, slowdown or random")
	fs.IntVar(&c.Depth, "depth", getEnvIntOrDefault("DEPTH", c.Depth), "Opponent forecast depth (0 = strategy default)")
	c.CutoffWeight = getEnvFloatPtr("CUTOFF_WEIGHT", c.CutoffWeight)
	fs.Func("cutoff-weight", "Cutoff weight, -1 for dynamic (default: strategy)", floatSetter(&c.CutoffWeight))
	c.ImportanceWeight = getEnvFloatPtr("IMPORTANCE_WEIGHT", c.ImportanceWeight)
	fs.Func("importance-weight", "Inverted importance weight, -1 for dynamic (default: strategy)", floatSetter(&c.ImportanceWeight))
	fs.Float64Var(&c.Boost, "boost", getEnvFloatOrDefault("BOOST", c.Boost), "Exponent applied to opponent probabilities when rating success")
	fs.IntVar(&c.QueueSize, "queue-size", getEnvIntOrDefault("QUEUE_SIZE", c.QueueSize), "Capacity of each frontier queue")
	fs.IntVar(&c.Threads, "threads", getEnvIntOrDefault("THREADS", c.Threads), "Worker goroutines for forecast and search")

	fs.DurationVar(&c.SafetyBuffer, "safety-buffer", getEnvDurationOrDefault("SAFETY_BUFFER", c.SafetyBuffer), "Time kept free before the server deadline")
	fs.DurationVar(&c.JoinGrace, "join-grace", getEnvDurationOrDefault("JOIN_GRACE", c.JoinGrace), "Time granted to search workers to stop")

	fs.StringVar(&c.RecordDir, "record-dir", getEnvOrDefault("RECORD_DIR", c.RecordDir), "Directory for decision parquet files (empty disables recording)")
	fs.StringVar(&c.LogFormat, "log-format", getEnvOrDefault("LOG_FORMAT", c.LogFormat), "Log format: pretty, json or text")
	fs.StringVar(&c.LogLevel, "log-level", getEnvOrDefault("LOG_LEVEL", c.LogLevel), "Log level: debug, info, warn or error")
}

func floatSetter(dst **float64) func(string) error {
	return func(s string) error {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*dst = &v
		return nil
	}
}

// Validate checks the engine settings.
func (c Config) Validate() error {
	if _, err := decision.ParseStrategy(c.Strategy); err != nil {
		return err
	}
	if !slices.Contains(decision.Kinds, c.Solver) {
		return fmt.Errorf("unknown solver %q", c.Solver)
	}
	if c.Depth < 0 {
		return fmt.Errorf("depth must not be negative, got %d", c.Depth)
	}
	if c.Threads < 1 {
		return fmt.Errorf("threads must be at least 1, got %d", c.Threads)
	}
	if c.QueueSize < 1 {
		return fmt.Errorf("queue size must be at least 1, got %d", c.QueueSize)
	}
	if c.Boost <= 0 {
		return fmt.Errorf("boost must be positive, got %g", c.Boost)
	}
	return nil
}

// WebsocketURL returns URL with the key attached as query parameter.
func (c Config) WebsocketURL() (string, error) {
	if c.URL == "" {
		return "", fmt.Errorf("URL is required")
	}
	if c.Key == "" {
		return "", fmt.Errorf("KEY is required")
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return "", fmt.Errorf("parse URL: %w", err)
	}
	q := u.Query()
	q.Set("key", c.Key)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Decision resolves the strategy preset and applies the overrides. Weight
// overrides apply to the classic weights as well. Matrices are kept only
// when decisions are recorded.
func (c Config) Decision(logger *slog.Logger) (decision.Config, error) {
	s, err := decision.ParseStrategy(c.Strategy)
	if err != nil {
		return decision.Config{}, err
	}
	dc := decision.DefaultConfig().WithStrategy(s)
	if c.Depth > 0 {
		dc.Forecast.Depth = c.Depth
	}
	if c.CutoffWeight != nil {
		dc.Weights.Cutoff = *c.CutoffWeight
		dc.ClassicWeights.Cutoff = *c.CutoffWeight
	}
	if c.ImportanceWeight != nil {
		dc.Weights.Importance = *c.ImportanceWeight
		dc.ClassicWeights.Importance = *c.ImportanceWeight
	}
	dc.Forecast.Threads = c.Threads
	dc.Search.Threads = c.Threads
	dc.Search.QueueSize = c.QueueSize
	dc.Search.Boost = c.Boost
	dc.Search.JoinGrace = c.JoinGrace
	dc.Matrices = c.RecordDir != ""
	dc.Logger = logger
	return dc, nil
}
