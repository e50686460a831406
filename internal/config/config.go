// Package config loads mindtrace settings from the environment.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/rcliao/mindtrace/internal/log"
)

// Config is the full runtime configuration.
type Config struct {
	DBPath string `env:"MINDTRACE_DB"`
	Debug  bool   `env:"MINDTRACE_DEBUG" envDefault:"false"`

	Thresholds Thresholds `envPrefix:"MINDTRACE_"`
	Memory     Memory     `envPrefix:"MINDTRACE_"`
	Embed      Embed      `envPrefix:"MINDTRACE_EMBED_"`
	Render     Render     `envPrefix:"MINDTRACE_RENDER_"`
	Server     Server     `envPrefix:"MINDTRACE_SERVER_"`
}

// Thresholds holds every detector tunable.
type Thresholds struct {
	// Chain aggregation.
	MinChainLength int     `env:"MIN_CHAIN_LENGTH" envDefault:"3" validate:"gte=2"`
	MinCoherence   float64 `env:"MIN_COHERENCE" envDefault:"0.45" validate:"gte=-1,lte=1"`
	MinSignals     int     `env:"MIN_SIGNALS" envDefault:"2" validate:"gte=1"`
	DeltaThreshold float64 `env:"DELTA_THRESHOLD" envDefault:"0.05" validate:"gte=0"`

	// Behavioral windows.
	SpiralWindow         int     `env:"SPIRAL_WINDOW" envDefault:"6" validate:"gte=1"`
	SpiralRepetition     float64 `env:"SPIRAL_REPETITION" envDefault:"0.8" validate:"gte=0,lte=1"`
	SpiralMinCount       int     `env:"SPIRAL_MIN_COUNT" envDefault:"3" validate:"gte=1"`
	TrendWindow          int     `env:"TREND_WINDOW" envDefault:"6" validate:"gte=2"`
	TrendDelta           float64 `env:"TREND_DELTA" envDefault:"0.1" validate:"gte=0"`
	RuminationWindow     int     `env:"RUMINATION_WINDOW" envDefault:"4" validate:"gte=1"`
	RuminationRepetition float64 `env:"RUMINATION_REPETITION" envDefault:"0.7" validate:"gte=0,lte=1"`
	RuminationSentiment  float64 `env:"RUMINATION_SENTIMENT" envDefault:"-0.3" validate:"gte=-1,lte=1"`
	RuminationMinCount   int     `env:"RUMINATION_MIN_COUNT" envDefault:"3" validate:"gte=1"`
	AbsolutistWindow     int     `env:"ABSOLUTIST_WINDOW" envDefault:"5" validate:"gte=1"`
	AbsolutistMinCount   int     `env:"ABSOLUTIST_MIN_COUNT" envDefault:"2" validate:"gte=1"`

	// Session snapshot.
	NegativeSentiment      float64 `env:"NEGATIVE_SENTIMENT" envDefault:"-0.6" validate:"gte=-1,lte=1"`
	NegativeMinCount       int     `env:"NEGATIVE_MIN_COUNT" envDefault:"3" validate:"gte=1"`
	RepetitiveCognition    float64 `env:"REPETITIVE_COGNITION" envDefault:"0.8" validate:"gte=0,lte=1"`
	RepetitiveMinCount     int     `env:"REPETITIVE_MIN_COUNT" envDefault:"2" validate:"gte=1"`
	LateNightMinCount      int     `env:"LATE_NIGHT_MIN_COUNT" envDefault:"2" validate:"gte=1"`
	RepetitionNote         float64 `env:"REPETITION_NOTE" envDefault:"0.7" validate:"gte=0,lte=1"`
	RepetitionNoteMinCount int     `env:"REPETITION_NOTE_MIN_COUNT" envDefault:"2" validate:"gte=1"`
	TrendBucket            float64 `env:"TREND_BUCKET" envDefault:"0.3" validate:"gte=0,lte=1"`

	// Safety guard.
	MaxSentences int `env:"MAX_SENTENCES" envDefault:"4" validate:"gte=1"`
}

// Memory controls how much stored memory feeds a run.
type Memory struct {
	HistoryLimit       int `env:"HISTORY_LIMIT" envDefault:"30" validate:"gte=6"`
	RecentLimit        int `env:"RECENT_LIMIT" envDefault:"10" validate:"gte=1"`
	RepetitionLookback int `env:"REPETITION_LOOKBACK" envDefault:"5" validate:"gte=0"`
}

// Embed selects and tunes the embedding provider.
type Embed struct {
	Provider      string  `env:"PROVIDER" envDefault:"hash" validate:"oneof=hash ollama openai"`
	Model         string  `env:"MODEL"`
	URL           string  `env:"URL"`
	APIKey        string  `env:"API_KEY"`
	Dims          int     `env:"DIMS" envDefault:"384" validate:"gte=0"`
	Concurrency   int     `env:"CONCURRENCY" envDefault:"4" validate:"gte=1,lte=64"`
	RatePerSecond float64 `env:"RATE" envDefault:"10" validate:"gt=0"`
	SegmentChars  int     `env:"SEGMENT_CHARS" envDefault:"1200" validate:"gte=100"`
}

// Render selects the text renderer.
type Render struct {
	Provider    string  `env:"PROVIDER" envDefault:"template" validate:"oneof=template chat"`
	URL         string  `env:"URL"`
	APIKey      string  `env:"API_KEY"`
	Model       string  `env:"MODEL" envDefault:"llama-3.1-8b-instant"`
	Temperature float64 `env:"TEMPERATURE" envDefault:"0.4" validate:"gte=0,lte=2"`
	Attempts    int     `env:"ATTEMPTS" envDefault:"3" validate:"gte=1,lte=10"`
}

// Server configures the HTTP API.
type Server struct {
	Addr string `env:"ADDR" envDefault:"127.0.0.1:8088" validate:"required"`
}

// Default returns the configuration with every default applied and no
// environment lookups.
func Default() Config {
	var c Config
	if err := env.ParseWithOptions(&c, env.Options{Environment: map[string]string{}}); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	c.DBPath = defaultDBPath()
	return c
}

// Load reads an optional .env file, then the environment, then validates.
func Load(ctx context.Context, dotenvPath string) (*Config, error) {
	if dotenvPath != "" {
		if err := godotenv.Load(dotenvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", dotenvPath, err)
		}
	}

	c := &Config{}
	if err := env.Parse(c); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if c.DBPath == "" {
		c.DBPath = defaultDBPath()
	}

	if err := Validate(c); err != nil {
		return nil, err
	}

	log.FromCtx(ctx).Debug().
		Str("db", c.DBPath).
		Str("embed", c.Embed.Provider).
		Str("render", c.Render.Provider).
		Msg("configuration loaded")
	return c, nil
}

func defaultDBPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".mindtrace", "mindtrace.db")
}
