package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/janpfeifer/MemoryPairs/internal/game"
	"github.com/joho/godotenv"
)

const (
	EnvRoundSeconds = "MEMORY_ROUND_SECONDS"
	EnvFlipDelay    = "MEMORY_FLIP_DELAY"
	EnvSymbols      = "MEMORY_SYMBOLS"
)

type (
	// Game holds the settings shared with the browser.
	Game struct {
		RoundSeconds int           `env:"MEMORY_ROUND_SECONDS" envDefault:"60"`
		FlipDelay    time.Duration `env:"MEMORY_FLIP_DELAY" envDefault:"500ms"`
		Symbols      []string      `env:"MEMORY_SYMBOLS" envSeparator:","`
	}

	// Config of the server.
	Config struct {
		Addr            string        `env:"MEMORY_ADDR" envDefault:"localhost:8080"`
		DBPath          string        `env:"MEMORY_DB_PATH" envDefault:"memory.db"`
		ShutdownTimeout time.Duration `env:"MEMORY_SHUTDOWN_TIMEOUT" envDefault:"5s"`
		Game            Game
	}
)

// Load reads the configuration from the environment, after loading
// an optional .env file from the working directory.
func Load() (Config, error) {
	_ = godotenv.Load()
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse configuration: %w", err)
	}
	if err := cfg.Game.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DefaultGame returns the game settings used when nothing is configured.
func DefaultGame() Game {
	return Game{
		RoundSeconds: int(game.DefaultRoundDuration / game.TickInterval),
		FlipDelay:    game.DefaultFlipDelay,
	}
}

// LoadGame parses the game settings from the given environment.
// Missing keys take their defaults.
func LoadGame(environment map[string]string) (Game, error) {
	var g Game
	if err := env.ParseWithOptions(&g, env.Options{Environment: environment}); err != nil {
		return Game{}, fmt.Errorf("failed to parse game settings: %w", err)
	}
	if err := g.Validate(); err != nil {
		return Game{}, err
	}
	return g, nil
}

// Validate rejects non-positive durations. Unlike game.Options, where zero
// means default, a configured zero is a mistake.
func (g Game) Validate() error {
	if g.RoundSeconds <= 0 {
		return fmt.Errorf("%s=%d: %w", EnvRoundSeconds, g.RoundSeconds, game.ErrInvalidDuration)
	}
	if g.FlipDelay <= 0 {
		return fmt.Errorf("%s=%s: %w", EnvFlipDelay, g.FlipDelay, game.ErrInvalidDuration)
	}
	return nil
}

// Env returns the game settings as environment variables, to be forwarded
// to the browser.
func (g Game) Env() map[string]string {
	e := map[string]string{
		EnvRoundSeconds: strconv.Itoa(g.RoundSeconds),
		EnvFlipDelay:    g.FlipDelay.String(),
	}
	if len(g.Symbols) > 0 {
		e[EnvSymbols] = strings.Join(g.Symbols, ",")
	}
	return e
}

// Options converts the settings into game options.
func (g Game) Options() game.Options {
	return game.Options{
		Symbols:       g.Symbols,
		RoundDuration: time.Duration(g.RoundSeconds) * game.TickInterval,
		FlipDelay:     g.FlipDelay,
	}
}
