package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Discord  DiscordConfig  `yaml:"discord"`
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
	Trivia   TriviaConfig   `yaml:"trivia"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Port string `yaml:"port" env:"PORT"`
}

type DiscordConfig struct {
	Token  string `yaml:"token" env:"DISCORD_TOKEN"`
	Prefix string `yaml:"prefix" env:"DISCORD_PREFIX"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
}

type PostgresConfig struct {
	URL string `yaml:"url" env:"DATABASE_URL"`
}

type TriviaConfig struct {
	// Timeout is how long the owner has to answer, e.g. "20s".
	Timeout string `yaml:"timeout" env:"TRIVIA_TIMEOUT"`
	// Provider selects the question source: opentdb, postgres or static.
	Provider      string `yaml:"provider" env:"TRIVIA_PROVIDER"`
	OpenTDBURL    string `yaml:"opentdb_url" env:"TRIVIA_OPENTDB_URL"`
	ClientTimeout string `yaml:"client_timeout" env:"TRIVIA_CLIENT_TIMEOUT"`
	// PoolSize is how many questions one upstream call prefetches; 0 disables pooling.
	PoolSize int    `yaml:"pool_size" env:"TRIVIA_POOL_SIZE"`
	PoolTTL  string `yaml:"pool_ttl" env:"TRIVIA_POOL_TTL"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"`
}

// Load reads YAML config from path and applies environment overrides. A
// missing file is not an error so the bot can run from env alone.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Discord.Prefix == "" {
		c.Discord.Prefix = "!"
	}
	if c.Trivia.Provider == "" {
		c.Trivia.Provider = "opentdb"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Duration parses a duration string or returns the fallback if empty or invalid.
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	return fallback
}

// Logger builds the process logger from the log section.
func (l LogConfig) Logger() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(l.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(l.Format) == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
