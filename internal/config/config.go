package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jonmartinstorm/repodash/internal/logger"
)

const (
	DefaultHost              = "localhost"
	DefaultPort              = "8080"
	DefaultCacheTTL          = 5 * time.Minute
	DefaultLanguageBatchSize = 5
	DefaultRequestTimeout    = 10 * time.Second
	DefaultAnalyticsTimeout  = 60 * time.Second
	// Client-side pacing is off unless GITHUB_REQUESTS_PER_HOUR is set.
	DefaultRequestsPerHour   = 0
	DefaultBurst             = 100
	DefaultSnapshotDir       = "data"
	DefaultServiceName       = "repodash"
)

type Config struct {
	Token             string
	Host              string
	Port              string
	Debug             bool
	LogLevel          string
	CacheTTL          time.Duration
	LanguageBatchSize int
	RequestTimeout    time.Duration
	AnalyticsTimeout  time.Duration
	GitHubAPIURL      string
	RequestsPerHour   float64
	Burst             int
	SnapshotDir       string
	OTLPEndpoint      string
	ServiceName       string
}

// LoadConfigWithEnv builds a Config from getenv. Values that do not parse fall
// back to their defaults with a warning; ValidateConfig checks the ranges.
func LoadConfigWithEnv(getenv func(string) string) Config {
	token := getenv("GITHUB_TOKEN")
	if token == "" {
		token = getenv("GH_TOKEN")
	}

	return Config{
		Token:             token,
		Host:              withDefault(getenv("HOST"), DefaultHost),
		Port:              withDefault(getenv("PORT"), DefaultPort),
		Debug:             getenv("REPODASH_DEBUG") == "true",
		LogLevel:          getenv("LOG_LEVEL"),
		CacheTTL:          parseDuration(getenv, "CACHE_TTL", DefaultCacheTTL),
		LanguageBatchSize: parseInt(getenv, "LANGUAGE_BATCH_SIZE", DefaultLanguageBatchSize),
		RequestTimeout:    parseDuration(getenv, "GITHUB_REQUEST_TIMEOUT", DefaultRequestTimeout),
		AnalyticsTimeout:  parseDuration(getenv, "ANALYTICS_TIMEOUT", DefaultAnalyticsTimeout),
		GitHubAPIURL:      getenv("GITHUB_API_URL"),
		RequestsPerHour:   parseFloat(getenv, "GITHUB_REQUESTS_PER_HOUR", DefaultRequestsPerHour),
		Burst:             parseInt(getenv, "GITHUB_BURST", DefaultBurst),
		SnapshotDir:       withDefault(getenv("SNAPSHOT_DIR"), DefaultSnapshotDir),
		OTLPEndpoint:      getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		ServiceName:       withDefault(getenv("OTEL_SERVICE_NAME"), DefaultServiceName),
	}
}

// ValidateConfig checks everything except the token, which only the one-shot
// commands need (see ValidateToken). The server takes tokens per request.
func ValidateConfig(cfg Config) error {
	if cfg.Port == "" {
		return errors.New("PORT must be set")
	}
	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return fmt.Errorf("PORT must be a number, got %q", cfg.Port)
	}
	if cfg.CacheTTL <= 0 {
		return errors.New("CACHE_TTL must be a positive duration")
	}
	if cfg.LanguageBatchSize < 1 {
		return errors.New("LANGUAGE_BATCH_SIZE must be a positive integer")
	}
	if cfg.RequestTimeout <= 0 {
		return errors.New("GITHUB_REQUEST_TIMEOUT must be a positive duration")
	}
	if cfg.AnalyticsTimeout <= 0 {
		return errors.New("ANALYTICS_TIMEOUT must be a positive duration")
	}
	if cfg.RequestsPerHour < 0 {
		return errors.New("GITHUB_REQUESTS_PER_HOUR must not be negative")
	}
	if cfg.Burst < 1 {
		return errors.New("GITHUB_BURST must be a positive integer")
	}
	if cfg.LogLevel != "" {
		if _, ok := logger.ParseLevel(cfg.LogLevel); !ok {
			return fmt.Errorf("LOG_LEVEL must be debug, info, warn or error, got %q", cfg.LogLevel)
		}
	}
	return nil
}

func ValidateToken(cfg Config) error {
	if cfg.Token == "" {
		return errors.New("GITHUB_TOKEN or GH_TOKEN must be set")
	}
	return nil
}

// Addr is the listen address built from Host and Port.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// Level resolves the log level: LOG_LEVEL wins over REPODASH_DEBUG.
func (c Config) Level() slog.Level {
	if level, ok := logger.ParseLevel(c.LogLevel); ok {
		return level
	}
	if c.Debug {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// Loader reads configuration from the environment, an optional .env file and an
// optional config file, in that order of precedence.
type Loader struct {
	v *viper.Viper
}

// NewLoader loads .env (if present) into the process environment and, when
// configFile is non-empty, reads it as a viper config file.
func NewLoader(configFile string) (*Loader, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded, using process environment", "error", err)
	}

	v := viper.New()
	v.AutomaticEnv()
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configFile, err)
		}
	}
	return &Loader{v: v}, nil
}

// BindDebugFlag makes a set --debug flag count as REPODASH_DEBUG=true, above the
// environment and the config file, for the first load and every reload alike.
func (l *Loader) BindDebugFlag(f *pflag.Flag) error {
	if f == nil {
		return errors.New("debug flag not defined")
	}
	return l.v.BindPFlag("REPODASH_DEBUG", f)
}

func (l *Loader) Getenv(key string) string {
	return strings.TrimSpace(l.v.GetString(key))
}

func (l *Loader) Load() (Config, error) {
	cfg := LoadConfigWithEnv(l.Getenv)
	if err := ValidateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// OnLogLevelChange calls fn with the resolved level now and again whenever the
// config file changes on disk. Without a config file only the initial call happens.
func (l *Loader) OnLogLevelChange(fn func(slog.Level)) {
	apply := func() { fn(LoadConfigWithEnv(l.Getenv).Level()) }
	apply()
	if l.v.ConfigFileUsed() == "" {
		return
	}
	l.v.OnConfigChange(func(e fsnotify.Event) {
		slog.Info("Config file changed", "file", e.Name, "op", e.Op.String())
		apply()
	})
	l.v.WatchConfig()
}

// NewConfig loads and validates configuration from the environment, using
// CONFIG_FILE when set.
func NewConfig() (Config, error) {
	l, err := NewLoader(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return Config{}, err
	}
	return l.Load()
}

func withDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func parseDuration(getenv func(string) string, key string, def time.Duration) time.Duration {
	raw := getenv(key)
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		slog.Warn("Invalid duration, using default", "key", key, "value", raw, "default", def.String())
		return def
	}
	return d
}

func parseInt(getenv func(string) string, key string, def int) int {
	raw := getenv(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		slog.Warn("Invalid integer, using default", "key", key, "value", raw, "default", def)
		return def
	}
	return n
}

func parseFloat(getenv func(string) string, key string, def float64) float64 {
	raw := getenv(key)
	if raw == "" {
		return def
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		slog.Warn("Invalid number, using default", "key", key, "value", raw, "default", def)
		return def
	}
	return f
}
