package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/RishiKendai/dupcheck/internal/configs/env"
	"github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for the application
type Config struct {
	// Comparison
	Workers int `toml:"workers"`

	// Output
	OutputDir       string `toml:"output_dir"`
	IndexFile       string `toml:"index_file"`
	MatrixFile      string `toml:"matrix_file"`
	MatrixPrecision int    `toml:"matrix_precision"`

	// Suspicious pair report
	ReportTop       int     `toml:"report_top"`
	ReportThreshold float64 `toml:"report_threshold"`

	// Run history (SQLite), empty disables
	HistoryDB string `toml:"history_db"`

	// MongoDB, empty URI disables
	MongoURI    string `toml:"mongo_uri"`
	MongoDBName string `toml:"mongo_db_name"`

	// Redis, empty host disables
	RedisHost               string        `toml:"redis_host"`
	RedisPassword           string        `toml:"redis_password"`
	RedisStreamKey          string        `toml:"redis_stream_key"`
	RedisConsumerGroup      string        `toml:"redis_consumer_group"`
	RedisDeadLetterKey      string        `toml:"redis_dead_letter_key"`
	StreamRetentionDuration time.Duration `toml:"-"`
	StatusTTL               time.Duration `toml:"-"`

	// JWT
	JWTSecret string `toml:"jwt_secret"`
	JWTIssuer string `toml:"jwt_issuer"`

	// Rate Limiting
	RateLimitRPS float64 `toml:"rate_limit_rps"`

	// Concurrency
	MaxConcurrentRuns int `toml:"max_concurrent_runs"`

	// Computation
	ComputationTimeout time.Duration `toml:"-"`

	// Logging
	LogLevel string `toml:"log_level"`

	// Server
	ServerPort  string `toml:"server_port"`
	MetricsPort string `toml:"metrics_port"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Workers:                 DefaultWorkers(),
		OutputDir:               ".",
		IndexFile:               "name.txt",
		MatrixFile:              "result.txt",
		MatrixPrecision:         6,
		ReportTop:               10,
		ReportThreshold:         0.6,
		MongoDBName:             "dupcheck",
		RedisStreamKey:          "dupcheck:stream",
		RedisConsumerGroup:      "dupcheck:group",
		RedisDeadLetterKey:      "dupcheck:dlq",
		StreamRetentionDuration: 24 * time.Hour,
		StatusTTL:               12 * time.Hour,
		JWTIssuer:               "dupcheck",
		RateLimitRPS:            10.0,
		MaxConcurrentRuns:       2,
		ComputationTimeout:      30 * time.Minute,
		LogLevel:                "info",
		ServerPort:              "8080",
		MetricsPort:             "2112",
	}
}

// DefaultWorkers sizes the pool from the CPU count, reserving a quarter of
// the cores for the rest of the system.
func DefaultWorkers() int {
	totalCPU := runtime.NumCPU()
	systemReserve := max(1, totalCPU/4)
	return max(1, totalCPU-systemReserve)
}

// Load builds the configuration from defaults, the optional TOML file at path,
// and environment variables, later sources overriding earlier ones.
// Durations are read from the environment only.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path = strings.TrimSpace(path); path != "" {
		if err := decodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(&cfg)
	return &cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config %s: %w", path, err)
	}
	defer file.Close()

	decoder := toml.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("config %s: %s", path, strict.String())
		}
		return fmt.Errorf("decode config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	// Comparison
	cfg.Workers = env.GetEnvInt("DUPCHECK_WORKERS", cfg.Workers)

	// Output
	cfg.OutputDir = env.GetEnv("DUPCHECK_OUTPUT_DIR", cfg.OutputDir)
	cfg.IndexFile = env.GetEnv("DUPCHECK_INDEX_FILE", cfg.IndexFile)
	cfg.MatrixFile = env.GetEnv("DUPCHECK_MATRIX_FILE", cfg.MatrixFile)
	cfg.MatrixPrecision = env.GetEnvInt("DUPCHECK_MATRIX_PRECISION", cfg.MatrixPrecision)

	// Report
	cfg.ReportTop = env.GetEnvInt("DUPCHECK_REPORT_TOP", cfg.ReportTop)
	cfg.ReportThreshold = env.GetEnvFloat("DUPCHECK_REPORT_THRESHOLD", cfg.ReportThreshold)

	// History
	cfg.HistoryDB = env.GetEnv("DUPCHECK_HISTORY_DB", cfg.HistoryDB)

	// MongoDB
	cfg.MongoURI = env.GetEnv("MONGO_URI", cfg.MongoURI)
	cfg.MongoDBName = env.GetEnv("MONGO_DB_NAME", cfg.MongoDBName)

	// Redis
	cfg.RedisHost = env.GetEnv("REDIS_HOST", cfg.RedisHost)
	cfg.RedisPassword = env.GetEnv("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisStreamKey = env.GetEnv("REDIS_STREAM_KEY", cfg.RedisStreamKey)
	cfg.RedisConsumerGroup = env.GetEnv("REDIS_CONSUMER_GROUP", cfg.RedisConsumerGroup)
	cfg.RedisDeadLetterKey = env.GetEnv("REDIS_DEAD_LETTER_KEY", cfg.RedisDeadLetterKey)
	cfg.StreamRetentionDuration = env.GetEnvDuration("STREAM_RETENTION", cfg.StreamRetentionDuration)
	cfg.StatusTTL = env.GetEnvDuration("DUPCHECK_STATUS_TTL", cfg.StatusTTL)

	// JWT
	cfg.JWTSecret = env.GetEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.JWTIssuer = env.GetEnv("JWT_ISSUER", cfg.JWTIssuer)

	// Rate Limiting
	cfg.RateLimitRPS = env.GetEnvFloat("RATE_LIMIT_RPS", cfg.RateLimitRPS)

	// Concurrency
	cfg.MaxConcurrentRuns = env.GetEnvInt("MAX_CONCURRENT_RUNS", cfg.MaxConcurrentRuns)

	// Computation
	cfg.ComputationTimeout = env.GetEnvDuration("COMPUTATION_TIMEOUT", cfg.ComputationTimeout)

	// Logging
	cfg.LogLevel = env.GetEnv("LOG_LEVEL", cfg.LogLevel)

	// Server
	cfg.ServerPort = env.GetEnv("SERVER_PORT", cfg.ServerPort)
	cfg.MetricsPort = env.GetEnv("METRICS_PORT", cfg.MetricsPort)
}

// Validate checks the settings every mode needs.
func (c *Config) Validate() error {
	if c.Workers <= 0 {
		return fmt.Errorf("DUPCHECK_WORKERS must be greater than 0")
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		return fmt.Errorf("DUPCHECK_OUTPUT_DIR is required")
	}
	if strings.TrimSpace(c.IndexFile) == "" {
		return fmt.Errorf("DUPCHECK_INDEX_FILE is required")
	}
	if strings.TrimSpace(c.MatrixFile) == "" {
		return fmt.Errorf("DUPCHECK_MATRIX_FILE is required")
	}
	if c.IndexFile == c.MatrixFile {
		return fmt.Errorf("index and matrix files must differ")
	}
	if c.MatrixPrecision < -1 {
		return fmt.Errorf("DUPCHECK_MATRIX_PRECISION must be -1 or greater")
	}
	if c.ReportTop < 0 {
		return fmt.Errorf("DUPCHECK_REPORT_TOP must not be negative")
	}
	if c.ReportThreshold < 0 || c.ReportThreshold > 1 {
		return fmt.Errorf("DUPCHECK_REPORT_THRESHOLD must lie in [0,1]")
	}
	if c.MongoURI != "" && c.MongoDBName == "" {
		return fmt.Errorf("MONGO_DB_NAME is required when MONGO_URI is set")
	}
	return nil
}

// ValidateServer checks the additional settings of serve mode.
func (c *Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.RateLimitRPS <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be greater than 0")
	}
	if c.MaxConcurrentRuns <= 0 {
		return fmt.Errorf("MAX_CONCURRENT_RUNS must be greater than 0")
	}
	if c.ComputationTimeout <= 0 {
		return fmt.Errorf("COMPUTATION_TIMEOUT must be greater than 0")
	}
	if c.RedisHost != "" && c.StreamRetentionDuration <= 0 {
		return fmt.Errorf("STREAM_RETENTION must be greater than 0")
	}
	if c.ServerPort == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}
	return nil
}
