// Package config loads server configuration. Values come from defaults, then
// an optional YAML file, then the environment (a .env file is read into the
// environment first without overriding variables already set).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Corpus drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Session backends
const (
	SessionMemory = "memory"
	SessionRedis  = "redis"
)

// Config holds every setting of the server and the command-line tools.
type Config struct {
	Port string `yaml:"port"`

	CorpusDriver string `yaml:"corpus_driver"`
	SQLitePath   string `yaml:"sqlite_path"`
	DatabaseURL  string `yaml:"database_url"`

	GeminiAPIKey string `yaml:"gemini_api_key"`
	GeminiModel  string `yaml:"gemini_model"`

	DifyAPIURL    string `yaml:"dify_api_url"`
	DifyAPIKey    string `yaml:"dify_api_key"`
	DifyDatasetID string `yaml:"dify_dataset_id"`

	DirectThreshold     float64       `yaml:"direct_threshold"`
	FAQMatchThreshold   float64       `yaml:"faq_match_threshold"`
	FallbackEnabled     bool          `yaml:"fallback_enabled"`
	CollaboratorTimeout time.Duration `yaml:"collaborator_timeout"`

	SessionBackend string        `yaml:"session_backend"`
	RedisAddr      string        `yaml:"redis_addr"`
	SessionTTL     time.Duration `yaml:"session_ttl"`

	StorageType      string `yaml:"storage_type"`
	StorageLocalPath string `yaml:"storage_local_path"`
	S3Bucket         string `yaml:"aws_s3_bucket"`
	AWSRegion        string `yaml:"aws_region"`
	// Static credentials; empty means the default AWS credential chain
	AWSAccessKeyID     string `yaml:"-"`
	AWSSecretAccessKey string `yaml:"-"`

	WatchCorpus bool   `yaml:"watch_corpus"`
	LogLevel    string `yaml:"log_level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Port:                "8080",
		CorpusDriver:        DriverSQLite,
		SQLitePath:          "chatbot.db",
		GeminiModel:         "gemini-2.0-flash",
		DirectThreshold:     0.85,
		FAQMatchThreshold:   0.5,
		FallbackEnabled:     true,
		CollaboratorTimeout: 30 * time.Second,
		SessionBackend:      SessionMemory,
		RedisAddr:           "localhost:6379",
		SessionTTL:          24 * time.Hour,
		StorageType:         "local",
		StorageLocalPath:    "./storage/files",
		AWSRegion:           "us-east-1",
		LogLevel:            "info",
	}
}

// Load builds the configuration. yamlPath may be empty; CONFIG_FILE is used
// when it is. envFiles default to ".env"; missing files are ignored.
func Load(yamlPath string, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	cfg := Default()

	if yamlPath == "" {
		yamlPath = os.Getenv("CONFIG_FILE")
	}
	if yamlPath != "" {
		data, err := os.ReadFile(yamlPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"PORT":                  &c.Port,
		"CORPUS_DRIVER":         &c.CorpusDriver,
		"SQLITE_PATH":           &c.SQLitePath,
		"DATABASE_URL":          &c.DatabaseURL,
		"GEMINI_API_KEY":        &c.GeminiAPIKey,
		"GEMINI_MODEL":          &c.GeminiModel,
		"DIFY_API_URL":          &c.DifyAPIURL,
		"DIFY_API_KEY":          &c.DifyAPIKey,
		"DIFY_DATASET_ID":       &c.DifyDatasetID,
		"SESSION_BACKEND":       &c.SessionBackend,
		"REDIS_ADDR":            &c.RedisAddr,
		"STORAGE_TYPE":          &c.StorageType,
		"STORAGE_LOCAL_PATH":    &c.StorageLocalPath,
		"AWS_S3_BUCKET":         &c.S3Bucket,
		"AWS_REGION":            &c.AWSRegion,
		"AWS_ACCESS_KEY_ID":     &c.AWSAccessKeyID,
		"AWS_SECRET_ACCESS_KEY": &c.AWSSecretAccessKey,
		"LOG_LEVEL":             &c.LogLevel,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	floats := map[string]*float64{
		"DIRECT_THRESHOLD":    &c.DirectThreshold,
		"FAQ_MATCH_THRESHOLD": &c.FAQMatchThreshold,
	}
	for key, dst := range floats {
		if v := os.Getenv(key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", key, err)
			}
			*dst = f
		}
	}

	bools := map[string]*bool{
		"FALLBACK_ENABLED": &c.FallbackEnabled,
		"WATCH_CORPUS":     &c.WatchCorpus,
	}
	for key, dst := range bools {
		if v := os.Getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", key, err)
			}
			*dst = b
		}
	}

	durations := map[string]*time.Duration{
		"COLLABORATOR_TIMEOUT": &c.CollaboratorTimeout,
		"SESSION_TTL":          &c.SessionTTL,
	}
	for key, dst := range durations {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", key, err)
			}
			*dst = d
		}
	}
	return nil
}

// Validate checks value ranges and the settings each backend requires.
func (c *Config) Validate() error {
	var errs []error

	c.CorpusDriver = strings.ToLower(c.CorpusDriver)
	switch c.CorpusDriver {
	case DriverSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required for the sqlite corpus driver"))
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres corpus driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown corpus driver: %s", c.CorpusDriver))
	}

	c.SessionBackend = strings.ToLower(c.SessionBackend)
	switch c.SessionBackend {
	case SessionMemory:
	case SessionRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required for the redis session backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown session backend: %s", c.SessionBackend))
	}

	if c.DirectThreshold < 0 || c.DirectThreshold > 1 {
		errs = append(errs, fmt.Errorf("DIRECT_THRESHOLD must be within [0, 1], got %v", c.DirectThreshold))
	}
	if c.FAQMatchThreshold < 0 || c.FAQMatchThreshold > 1 {
		errs = append(errs, fmt.Errorf("FAQ_MATCH_THRESHOLD must be within [0, 1], got %v", c.FAQMatchThreshold))
	}
	if c.CollaboratorTimeout <= 0 {
		errs = append(errs, errors.New("COLLABORATOR_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}

// DifyConfigured reports whether the semantic retrieval service is set up.
func (c *Config) DifyConfigured() bool {
	return c.DifyAPIURL != "" && c.DifyAPIKey != "" && c.DifyDatasetID != ""
}
