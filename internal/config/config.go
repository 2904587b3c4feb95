package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"

	DefaultBaseURL   = "http://127.0.0.1:5000"
	DefaultTimeoutMS = 10000
)

type Config struct {
	Server   ServerConfig
	Upstream UpstreamConfig
	Client   ClientConfig
	Log      LogConfig
	Database DatabaseConfig
	Qdrant   QdrantConfig
	Gemini   GeminiConfig
	Storage  StorageConfig
	Worker   WorkerConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

// UpstreamConfig points at the backend that owns candidate data.
type UpstreamConfig struct {
	BaseURL string
}

// ClientConfig configures callers of the /api proxy surface.
type ClientConfig struct {
	APIBaseURL string
	Timeout    time.Duration
}

type LogConfig struct {
	Level string
	JSON  bool
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
}

type GeminiConfig struct {
	APIKey string
}

type StorageConfig struct {
	UploadPath  string
	MaxFileSize int64
}

type WorkerConfig struct {
	Concurrency       int
	RetryMaxAttempts  int
	RetryInitialDelay time.Duration
	PollInterval      time.Duration
}

// Load reads an optional .env file and builds the configuration from the
// environment. defaultPort differs per binary.
func Load(defaultPort string) *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Using default values.")
	}

	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", defaultPort),
			Env:  normalizeEnv(getEnv("NODE_ENV", getEnv("ENV", EnvDevelopment))),
		},
		Upstream: UpstreamConfig{
			BaseURL: strings.TrimRight(getEnv("NEXT_PUBLIC_BASE_URL", DefaultBaseURL), "/"),
		},
		Client: ClientConfig{
			APIBaseURL: strings.TrimRight(getEnv("NEXT_PUBLIC_API_BASE_URL", ""), "/"),
			Timeout:    time.Duration(getEnvAsPositiveInt("NEXT_PUBLIC_API_TIMEOUT", DefaultTimeoutMS)) * time.Millisecond,
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			JSON:  getEnvAsBool("LOG_JSON", false),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "cv_search"),
		},
		Qdrant: QdrantConfig{
			URL:        getEnv("QDRANT_URL", "http://localhost:6334"),
			APIKey:     getEnv("QDRANT_API_KEY", ""),
			Collection: getEnv("QDRANT_COLLECTION", "candidates"),
		},
		Gemini: GeminiConfig{
			APIKey: getEnv("GEMINI_API_KEY", ""),
		},
		Storage: StorageConfig{
			UploadPath:  getEnv("UPLOAD_PATH", "./uploads"),
			MaxFileSize: getEnvAsInt64("MAX_FILE_SIZE", 10485760),
		},
		Worker: WorkerConfig{
			Concurrency:       getEnvAsInt("WORKER_CONCURRENCY", 3),
			RetryMaxAttempts:  getEnvAsInt("RETRY_MAX_ATTEMPTS", 3),
			RetryInitialDelay: getEnvAsDuration("RETRY_INITIAL_DELAY", "2s"),
			PollInterval:      getEnvAsDuration("WORKER_POLL_INTERVAL", "10s"),
		},
	}
}

func (c *Config) IsDevelopment() bool { return c.Server.Env == EnvDevelopment }
func (c *Config) IsProduction() bool  { return c.Server.Env == EnvProduction }
func (c *Config) IsTest() bool        { return c.Server.Env == EnvTest }

// ProxyURL is the origin serving the /api proxy routes. Without an explicit
// NEXT_PUBLIC_API_BASE_URL the web server talks to its own listener.
func (c *Config) ProxyURL() string {
	if c.Client.APIBaseURL != "" {
		return c.Client.APIBaseURL
	}
	return "http://127.0.0.1:" + c.Server.Port
}

func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

// GetEnvVar returns the value of key, or the fallback when one is given.
// Without a fallback an unset variable is an error.
func GetEnvVar(key string, fallback ...string) (string, error) {
	if value := os.Getenv(key); value != "" {
		return value, nil
	}
	if len(fallback) == 0 {
		return "", fmt.Errorf("required environment variable %s is not set", key)
	}
	return fallback[0], nil
}

func normalizeEnv(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case EnvProduction:
		return EnvProduction
	case EnvTest:
		return EnvTest
	default:
		return EnvDevelopment
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsPositiveInt(key string, defaultValue int) int {
	if value := getEnvAsInt(key, defaultValue); value > 0 {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
