package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "MALARIA_"

type Config struct {
	Server ServerConfig
	Model  ModelConfig
	Log    LogConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	Mode            string
	MaxUploadBytes  int64
	ShutdownTimeout time.Duration
}

// Addr returns the listen address in host:port form.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

type ModelConfig struct {
	Path         string
	MetadataPath string
	// LibraryPath points at the onnxruntime shared library. Empty uses the
	// platform default lookup.
	LibraryPath string
}

type LogConfig struct {
	Level  string
	Format string
}

// Load reads an optional .env file and then MALARIA_* environment variables
// on top of the defaults.
func Load() (*Config, error) {
	// A missing .env is fine
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Mode: getEnv("SERVER_MODE", "release"),
		},
		Model: ModelConfig{
			Path:         getEnv("MODEL_PATH", "malaria_classifier.onnx"),
			MetadataPath: getEnv("MODEL_METADATA_PATH", ""),
			LibraryPath:  getEnv("MODEL_LIBRARY_PATH", ""),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	var err error
	if cfg.Server.Port, err = getInt("SERVER_PORT", 8000); err != nil {
		return nil, err
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return nil, fmt.Errorf("invalid %sSERVER_PORT: %d", envPrefix, cfg.Server.Port)
	}

	maxUpload, err := getInt("SERVER_MAX_UPLOAD_BYTES", 10<<20)
	if err != nil {
		return nil, err
	}
	if maxUpload <= 0 {
		return nil, fmt.Errorf("invalid %sSERVER_MAX_UPLOAD_BYTES: %d", envPrefix, maxUpload)
	}
	cfg.Server.MaxUploadBytes = int64(maxUpload)

	if cfg.Server.ShutdownTimeout, err = getDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(envPrefix + key); ok {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	raw, ok := os.LookupEnv(envPrefix + key)
	if !ok {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s%s %q: %w", envPrefix, key, raw, err)
	}
	return v, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw, ok := os.LookupEnv(envPrefix + key)
	if !ok {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s%s %q: %w", envPrefix, key, raw, err)
	}
	return v, nil
}
