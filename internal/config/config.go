package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server ServerConfig
	Store  StoreConfig
	OCR    OCRConfig
	Vision VisionConfig
	Worker WorkerConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Host           string
	Port           string
	MaxUploadBytes int64
}

// StoreConfig holds task store configuration
type StoreConfig struct {
	ResultsDir string
}

// OCRConfig holds settings shared by the recognition backends
type OCRConfig struct {
	DefaultBackend  string
	UseGPU          bool
	Languages       []string
	RasterDPI       int
	PdftoppmPath    string
	MinTextualChars int
}

// VisionConfig holds settings for the generative vision backend
type VisionConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// WorkerConfig holds background worker pool configuration
type WorkerConfig struct {
	Count     int
	QueueSize int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if file doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnv("SERVER_PORT", "8080"),
			MaxUploadBytes: getEnvInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB
		},
		Store: StoreConfig{
			ResultsDir: getEnv("RESULTS_DIR", "results"),
		},
		OCR: OCRConfig{
			DefaultBackend:  getEnv("DEFAULT_BACKEND", "tesseract"),
			UseGPU:          getEnvBool("OCR_USE_GPU", false),
			Languages:       splitList(getEnv("OCR_LANGUAGES", "eng,rus")),
			RasterDPI:       getEnvInt("RASTER_DPI", 300),
			PdftoppmPath:    getEnv("PDFTOPPM_PATH", "pdftoppm"),
			MinTextualChars: getEnvInt("MIN_TEXTUAL_CHARS", 20),
		},
		Vision: VisionConfig{
			APIKey:  getEnv("OPENAI_API_KEY", ""),
			BaseURL: getEnv("OPENAI_BASE_URL", ""),
			Model:   getEnv("VISION_MODEL", "gpt-4o-mini"),
		},
		Worker: WorkerConfig{
			Count:     getEnvInt("WORKER_COUNT", 2),
			QueueSize: getEnvInt("QUEUE_SIZE", 32),
		},
	}

	// Validate required fields
	if cfg.Store.ResultsDir == "" {
		return nil, fmt.Errorf("RESULTS_DIR is required")
	}
	if cfg.OCR.DefaultBackend == "" {
		return nil, fmt.Errorf("DEFAULT_BACKEND is required")
	}
	if cfg.OCR.RasterDPI < 72 || cfg.OCR.RasterDPI > 1200 {
		return nil, fmt.Errorf("RASTER_DPI must be between 72 and 1200, got %d", cfg.OCR.RasterDPI)
	}
	if cfg.Worker.Count < 1 {
		return nil, fmt.Errorf("WORKER_COUNT must be at least 1, got %d", cfg.Worker.Count)
	}
	if cfg.Worker.QueueSize < 1 {
		return nil, fmt.Errorf("QUEUE_SIZE must be at least 1, got %d", cfg.Worker.QueueSize)
	}

	return cfg, nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an environment variable as int or returns a default value
func getEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvInt64 retrieves an environment variable as int64 or returns a default value
func getEnvInt64(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvBool treats "1", "true" and "yes" as true
func getEnvBool(key string, defaultValue bool) bool {
	valueStr := strings.ToLower(os.Getenv(key))
	if valueStr == "" {
		return defaultValue
	}
	return valueStr == "1" || valueStr == "true" || valueStr == "yes"
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
