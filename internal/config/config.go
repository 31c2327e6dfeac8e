package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port        string
	GinMode     string
	CORSOrigins []string

	// Gemini / embeddings
	GeminiAPIKey    string
	GeminiModel     string
	EmbeddingsModel string

	// Retrieval
	ChunkSize            int
	ChunkOverlap         int
	MinChunkSize         int
	MaxResults           int
	MaxDistance          float64
	ShowConfidenceScores bool
	ShowPageNumbers      bool

	// Storage locations
	VectorstorePath string
	PDFDirectory    string

	// MongoDB (conversation history)
	MongoURI string
	DBName   string

	// Redis (rate limiting + task queue)
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// Rate limiting
	RateLimitReqs   int
	RateLimitWindow int

	// Scheduled reindexing (cron expression, empty disables)
	ReindexCron string
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8008"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8008"), ","),

		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		EmbeddingsModel: getEnv("EMBEDDINGS_MODEL", "text-embedding-004"),

		ChunkSize:            getEnvInt("CHUNK_SIZE", 800),
		ChunkOverlap:         getEnvInt("CHUNK_OVERLAP", 150),
		MinChunkSize:         getEnvInt("MIN_CHUNK_SIZE", 100),
		MaxResults:           getEnvInt("MAX_RESULTS", 3),
		MaxDistance:          getEnvFloat64("MAX_DISTANCE", 0.9),
		ShowConfidenceScores: getEnvBool("SHOW_CONFIDENCE_SCORES", true),
		ShowPageNumbers:      getEnvBool("SHOW_PAGE_NUMBERS", true),

		VectorstorePath: getEnv("VECTORSTORE_PATH", "./vectorstore/index.gob"),
		PDFDirectory:    getEnv("PDF_DIRECTORY", "./data/pdf"),

		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017/sop_assistant"),
		DBName:   getEnv("DB_NAME", "sop_assistant"),

		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),

		ReindexCron: getEnv("REINDEX_CRON", ""),
	}

	// Validate required fields
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required - set it in .env file")
	}

	// Validate retrieval parameters once at load so request paths never
	// see an inconsistent chunking window.
	if cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("CHUNK_SIZE must be positive, got %d", cfg.ChunkSize)
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_SIZE), got %d", cfg.ChunkOverlap)
	}
	if cfg.MaxResults <= 0 {
		return nil, fmt.Errorf("MAX_RESULTS must be positive, got %d", cfg.MaxResults)
	}
	if cfg.MaxDistance < 0 {
		return nil, fmt.Errorf("MAX_DISTANCE must be non-negative, got %f", cfg.MaxDistance)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
