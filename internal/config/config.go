// Package config loads application configuration from the environment.
package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	// Server
	Port string
	Env  string

	// Optional static API token. When set, /api/v1 requires the X-API-Key
	// header to match it.
	APIToken string

	// Gemini
	GeminiAPIKey   string
	GeminiModel    string
	EmbeddingModel string
	EmbeddingDim   int

	// Ingestion tuning. The dedup field set and merchant normalization
	// rules are deployment knobs, not constants.
	DedupWithCard       bool
	MerchantNoiseTokens []string

	// Chat
	ChatContextTurns    int
	ChatContextMaxChars int
	ChatDefaultTopK     int
}

// Load reads configuration from the environment, consulting .env first.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	cfg := &Config{
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		APIToken: getEnv("API_TOKEN", ""),

		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		EmbeddingModel: getEnv("EMBEDDING_MODEL", "text-embedding-004"),
		EmbeddingDim:   getEnvInt("EMBEDDING_DIM", 768),

		DedupWithCard:       getEnvBool("DEDUP_WITH_CARD", true),
		MerchantNoiseTokens: getEnvList("MERCHANT_NOISE_TOKENS"),

		ChatContextTurns:    getEnvInt("CHAT_CONTEXT_TURNS", 10),
		ChatContextMaxChars: getEnvInt("CHAT_CONTEXT_MAX_CHARS", 16000),
		ChatDefaultTopK:     getEnvInt("CHAT_DEFAULT_TOP_K", 20),
	}

	return cfg, nil
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("Warning: invalid %s value %q, using %d\n", key, raw, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		log.Printf("Warning: invalid %s value %q, using %t\n", key, raw, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var items []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
