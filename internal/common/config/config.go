package config

import (
	"os"
	"strconv"
	"strings"
)

// ============================================================
// Configuration
// ============================================================

type Config struct {
	Port         string
	Environment  string
	ReadTimeout  int
	WriteTimeout int
	CORSOrigins  []string

	DocumentDBPath   string
	DocumentSeedPath string

	DefaultWallHeightMM   float64
	DefaultHeightOffsetMM float64
	PointTolerance        float64
	SessionIdleTimeout    int
}

// Load загружает конфигурацию из переменных окружения
func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "3003"),
		Environment:  getEnv("ENV", "development"),
		ReadTimeout:  getEnvAsInt("READ_TIMEOUT", 10),
		WriteTimeout: getEnvAsInt("WRITE_TIMEOUT", 10),
		CORSOrigins:  getEnvAsList("CORS_ORIGINS"),

		DocumentDBPath:   getEnv("DOCUMENT_DB_PATH", "data/db/document.db"),
		DocumentSeedPath: getEnv("DOCUMENT_SEED_PATH", ""),

		DefaultWallHeightMM:   getEnvAsFloat("DEFAULT_WALL_HEIGHT_MM", 3000),
		DefaultHeightOffsetMM: getEnvAsFloat("DEFAULT_HEIGHT_OFFSET_MM", 2800),
		PointTolerance:        getEnvAsFloat("POINT_TOLERANCE", 1e-6),
		SessionIdleTimeout:    getEnvAsInt("SESSION_IDLE_TIMEOUT", 600),
	}
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsFloat(key string, defaultVal float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil && f > 0 {
			return f
		}
	}
	return defaultVal
}

func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
