package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "ENV", "DOCUMENT_DB_PATH", "DEFAULT_WALL_HEIGHT_MM", "POINT_TOLERANCE"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, "3003", cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "data/db/document.db", cfg.DocumentDBPath)
	assert.Equal(t, 3000.0, cfg.DefaultWallHeightMM)
	assert.Equal(t, 2800.0, cfg.DefaultHeightOffsetMM)
	assert.Equal(t, 1e-6, cfg.PointTolerance)
	assert.Equal(t, 600, cfg.SessionIdleTimeout)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DEFAULT_WALL_HEIGHT_MM", "2500")
	t.Setenv("READ_TIMEOUT", "30")

	cfg := Load()
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 2500.0, cfg.DefaultWallHeightMM)
	assert.Equal(t, 30, cfg.ReadTimeout)
}

func TestLoadIgnoresInvalidNumbers(t *testing.T) {
	t.Setenv("DEFAULT_WALL_HEIGHT_MM", "tall")
	t.Setenv("POINT_TOLERANCE", "-1")
	t.Setenv("WRITE_TIMEOUT", "soon")

	cfg := Load()
	assert.Equal(t, 3000.0, cfg.DefaultWallHeightMM)
	assert.Equal(t, 1e-6, cfg.PointTolerance)
	assert.Equal(t, 10, cfg.WriteTimeout)
}

func TestLoadCORSOrigins(t *testing.T) {
	t.Setenv("CORS_ORIGINS", "http://localhost:5173, https://plans.example.com,")

	cfg := Load()
	assert.Equal(t, []string{"http://localhost:5173", "https://plans.example.com"}, cfg.CORSOrigins)
}
