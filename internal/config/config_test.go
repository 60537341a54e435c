package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("OUTPUT_DIR", "/tmp/orders")
	t.Setenv("PARSE_WORKERS", "0")
	t.Setenv("EXPORT_XLSX", "yes")
	t.Setenv("ORDER_DETECT_THRESHOLD", "not-a-number")
	t.Setenv("GMAIL_REQUESTS_PER_SEC", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/orders", cfg.OutputDir)
	assert.Equal(t, 1, cfg.Workers)
	assert.True(t, cfg.ExportXLSX)
	assert.Equal(t, 0.45, cfg.DetectThreshold)
	assert.Equal(t, 5, cfg.GmailRequestsPerSec)
}

func TestRequire(t *testing.T) {
	var cfg Config
	assert.Error(t, cfg.Require("IMAP_HOST", "  "))
	assert.NoError(t, cfg.Require("IMAP_HOST", "imap.example.com"))
}
