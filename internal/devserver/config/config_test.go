package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, ":8080", c.EndpointAddr)
	assert.Equal(t, "devserver_data", c.StorageDir)
	assert.Equal(t, 15*time.Minute, c.PresignTTL)
	assert.False(t, c.UseS3)
	assert.Equal(t, "filekeeper", c.S3Bucket)
}

func Test_parseJson_Overlay(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.json")
	b, err := json.Marshal(map[string]any{
		"endpoint_addr": ":9090",
		"presign_ttl":   "5m",
		"use_s3":        true,
		"s3_bucket":     "uploads",
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))

	os.Args = []string{"testbin", "-config", path}

	cfg := &Config{StorageDir: "keepme"}
	parseJson(cfg)

	assert.Equal(t, ":9090", cfg.EndpointAddr)
	assert.Equal(t, 5*time.Minute, cfg.PresignTTL)
	assert.True(t, cfg.UseS3)
	assert.Equal(t, "uploads", cfg.S3Bucket)
	assert.Equal(t, "keepme", cfg.StorageDir)
}

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"cmd", "-a", ":7070", "-s", "/tmp/objects"}

	cfg := &Config{}
	parseFlags(cfg)

	assert.Equal(t, ":7070", cfg.EndpointAddr)
	assert.Equal(t, "/tmp/objects", cfg.StorageDir)
}
