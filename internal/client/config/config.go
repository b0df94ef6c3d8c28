package config

import "time"

// Config holds runtime settings for the FileKeeper client.
//
// Fields:
//   - BackendURL: base URL of the upload backend API.
//   - DataDir: directory holding the local database and pending blobs.
//   - RequestTimeout: per-request timeout for backend API calls.
//   - ReconcileInterval: how often the reconciliation pass runs.
//   - StaleGrace: how long an upload may go without progress before it is
//     reclassified as failed.
//   - MaxFileSizeBytes: upper bound on accepted file size, 0 disables it.
//   - AutoResumeLimit: automatic resume attempts per upload before the
//     record is left for the user.
type Config struct {
	BackendURL        string
	DataDir           string
	RequestTimeout    time.Duration
	ReconcileInterval time.Duration
	StaleGrace        time.Duration
	MaxFileSizeBytes  int64
	AutoResumeLimit   int
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.BackendURL = "http://127.0.0.1:8080"
	c.DataDir = "filekeeper_data"
	c.RequestTimeout = 15 * time.Second
	c.ReconcileInterval = 5 * time.Second
	c.StaleGrace = 30 * time.Second
	c.MaxFileSizeBytes = 2 << 30
	c.AutoResumeLimit = 1
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
