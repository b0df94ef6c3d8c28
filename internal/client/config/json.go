package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dpetrenko/filekeeper/internal/flagx"
	"github.com/dpetrenko/filekeeper/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify intervals either as
// strings like "5s" or as integer nanoseconds. After parsing, values
// are copied into the runtime Config (which uses time.Duration).
type JsonConfig struct {
	BackendURL        string         `json:"backend_url"`
	DataDir           string         `json:"data_dir"`
	RequestTimeout    timex.Duration `json:"request_timeout"`
	ReconcileInterval timex.Duration `json:"reconcile_interval"`
	StaleGrace        timex.Duration `json:"stale_grace"`
	MaxFileSizeBytes  int64          `json:"max_file_size_bytes"`
	AutoResumeLimit   int            `json:"auto_resume_limit"`
}

// parseJson overlays Config with values loaded from a JSON file.
//
// The file path comes from the -c or -config flags via
// flagx.JsonConfigFlags(); when neither is present no JSON is loaded.
// Fields absent from the file keep their current values. Panics on read or
// unmarshal errors (caller should recover if desired).
//
// Intended usage is: defaults -> parseJson -> parseFlags, where later stages
// override earlier ones.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.BackendURL != "" {
		cfg.BackendURL = jc.BackendURL
	}
	if jc.DataDir != "" {
		cfg.DataDir = jc.DataDir
	}
	if jc.RequestTimeout.Duration != 0 {
		cfg.RequestTimeout = time.Duration(jc.RequestTimeout.Duration)
	}
	if jc.ReconcileInterval.Duration != 0 {
		cfg.ReconcileInterval = time.Duration(jc.ReconcileInterval.Duration)
	}
	if jc.StaleGrace.Duration != 0 {
		cfg.StaleGrace = time.Duration(jc.StaleGrace.Duration)
	}
	if jc.MaxFileSizeBytes != 0 {
		cfg.MaxFileSizeBytes = jc.MaxFileSizeBytes
	}
	if jc.AutoResumeLimit != 0 {
		cfg.AutoResumeLimit = jc.AutoResumeLimit
	}
}
