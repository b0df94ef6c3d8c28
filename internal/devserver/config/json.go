package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dpetrenko/filekeeper/internal/flagx"
	"github.com/dpetrenko/filekeeper/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so the presign TTL can be given as "15m" or as integer
// nanoseconds.
type JsonConfig struct {
	EndpointAddr   string         `json:"endpoint_addr"`
	StorageDir     string         `json:"storage_dir"`
	PresignTTL     timex.Duration `json:"presign_ttl"`
	UseS3          bool           `json:"use_s3"`
	S3RootUser     string         `json:"s3_root_user"`
	S3RootPassword string         `json:"s3_root_password"`
	S3Bucket       string         `json:"s3_bucket"`
	S3Region       string         `json:"s3_region"`
	S3BaseEndpoint string         `json:"s3_base_endpoint"`
}

// parseJson overlays Config with values loaded from a JSON file selected via
// the -c or -config flags. Fields absent from the file keep their current
// values. Panics on read or unmarshal errors.
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

	if jc.EndpointAddr != "" {
		cfg.EndpointAddr = jc.EndpointAddr
	}
	if jc.StorageDir != "" {
		cfg.StorageDir = jc.StorageDir
	}
	if jc.PresignTTL.Duration != 0 {
		cfg.PresignTTL = time.Duration(jc.PresignTTL.Duration)
	}
	if jc.UseS3 {
		cfg.UseS3 = true
	}
	if jc.S3RootUser != "" {
		cfg.S3RootUser = jc.S3RootUser
	}
	if jc.S3RootPassword != "" {
		cfg.S3RootPassword = jc.S3RootPassword
	}
	if jc.S3Bucket != "" {
		cfg.S3Bucket = jc.S3Bucket
	}
	if jc.S3Region != "" {
		cfg.S3Region = jc.S3Region
	}
	if jc.S3BaseEndpoint != "" {
		cfg.S3BaseEndpoint = jc.S3BaseEndpoint
	}
}
