// Package config loads runtime configuration for the FileKeeper client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the upload backend
//	-d string   data directory for the local database and blobs
//	-i int      reconciliation interval (seconds)
//	-g int      stale-transfer grace period (seconds)
//	-r int      automatic resume attempts per upload
//
// # JSON schema
//
// The JSON loader uses timex.Duration for intervals, so values can be either
// strings like "5s" or integer nanoseconds:
//
//	{
//	  "backend_url": "http://127.0.0.1:8080",
//	  "data_dir": "filekeeper_data",
//	  "request_timeout": "15s",
//	  "reconcile_interval": "5s",
//	  "stale_grace": "30s",
//	  "max_file_size_bytes": 2147483648,
//	  "auto_resume_limit": 1
//	}
//
// Note: This package does not read environment variables directly; use the
// JSON file or flags to configure values.
package config
