package config

import (
	"flag"
	"os"

	"github.com/dpetrenko/filekeeper/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   bind address for the HTTP API
//	-s string   storage directory for local mode
//	-s3         issue real S3 presigned URLs
//
// Note: The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-s", "-s3"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.EndpointAddr, "a", cfg.EndpointAddr, "bind address for the HTTP API")
	fs.StringVar(&cfg.StorageDir, "s", cfg.StorageDir, "storage directory for local mode")
	fs.BoolVar(&cfg.UseS3, "s3", cfg.UseS3, "issue real S3 presigned URLs")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
