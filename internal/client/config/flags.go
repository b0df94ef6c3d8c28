package config

import (
	"flag"
	"os"
	"time"

	"github.com/dpetrenko/filekeeper/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   base URL of the upload backend (default from Config)
//	-d string   data directory for the local database and blobs
//	-i int      reconciliation interval in seconds
//	-g int      stale-transfer grace period in seconds
//	-r int      automatic resume attempts per upload
//
// Note: The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-i", "-g", "-r"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.BackendURL, "a", cfg.BackendURL, "base URL of the upload backend")
	fs.StringVar(&cfg.DataDir, "d", cfg.DataDir, "data directory for local state")
	reconcileInterval := fs.Int("i", int(cfg.ReconcileInterval.Seconds()), "reconciliation interval (in seconds)")
	staleGrace := fs.Int("g", int(cfg.StaleGrace.Seconds()), "stale transfer grace (in seconds)")
	fs.IntVar(&cfg.AutoResumeLimit, "r", cfg.AutoResumeLimit, "automatic resume attempts per upload")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.ReconcileInterval = time.Duration(*reconcileInterval) * time.Second
	cfg.StaleGrace = time.Duration(*staleGrace) * time.Second
}
