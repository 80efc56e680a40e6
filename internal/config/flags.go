package config

import (
	"flag"
	"os"
	"strings"

	"github.com/avolkovs/applybot/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-k string   comma-separated search keywords
//	-l string   comma-separated search locations
//	-n int      maximum applications this run
//	-d string   database DSN (sqlite path or postgres URL)
//	-headless   run the browser headless
//	-v          verbose (debug) logging
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-k", "-l", "-n", "-d", "-headless", "-v"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	keywords := fs.String("k", "", "comma-separated search keywords")
	locations := fs.String("l", "", "comma-separated search locations")
	fs.IntVar(&cfg.MaxDailyApplications, "n", cfg.MaxDailyApplications, "maximum applications this run")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "database DSN")
	fs.BoolVar(&cfg.Headless, "headless", cfg.Headless, "run the browser headless")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "verbose logging")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	if *keywords != "" {
		cfg.Keywords = splitList(*keywords)
	}
	if *locations != "" {
		cfg.Locations = splitList(*locations)
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
