package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/studiosync/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-d string     local data file
//	-a string     server address (host:port/path)
//	-s bool       use https
//	-r duration   delay between two queued requests
//	-p duration   heartbeat ping interval
//	-m string     merge policy: accept or newer
//	-l string     log level
//	-o string     log file (stderr when empty)
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-a", "-s", "-r", "-p", "-m", "-l", "-o"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.DataFile, "d", cfg.DataFile, "local data file")
	fs.StringVar(&cfg.ServerAddress, "a", cfg.ServerAddress, "server address")
	fs.BoolVar(&cfg.UseSSL, "s", cfg.UseSSL, "use https")
	fs.DurationVar(&cfg.RequestDelay, "r", cfg.RequestDelay, "delay between requests")
	fs.DurationVar(&cfg.PingInterval, "p", cfg.PingInterval, "ping interval")
	fs.StringVar(&cfg.MergePolicy, "m", cfg.MergePolicy, "merge policy (accept|newer)")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.LogFile, "o", cfg.LogFile, "log file")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
