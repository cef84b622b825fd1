package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/studiosync/internal/flagx"
)

// parseFlags populates server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string     HTTP bind address (e.g., ":8080")
//	-d string     PostgreSQL DSN
//	-s string     JWT HMAC secret key
//	-t duration   token validity (e.g., "24h")
//	-u string     bootstrap user name
//	-p string     bootstrap password
//	-l string     log level
//
// Only recognized flags are passed to the FlagSet, see flagx.FilterArgs.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-t", "-u", "-p", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.DurationVar(&config.TokenValidity, "t", config.TokenValidity, "token validity")
	fs.StringVar(&config.BootstrapUser, "u", config.BootstrapUser, "bootstrap user name")
	fs.StringVar(&config.BootstrapPassword, "p", config.BootstrapPassword, "bootstrap password")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
