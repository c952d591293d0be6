package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/outlinebot/internal/flagx"
)

// parseFlags overlays Config fields from command-line flags.
//
//	-t string      bot token
//	-admins list   comma separated admin user ids
//	-driver string database driver, pgx or sqlite
//	-d string      database DSN
//	-state string  conversation state backend, memory or database
//	-timeout dur   Outline API request timeout
//	-insecure bool skip TLS verification for Outline API calls
//	-sync dur      background reconciliation period, 0 disables
//	-w int         concurrent update workers
//	-health string gRPC health endpoint address
//	-log string    log level
//	-u, -p, -b, -g, -e  S3 user, password, bucket, region, endpoint
//
// Only these flags are read from os.Args, so other layers can parse their
// own flags from the same argument list.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-t", "-admins", "-driver", "-d", "-state", "-timeout", "-insecure",
		"-sync", "-w", "-health", "-log", "-u", "-p", "-b", "-g", "-e",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	admins := flagx.Int64List(config.AdminIDs)

	fs.StringVar(&config.BotToken, "t", config.BotToken, "bot token")
	fs.Var(&admins, "admins", "comma separated admin user ids")
	fs.StringVar(&config.DatabaseDriver, "driver", config.DatabaseDriver, "database driver (pgx|sqlite)")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.StateBackend, "state", config.StateBackend, "conversation state backend (memory|database)")
	fs.DurationVar(&config.OutlineRequestTimeout, "timeout", config.OutlineRequestTimeout, "Outline API request timeout")
	fs.BoolVar(&config.OutlineInsecureTLS, "insecure", config.OutlineInsecureTLS, "skip TLS verification for Outline API")
	fs.DurationVar(&config.SyncInterval, "sync", config.SyncInterval, "key reconciliation interval (0 disables)")
	fs.IntVar(&config.Workers, "w", config.Workers, "concurrent update workers")
	fs.StringVar(&config.HealthAddr, "health", config.HealthAddr, "gRPC health endpoint address")
	fs.StringVar(&config.LogLevel, "log", config.LogLevel, "log level")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 export bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AdminIDs = admins
}
