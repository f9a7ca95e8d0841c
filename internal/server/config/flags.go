package config

import (
	"flag"
	"os"
	"time"

	"github.com/afterword/vaultword/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-s string   server secret
//	-i string   identity endpoint base URL
//	-k string   identity anon key
//	-j string   identity JWT secret (enables local verification)
//	-l string   billing API base URL
//	-m string   billing API secret
//	-n string   pro entitlement name
//	-t int      outbound call timeout, seconds
//	-w int      retention window, hours
//	-v int      sweep interval, minutes
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//
// The function first filters os.Args to only the flags it recognizes
// using flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-a", "-d", "-s", "-i", "-k", "-j", "-l", "-m", "-n",
		"-t", "-w", "-v", "-u", "-p", "-b", "-g", "-e",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.ServerSecret, "s", config.ServerSecret, "server secret")
	fs.StringVar(&config.IdentityBaseURL, "i", config.IdentityBaseURL, "identity endpoint base URL")
	fs.StringVar(&config.IdentityAnonKey, "k", config.IdentityAnonKey, "identity anon key")
	fs.StringVar(&config.IdentityJWTSecret, "j", config.IdentityJWTSecret, "identity JWT secret")
	fs.StringVar(&config.BillingBaseURL, "l", config.BillingBaseURL, "billing API base URL")
	fs.StringVar(&config.BillingAPISecret, "m", config.BillingAPISecret, "billing API secret")
	fs.StringVar(&config.EntitlementName, "n", config.EntitlementName, "pro entitlement name")

	outboundTimeout := fs.Int("t", int(config.OutboundTimeout.Seconds()), "outbound call timeout (in seconds)")
	retentionWindow := fs.Int("w", int(config.RetentionWindow.Hours()), "retention window (in hours)")
	sweepInterval := fs.Int("v", int(config.SweepInterval.Minutes()), "sweep interval (in minutes)")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 root bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 root region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.OutboundTimeout = time.Duration(*outboundTimeout) * time.Second
	config.RetentionWindow = time.Duration(*retentionWindow) * time.Hour
	config.SweepInterval = time.Duration(*sweepInterval) * time.Minute
}
