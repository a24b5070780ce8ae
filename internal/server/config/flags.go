package config

import (
	"flag"
	"os"
	"time"

	"github.com/complyvault/evidenced/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-t int      upload credential validity, minutes
//	-r int      download credential validity, minutes
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-o int      orphan sweep age threshold, minutes
//	-i int      orphan sweep interval, minutes (0 disables the sweep)
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes using
//     flagx.FilterArgs, avoiding collisions with other components.
//   - Duration flags are accepted as integers in minutes and then converted
//     to time.Duration values.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-t", "-r", "-u", "-p", "-b", "-g", "-e", "-o", "-i"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	uploadCredentialTTL := fs.Int("t", int(config.UploadCredentialTTL.Minutes()), "upload_credential_ttl (in minutes)")
	downloadCredentialTTL := fs.Int("r", int(config.DownloadCredentialTTL.Minutes()), "download_credential_ttl (in minutes)")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	sweepOlderThan := fs.Int("o", int(config.SweepOlderThan.Minutes()), "sweep_older_than (in minutes)")
	sweepInterval := fs.Int("i", int(config.SweepInterval.Minutes()), "sweep_interval (in minutes, 0 disables)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.UploadCredentialTTL = time.Duration(*uploadCredentialTTL) * time.Minute
	config.DownloadCredentialTTL = time.Duration(*downloadCredentialTTL) * time.Minute
	config.SweepOlderThan = time.Duration(*sweepOlderThan) * time.Minute
	config.SweepInterval = time.Duration(*sweepInterval) * time.Minute
}
