package config

import (
	"flag"
	"os"
	"time"

	"github.com/MobilityFirst/GNS-sub011/internal/flagx"
)

var (
	valueFlags = []string{"-a", "-h", "-k", "-d", "-m", "-s", "-n", "-t", "-u", "-p", "-b", "-g", "-e", "-l", "-i", "-G", "-A", "-T", "-w"}
	boolFlags  = []string{"-v", "-x"}
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   gRPC bind address (e.g., ":50051")
//	-h string   admin HTTP bind address
//	-k string   store backend: memory, postgres, s3, remote
//	-d string   PostgreSQL DSN
//	-m string   remote record service address
//	-s string   node token HMAC secret key
//	-n string   node id
//	-t int      node token validity, minutes
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-l string   log level
//	-i int      orphan sweep interval, minutes (0 disables)
//	-G int      max GUIDs per account
//	-A int      max aliases per account
//	-T int      verification code TTL, hours
//	-w int      stale command window, minutes
//	-v bool     require email verification (use -v=false to disable)
//	-x bool     require request signatures (use -x=false to disable)
func parseFlags(config *Config) {
	args := flagx.FilterArgsWithBools(os.Args[1:], append(append([]string{}, valueFlags...), boolFlags...), boolFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port of the record service")
	fs.StringVar(&config.EndpointAddrHTTP, "h", config.EndpointAddrHTTP, "address and port of the admin router")
	fs.StringVar(&config.StoreBackend, "k", config.StoreBackend, "store backend")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.RemoteStoreAddr, "m", config.RemoteStoreAddr, "remote record service address")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.NodeID, "n", config.NodeID, "node id")

	nodeTokenValidity := fs.Int("t", int(config.NodeTokenValidityDuration.Minutes()), "node token validity (in minutes)")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	reconcile := fs.Int("i", int(config.ReconcileInterval.Minutes()), "orphan sweep interval (in minutes)")

	d := &config.Directory
	fs.IntVar(&d.MaxGuidsPerAccount, "G", d.MaxGuidsPerAccount, "max guids per account")
	fs.IntVar(&d.MaxAliasesPerAccount, "A", d.MaxAliasesPerAccount, "max aliases per account")
	codeTTL := fs.Int("T", int(d.VerificationCodeTTL.Hours()), "verification code ttl (in hours)")
	stale := fs.Int("w", int(d.StaleCommandWindow.Minutes()), "stale command window (in minutes)")
	fs.BoolVar(&d.EmailVerificationEnabled, "v", d.EmailVerificationEnabled, "require email verification")
	fs.BoolVar(&d.SignatureAuthEnabled, "x", d.SignatureAuthEnabled, "require request signatures")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.NodeTokenValidityDuration = time.Duration(*nodeTokenValidity) * time.Minute
	config.ReconcileInterval = time.Duration(*reconcile) * time.Minute
	d.VerificationCodeTTL = time.Duration(*codeTTL) * time.Hour
	d.StaleCommandWindow = time.Duration(*stale) * time.Minute
}
