package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/apotek/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-g string   gRPC bind address (e.g., ":50051")
//	-b string   backend kind: supabase | postgres
//	-u string   hosted backend URL
//	-k string   hosted backend anon key
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-t int      session token validity, minutes
//	-w int      session check timeout, seconds
//
// -t and -w only replace the current value when given on the command line,
// so sub-unit durations from the JSON file survive.
//
// os.Args is filtered with flagx.FilterArgs first, so -c/-config and test
// runner flags do not reach the flag set.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-g", "-b", "-u", "-k", "-d", "-s", "-t", "-w"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "HTTP address and port to run server")
	fs.StringVar(&config.EndpointAddrGRPC, "g", config.EndpointAddrGRPC, "gRPC address and port to run health server")
	fs.StringVar(&config.Backend, "b", config.Backend, "backend: supabase or postgres")
	fs.StringVar(&config.BackendURL, "u", config.BackendURL, "hosted backend URL")
	fs.StringVar(&config.AnonKey, "k", config.AnonKey, "hosted backend anon key")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	tokenValidity := fs.Int("t", int(config.TokenValidityDuration.Minutes()), "token_validity_duration (in minutes)")
	sessionTimeout := fs.Int("w", int(config.SessionCheckTimeout.Seconds()), "session_check_timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.TokenValidityDuration = time.Duration(*tokenValidity) * time.Minute
		case "w":
			config.SessionCheckTimeout = time.Duration(*sessionTimeout) * time.Second
		}
	})
}
