// Package config parses the server-mode flags spec §6 defines with the
// standard flag package; it reads no environment variables and uses no
// struct-tag configuration library.
package config

import (
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Config holds the server-mode settings recognized by `hull` when it runs
// the configured application: with no arguments, with "run"/"serve", or
// with a flag as the first argument (spec §6).
type Config struct {
	Port          int
	BindAddr      string
	DatabaseFile  string
	HeapCapBytes  int64
	StackCapBytes int64
	LogLevel      string
	VerifySigKey  string // hex-encoded Ed25519 public key, empty = no verification required
	AppPath       string
}

const (
	defaultPort          = 3000
	defaultBindAddr      = "127.0.0.1"
	defaultDatabaseFile  = "data.db"
	defaultHeapCapBytes  = 64 << 20
	defaultStackCapBytes = 8 << 20
	defaultLogLevel      = "info"
)

// Parse parses server-mode flags out of args (ordinarily the arguments after
// "run"/"serve", or os.Args[1:] when the first argument is a flag). appPath, if
// present, is the first non-flag argument: the application script to run.
func Parse(args []string, stderr io.Writer) (*Config, error) {
	fs := flag.NewFlagSet("hull", flag.ContinueOnError)
	fs.SetOutput(stderr)

	port := fs.Int("p", defaultPort, "listen port (1..65535)")
	bindAddr := fs.String("b", defaultBindAddr, "bind address")
	dbFile := fs.String("d", defaultDatabaseFile, "path to the storage engine database file")
	heapSize := fs.String("m", "", "interpreter heap cap (suffixes k, m, g)")
	stackSize := fs.String("s", "", "interpreter stack cap (suffixes k, m, g)")
	logLevel := fs.String("l", defaultLogLevel, "log level")
	verifySig := fs.String("verify-sig", "", "refuse to start unless hull.sig verifies with this public key")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if *port < 1 || *port > 65535 {
		return nil, fmt.Errorf("config: port %d out of range 1..65535", *port)
	}

	heapCap := int64(defaultHeapCapBytes)
	if *heapSize != "" {
		v, err := parseSize(*heapSize)
		if err != nil {
			return nil, fmt.Errorf("config: -m: %w", err)
		}
		heapCap = v
	}

	stackCap := int64(defaultStackCapBytes)
	if *stackSize != "" {
		v, err := parseSize(*stackSize)
		if err != nil {
			return nil, fmt.Errorf("config: -s: %w", err)
		}
		stackCap = v
	}

	cfg := &Config{
		Port:          *port,
		BindAddr:      *bindAddr,
		DatabaseFile:  *dbFile,
		HeapCapBytes:  heapCap,
		StackCapBytes: stackCap,
		LogLevel:      *logLevel,
		VerifySigKey:  *verifySig,
	}
	if rest := fs.Args(); len(rest) > 0 {
		cfg.AppPath = rest[0]
	}
	return cfg, nil
}

// parseSize parses a size string with an optional k/m/g suffix (case
// insensitive) into a byte count, per spec §6's "-m <size>"/"-s <size>"
// flags.
func parseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size")
	}
	mult := int64(1)
	suffix := strings.ToLower(s[len(s)-1:])
	numPart := s
	switch suffix {
	case "k":
		mult = 1 << 10
		numPart = s[:len(s)-1]
	case "m":
		mult = 1 << 20
		numPart = s[:len(s)-1]
	case "g":
		mult = 1 << 30
		numPart = s[:len(s)-1]
	}
	n, err := strconv.ParseInt(numPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("size %q must not be negative", s)
	}
	return n * mult, nil
}
