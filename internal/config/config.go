// Package config parses peer startup configuration from CLI flags
// (spec §6 "CLI surface") and the one debug environment variable spec
// §5/§6 names, mirroring the flags+env pairing
// orbas1-Synnergy's cmd/config package uses throughout that pack.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// ioDeadlineEnvVar is the one optional debug environment variable spec
// §5/§6 names: a per-connection I/O deadline in seconds, negative
// disables it.
const ioDeadlineEnvVar = "FLOATINGTEMPLE_IO_DEADLINE_SECONDS"

// PeerConfig holds everything needed to start a network peer (spec §6
// "Expected flags on peer startup").
type PeerConfig struct {
	Port            int
	KnownPeers      []string
	Workers         int
	ProgramPath     string
	InterpreterKind string
	Linger          bool

	// Network is true when either --port or --peers was passed
	// explicitly, selecting a network peer over a standalone one.
	Network bool

	// IODeadline is the debug-only per-connection I/O deadline. Zero
	// means disabled.
	IODeadline time.Duration
}

// Parse parses args (typically os.Args[1:]) into a PeerConfig.
func Parse(args []string) (PeerConfig, error) {
	fs := pflag.NewFlagSet("peer", pflag.ContinueOnError)

	port := fs.Int("port", 0, "listen port for a network peer (required for network peers)")
	peers := fs.String("peers", "", "comma-separated known peer addresses (host:port)")
	workers := fs.Int("workers", 4, "send/receive worker thread count")
	program := fs.String("program", "", "path to the program source for the chosen interpreter")
	interp := fs.String("interpreter", "toy", "embedded interpreter: toy|none")
	linger := fs.Bool("linger", false, "keep the peer alive after RunProgram completes")

	if err := fs.Parse(args); err != nil {
		return PeerConfig{}, err
	}

	var known []string
	if *peers != "" {
		known = strings.Split(*peers, ",")
	}

	if *workers <= 0 {
		return PeerConfig{}, fmt.Errorf("config: --workers must be positive, got %d", *workers)
	}

	cfg := PeerConfig{
		Port:            *port,
		KnownPeers:      known,
		Workers:         *workers,
		ProgramPath:     *program,
		InterpreterKind: *interp,
		Linger:          *linger,
		Network:         fs.Changed("port") || fs.Changed("peers"),
	}
	cfg.IODeadline = ioDeadlineFromEnv()
	return cfg, nil
}

// ioDeadlineFromEnv reads the debug I/O deadline, returning 0 (disabled)
// if unset, unparsable, or negative.
func ioDeadlineFromEnv() time.Duration {
	raw, ok := os.LookupEnv(ioDeadlineEnvVar)
	if !ok {
		return 0
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
