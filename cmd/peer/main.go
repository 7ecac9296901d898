// Command peer starts one floating-temple peer: a standalone in-process
// runtime if neither --port nor --peers was given, or a network peer
// that listens and dials out otherwise (spec §4.9, §6 "CLI surface").
//
// Grounded on orbas1-Synnergy's cmd/dexserver/main.go for the plain
// func main() plus logger.Fatal shape, and its best-effort .env loading
// (cmd/explorer/main.go, cmd/cli/warehouse.go: `_ = godotenv.Load()`).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"floatingtemple/internal/bridge"
	"floatingtemple/internal/codec"
	"floatingtemple/internal/config"
	"floatingtemple/internal/logging"
	"floatingtemple/internal/orchestrator"
	"floatingtemple/interpreter/toy"
)

// noneInterpreter backs --interpreter none: a peer that never runs a
// program and never needs to deserialize a fetched object.
type noneInterpreter struct{}

func (noneInterpreter) Name() string { return "none" }

func (noneInterpreter) DeserializeObject(data []byte, ctx *codec.DeserializationContext) (bridge.LocalObject, error) {
	return nil, errNoInterpreter
}

var errNoInterpreter = interpreterError("peer: no interpreter configured, cannot deserialize object")

type interpreterError string

func (e interpreterError) Error() string { return string(e) }

// shutdownGrace bounds how long Stop waits for background goroutines to
// join before giving up.
const shutdownGrace = 5 * time.Second

func main() {
	_ = godotenv.Load()

	log := logging.New()

	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		log.Fatalf("peer: %v", err)
	}

	var interp bridge.Interpreter
	switch cfg.InterpreterKind {
	case "toy":
		interp = toy.New()
	case "none":
		interp = noneInterpreter{}
	default:
		log.Fatalf("peer: unknown interpreter %q", cfg.InterpreterKind)
	}

	var peer *orchestrator.Peer
	if cfg.Network {
		peer, err = orchestrator.CreateNetworkPeer(cfg, interp)
		if err != nil {
			log.Fatalf("peer: %v", err)
		}
	} else {
		peer = orchestrator.CreateStandalonePeer(interp)
	}

	if cfg.ProgramPath != "" {
		prog, err := parseProgramFile(cfg.ProgramPath)
		if err != nil {
			log.Fatalf("peer: %v", err)
		}
		result, err := peer.RunProgram(prog.root, prog.method, cfg.Linger)
		if err != nil {
			log.Fatalf("peer: program failed: %v", err)
		}
		log.Infof("peer: program result: %+v", result)
	}

	if cfg.Linger {
		waitForSignal(log)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := peer.Stop(ctx); err != nil {
		log.Errorf("peer: shutdown: %v", err)
		os.Exit(1)
	}
}

// waitForSignal blocks until SIGINT or SIGTERM, the usual way a lingering
// network peer is told to shut down.
func waitForSignal(log logging.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Infof("peer: received %s, shutting down", sig)
}
