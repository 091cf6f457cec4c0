package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/hull-run/hull/pkg/artifacts"
	"github.com/hull-run/hull/pkg/bundle"
	"github.com/hull-run/hull/pkg/capability/db"
	"github.com/hull-run/hull/pkg/config"
	"github.com/hull-run/hull/pkg/dispatch"
	"github.com/hull-run/hull/pkg/httpserver/stdhttp"
	"github.com/hull-run/hull/pkg/manifest"
	"github.com/hull-run/hull/pkg/runtime"
	"github.com/hull-run/hull/pkg/runtime/wasiruntime"
	"github.com/hull-run/hull/pkg/sandbox"
)

// manifestSource adapts a loaded runtime.Runtime to manifest.Source (spec
// §4.7 extraction).
type manifestSource struct {
	rt  runtime.Runtime
	ctx context.Context
}

func (s manifestSource) ManifestDocument() (any, error) {
	return s.rt.ExtractManifest(s.ctx)
}

// runServe implements `hull run`/`hull serve`, and the default (no
// subcommand) path: verify the bundle if requested, load the application
// into a wasiruntime.Runtime, extract and apply its manifest, open the
// database, and start the HTTP server against the dispatcher.
func runServe(args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Parse(args, stderr)
	if err != nil {
		return 1
	}
	logger := defaultLogger(cfg.LogLevel)
	appDir := "."
	if cfg.AppPath != "" {
		appDir = filepath.Dir(cfg.AppPath)
	}

	if cfg.VerifySigKey != "" {
		sigPath := filepath.Join(appDir, bundle.SignatureFileName)
		if _, err := bundle.VerifyFile(appDir, sigPath, cfg.VerifySigKey); err != nil {
			fmt.Fprintf(stderr, "hull: signature verification failed: %v\n", err)
			return 1
		}
		logger.Info("bundle signature verified")
	}

	moduleCache, err := artifacts.NewFileStore(filepath.Join(appDir, ".hull-cache"))
	if err != nil {
		fmt.Fprintf(stderr, "hull: module cache init failed: %v\n", err)
		return 1
	}
	rt := wasiruntime.NewWithCache(moduleCache, logger)
	return serveWith(rt, cfg, appDir, logger, stdout, stderr)
}

// runDev implements `hull dev`: the same wiring as runServe, but against
// devruntime's in-process stand-in rather than a compiled WASM module,
// since this core embeds no script interpreter of its own (spec §4.8's
// real Lua/QuickJS hosts are external collaborators). It serves the
// built-in example app defined in cmd/hull/devapp.go.
func runDev(args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Parse(args, stderr)
	if err != nil {
		return 1
	}
	logger := defaultLogger(cfg.LogLevel)
	logger.Warn("dev mode: serving the built-in example app; no script interpreter is embedded in this core")

	rt := newExampleDevRuntime()
	return serveWith(rt, cfg, ".", logger, stdout, stderr)
}

// serveWith runs the startup control-flow diagram (spec §2) against an
// already-constructed, not-yet-initialized Runtime: Init, LoadApp, extract
// and apply the manifest, open the database, WireRoutes, wire the
// dispatcher, and block on ListenAndServe.
func serveWith(rt runtime.Runtime, cfg *config.Config, appDir string, logger *slog.Logger, stdout, stderr io.Writer) int {
	ctx := context.Background()

	rtCfg := runtime.Config{
		HeapCapBytes:   cfg.HeapCapBytes,
		StackCapBytes:  cfg.StackCapBytes,
		ApplicationDir: appDir,
	}
	if err := rt.Init(ctx, rtCfg); err != nil {
		fmt.Fprintf(stderr, "hull: interpreter init failed: %v\n", err)
		return 1
	}
	if err := rt.LoadApp(ctx, cfg.AppPath); err != nil {
		fmt.Fprintf(stderr, "hull: loading application failed: %v\n", err)
		return 1
	}

	m, err := manifest.Extract(manifestSource{rt: rt, ctx: ctx})
	if err != nil {
		fmt.Fprintf(stderr, "hull: manifest extraction failed: %v\n", err)
		return 1
	}

	applier := sandbox.New(logger)
	if err := applier.RegisterPaths(m); err != nil {
		fmt.Fprintf(stderr, "hull: sandbox path registration failed: %v\n", err)
		return 1
	}
	applier.Seal()
	if err := applier.Apply(m); err != nil {
		fmt.Fprintf(stderr, "hull: sandbox application failed: %v\n", err)
		return 1
	}

	dbCap, err := db.Open(cfg.DatabaseFile)
	if err != nil {
		fmt.Fprintf(stderr, "hull: opening database %q failed: %v\n", cfg.DatabaseFile, err)
		return 1
	}
	defer dbCap.Close()

	table, err := rt.WireRoutes(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "hull: wiring routes failed: %v\n", err)
		return 1
	}

	d := dispatch.New(rt, dbCap, logger, 0)
	server := stdhttp.New(logger)
	d.Register(server, table)

	addr := net.JoinHostPort(cfg.BindAddr, strconv.Itoa(cfg.Port))
	logger.Info("hull: listening", "addr", addr, "routes", len(table.Routes))
	fmt.Fprintf(stdout, "hull: listening on http://%s\n", addr)

	if err := http.ListenAndServe(addr, server.Handler()); err != nil {
		fmt.Fprintf(stderr, "hull: server exited: %v\n", err)
		return 1
	}
	return 0
}
