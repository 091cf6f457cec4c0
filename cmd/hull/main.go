// Command hull is the CLI dispatcher spec §6 names: keygen, build, verify,
// inspect, manifest, test, new, dev, eject, sign-platform, or server mode
// against the configured application. Server mode runs with no arguments,
// with "run" or "serve", or when the first argument is a flag; any other
// unrecognized first argument is rejected with exit status 2 and is not
// taken as an application path.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// Run is the dispatcher entrypoint, factored out of main for testability
// (mirrors the teacher CLI's Run(args, stdout, stderr) int shape).
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		return runServe(nil, stdout, stderr)
	}

	switch args[1] {
	case "keygen":
		return runKeygen(args[2:], stdout, stderr)
	case "verify":
		return runVerify(args[2:], stdout, stderr)
	case "manifest":
		return runManifest(args[2:], stdout, stderr)
	case "sign-platform":
		return runSignPlatform(args[2:], stdout, stderr)
	case "dev":
		return runDev(args[2:], stdout, stderr)
	case "run", "serve":
		return runServe(args[2:], stdout, stderr)
	case "build", "test", "new", "eject", "inspect":
		return runExternalStub(args[1], stdout, stderr)
	case "help", "--help", "-h":
		printUsage(stdout)
		return 0
	default:
		if len(args[1]) > 0 && args[1][0] == '-' {
			return runServe(args[1:], stdout, stderr)
		}
		fmt.Fprintf(stderr, "hull: unknown command %q\n", args[1])
		printUsage(stderr)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "hull - capability-sandboxed script host")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "usage: hull <command> [flags]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "commands implemented by this core:")
	fmt.Fprintln(w, "  keygen         generate an Ed25519 signing keypair")
	fmt.Fprintln(w, "  verify         verify a hull.sig bundle against an app directory")
	fmt.Fprintln(w, "  manifest       parse and print a manifest file in canonical form")
	fmt.Fprintln(w, "  sign-platform  sign an app directory into a hull.sig bundle")
	fmt.Fprintln(w, "  dev            run the dispatcher against a built-in example app")
	fmt.Fprintln(w, "  run, serve     run the dispatcher against a WASM-compiled app (default)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "commands treated as external collaborators (spec-declared out of scope):")
	fmt.Fprintln(w, "  build, test, new, eject, inspect")
}

func defaultLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
