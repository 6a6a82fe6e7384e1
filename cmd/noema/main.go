// Noema: a reasoning-state MCP server.
//
// Noema gives an AI assistant durable reasoning state over the MCP
// stdio transport: numbered thought chains, typed reasoning
// artifacts, a bounded knowledge graph, cross-session memory, and a
// sandboxed Go notebook.
//
// Usage:
//
//	noema          # Start the MCP server (stdio transport)
//	noema serve    # Same, explicit
//	noema update   # Update to the latest release
//	noema version  # Print the version
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"

	"github.com/aletheia-dev/noema/internal/config"
	noemaserver "github.com/aletheia-dev/noema/internal/server"
	"github.com/aletheia-dev/noema/internal/updater"
)

func main() {
	// MCP hosts launch the binary without arguments, so serving is
	// the default.
	cmd := "serve"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "serve":
		if err := run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "update":
		runUpdate()
	case "--version", "-v", "version":
		fmt.Printf("noema v%s\n", noemaserver.Version)
	case "--help", "-h", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load("")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	s, cleanup, err := noemaserver.New(cfg)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	// Best-effort version check, printed to stderr so it cannot
	// interfere with the MCP transport on stdout.
	go checkForUpdates()

	// The stdio transport owns stdout; everything else goes to
	// stderr. On SIGINT/SIGTERM we return normally so the deferred
	// cleanup can flush memory and archive live sessions.
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ServeStdio(s)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		fmt.Fprintf(os.Stderr, "received %s, shutting down\n", sig)
		return nil
	}
}

// checkForUpdates runs a non-blocking version check and prints a
// notice to stderr when a newer release exists. Network failures are
// silently ignored.
func checkForUpdates() {
	result := updater.CheckVersion(noemaserver.Version)
	if result.UpdateAvailable {
		fmt.Fprintf(os.Stderr,
			"\n  Update available: v%s -> v%s\n"+
				"  Run: noema update\n"+
				"  Release: %s\n\n",
			result.CurrentVersion, result.LatestVersion, result.ReleaseURL,
		)
	}
}

// runUpdate replaces the running binary with the latest release.
func runUpdate() {
	fmt.Fprintf(os.Stderr, "Checking for updates...\n")

	result := updater.CheckVersion(noemaserver.Version)
	if !result.UpdateAvailable {
		fmt.Fprintf(os.Stderr, "Already at the latest version (v%s)\n", result.CurrentVersion)
		return
	}

	fmt.Fprintf(os.Stderr, "New version available: v%s -> v%s\n", result.CurrentVersion, result.LatestVersion)
	fmt.Fprintf(os.Stderr, "Downloading...\n")

	if err := updater.SelfUpdate(noemaserver.Version); err != nil {
		fmt.Fprintf(os.Stderr, "Update failed: %v\n", err)
		fmt.Fprintf(os.Stderr, "\nYou can download manually from:\n%s\n", result.ReleaseURL)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "Updated to v%s. Restart noema to use the new version.\n", result.LatestVersion)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Noema v%s - Reasoning-State MCP Server

Usage:
  noema [serve]    Start the MCP server (stdio transport)
  noema update     Update to the latest release
  noema version    Print the version

Configuration:
  Settings load from ~/.noema/config.yaml when present (override the
  path with NOEMA_CONFIG). Individual values can be overridden with
  NOEMA_DATA_DIR, NOEMA_LOG_LEVEL, NOEMA_GRAPH_MODE,
  NOEMA_SESSION_IDLE_TIMEOUT, and NOEMA_ARCHIVE_DISABLED.

  Add to your AI tool's MCP config:

  {
    "mcpServers": {
      "noema": {
        "command": "noema"
      }
    }
  }
`, noemaserver.Version)
}
