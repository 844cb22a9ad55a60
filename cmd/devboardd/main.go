// devboardd is the board daemon. It serves the HTTP API the kanban board
// talks to and runs all git/session orchestration behind it.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"

	"github.com/devboard/devboard/internal/board"
	"github.com/devboard/devboard/internal/config"
	"github.com/devboard/devboard/internal/db"
	"github.com/devboard/devboard/internal/git"
	"github.com/devboard/devboard/internal/gitscan"
	"github.com/devboard/devboard/internal/registry"
	"github.com/devboard/devboard/internal/session"
	"github.com/devboard/devboard/internal/transport"
	"github.com/devboard/devboard/internal/webapi"
)

func main() {
	// Flags
	addr := flag.String("addr", ":4333", "HTTP API address")
	dbPath := flag.String("db", "", "Database path (default: ~/.local/share/devboard/devboard.db)")
	hostsPath := flag.String("hosts", "", "Hosts file path (default: ~/.config/devboard/hosts.yaml)")
	devMode := flag.Bool("dev", false, "Enable CORS for local board development")
	flag.Parse()

	// Setup logger
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "devboardd",
	})

	if *dbPath == "" {
		*dbPath = db.DefaultPath()
	}

	// Open database
	database, err := db.Open(*dbPath)
	if err != nil {
		logger.Fatal("Failed to open database", "error", err)
	}
	defer database.Close()
	logger.Info("Database opened", "path", *dbPath)

	// Load config from database
	cfg := config.New(database)
	if *hostsPath == "" {
		*hostsPath = cfg.HostsFile
	}

	hosts, err := transport.LoadHosts(*hostsPath)
	if err != nil {
		logger.Fatal("Failed to load hosts file", "path", *hostsPath, "error", err)
	}

	// Wire the orchestration core
	runner := transport.NewExec(hosts, cfg.CommandTimeout).WithLogging(os.Stderr)
	branches := git.New(runner)
	scanner := gitscan.New(runner, cfg.ScanDepth)
	projects := registry.New(database, scanner, branches).WithLogging(os.Stderr)
	binder := session.New(runner)
	lifecycle := board.New(database, projects, branches, binder).WithLogging(os.Stderr)

	server := webapi.New(webapi.Config{
		Addr:      *addr,
		Registry:  projects,
		Lifecycle: lifecycle,
		DevMode:   *devMode,
	})

	logger.Info("Starting devboardd", "addr", *addr, "db", *dbPath, "hosts", *hostsPath)

	// Shut down cleanly on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.Fatal("Server failed", "error", err)
	}
	logger.Info("Shutdown complete")
}
