// devboard is the command line client for the board's orchestration core.
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/devboard/devboard/internal/board"
	"github.com/devboard/devboard/internal/config"
	"github.com/devboard/devboard/internal/db"
	"github.com/devboard/devboard/internal/git"
	"github.com/devboard/devboard/internal/gitscan"
	"github.com/devboard/devboard/internal/registry"
	"github.com/devboard/devboard/internal/session"
	"github.com/devboard/devboard/internal/transport"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#61AFEF"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
)

// app bundles the wired orchestration core for CLI commands.
type app struct {
	db        *db.DB
	registry  *registry.Registry
	lifecycle *board.Lifecycle
}

func newApp(dbPath string) (*app, error) {
	if dbPath == "" {
		dbPath = db.DefaultPath()
	}
	database, err := db.Open(dbPath)
	if err != nil {
		return nil, err
	}

	cfg := config.New(database)
	hosts, err := transport.LoadHosts(cfg.HostsFile)
	if err != nil {
		return nil, err
	}

	runner := transport.NewExec(hosts, cfg.CommandTimeout)
	branches := git.New(runner)
	scanner := gitscan.New(runner, cfg.ScanDepth)
	projects := registry.New(database, scanner, branches)
	binder := session.New(runner)
	lifecycle := board.New(database, projects, branches, binder)

	return &app{db: database, registry: projects, lifecycle: lifecycle}, nil
}

func (a *app) close() {
	a.db.Close()
}

func main() {
	var dbPath string

	rootCmd := &cobra.Command{
		Use:           "devboard",
		Short:         "Kanban board for development tasks tied to git branches and terminal sessions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Database path")

	rootCmd.AddCommand(projectCmd(&dbPath))
	rootCmd.AddCommand(taskCmd(&dbPath))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render("Error: ")+err.Error())
		os.Exit(1)
	}
}
