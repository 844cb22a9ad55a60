// Package session provisions terminal-multiplexer sessions (tmux or zellij)
// through an execution transport.
package session

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/devboard/devboard/internal/db"
	"github.com/devboard/devboard/internal/transport"
)

// unsafeNameChars matches everything tmux/zellij session names should not
// carry. tmux in particular treats ':' and '.' as target separators.
var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// Provisioner creates detached multiplexer sessions on local or remote
// hosts. It implements board.SessionBinder.
type Provisioner struct {
	runner transport.Runner
	prefix string
}

// New creates a provisioner. Sessions are named "<prefix>-<dir>-<suffix>".
func New(runner transport.Runner) *Provisioner {
	return &Provisioner{runner: runner, prefix: "devboard"}
}

// Provision starts a detached session of the given type in workingDir on
// host and returns its name.
func (p *Provisioner) Provision(ctx context.Context, sessionType, host, workingDir string) (string, error) {
	name := p.sessionName(workingDir)

	var command string
	switch sessionType {
	case db.SessionTmux:
		command = fmt.Sprintf("tmux new-session -d -s %s -c %s",
			shellQuote(name), shellQuote(workingDir))
	case db.SessionZellij:
		command = fmt.Sprintf("cd %s && zellij attach --create-background %s",
			shellQuote(workingDir), shellQuote(name))
	default:
		return "", fmt.Errorf("unknown session type %q", sessionType)
	}

	if _, err := p.runner.Run(ctx, host, command); err != nil {
		return "", fmt.Errorf("start %s session: %w", sessionType, err)
	}
	return name, nil
}

func (p *Provisioner) sessionName(workingDir string) string {
	base := unsafeNameChars.ReplaceAllString(path.Base(workingDir), "-")
	// Short random suffix keeps repeated sessions for one repo apart.
	suffix := uuid.NewString()[:8]
	return fmt.Sprintf("%s-%s-%s", p.prefix, base, suffix)
}

// shellQuote single-quotes s for the remote shell.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
