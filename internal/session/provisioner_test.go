package session

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/devboard/devboard/internal/db"
	"github.com/devboard/devboard/internal/transport"
)

type fakeRunner struct {
	err      error
	lastHost string
	lastCmd  string
}

func (f *fakeRunner) Run(ctx context.Context, host, command string) (transport.Result, error) {
	f.lastHost = host
	f.lastCmd = command
	if f.err != nil {
		return transport.Result{}, f.err
	}
	return transport.Result{}, nil
}

func TestProvisionTmux(t *testing.T) {
	runner := &fakeRunner{}
	p := New(runner)

	name, err := p.Provision(context.Background(), db.SessionTmux, "build1", "/repos/my app")
	if err != nil {
		t.Fatalf("provision: %v", err)
	}

	if !strings.HasPrefix(name, "devboard-my-app-") {
		t.Errorf("session name %q", name)
	}
	if runner.lastHost != "build1" {
		t.Errorf("host %q", runner.lastHost)
	}
	want := "tmux new-session -d -s '" + name + "' -c '/repos/my app'"
	if runner.lastCmd != want {
		t.Errorf("command %q, want %q", runner.lastCmd, want)
	}
}

func TestProvisionZellij(t *testing.T) {
	runner := &fakeRunner{}
	p := New(runner)

	name, err := p.Provision(context.Background(), db.SessionZellij, "", "/repos/svc")
	if err != nil {
		t.Fatalf("provision: %v", err)
	}

	want := "cd '/repos/svc' && zellij attach --create-background '" + name + "'"
	if runner.lastCmd != want {
		t.Errorf("command %q, want %q", runner.lastCmd, want)
	}
}

func TestProvisionUnknownType(t *testing.T) {
	p := New(&fakeRunner{})

	if _, err := p.Provision(context.Background(), "screen", "", "/repos/svc"); err == nil {
		t.Fatal("expected error for unknown session type")
	}
}

func TestProvisionRunnerFailure(t *testing.T) {
	boom := errors.New("tmux: command not found")
	p := New(&fakeRunner{err: boom})

	_, err := p.Provision(context.Background(), db.SessionTmux, "", "/repos/svc")
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped runner error, got %v", err)
	}
}

func TestSessionNamesAreDistinct(t *testing.T) {
	p := New(&fakeRunner{})

	a := p.sessionName("/repos/svc")
	b := p.sessionName("/repos/svc")
	if a == b {
		t.Errorf("expected distinct names, got %q twice", a)
	}
}
