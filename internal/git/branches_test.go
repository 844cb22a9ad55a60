package git

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/devboard/devboard/internal/transport"
)

// scriptRunner answers commands by substring match, in order of the script.
type scriptRunner struct {
	script []scriptEntry
	calls  []string
}

type scriptEntry struct {
	contains string
	stdout   string
	err      error
}

func (s *scriptRunner) Run(ctx context.Context, host, command string) (transport.Result, error) {
	s.calls = append(s.calls, command)
	for _, e := range s.script {
		if strings.Contains(command, e.contains) {
			if e.err != nil {
				return transport.Result{}, e.err
			}
			return transport.Result{Stdout: e.stdout}, nil
		}
	}
	return transport.Result{}, &transport.CommandError{Command: command, ExitCode: 1}
}

func TestDefaultBranchFromRemoteHead(t *testing.T) {
	runner := &scriptRunner{script: []scriptEntry{
		{contains: "symbolic-ref", stdout: "refs/remotes/origin/main\n"},
	}}
	b := New(runner)

	branch, err := b.DefaultBranch(context.Background(), "/repos/app", "")
	if err != nil {
		t.Fatalf("default branch: %v", err)
	}
	if branch != "main" {
		t.Errorf("expected main, got %q", branch)
	}
}

func TestDefaultBranchWithSlashes(t *testing.T) {
	runner := &scriptRunner{script: []scriptEntry{
		{contains: "symbolic-ref", stdout: "refs/remotes/origin/release/2024\n"},
	}}
	b := New(runner)

	branch, err := b.DefaultBranch(context.Background(), "/repos/app", "")
	if err != nil {
		t.Fatalf("default branch: %v", err)
	}
	if branch != "release/2024" {
		t.Errorf("expected release/2024, got %q", branch)
	}
}

func TestDefaultBranchFallsBackToCheckedOut(t *testing.T) {
	runner := &scriptRunner{script: []scriptEntry{
		{contains: "symbolic-ref", err: &transport.CommandError{ExitCode: 1, Stderr: "ref refs/remotes/origin/HEAD is not a symbolic ref"}},
		{contains: "rev-parse --abbrev-ref HEAD", stdout: "develop\n"},
	}}
	b := New(runner)

	branch, err := b.DefaultBranch(context.Background(), "/repos/app", "")
	if err != nil {
		t.Fatalf("default branch: %v", err)
	}
	if branch != "develop" {
		t.Errorf("expected develop, got %q", branch)
	}
}

func TestDefaultBranchConnectionErrorPropagates(t *testing.T) {
	runner := &scriptRunner{script: []scriptEntry{
		{contains: "symbolic-ref", err: &transport.ConnectionError{Host: "build1", Err: errors.New("unreachable")}},
	}}
	b := New(runner)

	_, err := b.DefaultBranch(context.Background(), "/repos/app", "build1")
	var connErr *transport.ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected ConnectionError, got %v", err)
	}
	// No fallback attempt against an unreachable host.
	if len(runner.calls) != 1 {
		t.Errorf("expected 1 call, got %d", len(runner.calls))
	}
}

func TestListBranches(t *testing.T) {
	runner := &scriptRunner{script: []scriptEntry{
		{contains: "for-each-ref", stdout: "'feat/login'\n'main'\n'release/2024'\n"},
	}}
	b := New(runner)

	branches, err := b.List(context.Background(), "/repos/app", "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"feat/login", "main", "release/2024"}
	if len(branches) != len(want) {
		t.Fatalf("expected %d branches, got %v", len(want), branches)
	}
	for i := range want {
		if branches[i] != want[i] {
			t.Errorf("branch %d: expected %q, got %q", i, want[i], branches[i])
		}
	}
}

func TestValidate(t *testing.T) {
	valid := New(&scriptRunner{script: []scriptEntry{
		{contains: "rev-parse --git-dir", stdout: ".git\n"},
	}})
	if !valid.Validate(context.Background(), "/repos/app", "") {
		t.Error("expected valid repo")
	}

	// Validate is a predicate: command failure and transport failure are
	// both false, never an error.
	invalid := New(&scriptRunner{})
	if invalid.Validate(context.Background(), "/not/a/repo", "") {
		t.Error("expected invalid repo")
	}

	unreachable := New(&scriptRunner{script: []scriptEntry{
		{contains: "rev-parse --git-dir", err: &transport.ConnectionError{Host: "x", Err: errors.New("down")}},
	}})
	if unreachable.Validate(context.Background(), "/repos/app", "x") {
		t.Error("expected false on transport failure")
	}
}

func TestCreateBranch(t *testing.T) {
	runner := &scriptRunner{script: []scriptEntry{
		{contains: "show-ref", err: &transport.CommandError{ExitCode: 1}},
		{contains: "branch 'feat/x' 'main'", stdout: ""},
	}}
	b := New(runner)

	if err := b.CreateBranch(context.Background(), "/repos/app", "", "feat/x", "main"); err != nil {
		t.Fatalf("create branch: %v", err)
	}
}

func TestCreateBranchDuplicate(t *testing.T) {
	runner := &scriptRunner{script: []scriptEntry{
		{contains: "show-ref", stdout: "abc123 refs/heads/feat/x\n"},
	}}
	b := New(runner)

	err := b.CreateBranch(context.Background(), "/repos/app", "", "feat/x", "main")
	if !errors.Is(err, ErrBranchExists) {
		t.Fatalf("expected ErrBranchExists, got %v", err)
	}
}

func TestCreateBranchLosesRace(t *testing.T) {
	runner := &scriptRunner{script: []scriptEntry{
		{contains: "show-ref", err: &transport.CommandError{ExitCode: 1}},
		{contains: "branch 'feat/x'", err: &transport.CommandError{ExitCode: 128, Stderr: "fatal: a branch named 'feat/x' already exists"}},
	}}
	b := New(runner)

	err := b.CreateBranch(context.Background(), "/repos/app", "", "feat/x", "main")
	if !errors.Is(err, ErrBranchExists) {
		t.Fatalf("expected ErrBranchExists, got %v", err)
	}
}
