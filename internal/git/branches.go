// Package git inspects and mutates branches of a repository through an
// execution transport, so the same code serves local and remote checkouts.
package git

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/devboard/devboard/internal/transport"
)

// ErrBranchExists is returned by CreateBranch when the branch name is taken.
var ErrBranchExists = fmt.Errorf("branch already exists")

// Branches answers branch questions about a repository path on a host.
type Branches struct {
	runner transport.Runner
}

// New creates a branch service on top of a transport.
func New(runner transport.Runner) *Branches {
	return &Branches{runner: runner}
}

func (b *Branches) git(ctx context.Context, repoPath, host string, args ...string) (string, error) {
	command := "git -C " + shellQuote(repoPath) + " " + strings.Join(args, " ")
	result, err := b.runner.Run(ctx, host, command)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(result.Stdout), nil
}

// DefaultBranch resolves the branch the remote HEAD designates as primary.
// When no remote default is configured it falls back to the branch that is
// currently checked out.
func (b *Branches) DefaultBranch(ctx context.Context, repoPath, host string) (string, error) {
	ref, err := b.git(ctx, repoPath, host, "symbolic-ref", "refs/remotes/origin/HEAD")
	if err == nil && ref != "" {
		return strings.TrimPrefix(ref, "refs/remotes/origin/"), nil
	}

	var cmdErr *transport.CommandError
	if err != nil && !errors.As(err, &cmdErr) {
		// Connection or timeout: the fallback would fail the same way.
		return "", err
	}

	head, err := b.git(ctx, repoPath, host, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", fmt.Errorf("resolve default branch: %w", err)
	}
	return head, nil
}

// List returns the local branch names. for-each-ref iterates refs in sorted
// order, so the result is stable across calls for an unchanged repo.
func (b *Branches) List(ctx context.Context, repoPath, host string) ([]string, error) {
	out, err := b.git(ctx, repoPath, host, "for-each-ref", "--format='%(refname:short)'", "refs/heads")
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}

	var branches []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.Trim(strings.TrimSpace(line), "'")
		if line != "" {
			branches = append(branches, line)
		}
	}
	return branches, nil
}

// Validate reports whether repoPath is a working git repository on host.
// Validation is a predicate: every failure, including transport failure,
// is false rather than an error.
func (b *Branches) Validate(ctx context.Context, repoPath, host string) bool {
	command := fmt.Sprintf(
		"test -e %s && git -C %s rev-parse --git-dir",
		shellQuote(repoPath+"/.git"), shellQuote(repoPath),
	)
	_, err := b.runner.Run(ctx, host, command)
	return err == nil
}

// Exists reports whether a local branch with the given name exists.
func (b *Branches) Exists(ctx context.Context, repoPath, host, name string) (bool, error) {
	_, err := b.git(ctx, repoPath, host, "show-ref", "--verify", "--quiet", shellQuote("refs/heads/"+name))
	if err != nil {
		var cmdErr *transport.CommandError
		if errors.As(err, &cmdErr) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CreateBranch creates a new branch from base. Returns ErrBranchExists when
// the name is already taken.
func (b *Branches) CreateBranch(ctx context.Context, repoPath, host, name, base string) error {
	exists, err := b.Exists(ctx, repoPath, host, name)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrBranchExists, name)
	}

	if _, err := b.git(ctx, repoPath, host, "branch", shellQuote(name), shellQuote(base)); err != nil {
		var cmdErr *transport.CommandError
		// A racing creation loses the Exists check above.
		if errors.As(err, &cmdErr) && strings.Contains(cmdErr.Stderr, "already exists") {
			return fmt.Errorf("%w: %s", ErrBranchExists, name)
		}
		return fmt.Errorf("create branch %s: %w", name, err)
	}
	return nil
}

// shellQuote single-quotes s for the remote shell.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
