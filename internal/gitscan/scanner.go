// Package gitscan discovers git repository roots under a directory tree,
// locally or on a remote host.
package gitscan

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/devboard/devboard/internal/transport"
)

// DefaultMaxDepth bounds the directory traversal so a scan of a huge tree
// stays cheap.
const DefaultMaxDepth = 4

// Scanner finds git repositories through an execution transport.
type Scanner struct {
	runner   transport.Runner
	maxDepth int
}

// New creates a scanner. maxDepth <= 0 selects DefaultMaxDepth.
func New(runner transport.Runner, maxDepth int) *Scanner {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Scanner{runner: runner, maxDepth: maxDepth}
}

// Scan returns the repository roots under root on the given host, in
// lexicographic order. A directory is a repository root if it directly
// contains a .git entry. Repositories nested inside another discovered
// repository (submodules, vendored checkouts) are not reported. An empty
// tree yields an empty slice; a transport failure aborts the scan.
func (s *Scanner) Scan(ctx context.Context, root, host string) ([]string, error) {
	if root == "" {
		return nil, fmt.Errorf("scan root is required")
	}
	root = path.Clean(root)

	// One find over the transport beats a directory-by-directory walk,
	// especially across ssh. Hidden directories below the root are excluded
	// (except the .git marker itself); the exclusion is anchored at the root
	// so a root that itself lives under a dot-directory still scans.
	prefix := strings.TrimSuffix(root, "/")
	command := fmt.Sprintf(
		"find %s -mindepth 1 -maxdepth %d -name .git -not -path %s -not -path %s",
		shellQuote(root), s.maxDepth+1,
		shellQuote(prefix+"/.*/*"), shellQuote(prefix+"/*/.*/*"),
	)

	result, err := s.runner.Run(ctx, host, command)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}

	var roots []string
	for _, line := range strings.Split(result.Stdout, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || path.Base(line) != ".git" {
			continue
		}
		roots = append(roots, path.Dir(line))
	}
	sort.Strings(roots)

	// Sorted order puts a supermodule before anything nested inside it,
	// so one pass drops the nested repositories.
	var kept []string
	for _, r := range roots {
		if containsAncestor(kept, r) {
			continue
		}
		kept = append(kept, r)
	}
	if kept == nil {
		kept = []string{}
	}
	return kept, nil
}

func containsAncestor(kept []string, dir string) bool {
	for _, k := range kept {
		if strings.HasPrefix(dir, k+"/") {
			return true
		}
	}
	return false
}

// shellQuote single-quotes s for the remote shell.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
