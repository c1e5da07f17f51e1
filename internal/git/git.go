// ABOUTME: Version-control client: shells out to the git binary for clone, fetch, checkout, pull
// ABOUTME: Every invocation is validated, bounded by a timeout, and never prompts for credentials

package git

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/mauromedda/gitstaller/internal/log"
)

// DefaultTimeout bounds a single git invocation when none is configured.
const DefaultTimeout = 10 * time.Minute

// ErrVersionControl is wrapped by every failure of an underlying git operation.
var ErrVersionControl = errors.New("version control operation failed")

// Client is the set of git operations the package manager relies on.
type Client interface {
	ListRemoteRefs(ctx context.Context, locator string) ([]Ref, error)
	Clone(ctx context.Context, locator, dest, ref string) error
	Checkout(ctx context.Context, dir, ref string) error
	FetchTags(ctx context.Context, dir string) error
	Pull(ctx context.Context, dir string) error
	ListLocalTags(ctx context.Context, dir string) ([]string, error)
	HeadCommit(ctx context.Context, dir string) (string, error)
	ResolveCommit(ctx context.Context, dir, ref string) (string, error)
	RemoteURL(ctx context.Context, dir string) (string, error)
	IsCheckout(ctx context.Context, dir string) bool
}

// Git implements Client with the git command-line tool.
type Git struct {
	Binary  string
	Timeout time.Duration
}

var _ Client = (*Git)(nil)

// New returns a client for binary; empty values fall back to "git" and DefaultTimeout.
func New(binary string, timeout time.Duration) *Git {
	if binary == "" {
		binary = "git"
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Git{Binary: binary, Timeout: timeout}
}

// ListRemoteRefs lists the branches and tags advertised by the remote.
func (g *Git) ListRemoteRefs(ctx context.Context, locator string) ([]Ref, error) {
	if err := ValidateLocator(locator); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVersionControl, err)
	}
	out, err := g.run(ctx, "", "ls-remote", "--tags", "--heads", "--", locator)
	if err != nil {
		return nil, err
	}
	return parseLsRemote(out), nil
}

// Clone clones locator into dest. A non-empty ref is passed as --branch,
// which accepts branch and tag names but not commit ids.
func (g *Git) Clone(ctx context.Context, locator, dest, ref string) error {
	if err := ValidateLocator(locator); err != nil {
		return fmt.Errorf("%w: %v", ErrVersionControl, err)
	}
	args := []string{"clone", "--quiet"}
	if ref != "" {
		if err := ValidateRef(ref); err != nil {
			return fmt.Errorf("%w: %v", ErrVersionControl, err)
		}
		args = append(args, "--branch", ref)
	}
	args = append(args, "--", locator, dest)
	_, err := g.run(ctx, "", args...)
	return err
}

// Checkout switches the working tree at dir to ref.
func (g *Git) Checkout(ctx context.Context, dir, ref string) error {
	if err := ValidateRef(ref); err != nil {
		return fmt.Errorf("%w: %v", ErrVersionControl, err)
	}
	_, err := g.run(ctx, dir, "checkout", "--quiet", ref, "--")
	return err
}

// FetchTags fetches all tags from origin.
func (g *Git) FetchTags(ctx context.Context, dir string) error {
	_, err := g.run(ctx, dir, "fetch", "--tags", "--quiet")
	return err
}

// Pull fast-forwards the current branch from its upstream.
func (g *Git) Pull(ctx context.Context, dir string) error {
	_, err := g.run(ctx, dir, "pull", "--ff-only", "--quiet")
	return err
}

// ListLocalTags returns the tag names known to the checkout at dir.
func (g *Git) ListLocalTags(ctx context.Context, dir string) ([]string, error) {
	out, err := g.run(ctx, dir, "tag", "--list")
	if err != nil {
		return nil, err
	}
	return lines(out), nil
}

// HeadCommit returns the full commit id of HEAD.
func (g *Git) HeadCommit(ctx context.Context, dir string) (string, error) {
	out, err := g.run(ctx, dir, "rev-parse", "--verify", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// ResolveCommit returns the commit id that ref points to in the checkout at
// dir. Annotated tags are peeled to their commit.
func (g *Git) ResolveCommit(ctx context.Context, dir, ref string) (string, error) {
	if err := ValidateRef(ref); err != nil {
		return "", fmt.Errorf("%w: %v", ErrVersionControl, err)
	}
	out, err := g.run(ctx, dir, "rev-parse", "--verify", ref+"^{commit}")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// RemoteURL returns the URL configured for origin.
func (g *Git) RemoteURL(ctx context.Context, dir string) (string, error) {
	out, err := g.run(ctx, dir, "remote", "get-url", "origin")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// IsCheckout reports whether dir is the top of a git working tree. A
// directory nested inside some other repository does not count.
func (g *Git) IsCheckout(ctx context.Context, dir string) bool {
	if _, err := os.Stat(filepath.Join(dir, ".git")); err != nil {
		return false
	}
	out, err := g.run(ctx, dir, "rev-parse", "--is-inside-work-tree")
	return err == nil && strings.TrimSpace(out) == "true"
}

// run executes git with args in dir and returns its combined output.
func (g *Git) run(ctx context.Context, dir string, args ...string) (string, error) {
	if err := checkArgs(args); err != nil {
		return "", fmt.Errorf("%w: %v", ErrVersionControl, err)
	}

	timeout := g.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	binary := g.Binary
	if binary == "" {
		binary = "git"
	}

	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0", "GIT_ASKPASS=")

	log.Debug("git %s (dir=%q)", strings.Join(args, " "), dir)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return string(out), fmt.Errorf("%w: git %s: timed out after %s", ErrVersionControl, args[0], timeout)
		}
		return string(out), fmt.Errorf("%w: git %s: %v: %s", ErrVersionControl, args[0], err, strings.TrimSpace(string(out)))
	}
	return string(out), nil
}

func lines(out string) []string {
	var result []string
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			result = append(result, line)
		}
	}
	return result
}
