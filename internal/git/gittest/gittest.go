// ABOUTME: Test helpers that build throwaway git repositories with commits and tags
// ABOUTME: Skips the calling test when git is unavailable or -short is set

package gittest

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// Repo is a non-bare repository on branch main that tests can clone from.
type Repo struct {
	Dir string
}

// NewRepo creates a repository with a README committed on main.
func NewRepo(t *testing.T) *Repo {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping git integration test in short mode")
	}
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not found in PATH")
	}

	r := &Repo{Dir: filepath.Join(t.TempDir(), "upstream")}
	if err := os.MkdirAll(r.Dir, 0o755); err != nil {
		t.Fatal(err)
	}
	r.Git(t, "init", "--quiet")
	r.Git(t, "symbolic-ref", "HEAD", "refs/heads/main")
	r.Git(t, "config", "user.email", "test@test.com")
	r.Git(t, "config", "user.name", "Test")
	r.Git(t, "config", "commit.gpgsign", "false")
	r.Git(t, "config", "tag.gpgsign", "false")
	r.Commit(t, "README.md", "# test\n")
	return r
}

// Git runs git in the repository and returns trimmed combined output.
func (r *Repo) Git(t *testing.T, args ...string) string {
	t.Helper()
	return Run(t, r.Dir, args...)
}

// Commit writes name with content, commits it and returns the new HEAD.
func (r *Repo) Commit(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(r.Dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	r.Git(t, "add", "--", name)
	r.Git(t, "commit", "--quiet", "-m", "update "+name)
	return r.Head(t)
}

// Tag creates a lightweight tag at HEAD.
func (r *Repo) Tag(t *testing.T, name string) {
	t.Helper()
	r.Git(t, "tag", name)
}

// AnnotatedTag creates an annotated tag at HEAD.
func (r *Repo) AnnotatedTag(t *testing.T, name string) {
	t.Helper()
	r.Git(t, "tag", "-a", "-m", "release "+name, name)
}

// Head returns the full commit id of HEAD.
func (r *Repo) Head(t *testing.T) string {
	t.Helper()
	return r.Git(t, "rev-parse", "HEAD")
}

// Run runs git in dir and fails the test on error.
func Run(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, out)
	}
	return strings.TrimSpace(string(out))
}
