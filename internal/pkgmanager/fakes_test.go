// ABOUTME: In-memory collaborators for orchestrator tests: fake git, builder, reporter, store
// ABOUTME: The fake git keeps checkout state in a file inside the workspace so renames carry it

package pkgmanager

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mauromedda/gitstaller/internal/build"
	"github.com/mauromedda/gitstaller/internal/git"
	"github.com/mauromedda/gitstaller/internal/resolver"
	"github.com/mauromedda/gitstaller/internal/store"
	"github.com/mauromedda/gitstaller/internal/telemetry"
)

const fakeStateFile = ".fakegit.json"

type fakeRemote struct {
	defaultBranch string
	branches      map[string]string
	tags          map[string]string
	commits       map[string]bool // extra reachable commits, for pins
}

type checkoutState struct {
	Locator string `json:"locator"`
	Commit  string `json:"commit"`
	Branch  string `json:"branch,omitempty"`
}

type fakeGit struct {
	mu          sync.Mutex
	remotes     map[string]*fakeRemote
	cloneErr    error
	clones      int
	pulls       int
	fetches     int
	remoteLists int
	checkouts   []string
}

var _ git.Client = (*fakeGit)(nil)

func newFakeGit() *fakeGit {
	return &fakeGit{remotes: make(map[string]*fakeRemote)}
}

// addRemote registers a repository whose default branch main points at head.
func (g *fakeGit) addRemote(locator, head string) *fakeRemote {
	g.mu.Lock()
	defer g.mu.Unlock()
	r := &fakeRemote{
		defaultBranch: "main",
		branches:      map[string]string{"main": head},
		tags:          make(map[string]string),
		commits:       make(map[string]bool),
	}
	g.remotes[locator] = r
	return r
}

func (g *fakeGit) setTag(locator, tag, commit string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.remotes[locator].tags[tag] = commit
}

func (g *fakeGit) setBranch(locator, branch, commit string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.remotes[locator].branches[branch] = commit
}

func (g *fakeGit) remote(locator string) (*fakeRemote, error) {
	r, ok := g.remotes[locator]
	if !ok {
		return nil, fmt.Errorf("%w: repository %s not found", git.ErrVersionControl, locator)
	}
	return r, nil
}

func readState(dir string) (checkoutState, error) {
	var st checkoutState
	data, err := os.ReadFile(filepath.Join(dir, fakeStateFile))
	if err != nil {
		return st, fmt.Errorf("%w: not a git repository: %s", git.ErrVersionControl, dir)
	}
	err = json.Unmarshal(data, &st)
	return st, err
}

func writeState(dir string, st checkoutState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, fakeStateFile), data, 0o644)
}

func (g *fakeGit) ListRemoteRefs(_ context.Context, locator string) ([]git.Ref, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.remoteLists++
	r, err := g.remote(locator)
	if err != nil {
		return nil, err
	}
	var refs []git.Ref
	for name, commit := range r.branches {
		refs = append(refs, git.Ref{Name: name, Kind: git.RefBranch, Commit: commit})
	}
	for name, commit := range r.tags {
		refs = append(refs, git.Ref{Name: name, Kind: git.RefTag, Commit: commit})
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Name < refs[j].Name })
	return refs, nil
}

func (g *fakeGit) Clone(_ context.Context, locator, dest, ref string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.clones++
	if g.cloneErr != nil {
		return g.cloneErr
	}
	r, err := g.remote(locator)
	if err != nil {
		return err
	}

	st := checkoutState{Locator: locator}
	switch {
	case ref == "":
		st.Branch, st.Commit = r.defaultBranch, r.branches[r.defaultBranch]
	case r.branches[ref] != "":
		st.Branch, st.Commit = ref, r.branches[ref]
	case r.tags[ref] != "":
		st.Commit = r.tags[ref]
	default:
		return fmt.Errorf("%w: Remote branch %s not found", git.ErrVersionControl, ref)
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}
	return writeState(dest, st)
}

func (g *fakeGit) Checkout(_ context.Context, dir, ref string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.checkouts = append(g.checkouts, ref)
	st, err := readState(dir)
	if err != nil {
		return err
	}
	r, err := g.remote(st.Locator)
	if err != nil {
		return err
	}
	switch {
	case r.branches[ref] != "":
		st.Branch, st.Commit = ref, r.branches[ref]
	case r.tags[ref] != "":
		st.Branch, st.Commit = "", r.tags[ref]
	case r.commits[ref]:
		st.Branch, st.Commit = "", ref
	default:
		return fmt.Errorf("%w: pathspec '%s' did not match", git.ErrVersionControl, ref)
	}
	return writeState(dir, st)
}

func (g *fakeGit) FetchTags(_ context.Context, dir string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fetches++
	_, err := readState(dir)
	return err
}

func (g *fakeGit) Pull(_ context.Context, dir string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pulls++
	st, err := readState(dir)
	if err != nil {
		return err
	}
	if st.Branch == "" {
		return fmt.Errorf("%w: You are not currently on a branch", git.ErrVersionControl)
	}
	r, err := g.remote(st.Locator)
	if err != nil {
		return err
	}
	st.Commit = r.branches[st.Branch]
	return writeState(dir, st)
}

func (g *fakeGit) ListLocalTags(_ context.Context, dir string) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	st, err := readState(dir)
	if err != nil {
		return nil, err
	}
	r, err := g.remote(st.Locator)
	if err != nil {
		return nil, err
	}
	var tags []string
	for name := range r.tags {
		tags = append(tags, name)
	}
	sort.Strings(tags)
	return tags, nil
}

func (g *fakeGit) HeadCommit(_ context.Context, dir string) (string, error) {
	st, err := readState(dir)
	return st.Commit, err
}

func (g *fakeGit) ResolveCommit(_ context.Context, dir, ref string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	st, err := readState(dir)
	if err != nil {
		return "", err
	}
	r, err := g.remote(st.Locator)
	if err != nil {
		return "", err
	}
	if c := r.tags[ref]; c != "" {
		return c, nil
	}
	if c := r.branches[ref]; c != "" {
		return c, nil
	}
	return "", fmt.Errorf("%w: unknown revision %s", git.ErrVersionControl, ref)
}

func (g *fakeGit) RemoteURL(_ context.Context, dir string) (string, error) {
	st, err := readState(dir)
	return st.Locator, err
}

func (g *fakeGit) IsCheckout(_ context.Context, dir string) bool {
	_, err := readState(dir)
	return err == nil
}

type fakeBuilder struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (b *fakeBuilder) Build(_ context.Context, dir string) (build.Report, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, dir)
	if b.err != nil {
		return build.Report{Kind: build.KindMake, Status: build.StatusFailed}, b.err
	}
	return build.Report{Kind: build.KindMake, Status: build.StatusBuilt}, nil
}

func (b *fakeBuilder) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.calls)
}

type recorder struct {
	mu    sync.Mutex
	lines []string
}

func (r *recorder) add(prefix, format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, prefix+fmt.Sprintf(format, args...))
}

func (r *recorder) Step(format string, args ...any)    { r.add("step: ", format, args...) }
func (r *recorder) Success(format string, args ...any) { r.add("ok: ", format, args...) }
func (r *recorder) Warn(format string, args ...any)    { r.add("warn: ", format, args...) }
func (r *recorder) Fail(format string, args ...any)    { r.add("fail: ", format, args...) }

func (r *recorder) has(substr string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.lines {
		if strings.Contains(l, substr) {
			return true
		}
	}
	return false
}

// failingStore wraps a real store and fails writes on demand.
type failingStore struct {
	*store.Store
	putErr    error
	deleteErr error
}

func (s *failingStore) Put(rec store.Record) error {
	if s.putErr != nil {
		return s.putErr
	}
	return s.Store.Put(rec)
}

func (s *failingStore) Delete(name string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	return s.Store.Delete(name)
}

var errDiskFull = errors.New("no space left on device")

type harness struct {
	base     string
	packages string
	store    *failingStore
	git      *fakeGit
	builder  *fakeBuilder
	rep      *recorder
	metrics  *telemetry.Metrics
	mgr      *Manager
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	base := t.TempDir()
	st, err := store.Open(context.Background(), filepath.Join(base, "installed.json"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	h := &harness{
		base:     base,
		packages: filepath.Join(base, "packages"),
		store:    &failingStore{Store: st},
		git:      newFakeGit(),
		builder:  &fakeBuilder{},
		rep:      &recorder{},
		metrics:  telemetry.New(),
	}
	h.mgr = New(Options{
		PackagesDir: h.packages,
		Store:       h.store,
		Git:         h.git,
		Builder:     h.builder,
		Reporter:    h.rep,
		Metrics:     h.metrics,
		Now:         func() time.Time { return time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC) },
	})
	return h
}

func (h *harness) workspace(name string) string {
	return filepath.Join(h.packages, name)
}

func (h *harness) mustInstall(t *testing.T, locator string, p resolver.Policy, manual bool) *InstallResult {
	t.Helper()
	res, err := h.mgr.Install(context.Background(), locator, p, manual, false)
	if err != nil {
		t.Fatalf("Install(%s): %v", locator, err)
	}
	return res
}

// hiddenEntries lists staging or trash directories left in the packages dir.
func (h *harness) hiddenEntries(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(h.packages)
	if err != nil && !os.IsNotExist(err) {
		t.Fatal(err)
	}
	var hidden []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			hidden = append(hidden, e.Name())
		}
	}
	return hidden
}
