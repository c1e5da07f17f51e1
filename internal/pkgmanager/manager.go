// ABOUTME: Package orchestrator: install, update, reinstall and remove against git workspaces
// ABOUTME: Stages clones beside the workspace and swaps them in only after checkout succeeds

package pkgmanager

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mauromedda/gitstaller/internal/build"
	"github.com/mauromedda/gitstaller/internal/git"
	"github.com/mauromedda/gitstaller/internal/log"
	"github.com/mauromedda/gitstaller/internal/resolver"
	"github.com/mauromedda/gitstaller/internal/store"
	"github.com/mauromedda/gitstaller/internal/telemetry"
)

// Store is the subset of the metadata store the manager needs.
type Store interface {
	Get(name string) (store.Record, bool)
	Put(rec store.Record) error
	Delete(name string) error
	Names() []string
	Records() []store.Record
}

// Builder builds and installs a workspace.
type Builder interface {
	Build(ctx context.Context, dir string) (build.Report, error)
}

// Options configures a Manager. PackagesDir, Store and Git are required.
type Options struct {
	PackagesDir       string
	Store             Store
	Git               git.Client
	Builder           Builder
	Reporter          Reporter
	Metrics           *telemetry.Metrics
	DoctorConcurrency int
	Now               func() time.Time
}

// Manager runs package operations. It is used for one command at a time;
// the store's file lock keeps other processes out.
type Manager struct {
	packagesDir string
	store       Store
	git         git.Client
	resolver    *resolver.Resolver
	builder     Builder
	report      Reporter
	metrics     *telemetry.Metrics
	concurrency int
	now         func() time.Time
}

// New returns a Manager for opts.
func New(opts Options) *Manager {
	m := &Manager{
		packagesDir: opts.PackagesDir,
		store:       opts.Store,
		git:         opts.Git,
		resolver:    resolver.New(opts.Git),
		builder:     opts.Builder,
		report:      opts.Reporter,
		metrics:     opts.Metrics,
		concurrency: opts.DoctorConcurrency,
		now:         opts.Now,
	}
	if m.builder == nil {
		m.builder = build.New(build.Options{Sudo: true})
	}
	if m.report == nil {
		m.report = nopReporter{}
	}
	if m.concurrency < 1 {
		m.concurrency = 4
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

func (m *Manager) workspace(name string) string {
	return filepath.Join(m.packagesDir, name)
}

// Install clones locator under policy and builds it unless manual is set.
// With reinstall an existing workspace is replaced, and a record without a
// workspace is repaired.
func (m *Manager) Install(ctx context.Context, locator string, policy resolver.Policy, manual, reinstall bool) (res *InstallResult, err error) {
	start := time.Now()
	defer func() { m.metrics.ObserveOperation("install", start, err) }()

	if err := git.ValidateLocator(locator); err != nil {
		return nil, opErr("install", locator, fmt.Errorf("%w: %v", ErrInvalidArguments, err))
	}
	abs, err := AbsLocator(locator)
	if err != nil {
		return nil, opErr("install", locator, err)
	}
	locator = abs
	name, err := DeriveName(locator)
	if err != nil {
		return nil, opErr("install", locator, err)
	}
	res, err = m.install(ctx, name, locator, policy, manual, reinstall)
	return res, opErr("install", name, err)
}

// Reinstall replaces the workspace of name with a fresh checkout of its
// recorded locator and policy. The record's manual flag is kept unless
// manual turns it on.
func (m *Manager) Reinstall(ctx context.Context, name string, manual bool) (res *InstallResult, err error) {
	start := time.Now()
	defer func() { m.metrics.ObserveOperation("reinstall", start, err) }()

	rec, ok := m.store.Get(name)
	if !ok {
		return nil, m.notFound("reinstall", name)
	}
	res, err = m.install(ctx, rec.Name, rec.Locator, rec.Policy, manual || rec.Manual, true)
	return res, opErr("reinstall", name, err)
}

func (m *Manager) install(ctx context.Context, name, locator string, policy resolver.Policy, manual, reinstall bool) (*InstallResult, error) {
	if err := ValidateName(name); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	if err := git.ValidateLocator(locator); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	if policy.Kind != resolver.TrackLatestRelease {
		if err := git.ValidateRef(policy.Ref); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
		}
	}

	ws := m.workspace(name)
	exists, err := dirExists(ws)
	if err != nil {
		return nil, err
	}
	_, hasRecord := m.store.Get(name)
	if !reinstall {
		if exists {
			return nil, fmt.Errorf("%w: %s is present (use reinstall to replace it)", ErrAlreadyInstalled, ws)
		}
		if hasRecord {
			return nil, fmt.Errorf("%w: %s is recorded but %s is missing; run reinstall to repair it", ErrReconcile, name, ws)
		}
	}

	if err := os.MkdirAll(m.packagesDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating packages directory: %w", err)
	}
	staging, err := os.MkdirTemp(m.packagesDir, "."+name+".new-")
	if err != nil {
		return nil, fmt.Errorf("creating staging directory: %w", err)
	}
	staged := true
	defer func() {
		if staged {
			if err := os.RemoveAll(staging); err != nil {
				log.Warn("removing staging directory %s: %v", staging, err)
			}
		}
	}()

	ref, err := m.checkoutFresh(ctx, locator, policy, staging)
	if err != nil {
		return nil, err
	}
	commit, err := m.git.HeadCommit(ctx, staging)
	if err != nil {
		return nil, err
	}

	rec := store.Record{
		Name:        name,
		Locator:     locator,
		Policy:      policy,
		Manual:      manual,
		InstalledAt: m.now().UTC(),
	}
	if err := m.swapIn(name, staging, ws, func() error { return m.store.Put(rec) }); err != nil {
		return nil, err
	}
	staged = false
	m.report.Success("Checked out %s at %s", name, describe(ref, commit))

	res := &InstallResult{
		Name:      name,
		Workspace: ws,
		Policy:    policy,
		Ref:       ref,
		Commit:    commit,
		Outcome:   OutcomeInstalled,
		Replaced:  exists,
	}
	res.Build, res.BuildErr = m.runBuild(ctx, name, ws, manual)
	if res.BuildErr != nil {
		res.Outcome = OutcomeInstalledWithoutBuild
	}
	return res, nil
}

// checkoutFresh clones locator into dest at the ref policy selects and
// returns that ref, or "" when the default branch was used.
func (m *Manager) checkoutFresh(ctx context.Context, locator string, policy resolver.Policy, dest string) (string, error) {
	if policy.Kind == resolver.TrackLatestRelease {
		m.report.Step("Resolving latest release of %s", locator)
		r, err := m.resolver.ResolveRemote(ctx, policy, locator)
		if err != nil {
			return "", err
		}
		if !r.Found {
			m.report.Warn("No release tags found for %s; using the default branch", locator)
			m.report.Step("Cloning %s", locator)
			if err := m.git.Clone(ctx, locator, dest, ""); err != nil {
				return "", fmt.Errorf("cloning %s: %w", locator, err)
			}
			return "", nil
		}
		m.report.Step("Cloning %s at %s", locator, r.Ref)
		if err := m.git.Clone(ctx, locator, dest, r.Ref); err != nil {
			return "", fmt.Errorf("cloning %s at %s: %w", locator, r.Ref, err)
		}
		return r.Ref, nil
	}

	m.report.Step("Cloning %s", locator)
	if err := m.git.Clone(ctx, locator, dest, ""); err != nil {
		return "", fmt.Errorf("cloning %s: %w", locator, err)
	}
	m.report.Step("Checking out %s", policy.Ref)
	if err := m.git.Checkout(ctx, dest, policy.Ref); err != nil {
		return "", fmt.Errorf("checking out %s: %w", policy.Ref, err)
	}
	return policy.Ref, nil
}

// swapIn moves staging to ws, setting any previous workspace aside, then runs
// commit. If commit fails both directories are put back where they were.
func (m *Manager) swapIn(name, staging, ws string, commit func() error) error {
	old := ""
	if exists, err := dirExists(ws); err != nil {
		return err
	} else if exists {
		old = m.trashPath(name)
		if err := os.Rename(ws, old); err != nil {
			return fmt.Errorf("moving old workspace aside: %w", err)
		}
	}

	restore := func() {
		if old == "" {
			return
		}
		if err := os.Rename(old, ws); err != nil {
			log.Error("restoring %s from %s: %v", ws, old, err)
		}
	}

	if err := os.Rename(staging, ws); err != nil {
		restore()
		return fmt.Errorf("moving new workspace into place: %w", err)
	}
	if err := commit(); err != nil {
		if rerr := os.Rename(ws, staging); rerr != nil {
			log.Error("moving %s back to %s: %v", ws, staging, rerr)
		}
		restore()
		return fmt.Errorf("saving store: %w", err)
	}

	if old != "" {
		if err := os.RemoveAll(old); err != nil {
			m.report.Warn("Could not delete the previous workspace at %s: %v", old, err)
		}
	}
	return nil
}

// Update brings the workspace of name up to date with its recorded policy
// and rebuilds it unless manual or the record's manual flag is set. The
// record itself never changes.
func (m *Manager) Update(ctx context.Context, name string, manual bool) (res *UpdateResult, err error) {
	start := time.Now()
	defer func() { m.metrics.ObserveOperation("update", start, err) }()

	res, err = m.update(ctx, name, manual)
	return res, opErr("update", name, err)
}

func (m *Manager) update(ctx context.Context, name string, manual bool) (*UpdateResult, error) {
	rec, ok := m.store.Get(name)
	if !ok {
		return nil, m.notFound("update", name)
	}
	ws := m.workspace(name)
	exists, err := dirExists(ws)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s is recorded but %s is missing; run reinstall to repair it", ErrReconcile, name, ws)
	}

	before, err := m.git.HeadCommit(ctx, ws)
	if err != nil {
		return nil, err
	}
	res := &UpdateResult{Name: name, Policy: rec.Policy, Before: before}

	switch rec.Policy.Kind {
	case resolver.TrackLatestRelease:
		m.report.Step("Checking %s for a newer release", rec.Locator)
		r, err := m.resolver.ResolveRemote(ctx, rec.Policy, rec.Locator)
		if err != nil {
			return nil, err
		}
		if !r.Found {
			m.report.Warn("No release tags found for %s; leaving the checkout unchanged", name)
			break
		}
		if err := m.git.FetchTags(ctx, ws); err != nil {
			return nil, fmt.Errorf("fetching tags: %w", err)
		}
		if err := m.git.Checkout(ctx, ws, r.Ref); err != nil {
			return nil, fmt.Errorf("checking out %s: %w", r.Ref, err)
		}
		res.Ref = r.Ref
	case resolver.TrackBranch:
		m.report.Step("Pulling %s", rec.Policy.Ref)
		if err := m.git.Pull(ctx, ws); err != nil {
			return nil, fmt.Errorf("pulling %s: %w", rec.Policy.Ref, err)
		}
		res.Ref = rec.Policy.Ref
	case resolver.PinnedVersion:
		m.report.Step("%s is pinned to %s", name, rec.Policy.Ref)
		if err := m.git.Checkout(ctx, ws, rec.Policy.Ref); err != nil {
			return nil, fmt.Errorf("checking out %s: %w", rec.Policy.Ref, err)
		}
		res.Ref = rec.Policy.Ref
	}

	after, err := m.git.HeadCommit(ctx, ws)
	if err != nil {
		return nil, err
	}
	res.After = after
	res.Changed = before != after
	if res.Changed {
		m.report.Success("Updated %s from %s to %s", name, shortCommit(before), describe(res.Ref, after))
	} else {
		m.report.Success("%s is up to date at %s", name, describe(res.Ref, after))
	}

	res.Outcome = OutcomeUpdated
	res.Build, res.BuildErr = m.runBuild(ctx, name, ws, manual || rec.Manual)
	if res.BuildErr != nil {
		res.Outcome = OutcomeUpdatedWithoutBuild
	}
	return res, nil
}

// Remove deletes the workspace and the record of name, whichever exist.
// The workspace is set aside first and restored if the store cannot be saved.
func (m *Manager) Remove(_ context.Context, name string) (res *RemoveResult, err error) {
	start := time.Now()
	defer func() { m.metrics.ObserveOperation("remove", start, err) }()

	res, err = m.remove(name)
	return res, opErr("remove", name, err)
}

func (m *Manager) remove(name string) (*RemoveResult, error) {
	if err := ValidateName(name); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}

	_, hasRecord := m.store.Get(name)
	ws := m.workspace(name)
	exists, err := dirExists(ws)
	if err != nil {
		return nil, err
	}
	if !hasRecord && !exists {
		return nil, m.notFound("remove", name)
	}

	trash := ""
	if exists {
		trash = m.trashPath(name)
		m.report.Step("Removing %s", ws)
		if err := os.Rename(ws, trash); err != nil {
			return nil, fmt.Errorf("moving workspace aside: %w", err)
		}
	} else {
		m.report.Warn("Workspace of %s was already missing", name)
	}

	if hasRecord {
		if err := m.store.Delete(name); err != nil {
			if trash != "" {
				if rerr := os.Rename(trash, ws); rerr != nil {
					log.Error("restoring %s from %s: %v", ws, trash, rerr)
				}
			}
			return nil, fmt.Errorf("saving store: %w", err)
		}
	} else {
		m.report.Warn("%s had no record; removed the orphaned workspace", name)
	}

	if trash != "" {
		if err := os.RemoveAll(trash); err != nil {
			m.report.Warn("Could not delete %s: %v", trash, err)
		}
	}
	return &RemoveResult{Name: name, RemovedRecord: hasRecord, RemovedWorkspace: exists}, nil
}

func (m *Manager) runBuild(ctx context.Context, name, ws string, manual bool) (build.Report, error) {
	if manual {
		m.report.Step("Manual mode: skipping the build of %s", name)
		return build.Report{Status: build.StatusSkipped}, nil
	}

	report, err := m.builder.Build(ctx, ws)
	if report.Status != build.StatusNoDescriptor {
		m.metrics.ObserveBuild(report.Status.String())
	}
	switch {
	case err != nil:
		m.report.Fail("Build of %s failed: %v", name, err)
	case report.Status == build.StatusBuilt:
		m.report.Success("Built and installed %s", name)
	}
	return report, err
}

func (m *Manager) notFound(op, name string) error {
	return &OpError{Op: op, Package: name, Err: ErrNotFound, Suggestions: suggest(name, m.knownNames())}
}

// knownNames returns recorded names plus workspace directory names.
func (m *Manager) knownNames() []string {
	names := m.store.Names()
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		seen[n] = true
	}
	entries, err := os.ReadDir(m.packagesDir)
	if err != nil {
		return names
	}
	for _, e := range entries {
		if e.IsDir() && !isHidden(e.Name()) && !seen[e.Name()] {
			names = append(names, e.Name())
		}
	}
	return names
}

// trashPath returns an unused hidden path to set the workspace of name aside.
func (m *Manager) trashPath(name string) string {
	base := filepath.Join(m.packagesDir, fmt.Sprintf(".%s.old-%d", name, m.now().UnixNano()))
	path := base
	for i := 1; ; i++ {
		if _, err := os.Lstat(path); err != nil {
			return path
		}
		path = fmt.Sprintf("%s-%d", base, i)
	}
}

func dirExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("checking %s: %w", path, err)
}

func isHidden(name string) bool {
	return len(name) > 0 && name[0] == '.'
}

func shortCommit(commit string) string {
	if len(commit) > 12 {
		return commit[:12]
	}
	return commit
}

func describe(ref, commit string) string {
	if ref == "" || ref == commit {
		return shortCommit(commit)
	}
	return fmt.Sprintf("%s (%s)", ref, shortCommit(commit))
}
