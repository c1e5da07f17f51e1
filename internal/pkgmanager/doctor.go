// ABOUTME: Consistency checks between the metadata store and the packages directory
// ABOUTME: Inspects workspaces concurrently with a bounded errgroup; never modifies anything

package pkgmanager

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mauromedda/gitstaller/internal/resolver"
	"github.com/mauromedda/gitstaller/internal/store"
)

// IssueKind classifies a doctor finding.
type IssueKind int

const (
	IssueMissingWorkspace IssueKind = iota
	IssueOrphanWorkspace
	IssueNotCheckout
	IssueOriginMismatch
	IssueStaleStaging
	IssueReleaseBehind
)

func (k IssueKind) String() string {
	switch k {
	case IssueMissingWorkspace:
		return "missing-workspace"
	case IssueOrphanWorkspace:
		return "orphan-workspace"
	case IssueNotCheckout:
		return "not-a-checkout"
	case IssueOriginMismatch:
		return "origin-mismatch"
	case IssueStaleStaging:
		return "stale-staging"
	case IssueReleaseBehind:
		return "release-behind"
	default:
		return "unknown"
	}
}

// Informational reports whether the finding is advice rather than breakage.
func (k IssueKind) Informational() bool {
	return k == IssueReleaseBehind
}

// Issue is one doctor finding.
type Issue struct {
	Package string
	Kind    IssueKind
	Detail  string
}

// Doctor reports every disagreement between the store and the packages
// directory, sorted by package then kind.
func (m *Manager) Doctor(ctx context.Context) (issues []Issue, err error) {
	start := time.Now()
	defer func() { m.metrics.ObserveOperation("doctor", start, err) }()

	records := m.store.Records()
	results := make([][]Issue, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)
	for i, rec := range records {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = m.inspect(gctx, rec)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("doctor: %w", err)
	}

	for _, r := range results {
		issues = append(issues, r...)
	}

	strays, err := m.scanStrays()
	if err != nil {
		return nil, fmt.Errorf("doctor: %w", err)
	}
	issues = append(issues, strays...)

	sort.Slice(issues, func(i, j int) bool {
		if issues[i].Package != issues[j].Package {
			return issues[i].Package < issues[j].Package
		}
		return issues[i].Kind < issues[j].Kind
	})
	return issues, nil
}

func (m *Manager) inspect(ctx context.Context, rec store.Record) []Issue {
	ws := m.workspace(rec.Name)
	exists, err := dirExists(ws)
	if err != nil || !exists {
		return []Issue{{Package: rec.Name, Kind: IssueMissingWorkspace,
			Detail: fmt.Sprintf("recorded but %s does not exist; run reinstall", ws)}}
	}
	if !m.git.IsCheckout(ctx, ws) {
		return []Issue{{Package: rec.Name, Kind: IssueNotCheckout,
			Detail: fmt.Sprintf("%s is not a git checkout; run reinstall", ws)}}
	}

	var issues []Issue
	origin, err := m.git.RemoteURL(ctx, ws)
	switch {
	case err != nil:
		issues = append(issues, Issue{Package: rec.Name, Kind: IssueOriginMismatch,
			Detail: fmt.Sprintf("cannot read origin: %v", err)})
	case !sameLocator(origin, rec.Locator):
		issues = append(issues, Issue{Package: rec.Name, Kind: IssueOriginMismatch,
			Detail: fmt.Sprintf("origin is %s but the record says %s", origin, rec.Locator)})
	}

	if rec.Policy.Kind == resolver.TrackLatestRelease {
		if issue, ok := m.releaseBehind(ctx, rec, ws); ok {
			issues = append(issues, issue)
		}
	}
	return issues
}

// sameLocator compares an origin URL with a recorded locator. Local paths
// match when they name the same directory, which covers records written
// with a relative path.
func sameLocator(origin, recorded string) bool {
	if origin == recorded {
		return true
	}
	if isRemoteLocator(origin) || isRemoteLocator(recorded) {
		return false
	}
	a, err := os.Stat(origin)
	if err != nil {
		return false
	}
	b, err := os.Stat(recorded)
	return err == nil && os.SameFile(a, b)
}

// releaseBehind reports when the newest locally known tag is not checked out.
func (m *Manager) releaseBehind(ctx context.Context, rec store.Record, ws string) (Issue, bool) {
	r, err := m.resolver.ResolveLocal(ctx, rec.Policy, ws)
	if err != nil || !r.Found {
		return Issue{}, false
	}
	tagCommit, err := m.git.ResolveCommit(ctx, ws, r.Ref)
	if err != nil {
		return Issue{}, false
	}
	head, err := m.git.HeadCommit(ctx, ws)
	if err != nil || head == tagCommit {
		return Issue{}, false
	}
	return Issue{Package: rec.Name, Kind: IssueReleaseBehind,
		Detail: fmt.Sprintf("%s is available but %s is checked out; run update", r.Ref, shortCommit(head))}, true
}

// scanStrays finds workspace directories without a record and leftover
// staging or trash directories.
func (m *Manager) scanStrays() ([]Issue, error) {
	entries, err := os.ReadDir(m.packagesDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", m.packagesDir, err)
	}

	var issues []Issue
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		name := e.Name()
		if isHidden(name) {
			issues = append(issues, Issue{Package: name, Kind: IssueStaleStaging,
				Detail: "leftover staging or trash directory from an interrupted operation; safe to delete"})
			continue
		}
		if _, ok := m.store.Get(name); !ok {
			issues = append(issues, Issue{Package: name, Kind: IssueOrphanWorkspace,
				Detail: "workspace has no record; run remove or reinstall from its locator"})
		}
	}
	return issues, nil
}
