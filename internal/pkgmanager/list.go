// ABOUTME: Listing of installed packages with their live checkout state
// ABOUTME: Reads HEAD from each workspace; unreadable workspaces are still listed

package pkgmanager

import (
	"context"
	"time"

	"github.com/mauromedda/gitstaller/internal/log"
)

// List returns every recorded package, sorted by name.
func (m *Manager) List(ctx context.Context) (out []PackageStatus, err error) {
	start := time.Now()
	defer func() { m.metrics.ObserveOperation("list", start, err) }()

	records := m.store.Records()
	out = make([]PackageStatus, 0, len(records))
	for _, rec := range records {
		st := PackageStatus{Record: rec, Workspace: m.workspace(rec.Name)}
		exists, err := dirExists(st.Workspace)
		if err != nil {
			return nil, opErr("list", rec.Name, err)
		}
		if exists {
			st.Present = true
			commit, err := m.git.HeadCommit(ctx, st.Workspace)
			if err != nil {
				log.Debug("reading HEAD of %s: %v", rec.Name, err)
			}
			st.Commit = commit
		}
		out = append(out, st)
	}
	return out, nil
}
