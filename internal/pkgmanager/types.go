// ABOUTME: Result types returned by package operations
// ABOUTME: Outcomes distinguish a full success from a checkout whose build failed

package pkgmanager

import (
	"github.com/mauromedda/gitstaller/internal/build"
	"github.com/mauromedda/gitstaller/internal/resolver"
	"github.com/mauromedda/gitstaller/internal/store"
)

// Outcome classifies a completed install or update.
type Outcome int

const (
	OutcomeInstalled Outcome = iota
	OutcomeInstalledWithoutBuild
	OutcomeUpdated
	OutcomeUpdatedWithoutBuild
)

func (o Outcome) String() string {
	switch o {
	case OutcomeInstalled:
		return "installed"
	case OutcomeInstalledWithoutBuild:
		return "installed-without-build"
	case OutcomeUpdated:
		return "updated"
	case OutcomeUpdatedWithoutBuild:
		return "updated-without-build"
	default:
		return "unknown"
	}
}

// InstallResult describes a successful install or reinstall.
type InstallResult struct {
	Name      string
	Workspace string
	Policy    resolver.Policy
	Ref       string // checked-out ref; empty when the default branch was used
	Commit    string
	Outcome   Outcome
	Build     build.Report
	BuildErr  error
	Replaced  bool // an existing workspace was replaced
}

// UpdateResult describes a successful update.
type UpdateResult struct {
	Name     string
	Policy   resolver.Policy
	Ref      string
	Before   string
	After    string
	Changed  bool
	Outcome  Outcome
	Build    build.Report
	BuildErr error
}

// RemoveResult describes what Remove deleted.
type RemoveResult struct {
	Name             string
	RemovedRecord    bool
	RemovedWorkspace bool
}

// PackageStatus is one row of List.
type PackageStatus struct {
	store.Record
	Workspace string
	Present   bool
	Commit    string // empty when the workspace is missing or unreadable
}
