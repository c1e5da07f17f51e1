// ABOUTME: Source policy types: track a branch, track the latest release, or pin a ref
// ABOUTME: Converts between policies and the CLI/store source descriptors

package resolver

import (
	"fmt"
	"strings"
)

// DefaultBranch is the branch tracked when no other branch is named.
const DefaultBranch = "main"

// Source descriptors as they appear on the command line and in the store.
const (
	SourceMain          = "main"
	SourceLatestRelease = "latest-release"
	SourceVersion       = "version"
)

// PolicyKind identifies how a package chooses the ref to check out.
type PolicyKind int

const (
	TrackBranch PolicyKind = iota
	TrackLatestRelease
	PinnedVersion
)

// String returns the source descriptor of the kind.
func (k PolicyKind) String() string {
	switch k {
	case TrackBranch:
		return SourceMain
	case TrackLatestRelease:
		return SourceLatestRelease
	case PinnedVersion:
		return SourceVersion
	default:
		return "unknown"
	}
}

// Policy is a package's source policy. Ref holds the branch name for
// TrackBranch and the verbatim ref for PinnedVersion.
type Policy struct {
	Kind PolicyKind
	Ref  string
}

// Branch returns a policy tracking the named branch (DefaultBranch when empty).
func Branch(name string) Policy {
	if name == "" {
		name = DefaultBranch
	}
	return Policy{Kind: TrackBranch, Ref: name}
}

// LatestRelease returns a policy tracking the newest tag.
func LatestRelease() Policy {
	return Policy{Kind: TrackLatestRelease}
}

// Pinned returns a policy pinned to ref.
func Pinned(ref string) Policy {
	return Policy{Kind: PinnedVersion, Ref: ref}
}

// Validate reports whether the policy is complete.
func (p Policy) Validate() error {
	switch p.Kind {
	case TrackBranch:
		if strings.TrimSpace(p.Ref) == "" {
			return fmt.Errorf("branch policy requires a branch name")
		}
	case TrackLatestRelease:
	case PinnedVersion:
		if strings.TrimSpace(p.Ref) == "" {
			return fmt.Errorf("pinned version policy requires a ref")
		}
	default:
		return fmt.Errorf("unknown policy kind %d", p.Kind)
	}
	return nil
}

// String renders the policy for status output, e.g. "main", "latest-release", "version deadbeef".
func (p Policy) String() string {
	switch p.Kind {
	case TrackBranch:
		if p.Ref == DefaultBranch {
			return SourceMain
		}
		return "branch " + p.Ref
	case TrackLatestRelease:
		return SourceLatestRelease
	case PinnedVersion:
		return "version " + p.Ref
	default:
		return "unknown"
	}
}

// ParsePolicy builds a policy from a source descriptor and its optional ref.
// For SourceMain, ref names the branch (DefaultBranch when empty).
func ParsePolicy(source, ref string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(source)) {
	case "", SourceMain:
		return Branch(ref), nil
	case SourceLatestRelease:
		if ref != "" {
			return Policy{}, fmt.Errorf("source %q does not take a ref", SourceLatestRelease)
		}
		return LatestRelease(), nil
	case SourceVersion:
		p := Pinned(ref)
		if err := p.Validate(); err != nil {
			return Policy{}, err
		}
		return p, nil
	default:
		return Policy{}, fmt.Errorf("unknown source %q (expected %s, %s or %s)",
			source, SourceMain, SourceLatestRelease, SourceVersion)
	}
}
