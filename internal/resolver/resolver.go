// ABOUTME: Version resolver: turns a source policy into a concrete ref to check out
// ABOUTME: Reads remote ref listings before a clone and local tags after one

package resolver

import (
	"context"
	"fmt"

	"github.com/mauromedda/gitstaller/internal/git"
)

// RefLister is the subset of the git client the resolver needs.
type RefLister interface {
	ListRemoteRefs(ctx context.Context, locator string) ([]git.Ref, error)
	ListLocalTags(ctx context.Context, dir string) ([]string, error)
}

// Resolution is the outcome of resolving a policy. Found is false only for
// TrackLatestRelease against a repository without tags; callers then fall
// back to the default branch.
type Resolution struct {
	Ref   string
	Found bool
}

// Resolver resolves policies against a git repository.
type Resolver struct {
	refs RefLister
}

// New returns a Resolver backed by refs.
func New(refs RefLister) *Resolver {
	return &Resolver{refs: refs}
}

// Resolve maps a policy and a tag set to a ref. It has no side effects.
func Resolve(p Policy, tags []string) Resolution {
	switch p.Kind {
	case TrackLatestRelease:
		tag, ok := Latest(tags)
		return Resolution{Ref: tag, Found: ok}
	default:
		return Resolution{Ref: p.Ref, Found: true}
	}
}

// ResolveRemote resolves p against the tags advertised by the remote at
// locator. Only TrackLatestRelease contacts the remote.
func (r *Resolver) ResolveRemote(ctx context.Context, p Policy, locator string) (Resolution, error) {
	if err := p.Validate(); err != nil {
		return Resolution{}, err
	}
	if p.Kind != TrackLatestRelease {
		return Resolve(p, nil), nil
	}

	refs, err := r.refs.ListRemoteRefs(ctx, locator)
	if err != nil {
		return Resolution{}, fmt.Errorf("listing tags of %s: %w", locator, err)
	}
	return Resolve(p, git.TagNames(refs)), nil
}

// ResolveLocal resolves p against the tags present in the checkout at dir.
func (r *Resolver) ResolveLocal(ctx context.Context, p Policy, dir string) (Resolution, error) {
	if err := p.Validate(); err != nil {
		return Resolution{}, err
	}
	if p.Kind != TrackLatestRelease {
		return Resolve(p, nil), nil
	}

	tags, err := r.refs.ListLocalTags(ctx, dir)
	if err != nil {
		return Resolution{}, fmt.Errorf("listing local tags in %s: %w", dir, err)
	}
	return Resolve(p, tags), nil
}
