// ABOUTME: Tests for ls-remote parsing and tag extraction
// ABOUTME: Exercises peeled annotated tags, branches, and malformed lines

package git

import (
	"slices"
	"testing"
)

func TestParseLsRemote(t *testing.T) {
	t.Parallel()

	output := "aaaa\trefs/heads/main\n" +
		"bbbb\trefs/heads/feature/x\n" +
		"cccc\trefs/tags/v1.0.0\n" +
		"dddd\trefs/tags/v1.1.0\n" +
		"eeee\trefs/tags/v1.1.0^{}\n" +
		"\n" +
		"garbage\n" +
		"ffff\tHEAD\n"

	refs := parseLsRemote(output)
	want := []Ref{
		{Name: "main", Kind: RefBranch, Commit: "aaaa"},
		{Name: "feature/x", Kind: RefBranch, Commit: "bbbb"},
		{Name: "v1.0.0", Kind: RefTag, Commit: "cccc"},
		{Name: "v1.1.0", Kind: RefTag, Commit: "eeee"},
		{Name: "HEAD", Kind: RefOther, Commit: "ffff"},
	}
	if !slices.Equal(refs, want) {
		t.Errorf("parseLsRemote =\n%+v\nwant\n%+v", refs, want)
	}
}

func TestTagNames(t *testing.T) {
	t.Parallel()

	refs := []Ref{
		{Name: "main", Kind: RefBranch},
		{Name: "v2", Kind: RefTag},
		{Name: "v1", Kind: RefTag},
		{Name: "v2", Kind: RefTag},
	}
	got := TagNames(refs)
	if want := []string{"v2", "v1"}; !slices.Equal(got, want) {
		t.Errorf("TagNames = %v; want %v", got, want)
	}
	if got := TagNames(nil); len(got) != 0 {
		t.Errorf("TagNames(nil) = %v; want empty", got)
	}
}

func TestRefKindString(t *testing.T) {
	t.Parallel()

	if RefBranch.String() != "branch" || RefTag.String() != "tag" || RefOther.String() != "other" {
		t.Errorf("unexpected RefKind strings: %s %s %s", RefBranch, RefTag, RefOther)
	}
}
