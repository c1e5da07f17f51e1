// ABOUTME: Ref types and parsing of `git ls-remote` output
// ABOUTME: Folds peeled tag entries (^{}) into their tag names

package git

import (
	"bufio"
	"strings"
)

// RefKind classifies a remote ref.
type RefKind int

const (
	RefOther RefKind = iota
	RefBranch
	RefTag
)

// String returns the lowercase name of the kind.
func (k RefKind) String() string {
	switch k {
	case RefBranch:
		return "branch"
	case RefTag:
		return "tag"
	default:
		return "other"
	}
}

// Ref is a named ref advertised by a remote.
type Ref struct {
	Name   string // short name, e.g. "v1.2.0" or "main"
	Kind   RefKind
	Commit string
}

// TagNames returns the names of the tag refs in refs, deduplicated, in order.
func TagNames(refs []Ref) []string {
	seen := make(map[string]bool, len(refs))
	var tags []string
	for _, r := range refs {
		if r.Kind != RefTag || seen[r.Name] {
			continue
		}
		seen[r.Name] = true
		tags = append(tags, r.Name)
	}
	return tags
}

// parseLsRemote parses lines of the form "<sha>\t<refname>". Peeled entries
// ("refs/tags/v1^{}") replace the commit of their tag rather than adding a
// second ref.
func parseLsRemote(output string) []Ref {
	var refs []Ref
	index := make(map[string]int)

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		sha, full, ok := strings.Cut(line, "\t")
		if !ok {
			fields := strings.Fields(line)
			if len(fields) != 2 {
				continue
			}
			sha, full = fields[0], fields[1]
		}

		full, peeled := strings.CutSuffix(full, "^{}")

		var ref Ref
		switch {
		case strings.HasPrefix(full, "refs/tags/"):
			ref = Ref{Name: strings.TrimPrefix(full, "refs/tags/"), Kind: RefTag}
		case strings.HasPrefix(full, "refs/heads/"):
			ref = Ref{Name: strings.TrimPrefix(full, "refs/heads/"), Kind: RefBranch}
		default:
			ref = Ref{Name: full, Kind: RefOther}
		}
		ref.Commit = sha

		key := ref.Kind.String() + ":" + ref.Name
		if i, ok := index[key]; ok {
			if peeled {
				refs[i].Commit = sha
			}
			continue
		}
		index[key] = len(refs)
		refs = append(refs, ref)
	}
	return refs
}
