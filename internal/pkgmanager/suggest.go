// ABOUTME: "Did you mean" suggestions for unknown package names
// ABOUTME: Ranks installed names with sahilm/fuzzy in both directions

package pkgmanager

import "github.com/sahilm/fuzzy"

const maxSuggestions = 3

// suggest returns up to maxSuggestions candidates resembling name: first the
// candidates containing name as a fuzzy subsequence, best score first, then
// the candidates that are themselves a subsequence of name (typos that add
// characters).
func suggest(name string, candidates []string) []string {
	if name == "" || len(candidates) == 0 {
		return nil
	}

	seen := make(map[string]bool)
	var out []string
	add := func(s string) {
		if s == name || seen[s] || len(out) >= maxSuggestions {
			return
		}
		seen[s] = true
		out = append(out, s)
	}

	for _, match := range fuzzy.Find(name, candidates) {
		add(match.Str)
	}
	for _, c := range candidates {
		if len(fuzzy.Find(c, []string{name})) > 0 {
			add(c)
		}
	}
	return out
}
