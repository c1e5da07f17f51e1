// ABOUTME: Argument validation for git invocations: subcommand/option allow-lists
// ABOUTME: Rejects refs and locators that could be parsed as options or unsafe transports

package git

import (
	"fmt"
	"strings"
	"unicode"
)

// allowedGitCommands lists the subcommands the client may spawn.
var allowedGitCommands = map[string]bool{
	"ls-remote": true,
	"clone":     true,
	"checkout":  true,
	"fetch":     true,
	"pull":      true,
	"tag":       true,
	"rev-parse": true,
	"remote":    true,
}

// allowedGitOptions lists the options the client may pass before "--".
var allowedGitOptions = map[string]bool{
	"--tags":                true,
	"--heads":               true,
	"--quiet":               true,
	"--branch":              true,
	"--ff-only":             true,
	"--list":                true,
	"--is-inside-work-tree": true,
	"--verify":              true,
	"--":                    true,
}

// refForbidden holds characters git itself refuses in ref names, plus shell
// metacharacters that have no business in a ref typed on a command line.
const refForbidden = " ~^:?*[\\;|&$`<>(){}'\""

// ValidateRef checks that ref is usable as a branch, tag or commit argument.
func ValidateRef(ref string) error {
	if ref == "" {
		return fmt.Errorf("empty ref")
	}
	if len(ref) > 255 {
		return fmt.Errorf("ref too long (max 255 characters)")
	}
	if strings.HasPrefix(ref, "-") {
		return fmt.Errorf("ref %q cannot start with a dash", ref)
	}
	for _, r := range ref {
		if unicode.IsControl(r) {
			return fmt.Errorf("ref %q contains a control character", ref)
		}
	}
	if i := strings.IndexAny(ref, refForbidden); i >= 0 {
		return fmt.Errorf("ref %q contains forbidden character %q", ref, ref[i])
	}
	switch {
	case strings.Contains(ref, ".."):
		return fmt.Errorf("ref %q contains \"..\"", ref)
	case strings.Contains(ref, "@{"):
		return fmt.Errorf("ref %q contains \"@{\"", ref)
	case strings.Contains(ref, "//"):
		return fmt.Errorf("ref %q contains \"//\"", ref)
	case strings.HasSuffix(ref, "/"), strings.HasSuffix(ref, "."), strings.HasSuffix(ref, ".lock"):
		return fmt.Errorf("ref %q has an invalid suffix", ref)
	}
	return nil
}

// ValidateLocator checks that locator is a plausible repository URL or path.
func ValidateLocator(locator string) error {
	if strings.TrimSpace(locator) == "" {
		return fmt.Errorf("empty repository locator")
	}
	if len(locator) > 2048 {
		return fmt.Errorf("repository locator too long")
	}
	if strings.HasPrefix(locator, "-") {
		return fmt.Errorf("repository locator %q cannot start with a dash", locator)
	}
	for _, r := range locator {
		if unicode.IsControl(r) {
			return fmt.Errorf("repository locator contains a control character")
		}
	}
	lower := strings.ToLower(locator)
	if strings.HasPrefix(lower, "ext::") || strings.HasPrefix(lower, "fd::") {
		return fmt.Errorf("repository transport %q not allowed", locator[:strings.Index(locator, "::")])
	}
	return nil
}

// checkArgs validates the subcommand and every option preceding "--".
// Positional values are validated by the callers that build them.
func checkArgs(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("no git command specified")
	}
	if !allowedGitCommands[args[0]] {
		return fmt.Errorf("git subcommand not allowed: %q", args[0])
	}
	for _, arg := range args[1:] {
		if arg == "--" {
			return nil
		}
		if strings.HasPrefix(arg, "-") && !allowedGitOptions[arg] {
			return fmt.Errorf("git option not allowed: %s", arg)
		}
	}
	return nil
}
