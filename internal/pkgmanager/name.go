// ABOUTME: Package name derivation from a repository locator
// ABOUTME: Last path segment, ".git" suffix stripped, percent-decoded, NFC-normalized

package pkgmanager

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// maxNameLen is the common NAME_MAX of local filesystems.
const maxNameLen = 255

// DeriveName returns the package name for locator. It accepts URLs,
// scp-like "host:path" locators and filesystem paths.
func DeriveName(locator string) (string, error) {
	s := strings.TrimSpace(locator)
	if s == "" {
		return "", fmt.Errorf("%w: empty repository locator", ErrInvalidArguments)
	}

	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimRight(s, `/\`)

	segment := s
	if i := strings.LastIndexAny(s, `/\:`); i >= 0 {
		segment = s[i+1:]
	}
	segment = strings.TrimSuffix(segment, ".git")

	decoded, err := url.PathUnescape(segment)
	if err != nil {
		return "", fmt.Errorf("%w: cannot decode name in %q: %v", ErrInvalidArguments, locator, err)
	}
	name := norm.NFC.String(decoded)

	if err := ValidateName(name); err != nil {
		return "", fmt.Errorf("%w: cannot derive a package name from %q: %v", ErrInvalidArguments, locator, err)
	}
	return name, nil
}

// AbsLocator returns locator with a filesystem path made absolute, so the
// record matches the origin git writes and works from any directory. URLs
// and scp-like locators are returned trimmed but otherwise unchanged.
func AbsLocator(locator string) (string, error) {
	s := strings.TrimSpace(locator)
	if s == "" || isRemoteLocator(s) {
		return s, nil
	}
	abs, err := filepath.Abs(s)
	if err != nil {
		return "", fmt.Errorf("%w: resolving %q: %v", ErrInvalidArguments, locator, err)
	}
	return abs, nil
}

// isRemoteLocator reports whether s is a URL or an scp-like "host:path".
// A drive letter such as "C:" is a path.
func isRemoteLocator(s string) bool {
	if strings.Contains(s, "://") {
		return true
	}
	i := strings.Index(s, ":")
	if i <= 0 || strings.ContainsAny(s[:i], `/\`) {
		return false
	}
	return !(i == 1 && isASCIILetter(s[0]))
}

func isASCIILetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

// ValidateName checks that name is usable as a workspace directory name.
// Anything a filesystem accepts as a single path element is allowed, except
// a leading dot, which is reserved for staging and trash directories.
func ValidateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("name is empty")
	case len(name) > maxNameLen:
		return fmt.Errorf("name longer than %d bytes", maxNameLen)
	case strings.HasPrefix(name, "."):
		return fmt.Errorf("name %q starts with a dot", name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("name %q contains a path separator", name)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return fmt.Errorf("name %q contains a control character", name)
		}
	}
	return nil
}
