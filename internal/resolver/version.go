// ABOUTME: Loose version ordering for release tags (v1.10.0 > v1.9.0, 1.0-rc1 < 1.0)
// ABOUTME: Strict total order: component comparison with a byte-wise string tie-break

package resolver

import (
	"strings"
)

type componentKind int

// Order of kinds matters: a trailing alpha component (pre-release) sorts
// below the end of a version, a trailing numeric component above it.
const (
	kindAlpha componentKind = iota
	kindEnd
	kindNumeric
)

type component struct {
	kind  componentKind
	value string // digits without leading zeros, or lower-cased letters
}

// CompareVersions compares two tag strings under the loose ordering and
// returns -1, 0 or +1. It returns 0 only for identical strings.
//
// Tags are split into digit runs and letter runs; anything else separates
// components. A leading "v" before a digit is ignored. Digit runs compare by
// numeric value and rank above letter runs at the same position. When one tag
// is a prefix of the other, the longer one is greater if its next component
// is numeric (1.0.0.1 > 1.0.0) and smaller if it is a letter run
// (1.0.0-rc1 < 1.0.0).
func CompareVersions(a, b string) int {
	ca := tokenize(a)
	cb := tokenize(b)

	for i := 0; ; i++ {
		x := componentAt(ca, i)
		y := componentAt(cb, i)
		if c := compareComponent(x, y); c != 0 {
			return c
		}
		if x.kind == kindEnd {
			break
		}
	}
	return strings.Compare(a, b)
}

// Latest returns the greatest tag under CompareVersions. ok is false when
// tags holds no non-empty entry.
func Latest(tags []string) (tag string, ok bool) {
	for _, t := range tags {
		if t == "" {
			continue
		}
		if !ok || CompareVersions(t, tag) > 0 {
			tag = t
			ok = true
		}
	}
	return tag, ok
}

func componentAt(cs []component, i int) component {
	if i < len(cs) {
		return cs[i]
	}
	return component{kind: kindEnd}
}

func compareComponent(x, y component) int {
	if x.kind != y.kind {
		if x.kind < y.kind {
			return -1
		}
		return 1
	}
	switch x.kind {
	case kindNumeric:
		if len(x.value) != len(y.value) {
			if len(x.value) < len(y.value) {
				return -1
			}
			return 1
		}
		return strings.Compare(x.value, y.value)
	case kindAlpha:
		return strings.Compare(x.value, y.value)
	default:
		return 0
	}
}

func tokenize(s string) []component {
	if len(s) > 1 && (s[0] == 'v' || s[0] == 'V') && isDigit(s[1]) {
		s = s[1:]
	}

	var out []component
	for i := 0; i < len(s); {
		switch {
		case isDigit(s[i]):
			j := i
			for j < len(s) && isDigit(s[j]) {
				j++
			}
			digits := strings.TrimLeft(s[i:j], "0")
			if digits == "" {
				digits = "0"
			}
			out = append(out, component{kind: kindNumeric, value: digits})
			i = j
		case isLetter(s[i]):
			j := i
			for j < len(s) && isLetter(s[j]) {
				j++
			}
			out = append(out, component{kind: kindAlpha, value: strings.ToLower(s[i:j])})
			i = j
		default:
			i++
		}
	}
	return out
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
