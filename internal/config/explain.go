// ABOUTME: Human-readable rendering of effective configuration
// ABOUTME: Used by the "config" CLI subcommand to show resolved settings and paths

package config

import (
	"fmt"
	"strings"
)

// Explain renders the effective settings for the state directory base,
// grouped by section.
func Explain(base string, s *Settings) string {
	if s == nil {
		s = &Settings{}
	}

	var b strings.Builder

	b.WriteString("=== Paths ===\n")
	fmt.Fprintf(&b, "  Home:          %s\n", base)
	fmt.Fprintf(&b, "  Store:         %s\n", MetadataFile(base))
	fmt.Fprintf(&b, "  Packages:      %s\n", PackagesDir(base))
	if s.Source != "" {
		fmt.Fprintf(&b, "  Config:        %s\n", s.Source)
	} else {
		fmt.Fprintf(&b, "  Config:        %s (not present, using defaults)\n", ConfigFile(base))
	}
	b.WriteString("\n")

	b.WriteString("=== Git ===\n")
	fmt.Fprintf(&b, "  Binary:        %s\n", s.Git.Binary)
	fmt.Fprintf(&b, "  Timeout:       %s\n", s.Git.Timeout)
	fmt.Fprintf(&b, "  DefaultBranch: %s\n", s.DefaultBranch)
	b.WriteString("\n")

	b.WriteString("=== Build ===\n")
	fmt.Fprintf(&b, "  Sudo:          %t\n", s.Build.Sudo)
	fmt.Fprintf(&b, "  Make:          %s\n", s.Build.Make)
	fmt.Fprintf(&b, "  Python:        %s\n", s.Build.Python)
	b.WriteString("\n")

	b.WriteString("=== Output ===\n")
	fmt.Fprintf(&b, "  Color:         %s\n", s.Output.Color)
	if s.Metrics.Textfile != "" {
		fmt.Fprintf(&b, "  Metrics:       %s\n", s.Metrics.Textfile)
	}
	fmt.Fprintf(&b, "  Doctor jobs:   %d\n", s.Doctor.Concurrency)

	return b.String()
}
