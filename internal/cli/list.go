// ABOUTME: list command: installed packages as a table, JSON or YAML
// ABOUTME: Table columns are padded by display width so non-ASCII names line up

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mauromedda/gitstaller/internal/pkgmanager"
)

const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

type listEntry struct {
	Name        string     `json:"name" yaml:"name"`
	Locator     string     `json:"url" yaml:"url"`
	Source      string     `json:"source" yaml:"source"`
	Ref         string     `json:"ref,omitempty" yaml:"ref,omitempty"`
	Manual      bool       `json:"manual" yaml:"manual"`
	Present     bool       `json:"present" yaml:"present"`
	Commit      string     `json:"commit,omitempty" yaml:"commit,omitempty"`
	InstalledAt *time.Time `json:"installed_at,omitempty" yaml:"installed_at,omitempty"`
}

func newListCmd(o *rootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List installed packages",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch output {
			case outputTable, outputJSON, outputYAML:
			default:
				return fmt.Errorf("%w: --output must be %s, %s or %s", pkgmanager.ErrInvalidArguments, outputTable, outputJSON, outputYAML)
			}

			s, err := o.openDefault(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()

			pkgs, err := s.manager.List(cmd.Context())
			if err != nil {
				return err
			}
			entries := toEntries(pkgs)

			w := cmd.OutOrStdout()
			switch output {
			case outputJSON:
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			case outputYAML:
				enc := yaml.NewEncoder(w)
				enc.SetIndent(2)
				if err := enc.Encode(entries); err != nil {
					return err
				}
				return enc.Close()
			default:
				if len(entries) == 0 {
					fmt.Fprintln(w, "No packages installed.")
					return nil
				}
				writeTable(w, s.printer, entries)
				return nil
			}
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "Output format: table, json or yaml")
	return cmd
}

func toEntries(pkgs []pkgmanager.PackageStatus) []listEntry {
	entries := make([]listEntry, 0, len(pkgs))
	for _, p := range pkgs {
		e := listEntry{
			Name:    p.Name,
			Locator: p.Locator,
			Source:  p.Policy.Kind.String(),
			Ref:     p.Policy.Ref,
			Manual:  p.Manual,
			Present: p.Present,
			Commit:  p.Commit,
		}
		if !p.InstalledAt.IsZero() {
			t := p.InstalledAt
			e.InstalledAt = &t
		}
		entries = append(entries, e)
	}
	return entries
}

func writeTable(w io.Writer, p *Printer, entries []listEntry) {
	header := []string{"NAME", "SOURCE", "COMMIT", "BUILD", "STATUS", "URL"}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		source := e.Source
		if e.Ref != "" {
			source += " " + e.Ref
		}
		commit := "-"
		if e.Commit != "" {
			commit = shortCommit(e.Commit)
		}
		buildMode := "auto"
		if e.Manual {
			buildMode = "manual"
		}
		status := "ok"
		if !e.Present {
			status = "missing"
		}
		rows = append(rows, []string{e.Name, source, commit, buildMode, status, e.Locator})
	}

	widths := make([]int, len(header))
	for _, row := range append([][]string{header}, rows...) {
		for i, cell := range row {
			widths[i] = max(widths[i], displayWidth(cell))
		}
	}

	render := func(row []string) string {
		cells := make([]string, len(row))
		for i, cell := range row {
			if i == len(row)-1 {
				cells[i] = cell
				continue
			}
			cells[i] = padRight(cell, widths[i])
		}
		return strings.Join(cells, "  ")
	}

	fmt.Fprintln(w, p.header.Render(render(header)))
	for i, row := range rows {
		line := render(row)
		if !entries[i].Present {
			line = p.muted.Render(line)
		}
		fmt.Fprintln(w, line)
	}
}

func shortCommit(commit string) string {
	if len(commit) > 12 {
		return commit[:12]
	}
	return commit
}
