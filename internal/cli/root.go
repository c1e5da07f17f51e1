// ABOUTME: Command tree for the gitstaller CLI built on cobra
// ABOUTME: Global flags, help-by-default, and exit-code mapping for every subcommand

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mauromedda/gitstaller/internal/build"
	"github.com/mauromedda/gitstaller/internal/config"
	"github.com/mauromedda/gitstaller/internal/git"
	"github.com/mauromedda/gitstaller/internal/log"
	"github.com/mauromedda/gitstaller/internal/pkgmanager"
)

// BuildInfo identifies the running binary.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

type rootOptions struct {
	info    BuildInfo
	verbose bool
	home    string

	stdout io.Writer
	stderr io.Writer

	newGit     func(*config.Settings) git.Client
	newBuilder func(*config.Settings) pkgmanager.Builder
}

// reportedError is a failure whose message has already been printed.
type reportedError struct{ err error }

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

func defaultOptions(info BuildInfo) *rootOptions {
	o := &rootOptions{info: info, stdout: os.Stdout, stderr: os.Stderr}
	o.newGit = func(s *config.Settings) git.Client {
		return git.New(s.Git.Binary, s.Git.Timeout)
	}
	o.newBuilder = func(s *config.Settings) pkgmanager.Builder {
		return build.New(build.Options{
			Sudo:   s.Build.Sudo,
			Make:   s.Build.Make,
			Python: s.Build.Python,
			Runner: &build.ExecRunner{Stdout: o.stdout, Stderr: o.stderr},
		})
	}
	return o
}

// Execute runs the command line args and returns the process exit code.
func Execute(ctx context.Context, info BuildInfo, args []string) int {
	return run(ctx, defaultOptions(info), args)
}

func run(ctx context.Context, o *rootOptions, args []string) int {
	cmd := newRootCommand(o)
	if args == nil {
		args = []string{}
	}
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var reported *reportedError
	if !errors.As(err, &reported) {
		NewPrinter(o.stderr, config.ColorAuto).Fail("%v", err)
	}
	return 1
}

func newRootCommand(o *rootOptions) *cobra.Command {
	root := &cobra.Command{
		Use:   "gitstaller",
		Short: "Install and update tools straight from their git repositories",
		Long: `gitstaller clones tools from git, checks out the branch, release tag or
pinned ref you choose, and builds them with make or pip.

State lives in ~/.gitstaller (override with --home or GITSTALLER_HOME):
installed.json records every package and packages/ holds one checkout each.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if o.verbose {
				log.SetLevel(log.LevelDebug)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.SetOut(o.stdout)
	root.SetErr(o.stderr)

	flags := root.PersistentFlags()
	flags.BoolVarP(&o.verbose, "verbose", "v", false, "Log git and build commands to stderr")
	flags.StringVar(&o.home, "home", "", "State directory (default $GITSTALLER_HOME or ~/.gitstaller)")

	root.AddCommand(
		newInstallCmd(o),
		newUpdateCmd(o),
		newReinstallCmd(o),
		newRemoveCmd(o),
		newListCmd(o),
		newDoctorCmd(o),
		newConfigCmd(o),
		newVersionCmd(o),
	)
	return root
}

func newVersionCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "gitstaller %s (%s) built %s\n", o.info.Version, o.info.Commit, o.info.Date)
		},
	}
}

func newConfigCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration and state paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			base, settings, err := o.loadSettings()
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), config.Explain(base, settings))
			return nil
		},
	}
}
