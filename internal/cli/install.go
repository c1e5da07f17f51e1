// ABOUTME: install and reinstall commands
// ABOUTME: Translates --source/--version/--branch into a ref policy before touching any state

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mauromedda/gitstaller/internal/pkgmanager"
	"github.com/mauromedda/gitstaller/internal/resolver"
)

func newInstallCmd(o *rootOptions) *cobra.Command {
	var (
		manual  bool
		source  string
		version string
		branch  string
	)
	cmd := &cobra.Command{
		Use:   "install <locator>",
		Short: "Clone a repository, check out the chosen ref and build it",
		Long: `Clone a repository into the packages directory and build it.

--source selects the ref to check out:
  main            track a branch (--branch, default from config)
  latest-release  the highest version tag, falling back to the default branch
  version         the ref given with --version (tag, branch or commit id)`,
		Example: `  gitstaller install https://github.com/user/tool.git
  gitstaller install --source latest-release git@github.com:user/tool.git
  gitstaller install --source version --version v1.4.2 -m ./vendor/tool`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, settings, err := o.loadSettings()
			if err != nil {
				return err
			}
			policy, err := installPolicy(source, version, branch, settings.DefaultBranch)
			if err != nil {
				return err
			}

			s, err := o.open(cmd.Context(), base, settings)
			if err != nil {
				return err
			}
			defer s.close()

			res, err := s.manager.Install(cmd.Context(), args[0], policy, manual, false)
			if err != nil {
				return err
			}
			return s.reportInstall("Installed", res)
		},
	}

	flags := cmd.Flags()
	flags.BoolVarP(&manual, "manual", "m", false, "Check out only; never build or install")
	flags.StringVar(&source, "source", resolver.SourceMain, "Ref policy: main, latest-release or version")
	flags.StringVar(&version, "version", "", "Ref to pin (requires --source version)")
	flags.StringVar(&branch, "branch", "", "Branch to track with --source main")
	return cmd
}

func newReinstallCmd(o *rootOptions) *cobra.Command {
	var manual bool
	cmd := &cobra.Command{
		Use:   "reinstall <name>",
		Short: "Replace a package with a fresh checkout of its recorded source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := o.openDefault(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()

			res, err := s.manager.Reinstall(cmd.Context(), args[0], manual)
			if err != nil {
				return err
			}
			return s.reportInstall("Reinstalled", res)
		},
	}
	cmd.Flags().BoolVarP(&manual, "manual", "m", false, "Check out only and remember to never build")
	return cmd
}

// installPolicy validates the install flags and builds the policy they name.
func installPolicy(source, version, branch, defaultBranch string) (resolver.Policy, error) {
	source = strings.ToLower(strings.TrimSpace(source))
	if source == "" {
		source = resolver.SourceMain
	}
	if version != "" && source != resolver.SourceVersion {
		return resolver.Policy{}, fmt.Errorf("%w: --version requires --source %s", pkgmanager.ErrInvalidArguments, resolver.SourceVersion)
	}
	if branch != "" && source != resolver.SourceMain {
		return resolver.Policy{}, fmt.Errorf("%w: --branch only applies to --source %s", pkgmanager.ErrInvalidArguments, resolver.SourceMain)
	}

	ref := version
	if source == resolver.SourceMain {
		ref = branch
		if ref == "" {
			ref = defaultBranch
		}
	}
	p, err := resolver.ParsePolicy(source, ref)
	if err != nil {
		return resolver.Policy{}, fmt.Errorf("%w: %v", pkgmanager.ErrInvalidArguments, err)
	}
	return p, nil
}

// reportInstall prints the outcome. A failed build is a warning: the
// checkout and its record are kept.
func (s *session) reportInstall(verb string, res *pkgmanager.InstallResult) error {
	if res.BuildErr != nil {
		s.printer.Warn("%s is checked out in %s but was not built; fix the build and run reinstall", res.Name, res.Workspace)
		return nil
	}
	s.printer.Success("%s %s (%s)", verb, res.Name, res.Policy)
	return nil
}
