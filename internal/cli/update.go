// ABOUTME: update and remove commands
// ABOUTME: Update follows the recorded policy; remove deletes workspace and record together

package cli

import (
	"github.com/spf13/cobra"
)

func newUpdateCmd(o *rootOptions) *cobra.Command {
	var manual bool
	cmd := &cobra.Command{
		Use:   "update <name>",
		Short: "Bring a package up to date with its recorded source and rebuild it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := o.openDefault(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()

			res, err := s.manager.Update(cmd.Context(), args[0], manual)
			if err != nil {
				return err
			}
			if res.BuildErr != nil {
				s.printer.Warn("%s was updated but not built; fix the build and run update again", res.Name)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&manual, "manual", "m", false, "Skip the build for this update")
	return cmd
}

func newRemoveCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <name>",
		Aliases: []string{"rm", "uninstall"},
		Short:   "Delete a package's workspace and record",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := o.openDefault(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()

			res, err := s.manager.Remove(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			s.printer.Success("Removed %s", res.Name)
			return nil
		},
	}
}
