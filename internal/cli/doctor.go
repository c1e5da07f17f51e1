// ABOUTME: doctor command: reports disagreements between the store and the packages directory
// ABOUTME: Exits non-zero when anything other than informational advice is found

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDoctorCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that recorded packages and workspaces agree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := o.openDefault(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()

			issues, err := s.manager.Doctor(cmd.Context())
			if err != nil {
				return err
			}

			problems := 0
			for _, is := range issues {
				if is.Kind.Informational() {
					s.printer.Warn("%s: %s: %s", is.Package, is.Kind, is.Detail)
					continue
				}
				problems++
				s.printer.Fail("%s: %s: %s", is.Package, is.Kind, is.Detail)
			}

			if problems > 0 {
				return &reportedError{fmt.Errorf("doctor found %d problem(s)", problems)}
			}
			s.printer.Success("%d package(s) checked, no problems found", len(s.store.Names()))
			return nil
		},
	}
}
