package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func addMigrate(topLevel *cobra.Command, o *rootOptions) {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Fold the legacy meal and shopping stores into the planner, once.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := o.open()
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.planner.Migrate()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if res.Skipped {
				_, _ = fmt.Fprintln(out, color.New(color.Faint).Sprint("already migrated; nothing to do"))
				return nil
			}
			_, _ = fmt.Fprintf(out, "migrated %d meals and %d shopping items\n", res.Meals, res.Plans)
			return nil
		},
	}
	topLevel.AddCommand(cmd)
}
