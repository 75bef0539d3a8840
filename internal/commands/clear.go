package commands

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"meno/internal/devtools"
)

func addClear(topLevel *cobra.Command, o *rootOptions) {
	opts := devtools.ClearOptions{}
	cmd := &cobra.Command{
		Use:   "clear [url]",
		Short: "Clear the planner store of a running dev server through a headless browser.",
		Example: `
meno clear
meno clear http://127.0.0.1:3000 --all
`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.loadConfig()
			if err != nil {
				return err
			}
			opts.URL = "http://" + cfg.Listen
			if len(args) == 1 {
				opts.URL = args[0]
			}
			if cfg.BasicAuth != nil {
				opts.Username = cfg.BasicAuth.Username
				opts.Password = cfg.BasicAuth.Password
			}

			res, err := devtools.ClearStore(cmd.Context(), opts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if res.Existed {
				_, _ = fmt.Fprintln(out, color.New(color.FgGreen).Sprintf("Removed %s planner data", res.Scope))
			} else {
				_, _ = fmt.Fprintln(out, color.New(color.Faint).Sprintf("No %s planner data was present", res.Scope))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.All, "all", false, "Also remove legacy stores and the migration flag.")
	cmd.Flags().StringVar(&opts.ScreenshotPath, "screenshot", "", "Write a PNG of the cleared dashboard here.")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 30*time.Second, "Give up after this long.")
	topLevel.AddCommand(cmd)
}
