package commands

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"meno/internal/calsync"
	"meno/internal/holidays"
	"meno/internal/notify"
	"meno/internal/storage"
)

func addSync(topLevel *cobra.Command, o *rootOptions) {
	var proxyURL string
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Import holidays into the planner.",
		Long: "Import this year's holidays into the planner. By default the providers are\n" +
			"queried directly; --proxy asks a running server's /api/google-events instead.",
		Example: `
meno sync
meno sync --proxy http://127.0.0.1:3000
`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := o.open()
			if err != nil {
				return err
			}
			defer a.Close()

			var src calsync.Source
			if proxyURL != "" {
				src = &calsync.Client{
					URL:  strings.TrimSuffix(proxyURL, "/") + "/api/google-events",
					HTTP: &http.Client{Timeout: 30 * time.Second},
				}
			} else {
				proxy, err := holidays.FromConfig(a.cfg, nil)
				if err != nil {
					return err
				}
				src = calsync.Direct{Proxy: proxy}
			}

			res, err := calsync.New(a.planner, src, storage.NewMemory(), notify.NewCenter()).Sync(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if res.Added == 0 {
				_, _ = fmt.Fprintln(out, color.New(color.Faint).Sprint("no new events"))
				return nil
			}
			_, _ = fmt.Fprintln(out, color.New(color.FgGreen).Sprintf("✓ %d holidays/events added", res.Added))
			return nil
		},
	}
	cmd.Flags().StringVar(&proxyURL, "proxy", "", "Base URL of a running meno server.")
	topLevel.AddCommand(cmd)
}
