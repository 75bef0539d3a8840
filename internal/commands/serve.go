package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"meno/internal/calsync"
	"meno/internal/holidays"
	appLog "meno/internal/log"
	"meno/internal/notify"
	"meno/internal/storage"
	"meno/internal/web"
)

func addServe(topLevel *cobra.Command, o *rootOptions) {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the planner web server.",
		Example: `
meno serve
meno serve --listen 0.0.0.0:3000
`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := o.open()
			if err != nil {
				return err
			}
			defer a.Close()
			if listen != "" {
				a.cfg.Listen = listen
			}

			appLog.Info("effective config",
				"listen", a.cfg.Listen,
				"timezone", a.cfg.Timezone,
				"storage", a.cfg.Storage.Driver,
				"ics_count", len(a.cfg.ICS),
				"refresh", a.cfg.RefreshCron,
				"dev", a.cfg.Dev,
			)

			if _, err := a.planner.Migrate(); err != nil {
				appLog.Error("legacy migration failed", err)
			}

			proxy, err := holidays.FromConfig(a.cfg, nil)
			if err != nil {
				return err
			}
			if r, err := holidays.StartRefresher(a.cfg.RefreshCron, proxy); err != nil {
				appLog.Error("holiday refresh disabled", err, "refresh", a.cfg.RefreshCron)
			} else {
				defer r.Stop()
			}

			notices := notify.NewCenter()
			srv, err := web.NewServer(web.Deps{
				Config:  a.cfg,
				Planner: a.planner,
				Proxy:   proxy,
				// The sync flag lives for one server process.
				Sync:    calsync.New(a.planner, calsync.Direct{Proxy: proxy}, storage.NewMemory(), notices),
				Notices: notices,
			})
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)
			go func() {
				select {
				case sig := <-sigCh:
					appLog.Info("signal received, shutting down", "signal", sig.String())
					cancel()
				case <-ctx.Done():
				}
			}()

			err = srv.Run(ctx)
			appLog.Info("meno exiting")
			return err
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config).")
	topLevel.AddCommand(cmd)
}
