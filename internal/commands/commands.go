// Package commands is the meno command tree.
package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"meno/internal/config"
	appLog "meno/internal/log"
	"meno/internal/planner"
	"meno/internal/storage"
)

const defaultConfigPath = "~/.meno/config.yaml"

// storeQuota caps the persisted planner data, the way a browser caps a
// site's local storage.
const storeQuota = 5 << 20

type rootOptions struct {
	ConfigPath string
	Debug      bool
}

func New() *cobra.Command {
	o := &rootOptions{}
	cmd := &cobra.Command{
		Use:          "meno",
		Short:        "A personal planner for events, meals and shopping.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.PersistentFlags().StringVarP(&o.ConfigPath, "config", "c", defaultConfigPath, "Path to the YAML config file.")
	cmd.PersistentFlags().BoolVar(&o.Debug, "debug", false, "Enable debug logging.")

	AddCommands(cmd, o)
	return cmd
}

func AddCommands(topLevel *cobra.Command, o *rootOptions) {
	addServe(topLevel, o)
	addMigrate(topLevel, o)
	addItems(topLevel, o)
	addSync(topLevel, o)
	addClear(topLevel, o)
	addVersion(topLevel)
}

// app is the opened config, storage and planner a command works on.
type app struct {
	cfg     *config.Config
	store   storage.Storage
	planner *planner.Planner
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", o.ConfigPath, err)
	}
	level := appLog.ParseLevel(cfg.LogLevel)
	if o.Debug {
		level = appLog.LevelDebug
	}
	appLog.SetLevel(level)
	return cfg, nil
}

func (o *rootOptions) open() (*app, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	path, err := cfg.StoragePath()
	if err != nil {
		return nil, err
	}
	st, err := storage.Open(cfg.Storage.Driver, path)
	if err != nil {
		return nil, fmt.Errorf("open %s storage at %s: %w", cfg.Storage.Driver, path, err)
	}
	appLog.Debug("storage opened", "driver", cfg.Storage.Driver, "path", path)

	p := planner.New(planner.NewStore(storage.WithQuota(st, storeQuota)),
		planner.WithLocation(resolveLocationOrLocal(cfg.Timezone)))
	return &app{cfg: cfg, store: st, planner: p}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

func resolveLocationOrLocal(name string) *time.Location {
	if name == "" || name == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", name)
		return time.Local
	}
	return loc
}
