package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/ogulcanaydogan/restock-guardian/internal/app"
	"github.com/ogulcanaydogan/restock-guardian/internal/config"
)

// Version is set at build time via ldflags.
var Version = "dev"

var (
	cfgFile string
	actor   string
)

var rootCmd = &cobra.Command{
	Use:   "rsg",
	Short: "Restock Guardian - inventory tracking with low-stock alerts",
	Long: `Restock Guardian tracks product stock levels, suppliers and restock carts.
Whenever a product falls to or below its restock threshold it sends one alert
per low-stock period to the configured recipients over SMS, webhook or Slack.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.rsg/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&actor, "actor", "", "name recorded in the activity log (default from config)")
}

// loadConfig loads the configuration.
func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

// openApp loads config and wires a passive application: one-shot commands
// never send automatic alerts.
func openApp(ctx context.Context) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, app.NewLogger(cfg), app.Passive())
}

// actorName returns the --actor flag or the configured default.
func actorName(a *app.App) string {
	if actor != "" {
		return actor
	}
	return a.Config.Defaults.Actor
}
