package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ogulcanaydogan/restock-guardian/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the inventory API and low-stock alerting",
	Long: `Start the HTTP API and the snapshot watcher. Every inventory change made
through the API is evaluated for low stock immediately; changes made by other
processes are picked up on the watch interval.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("listen", "l", "", "Listen address (overrides config)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		cfg.Server.Listen = listen
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := app.NewLogger(cfg)
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Printf("Restock Guardian listening on %s\n", cfg.Server.Listen)
	fmt.Printf("  Storage:    %s\n", cfg.Storage.Driver)
	fmt.Printf("  Transport:  %s\n", a.Dispatcher.Transport().Name())
	fmt.Printf("  Recipients: %d\n", len(a.Dispatcher.Recipients()))
	fmt.Printf("  Cooldown:   %s\n", a.Coordinator.Cooldown())

	return a.Serve(ctx)
}
