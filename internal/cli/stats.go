package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show inventory totals",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	stats, err := a.Inventory.Stats(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("=== Inventory Summary ===\n")
	fmt.Printf("Total Products:   %d\n", stats.TotalProducts)
	fmt.Printf("Low Stock Items:  %d\n", stats.LowStockItems)
	fmt.Printf("Out of Stock:     %d\n", stats.OutOfStock)
	fmt.Printf("Suppliers:        %d\n", stats.SuppliersCount)
	fmt.Printf("Inventory Value:  $%s\n", stats.TotalValue.StringFixed(2))
	return nil
}
