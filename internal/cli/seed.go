package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ogulcanaydogan/restock-guardian/pkg/catalog"
	"github.com/ogulcanaydogan/restock-guardian/pkg/model"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load a starter catalog of suppliers and products",
	Long: `Load suppliers and products from a YAML catalog file, or the built-in
catalog when no file is given. Seeding is skipped when products already exist
unless --force is set.`,
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().StringP("file", "f", "", "Catalog YAML file (default: built-in catalog)")
	seedCmd.Flags().Bool("force", false, "Seed even if products already exist")
}

func runSeed(cmd *cobra.Command, _ []string) error {
	file, _ := cmd.Flags().GetString("file")
	force, _ := cmd.Flags().GetBool("force")

	cat := catalog.Default()
	if file != "" {
		var err error
		if cat, err = catalog.Load(file); err != nil {
			return err
		}
	}

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	existing, err := a.Inventory.ListProducts(cmd.Context(), model.ProductFilter{})
	if err != nil {
		return fmt.Errorf("list products: %w", err)
	}
	if len(existing) > 0 && !force {
		fmt.Printf("Store already has %d products, skipping seed (use --force to seed anyway).\n", len(existing))
		return nil
	}

	res, err := cat.Seed(cmd.Context(), a.Inventory, actorName(a))
	if err != nil {
		return err
	}
	fmt.Printf("Seeded %s: %d suppliers, %d products\n", cat.Store, res.Suppliers, res.Products)
	return nil
}
