package cli

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/ogulcanaydogan/restock-guardian/pkg/model"
)

var productCmd = &cobra.Command{
	Use:     "product",
	Aliases: []string{"products"},
	Short:   "Manage products",
}

var productListCmd = &cobra.Command{
	Use:   "list",
	Short: "List products with their stock status",
	RunE:  runProductList,
}

var productAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a product",
	RunE:  runProductAdd,
}

var productSetQtyCmd = &cobra.Command{
	Use:   "set-qty <id> <quantity>",
	Short: "Set the stock level of a product",
	Args:  cobra.ExactArgs(2),
	RunE:  runProductSetQty,
}

var productDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a product",
	Args:  cobra.ExactArgs(1),
	RunE:  runProductDelete,
}

var statusFilters = map[string]model.StockStatus{
	"in":  model.StatusInStock,
	"low": model.StatusLowStock,
	"out": model.StatusOutOfStock,
}

func init() {
	rootCmd.AddCommand(productCmd)
	productCmd.AddCommand(productListCmd, productAddCmd, productSetQtyCmd, productDeleteCmd)

	productListCmd.Flags().StringP("search", "s", "", "Case-insensitive name or supplier search")
	productListCmd.Flags().String("supplier", "", "Filter by supplier")
	productListCmd.Flags().String("status", "", "Filter by status (in, low, out)")

	productAddCmd.Flags().StringP("name", "n", "", "Product name")
	productAddCmd.Flags().String("supplier", "", "Supplier name")
	productAddCmd.Flags().IntP("quantity", "q", 0, "Quantity in stock")
	productAddCmd.Flags().IntP("threshold", "t", 0, "Restock threshold")
	productAddCmd.Flags().String("price", "0", "Unit price")
	productAddCmd.Flags().String("unit", "units", "Unit of measure")
	_ = productAddCmd.MarkFlagRequired("name")
	_ = productAddCmd.MarkFlagRequired("supplier")
}

func runProductList(cmd *cobra.Command, _ []string) error {
	search, _ := cmd.Flags().GetString("search")
	supplier, _ := cmd.Flags().GetString("supplier")
	status, _ := cmd.Flags().GetString("status")

	filter := model.ProductFilter{Search: search, Supplier: supplier}
	if status != "" {
		s, ok := statusFilters[status]
		if !ok {
			return fmt.Errorf("invalid status %q (use in, low or out)", status)
		}
		filter.Status = s
	}

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	products, err := a.Inventory.ListProducts(cmd.Context(), filter)
	if err != nil {
		return fmt.Errorf("list products: %w", err)
	}

	if len(products) == 0 {
		fmt.Println("No products found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tNAME\tSUPPLIER\tQTY\tTHRESHOLD\tPRICE\tSTATUS\n")
	for _, p := range products {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d %s\t%d\t$%s\t%s\n",
			p.ID, p.Name, p.Supplier,
			p.Quantity, p.Unit, p.RestockThreshold,
			p.Price.StringFixed(2), p.Status(),
		)
	}
	return w.Flush()
}

func runProductAdd(cmd *cobra.Command, _ []string) error {
	name, _ := cmd.Flags().GetString("name")
	supplier, _ := cmd.Flags().GetString("supplier")
	quantity, _ := cmd.Flags().GetInt("quantity")
	threshold, _ := cmd.Flags().GetInt("threshold")
	priceStr, _ := cmd.Flags().GetString("price")
	unit, _ := cmd.Flags().GetString("unit")

	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return fmt.Errorf("invalid price %q: %w", priceStr, err)
	}

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	p := &model.Product{
		Name:             name,
		Supplier:         supplier,
		Quantity:         quantity,
		RestockThreshold: threshold,
		Price:            price,
		Unit:             unit,
	}
	if err := a.Inventory.CreateProduct(cmd.Context(), actorName(a), p); err != nil {
		return err
	}

	fmt.Printf("Added product:\n")
	fmt.Printf("  ID:        %s\n", p.ID)
	fmt.Printf("  Name:      %s\n", p.Name)
	fmt.Printf("  Supplier:  %s\n", p.Supplier)
	fmt.Printf("  Quantity:  %d %s\n", p.Quantity, p.Unit)
	fmt.Printf("  Threshold: %d\n", p.RestockThreshold)
	fmt.Printf("  Status:    %s\n", p.Status())
	return nil
}

func runProductSetQty(cmd *cobra.Command, args []string) error {
	quantity, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid quantity %q", args[1])
	}

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := a.Inventory.SetQuantity(cmd.Context(), actorName(a), args[0], quantity)
	if err != nil {
		return err
	}

	fmt.Printf("%s: %d %s (%s)\n", p.Name, p.Quantity, p.Unit, p.Status())
	return nil
}

func runProductDelete(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Inventory.DeleteProduct(cmd.Context(), actorName(a), args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted product %s\n", args[0])
	return nil
}
