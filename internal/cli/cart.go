package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var cartCmd = &cobra.Command{
	Use:   "cart",
	Short: "Manage the restock cart",
	Long: `The restock cart holds products queued for reordering. Each item carries a
suggested quantity that brings the product a few units above its threshold.
Receiving an item adds that quantity to stock.`,
}

var cartListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the cart",
	RunE:  runCartList,
}

var cartAddCmd = &cobra.Command{
	Use:   "add <product-id>",
	Short: "Queue a product for restocking",
	Args:  cobra.ExactArgs(1),
	RunE:  runCartAdd,
}

var cartReceiveCmd = &cobra.Command{
	Use:   "receive <item-id>",
	Short: "Mark a cart item as delivered",
	Args:  cobra.ExactArgs(1),
	RunE:  runCartReceive,
}

var cartClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Empty the cart",
	RunE:  runCartClear,
}

func init() {
	rootCmd.AddCommand(cartCmd)
	cartCmd.AddCommand(cartListCmd, cartAddCmd, cartReceiveCmd, cartClearCmd)
}

func runCartList(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	items, err := a.Inventory.Cart(cmd.Context(), actorName(a))
	if err != nil {
		return fmt.Errorf("load cart: %w", err)
	}

	if len(items) == 0 {
		fmt.Println("Cart is empty.")
		return nil
	}

	total := decimal.Zero
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tPRODUCT\tSUPPLIER\tSTOCK\tORDER\tTOTAL\n")
	for _, item := range items {
		total = total.Add(item.Total())
		fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\t%d %s\t$%s\n",
			item.ID, item.ProductName, item.Supplier,
			item.CurrentStock, item.RestockThreshold,
			item.NeededQuantity, item.Unit,
			item.Total().StringFixed(2),
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\nOrder total: $%s\n", total.StringFixed(2))
	return nil
}

func runCartAdd(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	item, err := a.Inventory.AddToCart(cmd.Context(), actorName(a), args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Added %s to cart: order %d %s (item %s)\n",
		item.ProductName, item.NeededQuantity, item.Unit, item.ID)
	return nil
}

func runCartReceive(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := a.Inventory.Receive(cmd.Context(), actorName(a), args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Received %s: now %d %s (%s)\n", p.Name, p.Quantity, p.Unit, p.Status())
	return nil
}

func runCartClear(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	n, err := a.Inventory.ClearCart(cmd.Context(), actorName(a))
	if err != nil {
		return err
	}
	fmt.Printf("Removed %d item(s) from cart\n", n)
	return nil
}
