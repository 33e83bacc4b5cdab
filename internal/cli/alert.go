package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ogulcanaydogan/restock-guardian/pkg/alerts"
	"github.com/ogulcanaydogan/restock-guardian/pkg/model"
)

var alertCmd = &cobra.Command{
	Use:   "alert",
	Short: "Inspect and send low-stock alerts",
}

var alertLowCmd = &cobra.Command{
	Use:   "low",
	Short: "List products at or below their restock threshold",
	RunE:  runAlertLow,
}

var alertCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Evaluate the current stock and alert on low items",
	Long: `Evaluate the current product list the same way the server does after every
change. This process has no memory of earlier alerts, so every low item counts
as newly low.`,
	RunE: runAlertCheck,
}

var alertSendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send an alert for every low-stock product now",
	RunE:  runAlertSend,
}

func init() {
	rootCmd.AddCommand(alertCmd)
	alertCmd.AddCommand(alertLowCmd, alertCheckCmd, alertSendCmd)
}

func runAlertLow(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	low, err := a.Inventory.LowStock(cmd.Context())
	if err != nil {
		return err
	}
	if len(low) == 0 {
		fmt.Println("All products are above their restock thresholds.")
		return nil
	}
	printProducts(low)
	return nil
}

func runAlertCheck(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	products, err := a.Inventory.ListProducts(cmd.Context(), model.ProductFilter{})
	if err != nil {
		return fmt.Errorf("list products: %w", err)
	}

	res := a.Coordinator.OnSnapshot(cmd.Context(), products)
	fmt.Printf("Outcome: %s\n", res.Outcome)
	if len(res.Items) > 0 {
		fmt.Printf("Items:   %d\n", len(res.Items))
	}
	if res.Dispatch != nil {
		printDispatch(res.Dispatch)
	}
	if res.Outcome == alerts.OutcomeFailed {
		return fmt.Errorf("alert failed: %w", res.Err)
	}
	return nil
}

func runAlertSend(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	outcome, err := a.Inventory.SendAlert(cmd.Context(), actorName(a))
	if err != nil {
		return err
	}
	printDispatch(outcome)
	return nil
}

func printDispatch(o *alerts.DispatchOutcome) {
	fmt.Printf("Alert dispatched: %s\n", o.Summary())
	if len(o.Results) == 0 {
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "  RECIPIENT\tSTATUS\tDETAIL\n")
	for _, r := range o.Results {
		detail := r.DeliveryID
		if r.Status == alerts.StatusSkipped {
			detail = r.Reason
		}
		fmt.Fprintf(w, "  %s\t%s\t%s\n", r.To, r.Status, detail)
	}
	w.Flush()
}

func printProducts(products []model.Product) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tNAME\tSUPPLIER\tQTY\tTHRESHOLD\tSTATUS\n")
	for _, p := range products {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d %s\t%d\t%s\n",
			p.ID, p.Name, p.Supplier, p.Quantity, p.Unit, p.RestockThreshold, p.Status())
	}
	w.Flush()
}
