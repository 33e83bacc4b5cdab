package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ogulcanaydogan/restock-guardian/pkg/model"
)

var supplierCmd = &cobra.Command{
	Use:     "supplier",
	Aliases: []string{"suppliers"},
	Short:   "Manage suppliers",
}

var supplierListCmd = &cobra.Command{
	Use:   "list",
	Short: "List suppliers",
	RunE:  runSupplierList,
}

var supplierAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a supplier",
	RunE:  runSupplierAdd,
}

var supplierDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a supplier",
	Args:  cobra.ExactArgs(1),
	RunE:  runSupplierDelete,
}

func init() {
	rootCmd.AddCommand(supplierCmd)
	supplierCmd.AddCommand(supplierListCmd, supplierAddCmd, supplierDeleteCmd)

	supplierAddCmd.Flags().StringP("name", "n", "", "Supplier name")
	supplierAddCmd.Flags().String("contact", "", "Contact person")
	supplierAddCmd.Flags().String("email", "", "Email address")
	supplierAddCmd.Flags().String("phone", "", "Phone number")
	supplierAddCmd.Flags().String("address", "", "Address")
	supplierAddCmd.Flags().String("notes", "", "Notes")
	_ = supplierAddCmd.MarkFlagRequired("name")
}

func runSupplierList(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	suppliers, err := a.Inventory.ListSuppliers(cmd.Context())
	if err != nil {
		return fmt.Errorf("list suppliers: %w", err)
	}

	if len(suppliers) == 0 {
		fmt.Println("No suppliers found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tNAME\tCONTACT\tEMAIL\tPHONE\n")
	for _, s := range suppliers {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", s.ID, s.Name, s.ContactPerson, s.Email, s.Phone)
	}
	return w.Flush()
}

func runSupplierAdd(cmd *cobra.Command, _ []string) error {
	name, _ := cmd.Flags().GetString("name")
	contact, _ := cmd.Flags().GetString("contact")
	email, _ := cmd.Flags().GetString("email")
	phone, _ := cmd.Flags().GetString("phone")
	address, _ := cmd.Flags().GetString("address")
	notes, _ := cmd.Flags().GetString("notes")

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	sp := &model.Supplier{
		Name:          name,
		ContactPerson: contact,
		Email:         email,
		Phone:         phone,
		Address:       address,
		Notes:         notes,
	}
	if err := a.Inventory.CreateSupplier(cmd.Context(), actorName(a), sp); err != nil {
		return err
	}

	fmt.Printf("Added supplier %s (%s)\n", sp.Name, sp.ID)
	return nil
}

func runSupplierDelete(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Inventory.DeleteSupplier(cmd.Context(), actorName(a), args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted supplier %s\n", args[0])
	return nil
}
