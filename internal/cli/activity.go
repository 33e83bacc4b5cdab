package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var activityCmd = &cobra.Command{
	Use:   "activity",
	Short: "Show the activity log, newest first",
	RunE:  runActivity,
}

func init() {
	rootCmd.AddCommand(activityCmd)
	activityCmd.Flags().IntP("limit", "n", 20, "Number of entries to show")
}

func runActivity(cmd *cobra.Command, _ []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	entries, err := a.Inventory.Activity(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("load activity: %w", err)
	}

	if len(entries) == 0 {
		fmt.Println("No activity recorded.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "TIMESTAMP\tACTOR\tACTION\tDETAILS\n")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			e.Timestamp.Local().Format("2006-01-02 15:04:05"), e.Actor, e.Action, e.Details)
	}
	return w.Flush()
}
