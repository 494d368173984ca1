package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"telecom-billing/internal/billing"

	"github.com/spf13/cobra"
)

var invoicesCmd = &cobra.Command{
	Use:   "invoices",
	Short: "Invoice commands",
}

var invoicesGenerateCmd = &cobra.Command{
	Use:   "generate <period-id>",
	Short: "Regenerate all invoices of a period",
	Long: `Regenerate all invoices of a period.

Existing invoices of the period are replaced in one transaction.
Running it twice with no new calls produces the same invoices.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, b, err := openBackend(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer b.Close()

		res, err := newBillingService(b).GenerateInvoices(ctx, args[0])
		if err != nil {
			return err
		}
		printGenerateResult(cmd.OutOrStdout(), res)
		return nil
	},
}

var invoicesListCmd = &cobra.Command{
	Use:   "list <period-id>",
	Short: "List the invoices of a period",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, b, err := openBackend(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer b.Close()

		invs, err := newBillingService(b).ListInvoices(ctx, args[0])
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tCONTACT\tTOTAL\tSTATUS")
		for _, inv := range invs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", inv.ID, inv.ContactID, inv.Total.StringFixed(2), inv.Status)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(invoicesCmd)
	invoicesCmd.AddCommand(invoicesGenerateCmd)
	invoicesCmd.AddCommand(invoicesListCmd)
}

func printGenerateResult(w io.Writer, res billing.GenerateResult) {
	if res.Empty {
		fmt.Fprintf(w, "period %s: no billable calls, no invoices generated\n", res.PeriodID)
		return
	}
	fmt.Fprintf(w, "period %s: %d invoices, total %s\n", res.PeriodID, res.InvoiceCount, res.TotalAmount.StringFixed(2))
}
