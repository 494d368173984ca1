package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"telecom-billing/internal/audit"
	"telecom-billing/internal/billing"

	"github.com/spf13/cobra"
)

var periodCmd = &cobra.Command{
	Use:   "period",
	Short: "Billing period commands",
}

var periodCurrentCmd = &cobra.Command{
	Use:   "current",
	Short: "Create the current month's period if missing and print it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, b, err := openBackend(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer b.Close()

		p, err := newBillingService(b).EnsureCurrentPeriod(ctx)
		if err != nil {
			return err
		}
		printPeriods(cmd.OutOrStdout(), []billing.Period{p})
		return nil
	},
}

var periodListCmd = &cobra.Command{
	Use:   "list",
	Short: "List billing periods, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, b, err := openBackend(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer b.Close()

		ps, err := newBillingService(b).ListPeriods(ctx)
		if err != nil {
			return err
		}
		printPeriods(cmd.OutOrStdout(), ps)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(periodCmd)
	periodCmd.AddCommand(periodCurrentCmd)
	periodCmd.AddCommand(periodListCmd)
}

func newBillingService(b *backend) *billing.Service {
	var locker billing.Locker = billing.NewLocalLocker()
	if b.rdb != nil {
		locker = billing.NewRedisLocker(b.rdb)
	}
	return billing.NewService(
		billing.NewPostgresRepo(b.pool),
		locker,
		audit.NewService(audit.NewPostgresRepo(b.pool)),
		billing.Options{
			Locale:   b.cfg.Billing.Locale,
			Location: b.cfg.Location(),
			LockTTL:  b.cfg.Billing.InvoiceLockTTL,
		},
	)
}

func printPeriods(w io.Writer, ps []billing.Period) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSTART\tEND\tSTATUS")
	for _, p := range ps {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.ID, p.Name, p.StartDate.Format(time.DateOnly), p.EndDate.Format(time.DateOnly), p.Status)
	}
	_ = tw.Flush()
}
