package cmd

import (
	"fmt"
	"io"
	"strings"

	"telecom-billing/internal/pricing"

	"github.com/spf13/cobra"
)

var (
	quoteFrom    string
	quoteTo      string
	quoteSeconds int
)

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Price a call without recording it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(quoteTo) == "" || quoteSeconds < 0 {
			return fmt.Errorf("%w: --to is required and --seconds must be zero or more", errUsage)
		}
		ctx, b, err := openBackend(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer b.Close()

		q := pricing.NewEngine(pricing.NewPostgresRepo(b.pool)).PriceCall(ctx, quoteFrom, quoteTo, quoteSeconds)
		printQuote(cmd.OutOrStdout(), q)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(quoteCmd)
	quoteCmd.Flags().StringVar(&quoteFrom, "from", "", "origin number")
	quoteCmd.Flags().StringVar(&quoteTo, "to", "", "destination number [REQUIRED]")
	quoteCmd.Flags().IntVar(&quoteSeconds, "seconds", 0, "call duration in seconds")
}

func printQuote(w io.Writer, q pricing.Quote) {
	fmt.Fprintf(w, "%s -> %s, %ds\n", q.OriginType, q.DestinationType, q.DurationSeconds)
	fmt.Fprintf(w, "pulses:         %d x %ds (round up: %t)\n", q.Pulses, q.PulseDurationSeconds, q.RoundUp)
	fmt.Fprintf(w, "cost per pulse: %s\n", q.CostPerPulse.StringFixed(4))
	fmt.Fprintf(w, "cost:           %s\n", q.Cost.StringFixed(2))
	fmt.Fprintf(w, "priced by:      %s\n", q.Path())
}
