package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"telecom-billing/internal/audit"
	"telecom-billing/internal/pricing"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var ratesCmd = &cobra.Command{
	Use:   "rates",
	Short: "Rate table commands",
}

var ratesImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Load rates and pulse configuration from a YAML file",
	Long: `Load rates and pulse configuration from a YAML file.

Rates that duplicate an existing one are skipped. Example file:

  pulse:
    duration_seconds: 60
    round_up: true
  rates:
    - origin_type: landline
      destination_type: mobile
      cost_per_minute: "0.08"
      description: landline to mobile`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		rf, err := parseRateFile(f)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}

		ctx, b, err := openBackend(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer b.Close()

		svc := pricing.NewAdminService(pricing.NewPostgresRepo(b.pool), audit.NewService(audit.NewPostgresRepo(b.pool)))
		sum, err := importRates(ctx, svc, rf)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "rates: %d created, %d skipped as duplicates\n", sum.created, sum.skipped)
		if sum.pulseSet {
			fmt.Fprintln(cmd.OutOrStdout(), "pulse configuration updated")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ratesCmd)
	ratesCmd.AddCommand(ratesImportCmd)
}

// rateFile is the on-disk import format. Costs are strings so no float
// rounding happens between the file and the numeric column.
type rateFile struct {
	Pulse *struct {
		DurationSeconds int   `yaml:"duration_seconds"`
		RoundUp         *bool `yaml:"round_up"`
	} `yaml:"pulse"`
	Rates []rateEntry `yaml:"rates"`
}

type rateEntry struct {
	OriginType         string  `yaml:"origin_type"`
	DestinationType    string  `yaml:"destination_type"`
	OriginCarrier      *string `yaml:"origin_carrier"`
	DestinationCarrier *string `yaml:"destination_carrier"`
	SameRegion         bool    `yaml:"same_region"`
	CostPerMinute      string  `yaml:"cost_per_minute"`
	Description        *string `yaml:"description"`
}

func parseRateFile(r io.Reader) (rateFile, error) {
	var rf rateFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&rf); err != nil {
		if errors.Is(err, io.EOF) {
			return rateFile{}, errors.New("empty file")
		}
		return rateFile{}, err
	}
	return rf, nil
}

func (e rateEntry) input() (pricing.RateInput, error) {
	cost, err := decimal.NewFromString(e.CostPerMinute)
	if err != nil {
		return pricing.RateInput{}, fmt.Errorf("cost_per_minute %q: %w", e.CostPerMinute, err)
	}
	return pricing.RateInput{
		OriginType:         pricing.NumberType(e.OriginType),
		DestinationType:    pricing.NumberType(e.DestinationType),
		OriginCarrier:      e.OriginCarrier,
		DestinationCarrier: e.DestinationCarrier,
		SameRegion:         e.SameRegion,
		CostPerMinute:      cost,
		Description:        e.Description,
	}, nil
}

type importSummary struct {
	created  int
	skipped  int
	pulseSet bool
}

type rateAdmin interface {
	CreateRate(ctx context.Context, in pricing.RateInput) (pricing.Rate, error)
	SetPulseConfig(ctx context.Context, pulseSeconds int, roundUp bool) (pricing.PulseConfig, error)
}

// importRates validates every entry before writing any of them.
func importRates(ctx context.Context, svc rateAdmin, rf rateFile) (importSummary, error) {
	var sum importSummary

	inputs := make([]pricing.RateInput, 0, len(rf.Rates))
	for i, e := range rf.Rates {
		in, err := e.input()
		if err != nil {
			return sum, fmt.Errorf("rate %d: %w", i+1, err)
		}
		inputs = append(inputs, in)
	}

	if rf.Pulse != nil {
		roundUp := true
		if rf.Pulse.RoundUp != nil {
			roundUp = *rf.Pulse.RoundUp
		}
		if _, err := svc.SetPulseConfig(ctx, rf.Pulse.DurationSeconds, roundUp); err != nil {
			return sum, fmt.Errorf("pulse: %w", err)
		}
		sum.pulseSet = true
	}

	for i, in := range inputs {
		_, err := svc.CreateRate(ctx, in)
		switch {
		case err == nil:
			sum.created++
		case errors.Is(err, pricing.ErrDuplicateRate):
			sum.skipped++
		default:
			return sum, fmt.Errorf("rate %d: %w", i+1, err)
		}
	}
	return sum, nil
}
