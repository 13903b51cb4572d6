package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Simplici0/dairycalc/internal/bootstrap"
	"github.com/Simplici0/dairycalc/internal/calculator"
	"github.com/Simplici0/dairycalc/internal/config"
	"github.com/Simplici0/dairycalc/internal/history"
	"github.com/Simplici0/dairycalc/internal/logger"
	"github.com/Simplici0/dairycalc/internal/pricing"
)

// engineFactory opens the engine for one command run. Tests replace it.
type engineFactory func(cmd *cobra.Command) (*calculator.Engine, func() error, error)

func defaultEngine(cmd *cobra.Command) (*calculator.Engine, func() error, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.IsDev())
	if err != nil {
		return nil, nil, err
	}
	if cfg.IsDev() {
		// Keep terminal output readable; warnings still surface.
		log = log.WithOptions(zap.IncreaseLevel(zap.WarnLevel))
	}
	return bootstrap.Engine(cmd.Context(), cfg, log)
}

func newRootCmd() *cobra.Command {
	return newRootCmdWith(defaultEngine)
}

func newRootCmdWith(open engineFactory) *cobra.Command {
	root := &cobra.Command{
		Use:           "milkcalc",
		Short:         "Milk buy/sell price calculator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newCalcCmd(open), newHistoryCmd(open), newClearCmd(open))
	return root
}

func newCalcCmd(open engineFactory) *cobra.Command {
	var (
		in     pricing.Inputs
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Price a milk batch and record it in the history",
		Example: `  milkcalc calc --qty 100 --rate 30 --fat 4.0 --snf 8.5
  milkcalc calc --qty 50 --rate 32 --fat 4.0 --clr 28.5 --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			snfSet, clrSet := cmd.Flags().Changed("snf"), cmd.Flags().Changed("clr")
			if snfSet == clrSet {
				return errors.New("exactly one of --snf or --clr is required")
			}
			if clrSet {
				in.Mode = pricing.ModeCLR
			} else {
				in.Mode = pricing.ModeSNF
			}
			in.Fat = pricing.FormatField(pricing.FieldFat, in.Fat)
			in.SNF = pricing.FormatField(pricing.FieldSNF, in.SNF)
			in.CLR = pricing.FormatField(pricing.FieldCLR, in.CLR)

			engine, closeStore, err := open(cmd)
			if err != nil {
				return err
			}
			defer closeStore()

			var result pricing.Result
			if dryRun {
				result, err = engine.Compute(in)
			} else {
				result, err = engine.Calculate(cmd.Context(), in)
			}

			var perr *history.PersistenceError
			switch {
			case errors.As(err, &perr):
				fmt.Fprintln(cmd.ErrOrStderr(), "warning: calculation was not saved:", perr)
			case err != nil:
				return err
			}
			printResult(cmd.OutOrStdout(), result)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&in.Quantity, "qty", "", "milk quantity in kg")
	f.StringVar(&in.Rate, "rate", "", "procurement rate")
	f.StringVar(&in.Fat, "fat", "", "fat percentage")
	f.StringVar(&in.SNF, "snf", "", "SNF percentage")
	f.StringVar(&in.CLR, "clr", "", "corrected lactometer reading")
	f.BoolVar(&dryRun, "dry-run", false, "compute without recording")
	return cmd
}

func newHistoryCmd(open engineFactory) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded calculations, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, closeStore, err := open(cmd)
			if err != nil {
				return err
			}
			defer closeStore()

			records := engine.History()
			if asJSON {
				raw, err := history.Encode(records)
				if err != nil {
					return err
				}
				var buf bytes.Buffer
				if err := json.Indent(&buf, []byte(raw), "", "  "); err != nil {
					return err
				}
				buf.WriteByte('\n')
				_, err = buf.WriteTo(cmd.OutOrStdout())
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no calculations recorded")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tQTY\tFAT\tSNF\tBUY\tSELL\tPROFIT\tBUY/KG\tSELL/KG")
			for _, r := range records {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					r.Timestamp, r.Quantity, r.Fat, r.EffectiveSNF(),
					r.BuyTotal.StringFixed(2), r.SellTotalDisplay(), r.Profit().StringFixed(2),
					r.BuyAvgRate.StringFixed(2), r.SellAvgRate.StringFixed(2))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the stored JSON records")
	return cmd
}

func newClearCmd(open engineFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete the whole calculation history",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, closeStore, err := open(cmd)
			if err != nil {
				return err
			}
			defer closeStore()

			if err := engine.ClearHistory(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "history cleared")
			return nil
		},
	}
}

func printResult(w io.Writer, r pricing.Result) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if r.DerivedSNF.Valid {
		fmt.Fprintf(tw, "Derived SNF\t%s %%\n", r.DerivedSNF.Decimal.StringFixed(2))
	}
	fmt.Fprintf(tw, "Fat kg\t%s\n", r.FatKg)
	fmt.Fprintf(tw, "SNF kg\t%s\n", r.SNFKg)
	fmt.Fprintf(tw, "Buy\t%s\t(fat %s, snf %s, avg %s/kg)\n",
		r.BuyTotal.StringFixed(2), r.BuyFatRate.StringFixed(3), r.BuySNFRate.StringFixed(3), r.BuyAvgRate.StringFixed(2))
	fmt.Fprintf(tw, "Sell\t%s\t(fat %s, snf %s, avg %s/kg)\n",
		r.SellTotalDisplay(), r.SellFatRate.StringFixed(3), r.SellSNFRate.StringFixed(3), r.SellAvgRate.StringFixed(2))
	fmt.Fprintf(tw, "Profit\t%s\n", r.Profit().StringFixed(2))
	_ = tw.Flush()
}
