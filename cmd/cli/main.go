package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"gocalib/adapters/excel"
	"gocalib/app"
	"gocalib/domain/calibration"
	"gocalib/internal"
	"gocalib/internal/config"
	"gocalib/internal/container"
	"gocalib/internal/plotting"
	"gocalib/internal/report"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	// .env is optional for the CLI
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "gocalib",
		Short:         "Bayesian credible intervals for binary outcome rates",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newCalibrateCmd(),
		newPriorsCmd(),
		newHistoryCmd(),
		newTrialsCmd(),
		newConvergenceCmd(),
		newRunCmd(),
		newGenerateCmd(),
	)
	return rootCmd
}

// newContainer wires the application from the environment; storage is opened only when asked
func newContainer(ctx context.Context, withStorage bool) (*container.Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	// Quiet by default; LOG_LEVEL still wins when set explicitly
	level := internal.LogLevelWarn
	if os.Getenv("LOG_LEVEL") != "" {
		level = internal.ParseLogLevel(cfg.Log.Level)
	}
	logger := internal.NewLogger(level, true)

	c, err := container.New(cfg, logger)
	if err != nil {
		return nil, err
	}
	if withStorage {
		if err := c.InitStorage(ctx); err != nil {
			return nil, err
		}
	}
	return c, nil
}

type calibrateOptions struct {
	data       string
	file       string
	column     string
	successes  int
	trials     int
	prior      string
	alpha      float64
	beta       float64
	confidence float64
	asJSON     bool
	plot       string
	report     string
	save       bool
}

func newCalibrateCmd() *cobra.Command {
	var opts calibrateOptions

	cmd := &cobra.Command{
		Use:   "calibrate",
		Short: "Compute the credible interval for a set of binary observations",
		Long: `Update a Beta prior with binary observations and report the equal-tailed
credible interval of the posterior.

Observations come from exactly one of --data, --file or --successes/--trials.

Examples:
  gocalib calibrate --data 1,0,1,1,0 --prior jeffreys --confidence 0.95
  gocalib calibrate --file outcomes.xlsx --column converted --plot posterior.png
  gocalib calibrate --successes 37 --trials 120 --alpha 2 --beta 8 --save`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCalibrate(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.data, "data", "", "Comma-separated outcomes (1/0, true/false, yes/no)")
	cmd.Flags().StringVar(&opts.file, "file", "", "CSV or XLSX file holding an outcome column")
	cmd.Flags().StringVar(&opts.column, "column", "", "Column to read from --file (default: first column)")
	cmd.Flags().IntVar(&opts.successes, "successes", 0, "Number of successes")
	cmd.Flags().IntVar(&opts.trials, "trials", 0, "Number of trials")
	cmd.Flags().StringVar(&opts.prior, "prior", "", "Named prior: "+strings.Join(calibration.PriorLabels(), "|"))
	cmd.Flags().Float64Var(&opts.alpha, "alpha", 0, "Custom prior alpha (requires --beta)")
	cmd.Flags().Float64Var(&opts.beta, "beta", 0, "Custom prior beta (requires --alpha)")
	cmd.Flags().Float64Var(&opts.confidence, "confidence", 0, "Credible level in [0, 1] (default from CALIBRATION_CONFIDENCE)")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Print the result as JSON")
	cmd.Flags().StringVar(&opts.plot, "plot", "", "Write a prior/posterior figure to this path")
	cmd.Flags().StringVar(&opts.report, "report", "", "Write a Markdown (.md) or HTML (.html) report to this path")
	cmd.Flags().BoolVar(&opts.save, "save", false, "Persist the run to the configured store")

	cmd.MarkFlagsMutuallyExclusive("data", "file", "successes")
	cmd.MarkFlagsRequiredTogether("successes", "trials")
	cmd.MarkFlagsRequiredTogether("alpha", "beta")

	return cmd
}

func runCalibrate(cmd *cobra.Command, opts calibrateOptions) error {
	ctx := cmd.Context()
	c, err := newContainer(ctx, opts.save)
	if err != nil {
		return err
	}
	defer c.Shutdown(ctx)

	req := app.CalibrationRequest{Prior: opts.prior, Save: opts.save}
	flags := cmd.Flags()
	if flags.Changed("alpha") {
		req.Alpha, req.Beta = &opts.alpha, &opts.beta
	}
	if flags.Changed("confidence") {
		req.Confidence = &opts.confidence
	}

	switch {
	case flags.Changed("successes"):
		req.Successes, req.Trials = &opts.successes, &opts.trials
	case opts.file != "":
		obs, err := excel.NewObservationReader(opts.file).WithLogger(c.Logger).ReadObservations(opts.column)
		if err != nil {
			return err
		}
		req.Observations = obs
	default:
		obs, err := parseObservations(opts.data)
		if err != nil {
			return err
		}
		req.Observations = obs
	}

	resp, err := c.CalibrationService.Calibrate(ctx, req)
	if err != nil {
		return err
	}

	if opts.plot != "" {
		if err := plotting.PlotPriorPosterior(resp.Result, opts.plot); err != nil {
			return fmt.Errorf("failed to write figure: %w", err)
		}
	}
	md := report.RenderResult(resp.Prior.Label, resp.Result)
	if opts.report != "" {
		if err := writeReportFile(opts.report, "Calibration report", md); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}

	out := cmd.OutOrStdout()
	if opts.asJSON {
		return printJSON(out, resp)
	}
	fmt.Fprint(out, md)
	if !resp.RunID.IsEmpty() {
		fmt.Fprintf(out, "\nSaved as run %s\n", resp.RunID)
	}
	return nil
}

// parseObservations splits a comma or whitespace separated outcome list
func parseObservations(s string) ([]bool, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	obs := make([]bool, 0, len(fields))
	for i, f := range fields {
		ok, err := excel.ParseOutcome(f)
		if err != nil {
			return nil, fmt.Errorf("observation %d: %w", i+1, err)
		}
		obs = append(obs, ok)
	}
	return obs, nil
}

func newPriorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "priors",
		Short: "List the built-in priors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "LABEL\tALPHA\tBETA\tMEAN")
			for _, p := range calibration.Priors() {
				fmt.Fprintf(w, "%s\t%g\t%g\t%.4f\n", p.Label, p.Parameters.Alpha, p.Parameters.Beta, p.Parameters.Mean())
			}
			return w.Flush()
		},
	}
}

func newHistoryCmd() *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show persisted calibration runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := newContainer(ctx, true)
			if err != nil {
				return err
			}
			defer c.Shutdown(ctx)

			runs, err := c.CalibrationService.ListRuns(ctx, limit)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), runs)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCREATED\tPRIOR\tS/N\tCONF\tLOWER\tUPPER")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\t%.2f\t%.4f\t%.4f\n",
					r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.PriorLabel,
					r.Successes, r.SampleSize, r.Confidence, r.LowerBound, r.UpperBound)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print runs as JSON")
	return cmd
}

func printJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeReportFile(path, title, md string) error {
	body := []byte(md)
	if strings.HasSuffix(strings.ToLower(path), ".html") {
		body = report.ToHTML(md, title)
	}
	return os.WriteFile(path, body, 0o644)
}
