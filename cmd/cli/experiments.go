package main

import (
	"fmt"
	"io"
	"math/rand"
	"text/tabwriter"

	"gocalib/adapters/excel"
	"gocalib/app"
	"gocalib/internal/experiment"

	"github.com/spf13/cobra"
)

type experimentFlags struct {
	name       string
	prob       float64
	prior      string
	alpha      float64
	beta       float64
	confidence float64
	seed       int64
	outDir     string
	csv        string
	xlsx       string
	figure     string
	report     string
	asJSON     bool
}

func (f *experimentFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "Experiment name used in titles")
	cmd.Flags().Float64Var(&f.prob, "p", 0.3, "True success probability of the synthetic data")
	cmd.Flags().StringVar(&f.prior, "prior", "", "Named prior (default Jeffreys)")
	cmd.Flags().Float64Var(&f.alpha, "alpha", 0, "Custom prior alpha (requires --beta)")
	cmd.Flags().Float64Var(&f.beta, "beta", 0, "Custom prior beta (requires --alpha)")
	cmd.Flags().Float64Var(&f.confidence, "confidence", 0, "Credible level (default 0.95)")
	cmd.Flags().Int64Var(&f.seed, "seed", 42, "Random seed for deterministic data")
	cmd.Flags().StringVar(&f.outDir, "out-dir", "", "Directory relative output paths are written to (default OUTPUT_DIR)")
	cmd.Flags().StringVar(&f.csv, "csv", "", "CSV output file")
	cmd.Flags().StringVar(&f.xlsx, "xlsx", "", "XLSX output file")
	cmd.Flags().StringVar(&f.figure, "figure", "", "Figure output file (png, svg, pdf)")
	cmd.Flags().StringVar(&f.report, "report", "", "Markdown or HTML report file")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "Print results as JSON")
	cmd.MarkFlagsRequiredTogether("alpha", "beta")
}

func (f *experimentFlags) definition(cmd *cobra.Command, kind experiment.Kind) *experiment.Definition {
	def := &experiment.Definition{
		Name:            f.name,
		Kind:            kind,
		TrueProbability: f.prob,
		Prior:           f.prior,
		Confidence:      f.confidence,
		Seed:            f.seed,
		Output: experiment.Outputs{
			CSV:    f.csv,
			XLSX:   f.xlsx,
			Figure: f.figure,
			Report: f.report,
		},
	}
	if cmd.Flags().Changed("alpha") {
		alpha, beta := f.alpha, f.beta
		def.Alpha, def.Beta = &alpha, &beta
	}
	return def
}

func newTrialsCmd() *cobra.Command {
	var flags experimentFlags
	var sizes []int

	cmd := &cobra.Command{
		Use:   "trials",
		Short: "Calibrate synthetic samples of several sizes",
		Long: `Draw one Bernoulli(p) sample per size and calibrate each, showing how the
credible interval narrows as the sample grows.

Example: gocalib trials --p 0.3 --sizes 2,5,10,50,100 --prior Uniform --figure trials.png`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			def := flags.definition(cmd, experiment.KindTrials)
			def.Sizes = sizes
			return runExperiment(cmd, def, flags.outDir, flags.asJSON)
		},
	}

	flags.register(cmd)
	cmd.Flags().IntSliceVar(&sizes, "sizes", nil, "Sample sizes (default 2,3,5,10,25,50,100)")
	return cmd
}

func newConvergenceCmd() *cobra.Command {
	var flags experimentFlags
	var maxSize int

	cmd := &cobra.Command{
		Use:   "convergence",
		Short: "Track the gap between empirical rate and posterior mean for n = 1..max",
		Long: `Calibrate a synthetic sample for every size from 1 to --max-size and record
|EMV - posterior mean| at each step.

Example: gocalib convergence --p 0.7 --max-size 200 --csv convergence.csv --figure convergence.svg`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			def := flags.definition(cmd, experiment.KindConvergence)
			def.MaxSize = maxSize
			return runExperiment(cmd, def, flags.outDir, flags.asJSON)
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVar(&maxSize, "max-size", experiment.DefaultMaxSize, "Largest sample size")
	return cmd
}

func newRunCmd() *cobra.Command {
	var file string
	var outDir string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run an experiment described in a YAML file",
		Long: `Run a declarative experiment definition.

Example definition:
  name: small-samples
  kind: trials
  true_probability: 0.3
  prior: Jeffreys
  confidence: 0.9
  seed: 7
  sizes: [5, 20, 100]
  output:
    csv: small.csv
    figure: small.png
    report: small.html

Example: gocalib run -f experiment.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := experiment.LoadDefinition(file)
			if err != nil {
				return err
			}
			return runExperiment(cmd, def, outDir, asJSON)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Experiment definition (YAML)")
	cmd.Flags().StringVar(&outDir, "out-dir", "", "Directory relative output paths are written to (default OUTPUT_DIR)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print results as JSON")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runExperiment(cmd *cobra.Command, def *experiment.Definition, outDir string, asJSON bool) error {
	ctx := cmd.Context()
	c, err := newContainer(ctx, false)
	if err != nil {
		return err
	}
	defer c.Shutdown(ctx)

	if outDir == "" {
		outDir = c.Config.Experiment.OutputDir
	}
	if def.Seed == 0 && !cmd.Flags().Changed("seed") {
		def.Seed = c.Config.Experiment.Seed
	}

	exec, err := c.ExperimentService.Execute(ctx, def, outDir)
	if err != nil {
		return err
	}

	if asJSON {
		return printJSON(cmd.OutOrStdout(), exec)
	}
	printExecution(cmd.OutOrStdout(), exec)
	return nil
}

func printExecution(out io.Writer, exec *app.Execution) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	switch {
	case exec.Trials != nil:
		fmt.Fprintf(w, "%s (p=%.3f)\n", exec.Trials.Name, exec.Definition.TrueProbability)
		fmt.Fprintln(w, "N\tEMV\tMEAN\tLOWER\tUPPER")
		for _, r := range exec.Trials.Records {
			fmt.Fprintf(w, "%d\t%.4f\t%.4f\t%.4f\t%.4f\n", r.Size, r.EMV, r.Calibrated, r.LowerBound, r.UpperBound)
		}
	case exec.Convergence != nil:
		s := exec.Convergence.Summary
		fmt.Fprintf(w, "%s (p=%.3f, n=1..%d)\n", exec.Convergence.Name, exec.Definition.TrueProbability, exec.Definition.MaxSize)
		fmt.Fprintf(w, "mean gap\t%.6f\n", s.MeanGap)
		fmt.Fprintf(w, "max gap\t%.6f\n", s.MaxGap)
		fmt.Fprintf(w, "final gap\t%.6f\n", s.FinalGap)
	}
	_ = w.Flush()

	for _, f := range exec.Files {
		fmt.Fprintf(out, "wrote %s\n", f)
	}
}

func newGenerateCmd() *cobra.Command {
	var prob float64
	var size int
	var seed int64
	var column string

	cmd := &cobra.Command{
		Use:   "generate [output-file]",
		Short: "Write synthetic Bernoulli outcomes to a CSV or XLSX file",
		Long: `Generate size Bernoulli(p) outcomes as a single 0/1 column. The file format
follows the extension; the result can be fed back through calibrate --file.

Example: gocalib generate sample.xlsx --p 0.25 --size 500 --seed 3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := experiment.GenerateBinaryData(rand.New(rand.NewSource(seed)), prob, size)
			if err != nil {
				return err
			}
			if err := excel.WriteObservations(args[0], column, data); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d outcomes (%d successes) to %s\n", len(data), experiment.CountSuccesses(data), args[0])
			return nil
		},
	}

	cmd.Flags().Float64Var(&prob, "p", 0.5, "Success probability")
	cmd.Flags().IntVar(&size, "size", 100, "Number of outcomes")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Random seed")
	cmd.Flags().StringVar(&column, "column", "outcome", "Column header")
	return cmd
}
