// Command bloomcast runs the bloom prediction pipeline on a CSV of daily
// environmental observations and prints the held-out evaluation.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ezoic/bloomcast/classifier"
	"github.com/ezoic/bloomcast/dataset"
	"github.com/ezoic/bloomcast/diagnostics"
	"github.com/ezoic/bloomcast/experiment"
	"github.com/ezoic/bloomcast/metrics"
	"github.com/ezoic/bloomcast/pkg/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.LogError(err, "run failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := experiment.DefaultConfig()
	var (
		input    string
		family   string
		lags     map[string]int
		plotsDir string
		logLevel string
	)

	cmd := &cobra.Command{
		Use:   "bloomcast",
		Short: "Predict harmful-organism blooms from environmental time series",
		Long: `bloomcast builds lagged features from a daily environmental CSV, trains a
classifier on the chronological training window and reports how well it
predicts next-day high cell counts on the held-out tail.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log.SetupLogger(logLevel)
			cfg.Family = classifier.Family(family)
			for col, n := range lags {
				cfg.Lags[col] = n
			}

			tbl, err := loadTable(input)
			if err != nil {
				return err
			}

			res, err := experiment.Run(tbl, cfg)
			if err != nil {
				return err
			}

			printReport(cmd, res)
			if plotsDir != "" {
				return savePlots(res, cfg.Threshold, plotsDir)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&input, "input", "i", "", "CSV file of daily observations (required)")
	flags.StringVar(&family, "family", string(cfg.Family), "model family: nnet, rf or bag")
	flags.StringToIntVar(&lags, "lag", nil, "per-covariate lag override, e.g. --lag temp=2,flow=3")
	flags.Float64Var(&cfg.Threshold, "threshold", cfg.Threshold, "cell count defining a high label")
	flags.IntVar(&cfg.LabelShift, "label-shift", cfg.LabelShift, "days ahead the label looks")
	flags.Float64Var(&cfg.TrainFraction, "train-fraction", cfg.TrainFraction, "chronological train fraction")
	flags.Float64Var(&cfg.UpsampleRatio, "upsample-ratio", cfg.UpsampleRatio, "target minority:majority ratio, 0 disables")
	flags.IntVar(&cfg.Folds, "folds", cfg.Folds, "cross-validation folds")
	flags.Int64Var(&cfg.Seed, "seed", cfg.Seed, "master random seed")

	flags.IntVar(&cfg.Forest.Trees, "trees", cfg.Forest.Trees, "random forest tree count")
	flags.IntVar(&cfg.Forest.MaxFeatures, "max-features", cfg.Forest.MaxFeatures, "features per split, 0 = sqrt")
	flags.IntVar(&cfg.Bagging.Bags, "bags", cfg.Bagging.Bags, "bagging replicate count")
	flags.IntVar(&cfg.Bagging.MaxDepth, "max-depth", cfg.Bagging.MaxDepth, "bagged tree depth limit, 0 = unlimited")
	flags.IntVar(&cfg.NeuralNet.HiddenUnits, "hidden-units", cfg.NeuralNet.HiddenUnits, "neural net hidden layer width")
	flags.IntVar(&cfg.NeuralNet.Epochs, "epochs", cfg.NeuralNet.Epochs, "neural net training epochs")
	flags.Float64Var(&cfg.NeuralNet.LearningRate, "learning-rate", cfg.NeuralNet.LearningRate, "neural net SGD step size")
	flags.Float64Var(&cfg.NeuralNet.Dropout, "dropout", cfg.NeuralNet.Dropout, "neural net dropout probability")
	flags.StringVar(&cfg.NeuralNet.Activation, "activation", cfg.NeuralNet.Activation, "neural net activation: relu, tanh or logistic")

	flags.StringVar(&plotsDir, "plots-dir", "", "directory to save diagnostics figures")
	flags.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func printReport(cmd *cobra.Command, res *experiment.Result) {
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "Cross-validation (training window):")
	printMetrics(out, res.CV.Mean)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Held-out test window:")
	printMetrics(out, res.Test.Metrics)
	fmt.Fprintf(out, "  %-12s %.4f\n", "auc", res.Test.AUC)
	fmt.Fprintln(out)
	fmt.Fprintln(out, res.Test.Confusion)
}

func printMetrics(out io.Writer, report map[string]float64) {
	for _, name := range metrics.ReportMetricNames() {
		fmt.Fprintf(out, "  %-12s %.4f\n", name, report[name])
	}
}

func savePlots(res *experiment.Result, threshold float64, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	scatter, err := diagnostics.ProbabilityVsAbundance(res.Test.Probs, res.TestCounts, threshold)
	if err != nil {
		return err
	}
	if err := scatter.Render(filepath.Join(dir, "probability_vs_abundance.png")); err != nil {
		return err
	}

	timeline, err := diagnostics.ProbabilityTimeline(res.TestDates, res.Test.Probs)
	if err != nil {
		return err
	}
	if err := timeline.Render(filepath.Join(dir, "probability_timeline.png")); err != nil {
		return err
	}

	flow := make([]float64, len(res.TestRows))
	for i, row := range res.TestRows {
		flow[i] = res.TestFeatures.Numeric(dataset.ColFlow)[row]
	}
	curve, err := diagnostics.FitResponseCurve(dataset.ColFlow, flow, res.Test.Probs)
	if err != nil {
		return err
	}
	return curve.Render(filepath.Join(dir, "response_flow.png"))
}
