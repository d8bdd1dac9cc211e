package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"ridescore/internal/logging"
	"ridescore/internal/modules/dataset"
	"ridescore/internal/modules/explanation"
	"ridescore/internal/modules/feature"
	"ridescore/internal/modules/geo"
	"ridescore/internal/modules/ranking"
	"ridescore/internal/modules/scoring"
)

var version = "dev"

type globalOptions struct {
	dataDir          string
	coefficientsFile string
	debug            bool
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{}
	cmd := &cobra.Command{
		Use:   "ridescore",
		Short: "Score and rank rides by predicted driver acceptance",
		Long: `ridescore scores candidate rides for a driver with a logistic acceptance model.

Datasets are read from a directory holding users.csv, rides.csv and an
optional history.csv. Distances are computed with the haversine formula,
so the CLI never calls a remote provider.`,
		Version:      version,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.dataDir, "data", "./data", "Directory with users.csv, rides.csv and history.csv")
	cmd.PersistentFlags().StringVar(&opts.coefficientsFile, "coefficients", "", "YAML coefficient file (default: built-in baseline)")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")

	cmd.AddCommand(newRankCommand(opts))
	cmd.AddCommand(newExplainCommand(opts))
	cmd.AddCommand(newCoefficientsCommand(opts))
	cmd.AddCommand(newBenchCommand(opts))

	return cmd
}

func execute() error {
	return newRootCommand().Execute()
}

// engine is the offline wiring shared by the subcommands.
type engine struct {
	data        *dataset.Store
	model       *scoring.Service
	ranking     *ranking.Service
	explanation *explanation.Service
}

func (o *globalOptions) logger(w io.Writer) *slog.Logger {
	level := "warn"
	if o.debug {
		level = "debug"
	}
	return logging.New(w, level, "text")
}

func (o *globalOptions) coefficients() (scoring.Coefficients, error) {
	if o.coefficientsFile == "" {
		return scoring.Baseline(), nil
	}
	return scoring.LoadCoefficients(o.coefficientsFile)
}

func (o *globalOptions) newEngine(ctx context.Context, logOut io.Writer) (*engine, error) {
	logger := o.logger(logOut)
	coeffs, err := o.coefficients()
	if err != nil {
		return nil, err
	}
	model, err := scoring.NewService(coeffs, nil, logger)
	if err != nil {
		return nil, err
	}

	data := dataset.NewStore(logger)
	if _, err := data.Reload(ctx, dataset.FileSource{Dir: o.dataDir}); err != nil {
		return nil, fmt.Errorf("load datasets from %s: %w", o.dataDir, err)
	}

	extractor := feature.NewExtractor(geo.Analytic{})
	return &engine{
		data:        data,
		model:       model,
		ranking:     ranking.NewService(data, extractor, model, 0, logger),
		explanation: explanation.NewService(data, extractor, model, nil, logger),
	}, nil
}
