// dpp-trainer fits a named feature preprocessing pipeline on the training
// channel and writes the fitted model plus its sources to the model directory.
//
// Usage:
//
//	dpp-trainer -p NAME [-d DATA_DIR] [-m MODEL_DIR] [--config_dir DIR] [--ledger DB] [--metrics_file FILE]
//	dpp-trainer apply [--model_dir DIR] [--input FILE]
//	dpp-trainer list [--config_dir DIR]
//
// DATA_DIR and MODEL_DIR default to SM_CHANNEL_TRAIN and SM_MODEL_DIR.
// Unknown flags are ignored.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/dcshock/autodpp/observer"
	"github.com/dcshock/autodpp/pipeline"
	"github.com/dcshock/autodpp/processors"
	"github.com/dcshock/autodpp/serve"
	"github.com/dcshock/autodpp/telemetry"
	"github.com/dcshock/autodpp/trainer"
)

const (
	defaultDataDir  = "/opt/ml/input/data/train"
	defaultModelDir = "/opt/ml/model"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run executes the CLI and returns the process exit code.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	logger := telemetry.SetupLogger(stderr)
	root := newRootCmd(logger, stdin)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return trainer.ExitCode(err)
	}
	return trainer.ExitOK
}

func newRootCmd(logger *slog.Logger, stdin io.Reader) *cobra.Command {
	v := viper.New()
	v.SetDefault("data_dir", defaultDataDir)
	v.SetDefault("model_dir", defaultModelDir)
	_ = v.BindEnv("data_dir", "SM_CHANNEL_TRAIN")
	_ = v.BindEnv("model_dir", "SM_MODEL_DIR")

	var (
		processor   string
		configDir   string
		ledgerPath  string
		metricsFile string
	)

	root := &cobra.Command{
		Use:           "dpp-trainer",
		Short:         "Fit a feature preprocessing pipeline",
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := loadRegistry(configDir, logger)
			if err != nil {
				return err
			}
			return train(cmd.Context(), logger, trainArgs{
				registry:    reg,
				processor:   processor,
				dataDir:     v.GetString("data_dir"),
				modelDir:    v.GetString("model_dir"),
				ledgerPath:  ledgerPath,
				metricsFile: metricsFile,
			})
		},
	}

	// The hosting platform passes hyperparameters as extra flags.
	root.FParseErrWhitelist.UnknownFlags = true

	flags := root.Flags()
	flags.StringVarP(&processor, "processor_module", "p", "", "Name of the pipeline definition to train")
	flags.StringP("data_dir", "d", defaultDataDir, "Training data directory (env SM_CHANNEL_TRAIN)")
	flags.StringP("model_dir", "m", defaultModelDir, "Model output directory (env SM_MODEL_DIR)")
	flags.StringVar(&ledgerPath, "ledger", "", "SQLite file recording runs and stages")
	flags.StringVar(&metricsFile, "metrics_file", "", "Write Prometheus metrics to this textfile")
	root.PersistentFlags().StringVar(&configDir, "config_dir", "", "Directory of extra YAML pipeline definitions")
	_ = root.MarkFlagRequired("processor_module")
	bindFlags(v, flags, "data_dir", "model_dir")

	root.AddCommand(
		newApplyCmd(stdin),
		newListCmd(func() (*processors.Registry, error) { return loadRegistry(configDir, logger) }),
	)
	return root
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet, names ...string) {
	for _, n := range names {
		_ = v.BindPFlag(n, flags.Lookup(n))
	}
}

func loadRegistry(configDir string, logger *slog.Logger) (*processors.Registry, error) {
	reg := processors.Default()
	if configDir == "" {
		return reg, nil
	}
	names, err := reg.LoadDir(configDir)
	if err != nil {
		return nil, err
	}
	logger.Debug("definitions loaded", "dir", configDir, "names", names)
	return reg, nil
}

type trainArgs struct {
	registry    *processors.Registry
	processor   string
	dataDir     string
	modelDir    string
	ledgerPath  string
	metricsFile string
}

func train(ctx context.Context, logger *slog.Logger, a trainArgs) error {
	metrics := observer.NewMetrics()
	observers := []pipeline.Observer{metrics}
	if a.ledgerPath != "" {
		ledger, err := observer.OpenLedger(a.ledgerPath)
		if err != nil {
			return err
		}
		defer ledger.Close()
		observers = append(observers, ledger)
	}

	res, err := trainer.Run(ctx, trainer.Options{
		Processor: a.processor,
		DataDir:   a.dataDir,
		ModelDir:  a.modelDir,
		Registry:  a.registry,
		Logger:    logger,
		Observer:  pipeline.MultiObserver(observers...),
	})
	if a.metricsFile != "" {
		if werr := metrics.WriteTextfile(a.metricsFile); werr != nil {
			logger.Warn("write metrics textfile", "path", a.metricsFile, "error", werr)
		}
	}
	if err != nil {
		return err
	}
	logger.Info("training complete",
		"run_id", res.RunID,
		"processor", res.Processor,
		"rows", res.Rows,
		"features", res.Width,
		"model", res.ModelPath)
	return nil
}

func newApplyCmd(stdin io.Reader) *cobra.Command {
	var modelDir, input string

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Transform CSV rows with a fitted model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := serve.LoadModel(modelDir)
			if err != nil {
				return err
			}
			in := stdin
			if input != "" && input != "-" {
				f, err := os.Open(input)
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			return serve.TransformCSV(m, in, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&modelDir, "model_dir", "m", defaultModelDir, "Directory holding the fitted model")
	cmd.Flags().StringVarP(&input, "input", "i", "-", "CSV input file (- for stdin)")

	return cmd
}

func newListCmd(registryFn func() (*processors.Registry, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List known pipeline definitions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registryFn()
			if err != nil {
				return err
			}
			for _, name := range reg.Names() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}
