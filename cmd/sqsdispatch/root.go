package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/bjaus/sqsdispatch/internal/config"
	"github.com/bjaus/sqsdispatch/internal/logging"
)

// app carries what PersistentPreRunE loaded to the subcommands.
type app struct {
	cfgFile string
	cfg     *config.Config
	logger  *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "sqsdispatch",
		Short: "SQS batch dispatch engine",
		Long: `sqsdispatch validates SQS batches, resolves bodies offloaded to object
storage, groups records by tenant and hands them to a consumer, answering with
a partial batch failure report.

The bundled consumer logs every record it receives. Use "lambda" to run it
under the Lambda runtime and "replay" to feed a saved event through it.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.cfgFile)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = logging.NewWithWriter(cmd.ErrOrStderr(), logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format)
			slog.SetDefault(a.logger)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default: ./sqsdispatch.yaml or /etc/sqsdispatch/sqsdispatch.yaml)")

	root.AddCommand(newLambdaCmd(a), newReplayCmd(a))
	return root
}
