package main

import (
	"context"
	"log/slog"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/spf13/cobra"

	"github.com/bjaus/sqsdispatch/internal/logging"
)

func newLambdaCmd(a *app) *cobra.Command {
	var batch bool

	cmd := &cobra.Command{
		Use:   "lambda",
		Short: "Run the engine under the Lambda runtime",
		Long:  "Start the Lambda runtime loop, dispatching every SQS event to the logging consumer.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			consumer := recordLogger{batch: batch}
			rt, err := newRuntime(ctx, a.cfg, a.logger, consumer.factory)
			if err != nil {
				return err
			}

			a.logger.InfoContext(ctx, "starting lambda runtime", slog.String(logging.FieldMode, consumer.mode().String()))
			lambda.StartWithOptions(rt.engine.LambdaHandler(),
				lambda.WithContext(ctx),
				lambda.WithEnableSIGTERM(func() {
					if err := rt.Close(context.Background()); err != nil {
						a.logger.Error("shutdown failed", logging.Error(err))
					}
				}),
			)
			return nil
		},
	}

	cmd.Flags().BoolVar(&batch, "batch", false, "process each tenant group in one call")
	return cmd
}
