package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/events"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/bjaus/sqsdispatch/internal/logging"
)

func newReplayCmd(a *app) *cobra.Command {
	var (
		eventFile string
		batch     bool
		failIDs   []string
	)

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Feed a saved SQS event through the engine",
		Long: `Read an SQS event from a file, dispatch it to the printing consumer and
write each received record as a JSON line, followed by the batch response.`,
		Example: `  sqsdispatch replay --event testdata/event.json
  sqsdispatch replay --event event.json --batch --fail-ids m-1,m-3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(eventFile)
			if err != nil {
				return fmt.Errorf("read event: %w", err)
			}

			fail := make(map[string]bool, len(failIDs))
			for _, id := range failIDs {
				fail[id] = true
			}
			consumer := recordLogger{batch: batch, fail: fail, out: cmd.OutOrStdout()}

			ctx := cmd.Context()
			rt, err := newRuntime(ctx, a.cfg, a.logger, consumer.factory)
			if err != nil {
				return err
			}
			defer func() {
				if err := rt.Close(context.Background()); err != nil {
					a.logger.Error("shutdown failed", logging.Error(err))
				}
			}()

			report, err := rt.engine.Process(ctx, raw)
			if err != nil {
				return err
			}

			resp := report.Response()
			if resp == nil {
				resp = &events.SQSEventResponse{BatchItemFailures: []events.SQSBatchItemFailure{}}
			}
			out, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(resp)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}

	cmd.Flags().StringVarP(&eventFile, "event", "e", "", "path to an SQS event JSON file")
	cmd.Flags().BoolVar(&batch, "batch", false, "process each tenant group in one call")
	cmd.Flags().StringSliceVar(&failIDs, "fail-ids", nil, "message IDs the consumer marks failed")
	_ = cmd.MarkFlagRequired("event")

	return cmd
}
