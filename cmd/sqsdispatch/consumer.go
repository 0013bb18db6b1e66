package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	jsoniter "github.com/json-iterator/go"

	"github.com/bjaus/sqsdispatch"
	"github.com/bjaus/sqsdispatch/internal/logging"
)

// recordLogger is the bundled consumer. It logs each record through the
// handle the engine provides, optionally writes it as a JSON line to out, and
// marks the IDs in fail as failed items.
type recordLogger struct {
	batch bool
	fail  map[string]bool
	out   io.Writer

	mu *sync.Mutex
}

// printedRecord is one line of replay output.
type printedRecord struct {
	MessageID string          `json:"messageId"`
	Tenant    string          `json:"tenant,omitempty"`
	Body      json.RawMessage `json:"body"`
}

func (c recordLogger) factory() sqsdispatch.Consumer {
	if c.mu == nil {
		c.mu = &sync.Mutex{}
	}
	return c
}

func (c recordLogger) mode() sqsdispatch.Mode {
	if c.batch {
		return sqsdispatch.ModeBatch
	}
	return sqsdispatch.ModeIterative
}

func (c recordLogger) HandlesBatch(context.Context, events.SQSEvent) bool { return c.batch }

func (c recordLogger) ProcessBatch(ctx context.Context, deliveries []sqsdispatch.Delivery) error {
	for _, d := range deliveries {
		if err := c.handle(ctx, d.Record, d.Logger); err != nil {
			return err
		}
	}
	return nil
}

func (c recordLogger) ProcessSingleRecord(ctx context.Context, record sqsdispatch.Record, logger *slog.Logger) error {
	return c.handle(ctx, record, logger)
}

func (c recordLogger) handle(ctx context.Context, record sqsdispatch.Record, logger *slog.Logger) error {
	tenant, _ := sqsdispatch.TenantFromContext(ctx)
	logger.InfoContext(ctx, "record received",
		logging.Tenant(tenant),
		slog.Int("bytes", len(record.Body)),
	)

	if c.out != nil {
		line, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(printedRecord{
			MessageID: record.MessageID,
			Tenant:    tenant,
			Body:      record.Body,
		})
		if err != nil {
			return err
		}
		c.mu.Lock()
		_, err = c.out.Write(append(line, '\n'))
		c.mu.Unlock()
		if err != nil {
			return err
		}
	}

	if c.fail[record.MessageID] {
		sqsdispatch.MarkFailed(ctx, record.MessageID)
	}
	return nil
}
