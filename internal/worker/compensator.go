package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmehdipour/growth-tracker/internal/metrics"
	"github.com/jmehdipour/growth-tracker/internal/model"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// CompensationStore undoes the local leg for one measurement. Must be
// idempotent: dead-letter messages can be redelivered.
type CompensationStore interface {
	Compensate(ctx context.Context, measurementID int64) error
}

// Compensator consumes the SAGA dead-letter queue. A message lands there
// when the profile service rejected it or its TTL expired unconsumed; either
// way the distributed transaction's second leg failed and the measurement is
// rolled back. Local failures are nacked with requeue=true: losing a
// compensation is worse than retrying it.
type Compensator struct {
	Store  CompensationStore
	Logger *zap.Logger
}

func NewCompensator(store CompensationStore, logger *zap.Logger) *Compensator {
	return &Compensator{Store: store, Logger: logger}
}

// Run blocks until ctx is cancelled or the delivery stream closes.
func (w *Compensator) Run(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("compensator: delivery channel closed")
			}
			if err := w.handle(ctx, d.Body); err != nil {
				w.Logger.Error("compensation failed, requeueing",
					zap.String("message_id", d.MessageId),
					zap.Error(err),
				)
				_ = d.Nack(false, true)
				continue
			}
			metrics.MeasurementsTotal.WithLabelValues("compensated").Inc()
			metrics.OutboxEventsTotal.WithLabelValues("cancelled").Inc()
			_ = d.Ack(false)
		}
	}
}

func (w *Compensator) handle(ctx context.Context, body []byte) error {
	var req model.SagaRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return fmt.Errorf("decode dead-lettered saga request: %w", err)
	}

	w.Logger.Info("compensating failed saga",
		zap.Int64("measurement_id", req.MeasurementID),
		zap.Int64("child_id", req.ChildID),
	)

	if err := w.Store.Compensate(ctx, req.MeasurementID); err != nil {
		return err
	}

	w.Logger.Info("rolled back measurement", zap.Int64("measurement_id", req.MeasurementID))
	return nil
}
