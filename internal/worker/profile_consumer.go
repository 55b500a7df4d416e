package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmehdipour/growth-tracker/internal/metrics"
	"github.com/jmehdipour/growth-tracker/internal/model"
	"github.com/jmehdipour/growth-tracker/internal/repository"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// ErrForcedFailure is the deterministic failure hook for exercising the
// compensation path end to end.
var ErrForcedFailure = errors.New("forced failure requested")

// ProfileConsumer is the SAGA participant: it applies the second leg of the
// distributed transaction by upserting the child profile. Consumed with
// prefetch = 1. Any failure is rejected without requeue, which routes the
// message to the SAGA dead-letter queue and hands reconciliation to the
// measurement service's compensation listener.
type ProfileConsumer struct {
	Profiles repository.ProfilesRepository
	Logger   *zap.Logger
}

func NewProfileConsumer(profiles repository.ProfilesRepository, logger *zap.Logger) *ProfileConsumer {
	return &ProfileConsumer{Profiles: profiles, Logger: logger}
}

// Run blocks until ctx is cancelled or the delivery stream closes.
func (w *ProfileConsumer) Run(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("profile consumer: delivery channel closed")
			}
			if err := w.handle(ctx, d.Body); err != nil {
				metrics.SagaRequestsTotal.WithLabelValues("rejected").Inc()
				w.Logger.Warn("saga request rejected, dead-lettering",
					zap.String("message_id", d.MessageId),
					zap.Error(err),
				)
				_ = d.Nack(false, false)
				continue
			}
			metrics.SagaRequestsTotal.WithLabelValues("applied").Inc()
			_ = d.Ack(false)
		}
	}
}

func (w *ProfileConsumer) handle(ctx context.Context, body []byte) error {
	var req model.SagaRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return fmt.Errorf("decode saga request: %w", err)
	}
	if err := req.Validate(); err != nil {
		return err
	}
	if req.ForceFailure {
		return ErrForcedFailure
	}

	if err := w.Profiles.UpsertHeight(ctx, req.ChildID, req.Height); err != nil {
		return fmt.Errorf("upsert profile %d: %w", req.ChildID, err)
	}

	w.Logger.Info("profile updated",
		zap.Int64("child_id", req.ChildID),
		zap.Float64("height", req.Height),
		zap.Int64("measurement_id", req.MeasurementID),
	)
	return nil
}
