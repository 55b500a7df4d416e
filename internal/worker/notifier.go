package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmehdipour/growth-tracker/internal/model"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Notifier consumes measurement-created events from the notification queue
// and "delivers" them. Delivery is simulated with a fixed delay; the ack
// after the delay is what exercises at-least-once semantics downstream.
type Notifier struct {
	Logger        *zap.Logger
	DeliveryDelay time.Duration
}

func NewNotifier(logger *zap.Logger, delay time.Duration) *Notifier {
	return &Notifier{Logger: logger, DeliveryDelay: delay}
}

// Run blocks until ctx is cancelled or the delivery stream closes.
func (w *Notifier) Run(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("notifier: delivery channel closed")
			}

			var event model.MeasurementCreatedEvent
			if err := json.Unmarshal(d.Body, &event); err != nil {
				w.Logger.Warn("bad notification payload, dead-lettering", zap.Error(err))
				_ = d.Nack(false, false)
				continue
			}

			w.Logger.Info("received notification task",
				zap.Int64("measurement_id", event.MeasurementID),
				zap.String("task", event.Task),
				zap.String("text", event.Text),
			)

			if w.DeliveryDelay > 0 {
				select {
				case <-ctx.Done():
					_ = d.Nack(false, true)
					return nil
				case <-time.After(w.DeliveryDelay):
				}
			}

			w.Logger.Info("notification sent", zap.Int64("measurement_id", event.MeasurementID))
			_ = d.Ack(false)
		}
	}
}
