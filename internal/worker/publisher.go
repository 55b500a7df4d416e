package worker

import (
	"context"
	"errors"
	"time"

	"github.com/jmehdipour/growth-tracker/internal/broker"
	"github.com/jmehdipour/growth-tracker/internal/metrics"
	"github.com/jmehdipour/growth-tracker/internal/model"
	"go.uber.org/zap"
)

// PublisherStore is the outbox-store surface the publisher drains.
type PublisherStore interface {
	FetchUnpublished(ctx context.Context, limit int) ([]model.OutboxEvent, error)
	// MarkPublished commits the publish and reports whether a measurement
	// moved to sent along with it.
	MarkPublished(ctx context.Context, ev model.OutboxEvent) (bool, error)
}

// NotifyPublisher publishes one payload to the notification queue.
type NotifyPublisher interface {
	Publish(ctx context.Context, body []byte, expiration string) error
}

// OutboxPublisher drains unpublished outbox events to the broker on a fixed
// poll interval, in insertion order. A single event's publish failure leaves
// that event unpublished and does not affect the rest of the batch. When the
// broker's reconnect budget is exhausted the publisher stops permanently;
// events stay durably queued in the store until an operator restarts it.
type OutboxPublisher struct {
	Store  PublisherStore
	Broker NotifyPublisher
	Logger *zap.Logger

	PollInterval time.Duration
	BatchSize    int
}

func NewOutboxPublisher(store PublisherStore, pub NotifyPublisher, logger *zap.Logger) *OutboxPublisher {
	return &OutboxPublisher{
		Store:        store,
		Broker:       pub,
		Logger:       logger,
		PollInterval: 5 * time.Second,
		BatchSize:    10,
	}
}

// Run blocks until ctx is cancelled or the broker becomes permanently
// unavailable.
func (p *OutboxPublisher) Run(ctx context.Context) error {
	if p.PollInterval <= 0 {
		p.PollInterval = 5 * time.Second
	}
	if p.BatchSize <= 0 {
		p.BatchSize = 10
	}

	tick := time.NewTicker(p.PollInterval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
			if err := p.cycle(ctx); err != nil {
				p.Logger.Error("outbox publisher stopping", zap.Error(err))
				return err
			}
		}
	}
}

// cycle publishes one batch. Only a permanently unavailable broker is
// returned as an error; everything else is logged and retried next cycle.
func (p *OutboxPublisher) cycle(ctx context.Context) error {
	events, err := p.Store.FetchUnpublished(ctx, p.BatchSize)
	if err != nil {
		p.Logger.Error("fetch unpublished events", zap.Error(err))
		return nil
	}

	for _, ev := range events {
		if err := p.Broker.Publish(ctx, ev.Payload, ""); err != nil {
			if errors.Is(err, broker.ErrUnavailable) {
				return err
			}
			metrics.OutboxEventsTotal.WithLabelValues("publish_failed").Inc()
			p.Logger.Warn("publish outbox event failed, will retry",
				zap.Int64("event_id", ev.ID),
				zap.Error(err),
			)
			continue
		}

		advanced, err := p.Store.MarkPublished(ctx, ev)
		if err != nil {
			// Broker already accepted the message; leaving the event
			// unpublished means at worst a duplicate next cycle, never a loss.
			p.Logger.Error("mark published failed",
				zap.Int64("event_id", ev.ID),
				zap.Error(err),
			)
			continue
		}

		metrics.OutboxEventsTotal.WithLabelValues("published").Inc()
		if advanced {
			metrics.MeasurementsTotal.WithLabelValues("sent").Inc()
		}
		p.Logger.Info("published outbox event", zap.Int64("event_id", ev.ID))
	}

	return nil
}
