package broker

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// ConsumeFunc processes a delivery stream until it closes or ctx ends.
type ConsumeFunc func(ctx context.Context, deliveries <-chan amqp.Delivery) error

// RunConsumer dials the broker (bounded retries), declares the topology,
// opens a manual-ack delivery stream on queue, and hands it to run. When the
// stream dies (connection loss) it re-dials under the same bounded policy
// and resumes; once a dial budget is exhausted it returns ErrUnavailable and
// the worker stays down until an operator restarts the process.
func RunConsumer(
	ctx context.Context,
	cfg Config,
	logger *zap.Logger,
	queue string,
	prefetch int,
	declare func(Topology) error,
	run ConsumeFunc,
) error {
	for {
		conn, err := Dial(ctx, cfg, logger)
		if err != nil {
			return err
		}

		deliveries, err := consumeOn(conn, queue, prefetch, declare)
		if err != nil {
			conn.Close()
			logger.Error("consumer setup failed", zap.String("queue", queue), zap.Error(err))
			return err
		}

		logger.Info("consuming", zap.String("queue", queue), zap.Int("prefetch", prefetch))

		runErr := run(ctx, deliveries)
		conn.Close()

		if ctx.Err() != nil {
			return nil
		}
		if runErr != nil {
			logger.Warn("delivery stream ended, reconnecting",
				zap.String("queue", queue),
				zap.Error(runErr),
			)
			continue
		}
		return nil
	}
}

func consumeOn(conn *Connection, queue string, prefetch int, declare func(Topology) error) (<-chan amqp.Delivery, error) {
	if err := declare(conn.Channel()); err != nil {
		return nil, err
	}
	return conn.Consume(queue, prefetch)
}
