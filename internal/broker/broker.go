package broker

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// ErrUnavailable means the connect-retry budget was exhausted. Workers treat
// it as fatal and stop; data stays queued in the outbox store meanwhile.
var ErrUnavailable = errors.New("broker unavailable")

type Config struct {
	URL             string
	ConnectAttempts int
	ConnectBackoff  time.Duration
}

func (c Config) withDefaults() Config {
	if c.ConnectAttempts <= 0 {
		c.ConnectAttempts = 10
	}
	if c.ConnectBackoff <= 0 {
		c.ConnectBackoff = 5 * time.Second
	}
	return c
}

// Connection owns one long-lived AMQP connection and channel. Each
// background worker constructs its own Connection at startup and keeps it
// for its whole lifetime; there is no sharing across workers.
type Connection struct {
	cfg    Config
	logger *zap.Logger

	conn *amqp.Connection
	ch   *amqp.Channel
}

// Dial connects with bounded retries and fixed backoff. On exhaustion it
// returns ErrUnavailable (wrapped with the last dial error).
func Dial(ctx context.Context, cfg Config, logger *zap.Logger) (*Connection, error) {
	c := &Connection{cfg: cfg.withDefaults(), logger: logger}
	if err := c.dial(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Connection) dial(ctx context.Context) error {
	var lastErr error
	for attempt := 1; attempt <= c.cfg.ConnectAttempts; attempt++ {
		conn, err := amqp.Dial(c.cfg.URL)
		if err == nil {
			ch, chErr := conn.Channel()
			if chErr == nil {
				c.conn = conn
				c.ch = ch
				c.logger.Info("connected to rabbitmq", zap.Int("attempt", attempt))
				return nil
			}
			_ = conn.Close()
			err = chErr
		}

		lastErr = err
		if attempt < c.cfg.ConnectAttempts {
			c.logger.Warn("rabbitmq connect failed, retrying",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", c.cfg.ConnectAttempts),
				zap.Error(err),
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.cfg.ConnectBackoff):
			}
		}
	}

	c.logger.Error("rabbitmq connect retries exhausted",
		zap.Int("attempts", c.cfg.ConnectAttempts),
		zap.Error(lastErr),
	)
	return fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

// Reconnect re-dials with the same bounded policy. Used after a connection
// loss is observed mid-run; exhaustion again surfaces ErrUnavailable.
func (c *Connection) Reconnect(ctx context.Context) error {
	c.Close()
	return c.dial(ctx)
}

// IsClosed reports whether the connection or its channel is unusable. A
// channel-level exception closes the channel while the connection stays up,
// so both must be checked before reuse.
func (c *Connection) IsClosed() bool {
	if c.conn == nil || c.conn.IsClosed() {
		return true
	}
	return c.ch == nil || c.ch.IsClosed()
}

func (c *Connection) Channel() *amqp.Channel {
	return c.ch
}

func (c *Connection) Close() {
	if c.ch != nil {
		_ = c.ch.Close()
		c.ch = nil
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

// Consume starts a push-based delivery stream with manual acknowledgment.
// prefetch bounds how many deliveries may be in flight unacked; the SAGA
// queues use prefetch = 1 so one consumer handles one message at a time.
func (c *Connection) Consume(queue string, prefetch int) (<-chan amqp.Delivery, error) {
	if err := c.ch.Qos(prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("set qos on %s: %w", queue, err)
	}
	deliveries, err := c.ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume %s: %w", queue, err)
	}
	return deliveries, nil
}
