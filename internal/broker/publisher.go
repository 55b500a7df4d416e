package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jmehdipour/growth-tracker/internal/util"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher publishes persistent messages to a single queue via the default
// exchange. The connection is dialed lazily on first use and re-dialed (with
// the config's bounded retry policy) when found closed; once that budget is
// exhausted, Publish returns ErrUnavailable and the owner decides whether
// that is fatal. The SAGA initiator uses a single-attempt config so the
// request path fails fast; the outbox publisher uses the full budget.
type Publisher struct {
	mu      sync.Mutex
	cfg     Config
	logger  *zap.Logger
	queue   string
	declare func(Topology) error
	conn    *Connection
}

func NewPublisher(cfg Config, queue string, declare func(Topology) error, logger *zap.Logger) *Publisher {
	return &Publisher{cfg: cfg, logger: logger, queue: queue, declare: declare}
}

func (p *Publisher) ensureConn(ctx context.Context) error {
	if p.conn != nil && !p.conn.IsClosed() {
		return nil
	}

	if p.conn != nil {
		if err := p.conn.Reconnect(ctx); err != nil {
			p.conn = nil
			return err
		}
	} else {
		conn, err := Dial(ctx, p.cfg, p.logger)
		if err != nil {
			return err
		}
		p.conn = conn
	}

	if err := p.declare(p.conn.Channel()); err != nil {
		p.conn.Close()
		p.conn = nil
		return fmt.Errorf("declare topology for %s: %w", p.queue, err)
	}
	return nil
}

// Publish sends body to the queue with persistent delivery. expiration is a
// per-message TTL in milliseconds ("" = no expiry).
func (p *Publisher) Publish(ctx context.Context, body []byte, expiration string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureConn(ctx); err != nil {
		return err
	}

	err := p.conn.Channel().PublishWithContext(ctx,
		"",      // default exchange
		p.queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    util.New(),
			Timestamp:    time.Now(),
			Expiration:   expiration,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish to %s: %w", p.queue, err)
	}
	return nil
}

// Close releases the underlying connection, if any.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}
}
