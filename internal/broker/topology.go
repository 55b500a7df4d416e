package broker

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Queue and exchange names are contractual: the measurement service, the
// profile service and the notifier must agree on them or dead-lettering
// silently stops routing.
const (
	NotifyQueue    = "notify_queue"
	MeasurementDLX = "measurement_dlx"
	MeasurementDLQ = "measurement_dlq"

	ProfileUpdateQueue = "profile_update_queue"
	ProfileSagaDLX     = "profile_saga_dlx"
	ProfileSagaDLQ     = "profile_saga_dlq"
)

// Topology is the channel subset needed to declare exchanges and queues.
type Topology interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
}

// declareDeadLetterPair declares a durable direct DLX, its DLQ, and the
// binding between them (routing key = queue name).
func declareDeadLetterPair(ch Topology, dlx, dlq string) error {
	if err := ch.ExchangeDeclare(dlx, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare dlx %s: %w", dlx, err)
	}
	if _, err := ch.QueueDeclare(dlq, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare dlq %s: %w", dlq, err)
	}
	if err := ch.QueueBind(dlq, dlq, dlx, false, nil); err != nil {
		return fmt.Errorf("bind %s to %s: %w", dlq, dlx, err)
	}
	return nil
}

func deadLetterArgs(dlx, routingKey string) amqp.Table {
	return amqp.Table{
		"x-dead-letter-exchange":    dlx,
		"x-dead-letter-routing-key": routingKey,
	}
}

// DeclareNotifyTopology declares the notification queue and its dead-letter
// pair. Publisher and consumer both call this; the declarations must match
// or the broker rejects the second declaration.
func DeclareNotifyTopology(ch Topology) error {
	if err := declareDeadLetterPair(ch, MeasurementDLX, MeasurementDLQ); err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(NotifyQueue, true, false, false, false,
		deadLetterArgs(MeasurementDLX, MeasurementDLQ)); err != nil {
		return fmt.Errorf("declare %s: %w", NotifyQueue, err)
	}
	return nil
}

// DeclareSagaTopology declares the SAGA request queue and its dead-letter
// pair. Expired or rejected SAGA requests route through ProfileSagaDLX to
// ProfileSagaDLQ, where the compensation listener picks them up.
func DeclareSagaTopology(ch Topology) error {
	if err := declareDeadLetterPair(ch, ProfileSagaDLX, ProfileSagaDLQ); err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(ProfileUpdateQueue, true, false, false, false,
		deadLetterArgs(ProfileSagaDLX, ProfileSagaDLQ)); err != nil {
		return fmt.Errorf("declare %s: %w", ProfileUpdateQueue, err)
	}
	return nil
}
