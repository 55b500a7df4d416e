package broker

import (
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"
)

type declaredQueue struct {
	name    string
	durable bool
	args    amqp.Table
}

type declaredExchange struct {
	name    string
	kind    string
	durable bool
}

type binding struct {
	queue, key, exchange string
}

type fakeTopology struct {
	exchanges []declaredExchange
	queues    []declaredQueue
	bindings  []binding
}

func (f *fakeTopology) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	f.exchanges = append(f.exchanges, declaredExchange{name: name, kind: kind, durable: durable})
	return nil
}

func (f *fakeTopology) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	f.queues = append(f.queues, declaredQueue{name: name, durable: durable, args: args})
	return amqp.Queue{Name: name}, nil
}

func (f *fakeTopology) QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error {
	f.bindings = append(f.bindings, binding{queue: name, key: key, exchange: exchange})
	return nil
}

func (f *fakeTopology) queue(name string) (declaredQueue, bool) {
	for _, q := range f.queues {
		if q.name == name {
			return q, true
		}
	}
	return declaredQueue{}, false
}

func TestDeclareSagaTopology(t *testing.T) {
	ch := &fakeTopology{}
	require.NoError(t, DeclareSagaTopology(ch))

	// direct durable DLX
	require.Len(t, ch.exchanges, 1)
	require.Equal(t, ProfileSagaDLX, ch.exchanges[0].name)
	require.Equal(t, "direct", ch.exchanges[0].kind)
	require.True(t, ch.exchanges[0].durable)

	// DLQ bound to the DLX with routing key = queue name
	require.Equal(t, []binding{{queue: ProfileSagaDLQ, key: ProfileSagaDLQ, exchange: ProfileSagaDLX}}, ch.bindings)

	// request queue dead-letters into the DLX
	q, ok := ch.queue(ProfileUpdateQueue)
	require.True(t, ok)
	require.True(t, q.durable)
	require.Equal(t, ProfileSagaDLX, q.args["x-dead-letter-exchange"])
	require.Equal(t, ProfileSagaDLQ, q.args["x-dead-letter-routing-key"])

	// DLQ itself has no dead-letter target
	dlq, ok := ch.queue(ProfileSagaDLQ)
	require.True(t, ok)
	require.True(t, dlq.durable)
	require.Nil(t, dlq.args)
}

func TestDeclareNotifyTopology(t *testing.T) {
	ch := &fakeTopology{}
	require.NoError(t, DeclareNotifyTopology(ch))

	q, ok := ch.queue(NotifyQueue)
	require.True(t, ok)
	require.True(t, q.durable)
	require.Equal(t, MeasurementDLX, q.args["x-dead-letter-exchange"])
	require.Equal(t, MeasurementDLQ, q.args["x-dead-letter-routing-key"])
}
