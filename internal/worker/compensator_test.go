package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jmehdipour/growth-tracker/internal/model"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCompensationStore struct {
	calls []int64
	err   error
}

func (s *fakeCompensationStore) Compensate(_ context.Context, measurementID int64) error {
	if s.err != nil {
		return s.err
	}
	// re-deleting an already-deleted measurement is a no-op, so repeated
	// calls succeed like the real store
	s.calls = append(s.calls, measurementID)
	return nil
}

func TestCompensatorAcksAfterRollback(t *testing.T) {
	store := &fakeCompensationStore{}
	w := &Compensator{Store: store, Logger: zap.NewNop()}

	body := sagaBody(t, model.SagaRequest{MeasurementID: 8, ChildID: 1, Height: 999.0, ForceFailure: true})

	ack := deliverOneCompensation(t, w, body)
	require.True(t, ack.acked)
	require.Equal(t, []int64{8}, store.calls)
}

func TestCompensatorRequeuesOnLocalFailure(t *testing.T) {
	store := &fakeCompensationStore{err: errors.New("deadlock")}
	w := &Compensator{Store: store, Logger: zap.NewNop()}

	body := sagaBody(t, model.SagaRequest{MeasurementID: 8, ChildID: 1, Height: 999.0})

	ack := deliverOneCompensation(t, w, body)
	require.True(t, ack.nacked)
	require.True(t, ack.requeue, "compensation failures must be retried, not dropped")
}

func TestCompensatorIsIdempotentAcrossRedelivery(t *testing.T) {
	store := &fakeCompensationStore{}
	w := &Compensator{Store: store, Logger: zap.NewNop()}

	body := sagaBody(t, model.SagaRequest{MeasurementID: 8, ChildID: 1, Height: 999.0})

	first := deliverOneCompensation(t, w, body)
	second := deliverOneCompensation(t, w, body)

	require.True(t, first.acked)
	require.True(t, second.acked, "redelivered dead-letter must commit cleanly")
	require.Equal(t, []int64{8, 8}, store.calls)
}

func TestCompensatorRequeuesMalformedBody(t *testing.T) {
	w := &Compensator{Store: &fakeCompensationStore{}, Logger: zap.NewNop()}

	ack := deliverOneCompensation(t, w, []byte("not json"))
	require.True(t, ack.nacked)
	require.True(t, ack.requeue)
}

// deliverOneCompensation mirrors deliverOne for the compensator's Run loop.
func deliverOneCompensation(t *testing.T, w *Compensator, body []byte) *fakeAcknowledger {
	t.Helper()
	ack := newFakeAcknowledger()
	deliveries := make(chan amqp.Delivery, 1)
	deliveries <- amqp.Delivery{Acknowledger: ack, Body: body, DeliveryTag: 1}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = w.Run(ctx, deliveries)
		close(done)
	}()

	select {
	case <-ack.done:
	case <-time.After(time.Second):
		t.Fatal("delivery was never acked or nacked")
	}
	cancel()
	<-done
	return ack
}
