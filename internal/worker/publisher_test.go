package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jmehdipour/growth-tracker/internal/broker"
	"github.com/jmehdipour/growth-tracker/internal/metrics"
	"github.com/jmehdipour/growth-tracker/internal/model"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeStore struct {
	events    []model.OutboxEvent
	published []int64
	markErr   error
}

func (s *fakeStore) FetchUnpublished(_ context.Context, limit int) ([]model.OutboxEvent, error) {
	n := len(s.events)
	if n > limit {
		n = limit
	}
	return append([]model.OutboxEvent(nil), s.events[:n]...), nil
}

func (s *fakeStore) MarkPublished(_ context.Context, ev model.OutboxEvent) (bool, error) {
	if s.markErr != nil {
		return false, s.markErr
	}
	s.published = append(s.published, ev.ID)
	for i := range s.events {
		if s.events[i].ID == ev.ID {
			s.events = append(s.events[:i], s.events[i+1:]...)
			break
		}
	}
	var ref struct {
		MeasurementID int64 `json:"measurement_id"`
	}
	_ = json.Unmarshal(ev.Payload, &ref)
	return ref.MeasurementID > 0, nil
}

type fakeBroker struct {
	sent    [][]byte
	failOn  map[int64]error // event id -> error, keyed via payload correlation
	lastErr error
}

func (b *fakeBroker) Publish(_ context.Context, body []byte, _ string) error {
	var ref struct {
		MeasurementID int64 `json:"measurement_id"`
	}
	_ = json.Unmarshal(body, &ref)
	if err, ok := b.failOn[ref.MeasurementID]; ok {
		b.lastErr = err
		return err
	}
	b.sent = append(b.sent, body)
	return nil
}

func event(id, measurementID int64) model.OutboxEvent {
	payload, _ := json.Marshal(model.MeasurementCreatedEvent{
		MeasurementID: measurementID,
		ChildID:       1,
		Height:        120.0,
		Task:          model.TaskSendNotification,
	})
	return model.OutboxEvent{
		ID:           id,
		EventType:    model.EventMeasurementCreated,
		Payload:      payload,
		PublishState: model.PublishStateUnpublished,
	}
}

func TestCyclePublishesInInsertionOrder(t *testing.T) {
	store := &fakeStore{events: []model.OutboxEvent{event(1, 10), event(2, 11), event(3, 12)}}
	bk := &fakeBroker{}
	p := NewOutboxPublisher(store, bk, zap.NewNop())

	require.NoError(t, p.cycle(context.Background()))

	require.Equal(t, []int64{1, 2, 3}, store.published)
	require.Len(t, bk.sent, 3)

	var first struct {
		MeasurementID int64 `json:"measurement_id"`
	}
	require.NoError(t, json.Unmarshal(bk.sent[0], &first))
	require.Equal(t, int64(10), first.MeasurementID)
}

func TestCycleKeepsFailedEventForRetry(t *testing.T) {
	store := &fakeStore{events: []model.OutboxEvent{event(1, 10), event(2, 11), event(3, 12)}}
	bk := &fakeBroker{failOn: map[int64]error{11: errors.New("channel hiccup")}}
	p := NewOutboxPublisher(store, bk, zap.NewNop())

	require.NoError(t, p.cycle(context.Background()))

	// events 1 and 3 published; event 2 stays unpublished for the next cycle
	require.Equal(t, []int64{1, 3}, store.published)
	require.Len(t, store.events, 1)
	require.Equal(t, int64(2), store.events[0].ID)

	// next cycle retries it
	bk.failOn = nil
	require.NoError(t, p.cycle(context.Background()))
	require.Equal(t, []int64{1, 3, 2}, store.published)
}

func TestCycleStopsWhenBrokerUnavailable(t *testing.T) {
	store := &fakeStore{events: []model.OutboxEvent{event(1, 10)}}
	bk := &fakeBroker{failOn: map[int64]error{10: broker.ErrUnavailable}}
	p := NewOutboxPublisher(store, bk, zap.NewNop())

	err := p.cycle(context.Background())
	require.ErrorIs(t, err, broker.ErrUnavailable)
	require.Empty(t, store.published)
}

func TestCycleRespectsBatchSize(t *testing.T) {
	store := &fakeStore{}
	for i := int64(1); i <= 25; i++ {
		store.events = append(store.events, event(i, 100+i))
	}
	bk := &fakeBroker{}
	p := NewOutboxPublisher(store, bk, zap.NewNop())

	require.NoError(t, p.cycle(context.Background()))
	require.Len(t, store.published, 10)
	require.Equal(t, []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, store.published)
}

func TestCycleCountsSentOnlyForMeasurementEvents(t *testing.T) {
	sentBefore := testutil.ToFloat64(metrics.MeasurementsTotal.WithLabelValues("sent"))

	// one event with no measurement reference, one regular event
	store := &fakeStore{events: []model.OutboxEvent{
		{
			ID:           1,
			EventType:    model.EventMeasurementCreated,
			Payload:      []byte(`{"note":"no correlation id"}`),
			PublishState: model.PublishStateUnpublished,
		},
		event(2, 10),
	}}
	p := NewOutboxPublisher(store, &fakeBroker{}, zap.NewNop())

	require.NoError(t, p.cycle(context.Background()))
	require.Equal(t, []int64{1, 2}, store.published)

	sentAfter := testutil.ToFloat64(metrics.MeasurementsTotal.WithLabelValues("sent"))
	require.Equal(t, sentBefore+1, sentAfter, "only the event carrying a measurement id counts as sent")
}

func TestRunStopsOnContextCancel(t *testing.T) {
	store := &fakeStore{}
	p := NewOutboxPublisher(store, &fakeBroker{}, zap.NewNop())
	p.PollInterval = 10 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
}
