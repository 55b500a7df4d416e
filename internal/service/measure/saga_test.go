package measure

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jmehdipour/growth-tracker/internal/model"
	"github.com/stretchr/testify/require"
)

type fakeQueuePublisher struct {
	body       []byte
	expiration string
	err        error
}

func (p *fakeQueuePublisher) Publish(_ context.Context, body []byte, expiration string) error {
	if p.err != nil {
		return p.err
	}
	p.body = body
	p.expiration = expiration
	return nil
}

func TestInitiatorSetsMessageTTL(t *testing.T) {
	pub := &fakeQueuePublisher{}
	ini := NewInitiator(pub, 30*time.Second)

	req := model.SagaRequest{MeasurementID: 7, ChildID: 1, Height: 120.0, Timestamp: "2026-08-29T10:00:00Z"}
	require.NoError(t, ini.Start(context.Background(), req))

	// AMQP expects the per-message expiration in milliseconds, as a string
	require.Equal(t, "30000", pub.expiration)

	var sent model.SagaRequest
	require.NoError(t, json.Unmarshal(pub.body, &sent))
	require.Equal(t, req, sent)
}

func TestInitiatorDefaultsTTL(t *testing.T) {
	pub := &fakeQueuePublisher{}
	ini := NewInitiator(pub, 0)

	require.NoError(t, ini.Start(context.Background(), model.SagaRequest{MeasurementID: 1, ChildID: 1, Height: 100}))
	require.Equal(t, "30000", pub.expiration)
}

func TestInitiatorCarriesForceFailureFlag(t *testing.T) {
	pub := &fakeQueuePublisher{}
	ini := NewInitiator(pub, time.Second)

	require.NoError(t, ini.Start(context.Background(), model.SagaRequest{
		MeasurementID: 8, ChildID: 1, Height: 999.0, ForceFailure: true,
	}))
	require.Contains(t, string(pub.body), `"force_failure":true`)
}

func TestInitiatorPropagatesPublishError(t *testing.T) {
	pub := &fakeQueuePublisher{err: errors.New("broker down")}
	ini := NewInitiator(pub, time.Second)

	err := ini.Start(context.Background(), model.SagaRequest{MeasurementID: 1, ChildID: 1, Height: 100})
	require.Error(t, err)
}
