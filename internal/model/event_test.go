package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSagaRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     SagaRequest
		wantErr error
	}{
		{
			name: "valid",
			req:  SagaRequest{MeasurementID: 1, ChildID: 1, Height: 120.0},
		},
		{
			name:    "missing child_id",
			req:     SagaRequest{MeasurementID: 1, Height: 120.0},
			wantErr: ErrMissingChildID,
		},
		{
			name:    "missing height",
			req:     SagaRequest{MeasurementID: 1, ChildID: 1},
			wantErr: ErrMissingHeight,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestMeasurementCreatedEventEmbedsCorrelationID(t *testing.T) {
	event := MeasurementCreatedEvent{
		MeasurementID: 7,
		ChildID:       1,
		Height:        120.0,
		Task:          TaskSendNotification,
	}
	payload, err := json.Marshal(event)
	require.NoError(t, err)

	var ref struct {
		MeasurementID int64 `json:"measurement_id"`
	}
	require.NoError(t, json.Unmarshal(payload, &ref))
	require.Equal(t, int64(7), ref.MeasurementID)
}

func TestPublishStateTerminal(t *testing.T) {
	require.False(t, PublishStateUnpublished.Terminal())
	require.True(t, PublishStatePublished.Terminal())
	require.True(t, PublishStateCancelled.Terminal())
}
