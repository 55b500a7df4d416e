package repository

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMeasurementIDFromPayload(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    int64
	}{
		{
			name:    "full event payload",
			payload: `{"measurement_id":7,"child_id":1,"height":120,"timestamp":"2026-08-29T10:00:00Z","task":"send_notification","text":"..."}`,
			want:    7,
		},
		{
			name:    "no correlation id",
			payload: `{"child_id":1}`,
			want:    0,
		},
		{
			name:    "not json",
			payload: `garbage`,
			want:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, measurementIDFromPayload([]byte(tt.payload)))
		})
	}
}
