package model

import "errors"

const (
	// EventMeasurementCreated is the single outbox event type emitted today.
	EventMeasurementCreated = "measurement_created"

	// TaskSendNotification tells the notification consumer what to do with
	// a measurement-created event.
	TaskSendNotification = "send_notification"
)

// MeasurementCreatedEvent is the outbox payload relayed to the notify queue.
// It embeds the originating measurement id so downstream consumers and the
// compensation path can correlate the event with its measurement.
type MeasurementCreatedEvent struct {
	MeasurementID int64   `json:"measurement_id"`
	ChildID       int64   `json:"child_id"`
	Height        float64 `json:"height"`
	Timestamp     string  `json:"timestamp"`
	Task          string  `json:"task"`
	Text          string  `json:"text"`
}

var (
	ErrMissingChildID = errors.New("saga request missing child_id")
	ErrMissingHeight  = errors.New("saga request missing height")
)

// SagaRequest is the wire message asking the profile service to apply the
// second leg of the distributed transaction. It is never persisted by the
// initiator; durability comes from the broker (persistent delivery) and the
// per-message TTL routes unconsumed requests to the dead-letter queue.
type SagaRequest struct {
	MeasurementID int64   `json:"measurement_id"`
	ChildID       int64   `json:"child_id"`
	Height        float64 `json:"height"`
	Timestamp     string  `json:"timestamp"`
	ForceFailure  bool    `json:"force_failure"`
}

// Validate checks the fields the participant cannot proceed without.
func (r SagaRequest) Validate() error {
	if r.ChildID == 0 {
		return ErrMissingChildID
	}
	if r.Height == 0 {
		return ErrMissingHeight
	}
	return nil
}
