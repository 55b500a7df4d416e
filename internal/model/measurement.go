package model

import "time"

type MeasurementStatus string

const (
	MeasurementPending MeasurementStatus = "pending"
	MeasurementSent    MeasurementStatus = "sent"
	MeasurementFailed  MeasurementStatus = "failed"
)

func (s MeasurementStatus) String() string {
	return string(s)
}

func (s MeasurementStatus) Valid() bool {
	return s == MeasurementPending || s == MeasurementSent || s == MeasurementFailed
}

// Measurement is the DB entity persisted in the measurements table.
// Status moves pending -> sent when the outbox publisher confirms the
// broker publish; a measurement whose SAGA leg fails is deleted outright.
type Measurement struct {
	ID         int64             `db:"id" json:"id"`
	ChildID    int64             `db:"child_id" json:"child_id"`
	Height     float64           `db:"height" json:"height"`
	RecordedAt time.Time         `db:"recorded_at" json:"recorded_at"`
	Status     MeasurementStatus `db:"status" json:"status"`
}
