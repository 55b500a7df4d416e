package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmehdipour/growth-tracker/internal/model"
	"github.com/jmoiron/sqlx"
)

// OutboxStore groups the multi-table transactions the background workers
// need over the measurement-side store: confirming a publish and rolling a
// measurement back. Single-table operations live on the individual repos.
type OutboxStore struct {
	db           *sqlx.DB
	measurements MeasurementsRepository
	outbox       OutboxRepository
}

func NewOutboxStore(db *sqlx.DB, measurements MeasurementsRepository, outbox OutboxRepository) *OutboxStore {
	return &OutboxStore{db: db, measurements: measurements, outbox: outbox}
}

func (s *OutboxStore) FetchUnpublished(ctx context.Context, limit int) ([]model.OutboxEvent, error) {
	return s.outbox.FetchUnpublished(ctx, limit)
}

// MarkPublished records a successful broker publish: the event moves to
// published and the referenced measurement (if any) to sent, in one local
// transaction. The returned flag reports whether a measurement was advanced,
// so callers only count what actually changed. A crash between the broker
// accept and this commit leaves the event unpublished, so the next cycle
// re-publishes it (at-least-once).
func (s *OutboxStore) MarkPublished(ctx context.Context, ev model.OutboxEvent) (bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.outbox.MarkPublished(ctx, tx, ev.ID); err != nil {
		return false, fmt.Errorf("mark event %d published: %w", ev.ID, err)
	}

	advanced := false
	if id := measurementIDFromPayload(ev.Payload); id > 0 {
		if err := s.measurements.MarkSent(ctx, tx, id); err != nil {
			return false, fmt.Errorf("mark measurement %d sent: %w", id, err)
		}
		advanced = true
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return advanced, nil
}

// Compensate undoes the local leg of a failed SAGA: the measurement is
// deleted and any still-unpublished outbox event for it is cancelled, in one
// local transaction. Both statements are no-ops when already applied, so a
// redelivered dead-letter message commits cleanly.
func (s *OutboxStore) Compensate(ctx context.Context, measurementID int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.measurements.Delete(ctx, tx, measurementID); err != nil {
		return fmt.Errorf("delete measurement %d: %w", measurementID, err)
	}
	if err := s.outbox.CancelByMeasurement(ctx, tx, measurementID); err != nil {
		return fmt.Errorf("cancel outbox events for measurement %d: %w", measurementID, err)
	}

	return tx.Commit()
}

// measurementIDFromPayload pulls the correlation id out of an event payload.
// Returns 0 when the payload carries none.
func measurementIDFromPayload(payload []byte) int64 {
	var ref struct {
		MeasurementID int64 `json:"measurement_id"`
	}
	if err := json.Unmarshal(payload, &ref); err != nil {
		return 0
	}
	return ref.MeasurementID
}
