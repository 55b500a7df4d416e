package repository

import (
	"context"

	"github.com/jmehdipour/growth-tracker/internal/model"
	"github.com/jmoiron/sqlx"
)

// OutboxRepository defines persistence methods for the outbox table.
type OutboxRepository interface {
	// Insert writes a single outbox event with publish_state=unpublished.
	// If tx is nil, it will open/commit an internal transaction; otherwise
	// it uses the given tx.
	Insert(ctx context.Context, tx *sqlx.Tx, eventType string, payload []byte) error
	// FetchUnpublished returns up to limit unpublished events in insertion
	// order (ascending id), so downstream consumers see creation order.
	FetchUnpublished(ctx context.Context, limit int) ([]model.OutboxEvent, error)
	// MarkPublished moves a single event unpublished -> published.
	MarkPublished(ctx context.Context, tx *sqlx.Tx, id int64) error
	// CancelByMeasurement moves any still-unpublished event referencing the
	// measurement to cancelled. Published events are left untouched.
	CancelByMeasurement(ctx context.Context, tx *sqlx.Tx, measurementID int64) error
	List(ctx context.Context) ([]model.OutboxEvent, error)
	CountUnpublished(ctx context.Context) (int, error)
}

// OutboxRepositoryImpl is a sqlx-backed implementation.
type OutboxRepositoryImpl struct {
	db *sqlx.DB
}

func NewOutboxRepository(db *sqlx.DB) *OutboxRepositoryImpl {
	return &OutboxRepositoryImpl{db: db}
}

// withTx runs fn in the provided tx, or starts a new transaction when tx is nil.
func (r *OutboxRepositoryImpl) withTx(ctx context.Context, tx *sqlx.Tx, fn func(*sqlx.Tx) error) error {
	if tx != nil {
		return fn(tx)
	}

	t, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() { _ = t.Rollback() }()
	if err := fn(t); err != nil {
		return err
	}

	return t.Commit()
}

func (r *OutboxRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, eventType string, payload []byte) error {
	const q = `
		INSERT INTO outbox (event_type, payload, publish_state, created_at)
		VALUES (?, ?, 'unpublished', NOW())
	`
	return r.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, q, eventType, payload)
		return err
	})
}

func (r *OutboxRepositoryImpl) FetchUnpublished(ctx context.Context, limit int) ([]model.OutboxEvent, error) {
	const q = `
		SELECT id, event_type, payload, publish_state, created_at
		FROM outbox
		WHERE publish_state = 'unpublished'
		ORDER BY id ASC
		LIMIT ?
	`
	out := []model.OutboxEvent{}
	if err := r.db.SelectContext(ctx, &out, q, limit); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *OutboxRepositoryImpl) MarkPublished(ctx context.Context, tx *sqlx.Tx, id int64) error {
	const q = `UPDATE outbox SET publish_state = 'published' WHERE id = ? AND publish_state = 'unpublished'`
	return r.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, q, id)
		return err
	})
}

func (r *OutboxRepositoryImpl) CancelByMeasurement(ctx context.Context, tx *sqlx.Tx, measurementID int64) error {
	// Payload embeds the measurement id, which is the designed correlation
	// key between a measurement and its outbox events.
	const q = `
		UPDATE outbox
		SET publish_state = 'cancelled'
		WHERE publish_state = 'unpublished'
		  AND JSON_EXTRACT(payload, '$.measurement_id') = ?
	`
	return r.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, q, measurementID)
		return err
	})
}

func (r *OutboxRepositoryImpl) List(ctx context.Context) ([]model.OutboxEvent, error) {
	const q = `SELECT id, event_type, payload, publish_state, created_at FROM outbox ORDER BY id DESC`
	out := []model.OutboxEvent{}
	if err := r.db.SelectContext(ctx, &out, q); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *OutboxRepositoryImpl) CountUnpublished(ctx context.Context) (int, error) {
	const q = `SELECT COUNT(*) FROM outbox WHERE publish_state = 'unpublished'`
	var n int
	if err := r.db.GetContext(ctx, &n, q); err != nil {
		return 0, err
	}
	return n, nil
}
