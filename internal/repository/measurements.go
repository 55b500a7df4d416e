package repository

import (
	"context"

	"github.com/jmehdipour/growth-tracker/internal/model"
	"github.com/jmoiron/sqlx"
)

// MeasurementsRepository defines persistence for the measurements table.
type MeasurementsRepository interface {
	// Insert writes a new measurement with status=pending and returns its id.
	Insert(ctx context.Context, tx *sqlx.Tx, m model.Measurement) (int64, error)
	// MarkSent advances status pending -> sent after the outbox publish.
	MarkSent(ctx context.Context, tx *sqlx.Tx, id int64) error
	// Delete removes a measurement entirely (SAGA compensation). Deleting a
	// row that is already gone is a no-op.
	Delete(ctx context.Context, tx *sqlx.Tx, id int64) error
	List(ctx context.Context) ([]model.Measurement, error)
}

type MeasurementsRepositoryImpl struct {
	db *sqlx.DB
}

func NewMeasurementsRepository(db *sqlx.DB) *MeasurementsRepositoryImpl {
	return &MeasurementsRepositoryImpl{db: db}
}

func (r *MeasurementsRepositoryImpl) withTx(ctx context.Context, tx *sqlx.Tx, fn func(*sqlx.Tx) error) error {
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

func (r *MeasurementsRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, m model.Measurement) (int64, error) {
	const q = `
		INSERT INTO measurements (child_id, height, recorded_at, status)
		VALUES (?, ?, ?, 'pending')
	`
	var id int64
	err := r.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, q, m.ChildID, m.Height, m.RecordedAt)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

func (r *MeasurementsRepositoryImpl) MarkSent(ctx context.Context, tx *sqlx.Tx, id int64) error {
	const q = `UPDATE measurements SET status = 'sent' WHERE id = ?`
	return r.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, q, id)
		return err
	})
}

func (r *MeasurementsRepositoryImpl) Delete(ctx context.Context, tx *sqlx.Tx, id int64) error {
	const q = `DELETE FROM measurements WHERE id = ?`
	return r.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, q, id)
		return err
	})
}

func (r *MeasurementsRepositoryImpl) List(ctx context.Context) ([]model.Measurement, error) {
	const q = `SELECT id, child_id, height, recorded_at, status FROM measurements ORDER BY id DESC`
	out := []model.Measurement{}
	if err := r.db.SelectContext(ctx, &out, q); err != nil {
		return nil, err
	}
	return out, nil
}
