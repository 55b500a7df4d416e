package repository

import (
	"context"

	"github.com/jmehdipour/growth-tracker/internal/model"
	"github.com/jmoiron/sqlx"
)

// ProfilesRepository defines persistence for the child_profiles table.
type ProfilesRepository interface {
	// UpsertHeight writes the latest height for a child. An unknown child_id
	// creates a partial profile row (no name/age). Re-applying the same
	// update is safe, which the SAGA consumer relies on under redelivery.
	UpsertHeight(ctx context.Context, childID int64, height float64) error
	List(ctx context.Context) ([]model.ChildProfile, error)
}

type ProfilesRepositoryImpl struct {
	db *sqlx.DB
}

func NewProfilesRepository(db *sqlx.DB) *ProfilesRepositoryImpl {
	return &ProfilesRepositoryImpl{db: db}
}

func (r *ProfilesRepositoryImpl) UpsertHeight(ctx context.Context, childID int64, height float64) error {
	const q = `
		INSERT INTO child_profiles (child_id, last_height, last_updated)
		VALUES (?, ?, NOW())
		ON DUPLICATE KEY UPDATE
		    last_height  = VALUES(last_height),
		    last_updated = VALUES(last_updated)
	`
	_, err := r.db.ExecContext(ctx, q, childID, height)
	return err
}

func (r *ProfilesRepositoryImpl) List(ctx context.Context) ([]model.ChildProfile, error) {
	const q = `SELECT child_id, name, age, last_height, last_updated FROM child_profiles ORDER BY child_id ASC`
	out := []model.ChildProfile{}
	if err := r.db.SelectContext(ctx, &out, q); err != nil {
		return nil, err
	}
	return out, nil
}
