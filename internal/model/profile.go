package model

import "time"

// ChildProfile is the DB entity owned by the child-profile service.
// Profiles created by the SAGA consumer for an unknown child carry only
// the height and its timestamp; name and age stay NULL until filled in
// elsewhere, so readers must tolerate partial rows.
type ChildProfile struct {
	ChildID     int64     `db:"child_id" json:"child_id"`
	Name        *string   `db:"name" json:"name"`
	Age         *int      `db:"age" json:"age"`
	LastHeight  *float64  `db:"last_height" json:"last_height"`
	LastUpdated time.Time `db:"last_updated" json:"last_updated"`
}
