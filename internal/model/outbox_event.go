package model

import "time"

type PublishState string

const (
	PublishStateUnpublished PublishState = "unpublished"
	PublishStatePublished   PublishState = "published"
	PublishStateCancelled   PublishState = "cancelled"
)

func (s PublishState) String() string {
	return string(s)
}

// Terminal reports whether the state may never change again.
func (s PublishState) Terminal() bool {
	return s == PublishStatePublished || s == PublishStateCancelled
}

// OutboxEvent is one row of the append-only outbox table, written in the
// same transaction as the measurement it describes.
type OutboxEvent struct {
	ID           int64        `db:"id" json:"id"`
	EventType    string       `db:"event_type" json:"event_type"`
	Payload      []byte       `db:"payload" json:"payload"`
	PublishState PublishState `db:"publish_state" json:"publish_state"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
}
