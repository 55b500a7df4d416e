package measure

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/jmehdipour/growth-tracker/internal/model"
)

// QueuePublisher is the broker surface the initiator needs.
type QueuePublisher interface {
	Publish(ctx context.Context, body []byte, expiration string) error
}

// Initiator publishes SagaRequests to the profile-update queue with a
// per-message TTL. An unconsumed request expires into the SAGA dead-letter
// queue exactly like an explicit rejection, which is what arms the
// compensation path even when the profile service is down.
type Initiator struct {
	publisher QueuePublisher
	ttl       time.Duration
}

func NewInitiator(publisher QueuePublisher, ttl time.Duration) *Initiator {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Initiator{publisher: publisher, ttl: ttl}
}

func (i *Initiator) Start(ctx context.Context, req model.SagaRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}
	expiration := strconv.FormatInt(i.ttl.Milliseconds(), 10)
	return i.publisher.Publish(ctx, body, expiration)
}
