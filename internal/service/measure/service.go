package measure

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmehdipour/growth-tracker/internal/metrics"
	"github.com/jmehdipour/growth-tracker/internal/model"
	"github.com/jmehdipour/growth-tracker/internal/repository"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// SagaStarter publishes the compensating-transaction request to the profile
// service after a successful local commit.
type SagaStarter interface {
	Start(ctx context.Context, req model.SagaRequest) error
}

// Service implements the transactional outbox write path: one local
// transaction inserts the measurement and its outbox event, then the SAGA
// request is fired best-effort. A SAGA publish failure never rolls back the
// local commit; reconciliation belongs to the compensation listener.
type Service struct {
	db           *sqlx.DB
	measurements repository.MeasurementsRepository
	outbox       repository.OutboxRepository
	saga         SagaStarter
	logger       *zap.Logger
}

// New constructs the measurement service.
func New(
	db *sqlx.DB,
	measurementsRepo repository.MeasurementsRepository,
	outboxRepo repository.OutboxRepository,
	saga SagaStarter,
	logger *zap.Logger,
) *Service {
	return &Service{
		db:           db,
		measurements: measurementsRepo,
		outbox:       outboxRepo,
		saga:         saga,
		logger:       logger,
	}
}

// Create persists a measurement with status=pending and a matching
// measurement_created outbox event within a single transaction, then starts
// the SAGA leg. Returns the new measurement id.
func (s *Service) Create(ctx context.Context, childID int64, height float64, forceFailure bool) (int64, error) {
	now := time.Now()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	id, err := s.measurements.Insert(ctx, tx, model.Measurement{
		ChildID:    childID,
		Height:     height,
		RecordedAt: now,
	})
	if err != nil {
		return 0, fmt.Errorf("insert measurement: %w", err)
	}

	event := model.MeasurementCreatedEvent{
		MeasurementID: id,
		ChildID:       childID,
		Height:        height,
		Timestamp:     now.Format(time.RFC3339),
		Task:          model.TaskSendNotification,
		Text:          fmt.Sprintf("Measurement complete: child %d, height %.1fcm", childID, height),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return 0, fmt.Errorf("marshal event: %w", err)
	}

	if err := s.outbox.Insert(ctx, tx, model.EventMeasurementCreated, payload); err != nil {
		return 0, fmt.Errorf("insert outbox: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	metrics.MeasurementsTotal.WithLabelValues("created").Inc()

	// Best-effort: a failure here leaves the measurement pending until the
	// broker is reachable again. There is no re-drive for a request that
	// never reached the broker; the gap is logged and counted.
	req := model.SagaRequest{
		MeasurementID: id,
		ChildID:       childID,
		Height:        height,
		Timestamp:     now.Format(time.RFC3339),
		ForceFailure:  forceFailure,
	}
	if err := s.saga.Start(ctx, req); err != nil {
		metrics.SagaRequestsTotal.WithLabelValues("start_failed").Inc()
		s.logger.Error("saga start failed, measurement stays pending",
			zap.Int64("measurement_id", id),
			zap.Error(err),
		)
	} else {
		metrics.SagaRequestsTotal.WithLabelValues("started").Inc()
	}

	return id, nil
}
