package http

import (
	"encoding/json"
	"net/http"

	"github.com/jmehdipour/growth-tracker/internal/model"
	"github.com/jmehdipour/growth-tracker/internal/repository"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

type outboxRow struct {
	ID           int64              `json:"id"`
	EventType    string             `json:"event_type"`
	Payload      json.RawMessage    `json:"payload"`
	PublishState model.PublishState `json:"publish_state"`
	CreatedAt    string             `json:"created_at"`
}

// dbDataHandler is the read-only debug introspection of the outbox store.
func dbDataHandler(measurements repository.MeasurementsRepository, outbox repository.OutboxRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		rows, err := measurements.List(ctx)
		if err != nil {
			log.Errorf("list measurements failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"status": "error"})
		}

		events, err := outbox.List(ctx)
		if err != nil {
			log.Errorf("list outbox failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"status": "error"})
		}

		unpublished := 0
		eventRows := make([]outboxRow, 0, len(events))
		for _, ev := range events {
			if ev.PublishState == model.PublishStateUnpublished {
				unpublished++
			}
			eventRows = append(eventRows, outboxRow{
				ID:           ev.ID,
				EventType:    ev.EventType,
				Payload:      json.RawMessage(ev.Payload),
				PublishState: ev.PublishState,
				CreatedAt:    ev.CreatedAt.Format("2006-01-02T15:04:05"),
			})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"status": "ok",
			"measurements": map[string]any{
				"count": len(rows),
				"data":  rows,
			},
			"outbox": map[string]any{
				"count":             len(eventRows),
				"unpublished_count": unpublished,
				"data":              eventRows,
			},
		})
	}
}

// dbCheckHandler reports whether the expected tables exist.
func dbCheckHandler(dbx *sqlx.DB) echo.HandlerFunc {
	return func(c echo.Context) error {
		const q = `
			SELECT table_name FROM information_schema.tables
			WHERE table_schema = DATABASE() AND table_name IN ('measurements', 'outbox')
		`
		names := []string{}
		if err := dbx.SelectContext(c.Request().Context(), &names, q); err != nil {
			return c.JSON(http.StatusOK, map[string]any{"status": "error", "message": err.Error()})
		}

		found := map[string]bool{"measurements": false, "outbox": false}
		for _, n := range names {
			found[n] = true
		}

		return c.JSON(http.StatusOK, map[string]any{
			"status": "ok",
			"tables": found,
		})
	}
}
