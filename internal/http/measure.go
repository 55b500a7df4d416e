package http

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

// MeasurementCreator is the service surface the measure endpoint needs.
type MeasurementCreator interface {
	Create(ctx context.Context, childID int64, height float64, forceFailure bool) (int64, error)
}

type measureReq struct {
	ChildID      int64   `json:"child_id"`
	Height       float64 `json:"height"`
	ForceFailure bool    `json:"force_failure"`
}

func measureHandler(svc MeasurementCreator) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req measureReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}

		if req.ChildID <= 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "child_id is required"})
		}
		if req.Height <= 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "height must be positive"})
		}

		id, err := svc.Create(c.Request().Context(), req.ChildID, req.Height, req.ForceFailure)
		if err != nil {
			log.Errorf("create measurement failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"status": "error"})
		}

		return c.JSON(http.StatusCreated, map[string]any{
			"status":         "created",
			"measurement_id": id,
			"message":        "Measurement saved. Event queued in outbox for publishing. SAGA transaction started.",
		})
	}
}
