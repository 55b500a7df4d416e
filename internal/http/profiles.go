package http

import (
	"net/http"
	"strconv"

	"github.com/jmehdipour/growth-tracker/internal/repository"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

func listProfilesHandler(profiles repository.ProfilesRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		rows, err := profiles.List(c.Request().Context())
		if err != nil {
			log.Errorf("list profiles failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"status": "error"})
		}
		return c.JSON(http.StatusOK, map[string]any{
			"service":  "child_profile_service",
			"profiles": rows,
		})
	}
}

// updateProfileHandler is the direct update path. force_error simulates a
// profile-side failure for testing the distributed rollback manually.
func updateProfileHandler(profiles repository.ProfilesRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		childID, err := strconv.ParseInt(c.Param("child_id"), 10, 64)
		if err != nil || childID <= 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid child_id"})
		}

		height, err := strconv.ParseFloat(c.QueryParam("height"), 64)
		if err != nil || height <= 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "height must be positive"})
		}

		if force, _ := strconv.ParseBool(c.QueryParam("force_error")); force {
			return c.JSON(http.StatusInternalServerError, map[string]string{
				"status": "error",
				"error":  "simulated profile update failure",
			})
		}

		if err := profiles.UpsertHeight(c.Request().Context(), childID, height); err != nil {
			log.Errorf("update profile %d failed: %v", childID, err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"status": "error"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"status":   "updated",
			"child_id": childID,
			"height":   height,
		})
	}
}
