package http

import (
	"context"
	"net/http"
	"time"

	"github.com/jmehdipour/growth-tracker/internal/config"
	"github.com/jmehdipour/growth-tracker/internal/http/middleware"
	"github.com/jmehdipour/growth-tracker/internal/metrics"
	"github.com/jmehdipour/growth-tracker/internal/repository"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

type Server struct{ e *echo.Echo }

// NewMeasurementServer wires the measurement service HTTP surface: the
// outbox write path plus read-only store introspection.
func NewMeasurementServer(cfg config.Config, dbx *sqlx.DB, rds *redis.Client, svc MeasurementCreator) *Server {
	measurementsRepo := repository.NewMeasurementsRepository(dbx)
	outboxRepo := repository.NewOutboxRepository(dbx)

	e := echo.New()
	e.HideBanner = true
	e.Use(echoMid.Recover(), echoMid.Logger())

	metrics.MustRegister(prometheus.DefaultRegisterer)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// health
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	rlMW := middleware.RateLimitMiddleware(middleware.RateLimitConfig{
		Redis:          rds,
		RPS:            cfg.RateLimit.RPS,
		KeyPrefix:      "rl:ip:",
		Window:         time.Second,
		RetryAfterHint: true,
	})

	// routes
	e.POST("/measure", measureHandler(svc), rlMW)
	e.GET("/db/data", dbDataHandler(measurementsRepo, outboxRepo))
	e.GET("/db/check", dbCheckHandler(dbx))

	return &Server{e: e}
}

// NewProfileServer wires the child-profile service HTTP surface.
func NewProfileServer(dbx *sqlx.DB) *Server {
	profilesRepo := repository.NewProfilesRepository(dbx)

	e := echo.New()
	e.HideBanner = true
	e.Use(echoMid.Recover(), echoMid.Logger())

	metrics.MustRegister(prometheus.DefaultRegisterer)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	e.GET("/profiles", listProfilesHandler(profilesRepo))
	e.PUT("/profiles/:child_id", updateProfileHandler(profilesRepo))

	return &Server{e: e}
}

func (s *Server) Start(addr string) error {
	log.Infof("http: listening on %s", addr)
	return s.e.Start(addr)
}
func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }
