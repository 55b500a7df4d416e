package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmehdipour/growth-tracker/internal/broker"
	"github.com/jmehdipour/growth-tracker/internal/config"
	"github.com/jmehdipour/growth-tracker/internal/db"
	httpSrv "github.com/jmehdipour/growth-tracker/internal/http"
	"github.com/jmehdipour/growth-tracker/internal/logger"
	"github.com/jmehdipour/growth-tracker/internal/repository"
	"github.com/jmehdipour/growth-tracker/internal/worker"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Run child-profile service (HTTP API + SAGA participant consumer)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger.Init(cfg.Log.Level)

		dbx, err := db.NewMySQLConnection(cfg.ProfileDB.DSN, db.MySQLOpts{
			MaxOpenConns:    cfg.ProfileDB.MaxOpenConns,
			MaxIdleConns:    cfg.ProfileDB.MaxIdleConns,
			ConnMaxLifetime: cfg.ProfileDB.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.ProfileDB.ConnMaxIdleTime,
			PingTimeout:     cfg.ProfileDB.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer dbx.Close()

		bcfg := broker.Config{
			URL:             cfg.RabbitMQ.URL,
			ConnectAttempts: cfg.RabbitMQ.ConnectAttempts,
			ConnectBackoff:  cfg.RabbitMQ.ConnectBackoff,
		}

		profilesRepo := repository.NewProfilesRepository(dbx)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// SAGA participant consumer: prefetch 1, reject-no-requeue on failure.
		consumer := worker.NewProfileConsumer(profilesRepo, logger.Log)
		go func() {
			err := broker.RunConsumer(ctx, bcfg, logger.Log,
				broker.ProfileUpdateQueue, 1, broker.DeclareSagaTopology, consumer.Run)
			if err != nil {
				logger.Log.Error("saga consumer stopped permanently", zap.Error(err))
			}
		}()

		server := httpSrv.NewProfileServer(dbx)

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start(cfg.ProfileHTTP.Addr)
		}()

		select {
		case <-ctx.Done():
			log.Printf("signal received, shutting down...")
		case err := <-errCh:
			if err != nil {
				log.Printf("http server exited: %v", err)
			}
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)

		return nil
	},
}
