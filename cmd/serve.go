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
	"github.com/jmehdipour/growth-tracker/internal/service/measure"
	"github.com/jmehdipour/growth-tracker/internal/worker"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run measurement service (HTTP API + outbox publisher + compensation listener)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger.Init(cfg.Log.Level)

		dbx, err := db.NewMySQLConnection(cfg.MeasurementDB.DSN, db.MySQLOpts{
			MaxOpenConns:    cfg.MeasurementDB.MaxOpenConns,
			MaxIdleConns:    cfg.MeasurementDB.MaxIdleConns,
			ConnMaxLifetime: cfg.MeasurementDB.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.MeasurementDB.ConnMaxIdleTime,
			PingTimeout:     cfg.MeasurementDB.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer dbx.Close()

		var rds *redis.Client
		if cfg.Redis.Addr != "" {
			rds, err = db.NewRedisClient(db.RedisOpts{
				Addr:        cfg.Redis.Addr,
				Password:    cfg.Redis.Password,
				DB:          cfg.Redis.DB,
				DialTimeout: cfg.Redis.DialTimeout,
			})
			if err != nil {
				return fmt.Errorf("redis connect: %w", err)
			}
			defer func() { _ = rds.Close() }()
		}

		bcfg := broker.Config{
			URL:             cfg.RabbitMQ.URL,
			ConnectAttempts: cfg.RabbitMQ.ConnectAttempts,
			ConnectBackoff:  cfg.RabbitMQ.ConnectBackoff,
		}

		measurementsRepo := repository.NewMeasurementsRepository(dbx)
		outboxRepo := repository.NewOutboxRepository(dbx)
		store := repository.NewOutboxStore(dbx, measurementsRepo, outboxRepo)

		// The request path must not block on broker downtime: single dial
		// attempt, failures are swallowed by the service as best-effort.
		sagaCfg := bcfg
		sagaCfg.ConnectAttempts = 1
		sagaPub := broker.NewPublisher(sagaCfg, broker.ProfileUpdateQueue, broker.DeclareSagaTopology, logger.Log)
		defer sagaPub.Close()
		initiator := measure.NewInitiator(sagaPub, cfg.Saga.MessageTTL)

		svc := measure.New(dbx, measurementsRepo, outboxRepo, initiator, logger.Log)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// Outbox publisher worker.
		notifyPub := broker.NewPublisher(bcfg, broker.NotifyQueue, broker.DeclareNotifyTopology, logger.Log)
		defer notifyPub.Close()

		outboxWorker := worker.NewOutboxPublisher(store, notifyPub, logger.Log)
		if cfg.Outbox.PollInterval > 0 {
			outboxWorker.PollInterval = cfg.Outbox.PollInterval
		}
		if cfg.Outbox.BatchSize > 0 {
			outboxWorker.BatchSize = cfg.Outbox.BatchSize
		}
		go func() {
			if err := outboxWorker.Run(ctx); err != nil {
				logger.Log.Error("outbox publisher stopped permanently", zap.Error(err))
			}
		}()

		// Compensation listener worker.
		compensator := worker.NewCompensator(store, logger.Log)
		go func() {
			err := broker.RunConsumer(ctx, bcfg, logger.Log,
				broker.ProfileSagaDLQ, 1, broker.DeclareSagaTopology, compensator.Run)
			if err != nil {
				logger.Log.Error("compensation listener stopped permanently", zap.Error(err))
			}
		}()

		server := httpSrv.NewMeasurementServer(cfg, dbx, rds, svc)

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start(cfg.MeasurementHTTP.Addr)
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
