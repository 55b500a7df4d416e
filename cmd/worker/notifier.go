package worker

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmehdipour/growth-tracker/internal/broker"
	"github.com/jmehdipour/growth-tracker/internal/config"
	"github.com/jmehdipour/growth-tracker/internal/logger"
	"github.com/jmehdipour/growth-tracker/internal/worker"
	"github.com/spf13/cobra"
)

var notifierCmd = &cobra.Command{
	Use:   "notifier",
	Short: "Consume measurement notifications from the notify queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger.Init(cfg.Log.Level)

		bcfg := broker.Config{
			URL:             cfg.RabbitMQ.URL,
			ConnectAttempts: cfg.RabbitMQ.ConnectAttempts,
			ConnectBackoff:  cfg.RabbitMQ.ConnectBackoff,
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log.Printf(">> notifier started queue=%s", broker.NotifyQueue)

		w := worker.NewNotifier(logger.Log, cfg.Notifier.DeliveryDelay)
		return broker.RunConsumer(ctx, bcfg, logger.Log,
			broker.NotifyQueue, 1, broker.DeclareNotifyTopology, w.Run)
	},
}
