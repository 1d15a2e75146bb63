// Mail relay consumes welcome messages queued on Kafka by the provisioner
// and delivers them over SMTP.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gartstein/tenantprov/internal/provisioning/config"
	"github.com/gartstein/tenantprov/internal/provisioning/notify"
	"go.uber.org/zap"
)

func main() {
	logger, _ := zap.NewProduction()
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	relay := notify.NewRelay(cfg.KafkaBrokers, cfg.RelayGroupID, cfg.MailTopic, notify.NewSMTPTransport(cfg.SMTP()), logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Mail relay running",
		zap.Strings("brokers", cfg.KafkaBrokers),
		zap.String("topic", cfg.MailTopic),
		zap.String("group_id", cfg.RelayGroupID),
	)
	relay.Run(ctx)

	relay.Close()
	logger.Info("Mail relay stopped")
}
