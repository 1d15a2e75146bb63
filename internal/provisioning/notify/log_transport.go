package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogTransport records messages instead of delivering them. Bodies are not
// logged because they carry credentials.
type LogTransport struct {
	logger *zap.Logger
}

func NewLogTransport(logger *zap.Logger) *LogTransport {
	return &LogTransport{logger: logger.Named("log_transport")}
}

func (t *LogTransport) Send(_ context.Context, msg Message) error {
	t.logger.Info("Notification suppressed",
		zap.String("kind", string(msg.Kind)),
		zap.String("business_id", msg.BusinessID),
		zap.String("subject", msg.Subject),
	)
	return nil
}

func (t *LogTransport) Close() error {
	return nil
}
