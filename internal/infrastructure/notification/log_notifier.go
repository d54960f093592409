// Package notification delivers user notifications raised by finance
// decisions. LogNotifier writes them to the application log; RedisNotifier
// publishes them on a pub/sub channel for the messaging gateway.
package notification

import (
	"context"

	quoteapp "github.com/erp/quotefinance/internal/application/quote"
	"github.com/erp/quotefinance/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// LogNotifier logs every notification at Info level
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a new LogNotifier
func NewLogNotifier(l *zap.Logger) *LogNotifier {
	if l == nil {
		l = zap.NewNop()
	}
	return &LogNotifier{logger: l}
}

// Notify implements quoteapp.Notifier
func (n *LogNotifier) Notify(ctx context.Context, msg quoteapp.Notification) error {
	logger.Enrich(ctx, n.logger).Info("notification",
		zap.String("user_id", msg.UserID.String()),
		zap.String("title", msg.Title),
		zap.String("body", msg.Body),
		zap.String("link", msg.Link),
	)
	return nil
}

var _ quoteapp.Notifier = (*LogNotifier)(nil)
