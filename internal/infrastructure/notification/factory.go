package notification

import (
	"fmt"

	quoteapp "github.com/erp/quotefinance/internal/application/quote"
	"github.com/erp/quotefinance/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Driver names accepted in notification.driver
const (
	DriverLog   = "log"
	DriverRedis = "redis"
)

// New builds the notifier selected by configuration. The returned close
// function releases any connection the notifier owns.
func New(cfg config.NotificationConfig, redisCfg config.RedisConfig, l *zap.Logger) (quoteapp.Notifier, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Driver {
	case "", DriverLog:
		return NewLogNotifier(l), noop, nil
	case DriverRedis:
		client, err := NewRedisClient(redisCfg)
		if err != nil {
			return nil, noop, err
		}
		n, err := NewRedisNotifier(client, cfg.Channel, WithLogger(l))
		if err != nil {
			_ = client.Close()
			return nil, noop, err
		}
		return n, client.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown notification driver %q", cfg.Driver)
	}
}
