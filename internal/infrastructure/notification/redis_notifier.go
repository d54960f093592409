package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	quoteapp "github.com/erp/quotefinance/internal/application/quote"
	"github.com/erp/quotefinance/internal/infrastructure/config"
	"github.com/erp/quotefinance/internal/infrastructure/telemetry"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const pingTimeout = 5 * time.Second

// Publisher is the subset of redis.UniversalClient used for delivery
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Message is the JSON payload published for each notification
type Message struct {
	quoteapp.Notification
	SentAt time.Time `json:"sent_at"`
}

// RedisNotifier publishes notifications on a Redis pub/sub channel
type RedisNotifier struct {
	client  Publisher
	channel string
	logger  *zap.Logger
	now     func() time.Time
}

// RedisNotifierOption is a functional option for configuring the notifier
type RedisNotifierOption func(*RedisNotifier)

// WithLogger sets the logger for the notifier
func WithLogger(l *zap.Logger) RedisNotifierOption {
	return func(n *RedisNotifier) {
		n.logger = l
	}
}

// WithClock overrides the timestamp source
func WithClock(now func() time.Time) RedisNotifierOption {
	return func(n *RedisNotifier) {
		n.now = now
	}
}

// NewRedisNotifier creates a notifier publishing on channel
func NewRedisNotifier(client Publisher, channel string, opts ...RedisNotifierOption) (*RedisNotifier, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if channel == "" {
		return nil, errors.New("notification channel is required")
	}
	n := &RedisNotifier{
		client:  client,
		channel: channel,
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// Notify implements quoteapp.Notifier
func (n *RedisNotifier) Notify(ctx context.Context, msg quoteapp.Notification) error {
	ctx, span := telemetry.StartSpan(ctx, "notification.publish",
		telemetry.WithAttribute("messaging.system", "redis"),
		telemetry.WithAttribute("messaging.destination.name", n.channel),
		telemetry.WithSpanKind(trace.SpanKindProducer),
	)
	defer span.End()

	payload, err := json.Marshal(Message{Notification: msg, SentAt: n.now().UTC()})
	if err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("marshal notification: %w", err)
	}

	receivers, err := n.client.Publish(ctx, n.channel, payload).Result()
	if err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("publish notification to %s: %w", n.channel, err)
	}
	if receivers == 0 {
		n.logger.Debug("notification published without subscribers",
			zap.String("channel", n.channel),
			zap.String("user_id", msg.UserID.String()),
		)
	}
	return nil
}

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

var _ quoteapp.Notifier = (*RedisNotifier)(nil)
