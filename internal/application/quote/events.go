package quote

import (
	"context"

	"github.com/erp/quotefinance/internal/domain/shared"
	"go.uber.org/zap"
)

// eventBuffer collects domain events raised inside a transaction. They are
// only published once the transaction has committed.
type eventBuffer struct {
	events []shared.DomainEvent
}

func (b *eventBuffer) collect(aggregates ...shared.AggregateRoot) {
	for _, agg := range aggregates {
		if agg == nil {
			continue
		}
		b.events = append(b.events, agg.GetDomainEvents()...)
		agg.ClearDomainEvents()
	}
}

// eventPublishing is embedded by the services to share the post-commit publish step
type eventPublishing struct {
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// SetEventPublisher sets the event publisher for publishing domain events
func (p *eventPublishing) SetEventPublisher(publisher shared.EventPublisher) {
	p.eventPublisher = publisher
}

func (p *eventPublishing) publish(ctx context.Context, buf *eventBuffer) {
	if p.eventPublisher == nil || len(buf.events) == 0 {
		return
	}
	// Failures here must not surface: the transaction is already committed.
	if err := p.eventPublisher.Publish(ctx, buf.events...); err != nil {
		p.logger.Warn("failed to publish domain events",
			zap.Int("count", len(buf.events)),
			zap.Error(err),
		)
	}
}

func nopIfNil(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
