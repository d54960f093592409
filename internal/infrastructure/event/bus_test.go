package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/erp/quotefinance/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recordingHandler struct {
	mu     sync.Mutex
	types  []string
	seen   []string
	err    error
	panics bool
}

func (h *recordingHandler) Handle(ctx context.Context, e shared.DomainEvent) error {
	h.mu.Lock()
	h.seen = append(h.seen, e.EventType())
	h.mu.Unlock()
	if h.panics {
		panic("handler blew up")
	}
	return h.err
}

func (h *recordingHandler) EventTypes() []string { return h.types }

func (h *recordingHandler) received() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.seen...)
}

func newEvent(eventType string) shared.DomainEvent {
	e := shared.NewBaseDomainEvent(eventType, "Quote", uuid.New())
	return &e
}

func TestInMemoryEventBus_PublishRoutesByType(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	confirmed := &recordingHandler{types: []string{"QuoteConfirmed"}}
	all := &recordingHandler{}
	bus.Subscribe(confirmed)
	bus.Subscribe(all)

	err := bus.Publish(context.Background(),
		newEvent("QuoteConfirmed"),
		newEvent("PaymentSubmitted"),
	)

	require.NoError(t, err)
	assert.Equal(t, []string{"QuoteConfirmed"}, confirmed.received())
	assert.Equal(t, []string{"QuoteConfirmed", "PaymentSubmitted"}, all.received())
}

func TestInMemoryEventBus_ExplicitTypesOverrideHandler(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	h := &recordingHandler{types: []string{"QuoteConfirmed"}}
	bus.Subscribe(h, "PaymentConfirmed")

	require.NoError(t, bus.Publish(context.Background(), newEvent("QuoteConfirmed"), newEvent("PaymentConfirmed")))

	assert.Equal(t, []string{"PaymentConfirmed"}, h.received())
}

func TestInMemoryEventBus_FailingHandlerDoesNotStopDelivery(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	bus := NewInMemoryEventBus(zap.New(core))
	failing := &recordingHandler{types: []string{"InvoiceApplicationAudited"}, err: errors.New("redis unavailable")}
	panicking := &recordingHandler{types: []string{"InvoiceApplicationAudited"}, panics: true}
	healthy := &recordingHandler{types: []string{"InvoiceApplicationAudited"}}
	bus.Subscribe(failing)
	bus.Subscribe(panicking)
	bus.Subscribe(healthy)

	err := bus.Publish(context.Background(), newEvent("InvoiceApplicationAudited"))

	require.NoError(t, err)
	assert.Len(t, healthy.received(), 1)
	assert.Equal(t, 2, logs.FilterMessage("handler failed to process event").Len())
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	h := &recordingHandler{types: []string{"StatementReconciled"}}
	bus.Subscribe(h)
	bus.Unsubscribe(h)

	require.NoError(t, bus.Publish(context.Background(), newEvent("StatementReconciled")))

	assert.Empty(t, h.received())
}

func TestInMemoryEventBus_StartStop(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	assert.False(t, bus.IsRunning())

	require.NoError(t, bus.Start(context.Background()))
	assert.True(t, bus.IsRunning())

	require.NoError(t, bus.Stop(context.Background()))
	assert.False(t, bus.IsRunning())
}
