package inventory

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kafkax "github.com/ariefcatur/clinic-orders/internal/kafka"
	"github.com/ariefcatur/clinic-orders/internal/orders"
	"github.com/ariefcatur/clinic-orders/internal/redisx"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []orders.Envelope
}

func (p *capturePublisher) PublishEvent(_ string, env orders.Envelope) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, env)
	return true
}

func newService(t *testing.T) (*Service, *miniredis.Miniredis, *capturePublisher) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	pub := &capturePublisher{}
	return &Service{Redis: rdb, Alerts: pub, ServiceName: "stockwatch", Log: zerolog.Nop()}, mr, pub
}

func committed(levels ...orders.StockLevel) kafkago.Message {
	env := kafkax.NewEvent(orders.EventAdministrationCommitted, "clinic-api", "", "o1",
		orders.AdministrationCommittedPayload{OrderID: "o1", Remaining: levels})
	return kafkago.Message{Value: kafkax.MustMarshal(env)}
}

func restocked(levels ...orders.StockLevel) kafkago.Message {
	env := kafkax.NewEvent(orders.EventStockRestocked, "clinic-api", "", "",
		orders.StockRestockedPayload{Levels: levels})
	return kafkago.Message{Value: kafkax.MustMarshal(env)}
}

func TestHandleMessage_RaisesAlertWhenStockTurnsLow(t *testing.T) {
	svc, mr, pub := newService(t)
	ctx := context.Background()

	require.NoError(t, svc.HandleMessage(ctx, committed(orders.StockLevel{MedicineID: "m1", Name: "Analgin", Stock: 3})))

	require.Len(t, pub.events, 1)
	assert.Equal(t, orders.EventStockLow, pub.events[0].EventType)
	p, err := kafkax.UnwrapPayload[orders.StockLowPayload](pub.events[0].Payload)
	require.NoError(t, err)
	assert.Equal(t, orders.StockLowPayload{MedicineID: "m1", Name: "Analgin", Stock: 3, Threshold: 5, Status: orders.StockLow}, p)

	ok, err := mr.SIsMember(redisx.KeyStockLow, "m1")
	require.NoError(t, err)
	assert.True(t, ok)

	// staying low does not alert again, going empty does
	require.NoError(t, svc.HandleMessage(ctx, committed(orders.StockLevel{MedicineID: "m1", Stock: 2})))
	assert.Len(t, pub.events, 1)
	require.NoError(t, svc.HandleMessage(ctx, committed(orders.StockLevel{MedicineID: "m1", Stock: 0})))
	assert.Len(t, pub.events, 2)
}

func TestHandleMessage_RestockClearsLowMark(t *testing.T) {
	svc, mr, pub := newService(t)
	ctx := context.Background()

	require.NoError(t, svc.HandleMessage(ctx, committed(orders.StockLevel{MedicineID: "m1", Stock: 1})))
	require.NoError(t, svc.HandleMessage(ctx, restocked(orders.StockLevel{MedicineID: "m1", Stock: 40})))

	ok, err := mr.SIsMember(redisx.KeyStockLow, "m1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Len(t, pub.events, 1)

	low, err := svc.LowStock(ctx)
	require.NoError(t, err)
	assert.Empty(t, low)
}

func TestHandleMessage_CustomThreshold(t *testing.T) {
	svc, _, pub := newService(t)
	threshold := 10

	require.NoError(t, svc.HandleMessage(context.Background(),
		committed(orders.StockLevel{MedicineID: "m3", Stock: 8, LowStockThreshold: &threshold})))
	require.Len(t, pub.events, 1)
}

func TestHandleMessage_DeduplicatesByEventID(t *testing.T) {
	svc, _, pub := newService(t)
	msg := committed(orders.StockLevel{MedicineID: "m1", Stock: 1})

	require.NoError(t, svc.HandleMessage(context.Background(), msg))
	require.NoError(t, svc.HandleMessage(context.Background(), msg))
	assert.Len(t, pub.events, 1)
}

func TestHandleMessage_IgnoresOtherEventsAndRejectsGarbage(t *testing.T) {
	svc, _, pub := newService(t)
	other := kafkax.NewEvent(orders.EventStockLow, "x", "", "", orders.StockLowPayload{})

	assert.NoError(t, svc.HandleMessage(context.Background(), kafkago.Message{Value: kafkax.MustMarshal(other)}))
	assert.Error(t, svc.HandleMessage(context.Background(), kafkago.Message{Value: []byte("{")}))
	assert.Empty(t, pub.events)
}
