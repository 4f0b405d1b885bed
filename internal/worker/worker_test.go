package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"order-management-service/internal/broker"
	"order-management-service/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type queueReader struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	committed int
	closed    bool
}

func (r *queueReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.msgs) > 0 {
		m := r.msgs[0]
		r.msgs = r.msgs[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *queueReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed += len(msgs)
	return nil
}

func (r *queueReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

type recordingApplier struct {
	mu     sync.Mutex
	events []models.PaymentEvent
}

func (a *recordingApplier) ApplyPaymentStatus(_ context.Context, e *models.PaymentEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, *e)
	return nil
}

func (a *recordingApplier) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.events)
}

func TestPaymentWorker_AppliesEvents(t *testing.T) {
	reader := &queueReader{msgs: []kafka.Message{
		{Offset: 1, Value: []byte(`{"paymentId":"p-1","orderId":"5","status":"SUCCESS"}`)},
		{Offset: 2, Value: []byte(`garbage`)},
		{Offset: 3, Value: []byte(`{"paymentId":"p-2","orderId":"6","status":"FAILED"}`)},
	}}
	applier := &recordingApplier{}
	w := NewPaymentWorker(broker.NewConsumerWithReader(reader, "payment-created-topic"), applier)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	require.Eventually(t, func() bool { return applier.count() == 2 }, time.Second, 10*time.Millisecond)
	cancel()
	<-done
	require.NoError(t, w.Stop())

	assert.Equal(t, "5", applier.events[0].OrderID)
	assert.Equal(t, "FAILED", applier.events[1].Status)
	assert.Equal(t, 3, reader.committed, "malformed messages are committed too")
	assert.True(t, reader.closed)
}
