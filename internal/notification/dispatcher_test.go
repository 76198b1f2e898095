package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"storefront-be/internal/metrics"
	"storefront-be/internal/order"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	mu    sync.Mutex
	sent  []Email
	fails int
}

func (s *recordingSender) Send(_ context.Context, email Email) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fails > 0 {
		s.fails--
		return errors.New("provider throttled")
	}
	s.sent = append(s.sent, email)
	return nil
}

func (s *recordingSender) Sent() []Email {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Email, len(s.sent))
	copy(out, s.sent)
	return out
}

type brokenQueue struct {
	*MemoryQueue
}

func (brokenQueue) Enqueue(context.Context, Job) error {
	return errors.New("queue unavailable")
}

func sampleOrder() *order.Order {
	return &order.Order{
		ID:            "o1",
		OrderNumber:   "ORD-20260101-120000-000-0001",
		CustomerID:    "user-1",
		CustomerName:  "Ada",
		CustomerEmail: "ada@example.com",
		Items: []order.OrderItem{
			{ProductID: "p1", ProductName: "Tee", Quantity: 2, Price: 10, Total: 20, Color: "Red"},
		},
		Subtotal:      20,
		Tax:           2,
		TotalAmount:   22,
		Status:        order.StatusPending,
		PaymentStatus: order.PaymentPending,
	}
}

func newTestDispatcher(t *testing.T, q Queue, sender Sender, cfg DispatcherConfig) (*Dispatcher, *metrics.Registry) {
	t.Helper()
	renderer, err := NewRenderer()
	require.NoError(t, err)
	reg := metrics.NewRegistry()
	d := NewDispatcher(q, sender, renderer, reg, cfg)
	d.pollInterval = 5 * time.Millisecond
	return d, reg
}

func runDispatcher(t *testing.T, d *Dispatcher) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = d.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestDispatcher_NotifyOrderPlaced(t *testing.T) {
	t.Run("Customer job due first", func(t *testing.T) {
		q := NewMemoryQueue()
		d, reg := newTestDispatcher(t, q, &recordingSender{}, DispatcherConfig{AdminEmail: "admin@shop.test", Delay: time.Hour})

		require.NoError(t, d.NotifyOrderPlaced(context.Background(), sampleOrder()))
		assert.Equal(t, 2, q.Len())
		assert.Equal(t, uint64(2), reg.Snapshot()[metrics.NotificationsQueued])

		job, err := q.Dequeue(context.Background())
		require.NoError(t, err)
		require.NotNil(t, job)
		assert.Equal(t, KindOrderConfirmation, job.Kind)
		assert.Equal(t, "ada@example.com", job.To)

		job, err = q.Dequeue(context.Background())
		require.NoError(t, err)
		assert.Nil(t, job, "admin job waits for the delay")
	})

	t.Run("No admin address", func(t *testing.T) {
		q := NewMemoryQueue()
		d, _ := newTestDispatcher(t, q, &recordingSender{}, DispatcherConfig{})

		require.NoError(t, d.NotifyOrderPlaced(context.Background(), sampleOrder()))
		assert.Equal(t, 1, q.Len())
	})

	t.Run("Enqueue failure is returned", func(t *testing.T) {
		d, _ := newTestDispatcher(t, brokenQueue{NewMemoryQueue()}, &recordingSender{}, DispatcherConfig{AdminEmail: "admin@shop.test"})

		err := d.NotifyOrderPlaced(context.Background(), sampleOrder())
		assert.ErrorContains(t, err, "queue unavailable")
	})
}

func TestDispatcher_Run(t *testing.T) {
	t.Run("Sends customer then admin", func(t *testing.T) {
		q := NewMemoryQueue()
		sender := &recordingSender{}
		d, reg := newTestDispatcher(t, q, sender, DispatcherConfig{
			From:       "orders@shop.test",
			AdminEmail: "admin@shop.test",
			Delay:      30 * time.Millisecond,
		})

		require.NoError(t, d.NotifyOrderPlaced(context.Background(), sampleOrder()))
		runDispatcher(t, d)

		require.Eventually(t, func() bool { return len(sender.Sent()) == 2 }, 2*time.Second, 5*time.Millisecond)

		sent := sender.Sent()
		assert.Equal(t, "ada@example.com", sent[0].To)
		assert.Equal(t, "admin@shop.test", sent[1].To)
		assert.Equal(t, "orders@shop.test", sent[0].From)
		assert.Contains(t, sent[0].Subject, "ORD-20260101-120000-000-0001")
		assert.Equal(t, uint64(2), reg.Snapshot()[metrics.NotificationsSent])
	})

	t.Run("Retries transient failures", func(t *testing.T) {
		q := NewMemoryQueue()
		sender := &recordingSender{fails: 1}
		d, reg := newTestDispatcher(t, q, sender, DispatcherConfig{Delay: 5 * time.Millisecond, MaxAttempts: 3})

		require.NoError(t, d.NotifyOrderPlaced(context.Background(), sampleOrder()))
		runDispatcher(t, d)

		require.Eventually(t, func() bool { return len(sender.Sent()) == 1 }, 2*time.Second, 5*time.Millisecond)
		assert.Equal(t, uint64(0), reg.Snapshot()[metrics.NotificationsFailed])
	})

	t.Run("Gives up after max attempts", func(t *testing.T) {
		q := NewMemoryQueue()
		sender := &recordingSender{fails: 100}
		d, reg := newTestDispatcher(t, q, sender, DispatcherConfig{Delay: 5 * time.Millisecond, MaxAttempts: 2})

		require.NoError(t, d.NotifyOrderPlaced(context.Background(), sampleOrder()))
		runDispatcher(t, d)

		require.Eventually(t, func() bool {
			return reg.Snapshot()[metrics.NotificationsFailed] == 1
		}, 2*time.Second, 5*time.Millisecond)
		assert.Empty(t, sender.Sent())
		assert.Equal(t, 0, q.Len())
	})

	t.Run("Requeues jobs claimed before a crash", func(t *testing.T) {
		q := NewMemoryQueue()
		require.NoError(t, q.Enqueue(context.Background(), Job{
			ID:        "job-1",
			Kind:      KindOrderConfirmation,
			To:        "ada@example.com",
			Order:     sampleOrder(),
			NotBefore: time.Now(),
		}))
		claimed, err := q.Dequeue(context.Background())
		require.NoError(t, err)
		require.NotNil(t, claimed)

		sender := &recordingSender{}
		d, _ := newTestDispatcher(t, q, sender, DispatcherConfig{})
		runDispatcher(t, d)

		require.Eventually(t, func() bool { return len(sender.Sent()) == 1 }, 2*time.Second, 5*time.Millisecond)
		assert.Equal(t, "ada@example.com", sender.Sent()[0].To)
	})

	t.Run("Stops on cancel", func(t *testing.T) {
		d, _ := newTestDispatcher(t, NewMemoryQueue(), &recordingSender{}, DispatcherConfig{})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		assert.NoError(t, d.Run(ctx))
	})
}
