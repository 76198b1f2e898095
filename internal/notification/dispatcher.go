package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront-be/internal/logger"
	"storefront-be/internal/metrics"
	"storefront-be/internal/order"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultPollInterval = 200 * time.Millisecond

type DispatcherConfig struct {
	From        string
	AdminEmail  string
	Delay       time.Duration
	MaxAttempts int
}

// Dispatcher queues order emails and sends them from a single worker.
// The customer email is always due before the admin email.
type Dispatcher struct {
	queue    Queue
	sender   Sender
	renderer *Renderer
	metrics  *metrics.Registry

	from         string
	adminEmail   string
	delay        time.Duration
	maxAttempts  int
	pollInterval time.Duration
	now          func() time.Time
}

func NewDispatcher(q Queue, sender Sender, renderer *Renderer, reg *metrics.Registry, cfg DispatcherConfig) *Dispatcher {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	return &Dispatcher{
		queue:        q,
		sender:       sender,
		renderer:     renderer,
		metrics:      reg,
		from:         cfg.From,
		adminEmail:   cfg.AdminEmail,
		delay:        cfg.Delay,
		maxAttempts:  cfg.MaxAttempts,
		pollInterval: defaultPollInterval,
		now:          time.Now,
	}
}

// NotifyOrderPlaced enqueues the customer confirmation and, when an admin
// address is configured, the admin notification after the configured delay.
func (d *Dispatcher) NotifyOrderPlaced(ctx context.Context, o *order.Order) error {
	now := d.now()

	jobs := []Job{{
		ID:        uuid.New().String(),
		Kind:      KindOrderConfirmation,
		To:        o.CustomerEmail,
		Order:     o,
		NotBefore: now,
	}}
	if d.adminEmail != "" {
		jobs = append(jobs, Job{
			ID:        uuid.New().String(),
			Kind:      KindAdminNewOrder,
			To:        d.adminEmail,
			Order:     o,
			NotBefore: now.Add(d.delay),
		})
	}

	var errs []error
	for _, job := range jobs {
		if err := d.queue.Enqueue(ctx, job); err != nil {
			errs = append(errs, fmt.Errorf("enqueue %s: %w", job.Kind, err))
			continue
		}
		d.metrics.Inc(metrics.NotificationsQueued)
	}
	return errors.Join(errs...)
}

// Run processes jobs until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	log := logger.L().With(zap.String("component", "notification_worker"))
	log.Info("notification worker started")

	if n, err := d.queue.Recover(ctx); err != nil {
		log.Error("failed to recover in-flight notifications", zap.Error(err))
	} else if n > 0 {
		log.Warn("requeued unacknowledged notifications", zap.Int("count", n))
	}

	for {
		select {
		case <-ctx.Done():
			log.Info("notification worker stopped")
			return nil
		default:
		}

		job, err := d.queue.Dequeue(ctx)
		if err != nil {
			log.Error("failed to dequeue notification", zap.Error(err))
			if !d.sleep(ctx, time.Second) {
				return nil
			}
			continue
		}
		if job == nil {
			if !d.sleep(ctx, d.pollInterval) {
				return nil
			}
			continue
		}

		d.process(ctx, job)
	}
}

func (d *Dispatcher) sleep(ctx context.Context, dur time.Duration) bool {
	t := time.NewTimer(dur)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (d *Dispatcher) process(ctx context.Context, job *Job) {
	log := logger.L().With(
		zap.String("component", "notification_worker"),
		zap.String("job_id", job.ID),
		zap.String("kind", string(job.Kind)),
	)
	if job.Order != nil {
		log = log.With(zap.String("order_number", job.Order.OrderNumber))
	}

	defer func() {
		if err := d.queue.Ack(context.WithoutCancel(ctx), job.ID); err != nil {
			log.Warn("failed to ack notification", zap.Error(err))
		}
	}()

	job.Attempt++
	err := d.send(ctx, job)
	if err == nil {
		d.metrics.Inc(metrics.NotificationsSent)
		log.Info("notification sent", zap.Int("attempt", job.Attempt))
		return
	}

	if job.Attempt >= d.maxAttempts {
		d.metrics.Inc(metrics.NotificationsFailed)
		log.Error("notification failed permanently", zap.Int("attempt", job.Attempt), zap.Error(err))
		return
	}

	retry := *job
	retry.NotBefore = d.now().Add(d.backoff(job.Attempt))
	if err := d.queue.Enqueue(context.WithoutCancel(ctx), retry); err != nil {
		d.metrics.Inc(metrics.NotificationsFailed)
		log.Error("failed to requeue notification", zap.Error(err))
		return
	}
	log.Warn("notification failed, retry scheduled",
		zap.Int("attempt", job.Attempt),
		zap.Time("not_before", retry.NotBefore),
		zap.Error(err),
	)
}

func (d *Dispatcher) backoff(attempt int) time.Duration {
	base := d.delay
	if base <= 0 {
		base = time.Second
	}
	return base * time.Duration(1<<(attempt-1))
}

func (d *Dispatcher) send(ctx context.Context, job *Job) error {
	if job.Order == nil {
		return errors.New("job has no order")
	}
	if job.To == "" {
		return errors.New("job has no recipient")
	}

	subject, body, err := d.renderer.Render(job.Kind, job.Order)
	if err != nil {
		return err
	}

	return d.sender.Send(ctx, Email{
		From:    d.from,
		To:      job.To,
		Subject: subject,
		HTML:    body,
	})
}
