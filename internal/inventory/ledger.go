package inventory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"storefront-be/internal/logger"
	"storefront-be/internal/metrics"
	"storefront-be/internal/product"

	"go.uber.org/zap"
)

// Store is the inventory collaborator. DecrementColorStock must be an
// atomic bounded decrement: it fails instead of taking stock below zero.
type Store interface {
	GetByID(ctx context.Context, id string) (*product.Product, error)
	DecrementColorStock(ctx context.Context, productID, color string, qty int) error
	IncrementColorStock(ctx context.Context, productID, color string, qty int) error
}

// Adjustment is one applied decrement, kept to drive compensation.
type Adjustment struct {
	ProductID string
	Color     string
	Quantity  int
}

type Item struct {
	ProductID   string
	ProductName string
	Color       string
	Quantity    int
}

type CompensationReport struct {
	Skipped  bool
	Restored int
	Failed   []Adjustment
}

// Ledger records the inventory reserved by one order and can undo it once.
// It is owned by a single order-creation call.
type Ledger struct {
	store   Store
	timeout time.Duration
	metrics *metrics.Registry

	mu          sync.Mutex
	entries     []Adjustment
	compensated bool
}

func NewLedger(store Store, timeout time.Duration, m *metrics.Registry) *Ledger {
	return &Ledger{store: store, timeout: timeout, metrics: m}
}

func (l *Ledger) call(ctx context.Context, fn func(ctx context.Context) error) error {
	if l.timeout <= 0 {
		return fn(ctx)
	}
	callCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	return fn(callCtx)
}

// Reserve checks the item against the current product and applies a
// bounded decrement. On success the adjustment is appended to the ledger.
// Stock problems are returned as *StockError; anything else is a store failure.
func (l *Ledger) Reserve(ctx context.Context, item Item) error {
	l.mu.Lock()
	closed := l.compensated
	l.mu.Unlock()
	if closed {
		return ErrLedgerClosed
	}

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "inventory"),
		zap.String("product_id", item.ProductID),
		zap.String("color", item.Color),
		zap.Int("quantity", item.Quantity),
	)

	var p *product.Product
	err := l.call(ctx, func(ctx context.Context) error {
		var err error
		p, err = l.store.GetByID(ctx, item.ProductID)
		return err
	})
	if errors.Is(err, product.ErrProductNotFound) {
		return &StockError{Reason: ReasonProductNotFound, ProductID: item.ProductID, ProductName: item.ProductName}
	}
	if err != nil {
		return fmt.Errorf("load product %s: %w", item.ProductID, err)
	}

	stockErr := &StockError{
		ProductID:   p.ID,
		ProductName: p.Name,
		Color:       item.Color,
		Requested:   item.Quantity,
	}

	if len(p.Colors) == 0 {
		stockErr.Reason = ReasonNoVariants
		return stockErr
	}
	if item.Color == "" {
		stockErr.Reason = ReasonColorRequired
		return stockErr
	}
	variant, ok := p.Color(item.Color)
	if !ok {
		stockErr.Reason = ReasonColorNotFound
		return stockErr
	}
	if variant.Stock < item.Quantity {
		stockErr.Reason = ReasonInsufficient
		stockErr.Available = variant.Stock
		return stockErr
	}

	err = l.call(ctx, func(ctx context.Context) error {
		return l.store.DecrementColorStock(ctx, p.ID, item.Color, item.Quantity)
	})

	var shortage *product.ShortageError
	switch {
	case err == nil:
	case errors.As(err, &shortage):
		// Another order took the stock between the read and the decrement.
		log.Info("stock changed concurrently", zap.Int("available", shortage.Available))
		stockErr.Reason = ReasonInsufficient
		stockErr.Available = shortage.Available
		return stockErr
	case errors.Is(err, product.ErrColorNotFound):
		stockErr.Reason = ReasonColorNotFound
		return stockErr
	case errors.Is(err, product.ErrProductNotFound):
		stockErr.Reason = ReasonProductNotFound
		return stockErr
	default:
		return fmt.Errorf("decrement %s/%s: %w", p.ID, item.Color, err)
	}

	l.mu.Lock()
	l.entries = append(l.entries, Adjustment{ProductID: p.ID, Color: item.Color, Quantity: item.Quantity})
	l.mu.Unlock()

	l.metrics.Inc(metrics.InventoryReservations)
	log.Debug("inventory reserved")
	return nil
}

func (l *Ledger) Entries() []Adjustment {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Adjustment, len(l.entries))
	copy(out, l.entries)
	return out
}

// Compensate restores every recorded adjustment. It runs at most once per
// ledger; later calls are no-ops. Individual failures are logged and the
// remaining entries are still attempted.
func (l *Ledger) Compensate(ctx context.Context) CompensationReport {
	ctx = context.WithoutCancel(ctx)
	log := logger.FromCtx(ctx).With(zap.String("layer", "inventory"), zap.String("method", "Compensate"))

	l.mu.Lock()
	if l.compensated {
		l.mu.Unlock()
		log.Warn("compensation already executed, skipping")
		return CompensationReport{Skipped: true}
	}
	l.compensated = true
	entries := make([]Adjustment, len(l.entries))
	copy(entries, l.entries)
	l.mu.Unlock()

	var report CompensationReport
	for _, adj := range entries {
		err := l.call(ctx, func(ctx context.Context) error {
			return l.store.IncrementColorStock(ctx, adj.ProductID, adj.Color, adj.Quantity)
		})
		if err != nil {
			l.metrics.Inc(metrics.RollbackFailures)
			log.Error("inventory rollback failed",
				zap.String("product_id", adj.ProductID),
				zap.String("color", adj.Color),
				zap.Int("quantity", adj.Quantity),
				zap.Error(err),
			)
			report.Failed = append(report.Failed, adj)
			continue
		}
		report.Restored++
		l.metrics.Inc(metrics.InventoryRollbacks)
	}

	if len(entries) > 0 {
		log.Info("inventory compensation finished",
			zap.Int("restored", report.Restored),
			zap.Int("failed", len(report.Failed)),
		)
	}
	return report
}
