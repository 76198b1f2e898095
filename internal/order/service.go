package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront-be/internal/inventory"
	"storefront-be/internal/logger"
	"storefront-be/internal/metrics"
	"storefront-be/internal/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Notifier receives persisted orders. Its failures never fail the order.
type Notifier interface {
	NotifyOrderPlaced(ctx context.Context, o *Order) error
}

type Service interface {
	CreateOrder(ctx context.Context, req *CreateOrderRequest) (*Order, error)
	ListOrders(ctx context.Context, params ListOrdersParams) ([]*Order, error)
	GetOrderDetail(ctx context.Context, orderID, viewerID string, isAdmin bool) (*Order, error)
	UpdateStatus(ctx context.Context, orderID string, update StatusUpdate) (*Order, error)
}

type service struct {
	repo     Repository
	store    inventory.Store
	notifier Notifier
	metrics  *metrics.Registry
	timeout  time.Duration

	now            func() time.Time
	newOrderNumber func() string
}

func NewService(
	repo Repository,
	store inventory.Store,
	notifier Notifier,
	reg *metrics.Registry,
	storeTimeout time.Duration,
) Service {
	return &service{
		repo:           repo,
		store:          store,
		notifier:       notifier,
		metrics:        reg,
		timeout:        storeTimeout,
		now:            time.Now,
		newOrderNumber: utils.GenerateOrderNumber,
	}
}

// CreateOrder validates the request, reserves inventory item by item and
// persists the order. On any failure nothing is persisted and every
// reservation made by this call is compensated exactly once.
func (s *service) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "CreateOrder"),
	)

	timer := metrics.StartTimer()

	if err := req.Validate(); err != nil {
		s.metrics.Inc(metrics.OrdersRejected)
		log.Info("order request rejected", zap.Error(err))
		return nil, err
	}

	log = log.With(
		zap.String("customer_id", *req.CustomerID),
		zap.Int("item_count", len(req.Items)),
	)

	// Client disconnects must not leave reservations half-applied.
	ctx = context.WithoutCancel(ctx)

	ledger := inventory.NewLedger(s.store, s.timeout, s.metrics)

	for i, item := range req.Items {
		err := ledger.Reserve(ctx, inventory.Item{
			ProductID:   *item.ProductID,
			ProductName: *item.ProductName,
			Color:       strings.TrimSpace(item.Color),
			Quantity:    *item.Quantity,
		})
		if err == nil {
			continue
		}

		ledger.Compensate(ctx)

		var stockErr *inventory.StockError
		if errors.As(err, &stockErr) {
			s.metrics.Inc(metrics.OrdersRejected)
			log.Info("inventory reservation rejected",
				zap.Int("index", i),
				zap.String("reason", string(stockErr.Reason)),
				zap.Error(err),
			)
			return nil, stockErr
		}

		s.metrics.Inc(metrics.OrdersFailed)
		log.Error("inventory reservation failed", zap.Int("index", i), zap.Error(err))
		return nil, newPersistenceError("reserve inventory", err)
	}

	order := s.buildOrder(req)
	log = log.With(zap.String("order_id", order.ID), zap.String("order_number", order.OrderNumber))

	if err := s.persist(ctx, order); err != nil {
		report := ledger.Compensate(ctx)
		s.metrics.Inc(metrics.OrdersFailed)
		log.Error("failed to persist order",
			zap.Error(err),
			zap.Int("restored", report.Restored),
			zap.Int("rollback_failed", len(report.Failed)),
		)
		if errors.Is(err, ErrDuplicateOrderNumber) {
			return nil, ErrDuplicateOrderNumber
		}
		return nil, newPersistenceError("create order", err)
	}

	s.metrics.Inc(metrics.OrdersCreated)
	s.notify(ctx, order)

	log.Info("order created", zap.Duration("duration", timer.Duration()))
	return order, nil
}

func (s *service) persist(ctx context.Context, o *Order) error {
	if s.timeout <= 0 {
		return s.repo.Create(ctx, o)
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.repo.Create(ctx, o)
}

func (s *service) buildOrder(req *CreateOrderRequest) *Order {
	now := s.now().UTC()

	items := make([]OrderItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, OrderItem{
			ProductID:   *it.ProductID,
			ProductName: *it.ProductName,
			Quantity:    *it.Quantity,
			Price:       *it.Price,
			Total:       *it.Total,
			Color:       strings.TrimSpace(it.Color),
		})
	}

	o := &Order{
		ID:              uuid.New().String(),
		OrderNumber:     s.newOrderNumber(),
		CustomerID:      *req.CustomerID,
		CustomerName:    strings.TrimSpace(*req.CustomerName),
		CustomerEmail:   strings.TrimSpace(*req.CustomerEmail),
		Items:           items,
		ShippingAddress: *req.ShippingAddress,
		Subtotal:        *req.Subtotal,
		Tax:             *req.Tax,
		TotalAmount:     *req.TotalAmount,
		Status:          StatusPending,
		PaymentStatus:   PaymentPending,
		OrderDate:       now,
		Notes:           req.Notes,
	}
	if req.Status != nil {
		o.Status = *req.Status
	}
	if req.PaymentStatus != nil {
		o.PaymentStatus = *req.PaymentStatus
	}
	if req.OrderDate != nil && !req.OrderDate.IsZero() {
		o.OrderDate = req.OrderDate.UTC()
	}
	return o
}

// notify hands the order to the notifier. Errors and panics are logged only.
func (s *service) notify(ctx context.Context, o *Order) {
	if s.notifier == nil {
		return
	}

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "notify"),
		zap.String("order_id", o.ID),
	)

	defer func() {
		if r := recover(); r != nil {
			s.metrics.Inc(metrics.NotificationsFailed)
			log.Error("notifier panicked", zap.Any("panic", r))
		}
	}()

	if err := s.notifier.NotifyOrderPlaced(ctx, o); err != nil {
		s.metrics.Inc(metrics.NotificationsFailed)
		log.Warn("order notification failed", zap.Error(err))
	}
}

func (s *service) ListOrders(ctx context.Context, params ListOrdersParams) ([]*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "ListOrders"),
	)

	params.CustomerID = strings.TrimSpace(params.CustomerID)
	if params.CustomerID == "" {
		return nil, newValidationError("customerId is required")
	}
	if params.Status != "" && !params.Status.Valid() {
		return nil, newValidationError(fmt.Sprintf("Invalid status: %s", params.Status))
	}

	orders, err := s.repo.ListByCustomer(ctx, params)
	if err != nil {
		log.Error("failed to list orders", zap.Error(err))
		return nil, newPersistenceError("list orders", err)
	}

	log.Debug("orders listed", zap.Int("count", len(orders)))
	return orders, nil
}

// GetOrderDetail returns an order to its customer or to an admin.
func (s *service) GetOrderDetail(ctx context.Context, orderID, viewerID string, isAdmin bool) (*Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if errors.Is(err, ErrOrderNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, newPersistenceError("get order", err)
	}

	if !isAdmin && o.CustomerID != viewerID {
		return nil, ErrForbidden
	}
	return o, nil
}

func (s *service) UpdateStatus(ctx context.Context, orderID string, update StatusUpdate) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "UpdateStatus"),
		zap.String("order_id", orderID),
	)

	if update.Status == nil && update.PaymentStatus == nil {
		return nil, newValidationError("status or paymentStatus is required")
	}
	if update.Status != nil && !update.Status.Valid() {
		return nil, newValidationError(fmt.Sprintf("Invalid status: %s", *update.Status))
	}
	if update.PaymentStatus != nil && !update.PaymentStatus.Valid() {
		return nil, newValidationError(fmt.Sprintf("Invalid paymentStatus: %s", *update.PaymentStatus))
	}

	o, err := s.repo.GetByID(ctx, orderID)
	if errors.Is(err, ErrOrderNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, newPersistenceError("get order", err)
	}

	if update.Status != nil {
		o.Status = *update.Status
	}
	if update.PaymentStatus != nil {
		o.PaymentStatus = *update.PaymentStatus
	}

	if err := s.repo.UpdateStatus(ctx, o.ID, o.Status, o.PaymentStatus); err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, err
		}
		log.Error("failed to update order status", zap.Error(err))
		return nil, newPersistenceError("update order status", err)
	}

	log.Info("order status updated",
		zap.String("status", string(o.Status)),
		zap.String("payment_status", string(o.PaymentStatus)),
	)
	return o, nil
}
