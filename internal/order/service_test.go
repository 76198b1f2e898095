package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront-be/internal/inventory"
	"storefront-be/internal/inventory/inventorytest"
	"storefront-be/internal/metrics"
	"storefront-be/internal/product"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- Mocks ---

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, o *Order) error {
	return m.Called(ctx, o).Error(0)
}

func (m *MockRepository) ListByCustomer(ctx context.Context, params ListOrdersParams) ([]*Order, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Order), args.Error(1)
}

func (m *MockRepository) GetByID(ctx context.Context, id string) (*Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Order), args.Error(1)
}

func (m *MockRepository) UpdateStatus(ctx context.Context, id string, status Status, paymentStatus PaymentStatus) error {
	return m.Called(ctx, id, status, paymentStatus).Error(0)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyOrderPlaced(ctx context.Context, o *Order) error {
	return m.Called(ctx, o).Error(0)
}

type panicNotifier struct{}

func (panicNotifier) NotifyOrderPlaced(context.Context, *Order) error {
	panic("template exploded")
}

// --- Fixtures ---

func shirt() *product.Product {
	return &product.Product{
		ID:   "p-shirt",
		Name: "Linen Shirt",
		Colors: []product.ColorVariant{
			{Name: "Red", Stock: 5},
			{Name: "Navy", Stock: 3},
		},
	}
}

func baseballCap() *product.Product {
	return &product.Product{
		ID:     "p-cap",
		Name:   "Cap",
		Colors: []product.ColorVariant{{Name: "Black", Stock: 4}},
	}
}

func ptr[T any](v T) *T {
	return &v
}

func line(productID, name, color string, qty int, price float64) ItemRequest {
	return ItemRequest{
		ProductID:   ptr(productID),
		ProductName: ptr(name),
		Quantity:    ptr(qty),
		Price:       ptr(price),
		Total:       ptr(price * float64(qty)),
		Color:       color,
	}
}

func newRequest(items ...ItemRequest) *CreateOrderRequest {
	subtotal := 0.0
	for _, it := range items {
		subtotal += *it.Total
	}
	return &CreateOrderRequest{
		CustomerID:      ptr("user-1"),
		CustomerName:    ptr("Ada Lovelace"),
		CustomerEmail:   ptr("ada@example.com"),
		Items:           items,
		ShippingAddress: &ShippingAddress{FullName: "Ada Lovelace", Line1: "1 Main St", City: "London", PostalCode: "N1", Country: "UK"},
		Subtotal:        ptr(subtotal),
		Tax:             ptr(0.0),
		TotalAmount:     ptr(subtotal),
	}
}

type fixture struct {
	store    *inventorytest.MemoryStore
	repo     *MockRepository
	notifier *MockNotifier
	metrics  *metrics.Registry
	svc      *service
}

func newFixture(t *testing.T, products ...*product.Product) *fixture {
	t.Helper()
	f := &fixture{
		store:    inventorytest.NewMemoryStore(products...),
		repo:     new(MockRepository),
		notifier: new(MockNotifier),
		metrics:  metrics.NewRegistry(),
	}
	f.svc = NewService(f.repo, f.store, f.notifier, f.metrics, time.Second).(*service)
	f.svc.newOrderNumber = func() string { return "ORD-20260101-120000-000-0001" }
	return f
}

// --- Tests ---

func TestService_CreateOrder_ScenarioA(t *testing.T) {
	f := newFixture(t, shirt())
	f.repo.On("Create", mock.Anything, mock.AnythingOfType("*order.Order")).Return(nil)
	f.notifier.On("NotifyOrderPlaced", mock.Anything, mock.AnythingOfType("*order.Order")).Return(nil)

	o, err := f.svc.CreateOrder(context.Background(), newRequest(line("p-shirt", "Linen Shirt", "Red", 3, 20)))
	require.NoError(t, err)

	assert.NotEmpty(t, o.ID)
	assert.Equal(t, "ORD-20260101-120000-000-0001", o.OrderNumber)
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, PaymentPending, o.PaymentStatus)
	assert.False(t, o.OrderDate.IsZero())

	assert.Equal(t, 2, f.store.Stock("p-shirt", "Red"))
	assert.Equal(t, 3, f.store.Stock("p-shirt", "Navy"), "other colors untouched")
	assert.True(t, f.store.Product("p-shirt").InStock)
	assert.Equal(t, uint64(1), f.metrics.Snapshot()[metrics.OrdersCreated])

	f.repo.AssertNumberOfCalls(t, "Create", 1)
	f.notifier.AssertNumberOfCalls(t, "NotifyOrderPlaced", 1)
}

func TestService_CreateOrder_ScenarioB(t *testing.T) {
	f := newFixture(t, shirt())

	_, err := f.svc.CreateOrder(context.Background(), newRequest(line("p-shirt", "Linen Shirt", "Red", 10, 20)))

	var stockErr *inventory.StockError
	require.ErrorAs(t, err, &stockErr)
	assert.Contains(t, err.Error(), "Available: 5, requested: 10")
	assert.Contains(t, err.Error(), "Linen Shirt")
	assert.Contains(t, err.Error(), "Red")
	assert.Equal(t, 5, f.store.Stock("p-shirt", "Red"))
	f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.notifier.AssertNotCalled(t, "NotifyOrderPlaced", mock.Anything, mock.Anything)
}

func TestService_CreateOrder_ScenarioC(t *testing.T) {
	f := newFixture(t, shirt(), baseballCap())

	_, err := f.svc.CreateOrder(context.Background(), newRequest(
		line("p-shirt", "Linen Shirt", "Red", 2, 20),
		line("p-cap", "Cap", "Purple", 1, 10),
	))

	var stockErr *inventory.StockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, inventory.ReasonColorNotFound, stockErr.Reason)
	assert.Equal(t, 5, f.store.Stock("p-shirt", "Red"), "first item restored")
	assert.Equal(t, 1, f.store.Increments())
	f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestService_CreateOrder_ScenarioD(t *testing.T) {
	tests := []struct {
		name        string
		repoErr     error
		unavailable bool
	}{
		{"Generic failure", errors.New("disk full"), false},
		{"Timeout", context.DeadlineExceeded, true},
		{"Connection failure", &pq.Error{Code: "08006"}, true},
		{"Admin shutdown", &pq.Error{Code: "57P01"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, shirt(), baseballCap())
			before := f.store.TotalStock()
			f.repo.On("Create", mock.Anything, mock.Anything).Return(tt.repoErr)

			_, err := f.svc.CreateOrder(context.Background(), newRequest(
				line("p-shirt", "Linen Shirt", "Red", 5, 20),
				line("p-cap", "Cap", "Black", 2, 10),
			))

			var persistErr *PersistenceError
			require.ErrorAs(t, err, &persistErr)
			assert.Equal(t, tt.unavailable, persistErr.Unavailable)
			assert.Equal(t, before, f.store.TotalStock())
			assert.True(t, f.store.Product("p-shirt").Colors[0].InStock)
			assert.Equal(t, 2, f.store.Increments(), "each reservation restored once")
			f.notifier.AssertNotCalled(t, "NotifyOrderPlaced", mock.Anything, mock.Anything)
			assert.Equal(t, uint64(1), f.metrics.Snapshot()[metrics.OrdersFailed])
		})
	}
}

func TestService_CreateOrder_DuplicateOrderNumber(t *testing.T) {
	f := newFixture(t, shirt())
	f.repo.On("Create", mock.Anything, mock.Anything).Return(ErrDuplicateOrderNumber)

	_, err := f.svc.CreateOrder(context.Background(), newRequest(line("p-shirt", "Linen Shirt", "Red", 1, 20)))

	assert.ErrorIs(t, err, ErrDuplicateOrderNumber)
	assert.Equal(t, 5, f.store.Stock("p-shirt", "Red"))
}

func TestService_CreateOrder_ScenarioE(t *testing.T) {
	t.Run("Matching total accepted", func(t *testing.T) {
		f := newFixture(t, shirt())
		f.repo.On("Create", mock.Anything, mock.Anything).Return(nil)
		f.notifier.On("NotifyOrderPlaced", mock.Anything, mock.Anything).Return(nil)

		req := newRequest(line("p-shirt", "Linen Shirt", "Red", 1, 100))
		req.Subtotal, req.Tax, req.TotalAmount = ptr(100.0), ptr(5.0), ptr(105.00)

		_, err := f.svc.CreateOrder(context.Background(), req)
		assert.NoError(t, err)
	})

	t.Run("Mismatched total rejected", func(t *testing.T) {
		f := newFixture(t, shirt())

		req := newRequest(line("p-shirt", "Linen Shirt", "Red", 1, 100))
		req.Subtotal, req.Tax, req.TotalAmount = ptr(100.0), ptr(5.0), ptr(106.0)

		_, err := f.svc.CreateOrder(context.Background(), req)

		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, 0, f.store.Decrements(), "inventory never touched")
		assert.Equal(t, 5, f.store.Stock("p-shirt", "Red"))
		assert.Equal(t, uint64(1), f.metrics.Snapshot()[metrics.OrdersRejected])
	})
}

func TestService_CreateOrder_Atomicity(t *testing.T) {
	bare := &product.Product{ID: "p-bare", Name: "Gift Card"}

	tests := []struct {
		name  string
		items []ItemRequest
	}{
		{"Unknown product last", []ItemRequest{
			line("p-shirt", "Linen Shirt", "Red", 1, 20),
			line("p-cap", "Cap", "Black", 1, 10),
			line("p-ghost", "Ghost", "Red", 1, 5),
		}},
		{"No variants", []ItemRequest{
			line("p-cap", "Cap", "Black", 4, 10),
			line("p-bare", "Gift Card", "Red", 1, 50),
		}},
		{"Missing color", []ItemRequest{
			line("p-shirt", "Linen Shirt", "Navy", 3, 20),
			line("p-cap", "Cap", "", 1, 10),
		}},
		{"Shortage after same-product reservation", []ItemRequest{
			line("p-shirt", "Linen Shirt", "Red", 4, 20),
			line("p-shirt", "Linen Shirt", "Red", 2, 20),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, shirt(), baseballCap(), bare)
			before := f.store.TotalStock()

			_, err := f.svc.CreateOrder(context.Background(), newRequest(tt.items...))

			var stockErr *inventory.StockError
			require.ErrorAs(t, err, &stockErr)
			assert.Equal(t, before, f.store.TotalStock())
			for _, id := range []string{"p-shirt", "p-cap"} {
				p := f.store.Product(id)
				for _, c := range p.Colors {
					assert.Equal(t, c.Stock > 0, c.InStock, "%s/%s flag", id, c.Name)
				}
			}
			f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestService_CreateOrder_StoreFailureDuringReserve(t *testing.T) {
	f := newFixture(t, shirt(), baseballCap())
	f.store.GetErr = func(id string) error {
		if id == "p-cap" {
			return errors.New("connection reset")
		}
		return nil
	}

	_, err := f.svc.CreateOrder(context.Background(), newRequest(
		line("p-shirt", "Linen Shirt", "Red", 2, 20),
		line("p-cap", "Cap", "Black", 1, 10),
	))

	var persistErr *PersistenceError
	require.ErrorAs(t, err, &persistErr)
	assert.Equal(t, 5, f.store.Stock("p-shirt", "Red"))
}

func TestService_CreateOrder_NotificationIsolation(t *testing.T) {
	t.Run("Notifier error", func(t *testing.T) {
		f := newFixture(t, shirt())
		f.repo.On("Create", mock.Anything, mock.Anything).Return(nil)
		f.notifier.On("NotifyOrderPlaced", mock.Anything, mock.Anything).Return(errors.New("smtp down"))

		o, err := f.svc.CreateOrder(context.Background(), newRequest(line("p-shirt", "Linen Shirt", "Red", 1, 20)))
		require.NoError(t, err)
		assert.NotNil(t, o)
		assert.Equal(t, 4, f.store.Stock("p-shirt", "Red"))
		assert.Equal(t, uint64(1), f.metrics.Snapshot()[metrics.NotificationsFailed])
	})

	t.Run("Notifier panic", func(t *testing.T) {
		f := newFixture(t, shirt())
		f.repo.On("Create", mock.Anything, mock.Anything).Return(nil)
		f.svc.notifier = panicNotifier{}

		o, err := f.svc.CreateOrder(context.Background(), newRequest(line("p-shirt", "Linen Shirt", "Red", 1, 20)))
		require.NoError(t, err)
		assert.NotNil(t, o)
		assert.Equal(t, 0, f.store.Increments(), "no rollback after success")
	})
}

func TestService_CreateOrder_Defaults(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	t.Run("Defaults applied", func(t *testing.T) {
		f := newFixture(t, shirt())
		f.svc.now = func() time.Time { return fixed }
		f.repo.On("Create", mock.Anything, mock.Anything).Return(nil)
		f.notifier.On("NotifyOrderPlaced", mock.Anything, mock.Anything).Return(nil)

		o, err := f.svc.CreateOrder(context.Background(), newRequest(line("p-shirt", "Linen Shirt", " Red ", 1, 20)))
		require.NoError(t, err)
		assert.Equal(t, fixed, o.OrderDate)
		assert.Equal(t, "Red", o.Items[0].Color)
	})

	t.Run("Caller values kept", func(t *testing.T) {
		f := newFixture(t, shirt())
		f.repo.On("Create", mock.Anything, mock.Anything).Return(nil)
		f.notifier.On("NotifyOrderPlaced", mock.Anything, mock.Anything).Return(nil)

		req := newRequest(line("p-shirt", "Linen Shirt", "Red", 1, 20))
		req.Status = ptr(StatusProcessing)
		req.PaymentStatus = ptr(PaymentPaid)
		req.OrderDate = ptr(fixed)
		req.Notes = "leave at door"

		o, err := f.svc.CreateOrder(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, StatusProcessing, o.Status)
		assert.Equal(t, PaymentPaid, o.PaymentStatus)
		assert.Equal(t, fixed, o.OrderDate)
		assert.Equal(t, "leave at door", o.Notes)
	})
}

func TestService_CreateOrder_IgnoresCallerCancellation(t *testing.T) {
	f := newFixture(t, shirt())
	f.repo.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.notifier.On("NotifyOrderPlaced", mock.Anything, mock.Anything).Return(nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.CreateOrder(ctx, newRequest(line("p-shirt", "Linen Shirt", "Red", 2, 20)))
	require.NoError(t, err)
	assert.Equal(t, 3, f.store.Stock("p-shirt", "Red"))
}

func TestService_ListOrders(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newFixture(t)
		params := ListOrdersParams{CustomerID: "user-1", Status: StatusShipped}
		f.repo.On("ListByCustomer", ctx, params).Return([]*Order{{ID: "o1"}}, nil)

		orders, err := f.svc.ListOrders(ctx, params)
		require.NoError(t, err)
		assert.Len(t, orders, 1)
	})

	t.Run("CustomerID required", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.ListOrders(ctx, ListOrdersParams{CustomerID: " "})

		var vErr *ValidationError
		assert.ErrorAs(t, err, &vErr)
	})

	t.Run("Invalid status", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.ListOrders(ctx, ListOrdersParams{CustomerID: "user-1", Status: "lost"})

		var vErr *ValidationError
		assert.ErrorAs(t, err, &vErr)
	})

	t.Run("Repo failure", func(t *testing.T) {
		f := newFixture(t)
		f.repo.On("ListByCustomer", ctx, mock.Anything).Return(nil, errors.New("db error"))

		_, err := f.svc.ListOrders(ctx, ListOrdersParams{CustomerID: "user-1"})

		var persistErr *PersistenceError
		assert.ErrorAs(t, err, &persistErr)
	})
}

func TestService_GetOrderDetail(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.repo.On("GetByID", ctx, "o1").Return(&Order{ID: "o1", CustomerID: "user-1"}, nil)
	f.repo.On("GetByID", ctx, "missing").Return(nil, ErrOrderNotFound)

	o, err := f.svc.GetOrderDetail(ctx, "o1", "user-1", false)
	require.NoError(t, err)
	assert.Equal(t, "o1", o.ID)

	_, err = f.svc.GetOrderDetail(ctx, "o1", "user-2", false)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.GetOrderDetail(ctx, "o1", "admin-1", true)
	assert.NoError(t, err)

	_, err = f.svc.GetOrderDetail(ctx, "missing", "user-1", false)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestService_UpdateStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newFixture(t)
		f.repo.On("GetByID", ctx, "o1").Return(&Order{ID: "o1", Status: StatusPending, PaymentStatus: PaymentPending}, nil)
		f.repo.On("UpdateStatus", ctx, "o1", StatusShipped, PaymentPending).Return(nil)

		o, err := f.svc.UpdateStatus(ctx, "o1", StatusUpdate{Status: ptr(StatusShipped)})
		require.NoError(t, err)
		assert.Equal(t, StatusShipped, o.Status)
		f.repo.AssertExpectations(t)
	})

	tests := []struct {
		name   string
		update StatusUpdate
	}{
		{"Empty", StatusUpdate{}},
		{"Bad status", StatusUpdate{Status: ptr(Status("lost"))}},
		{"Bad payment status", StatusUpdate{PaymentStatus: ptr(PaymentStatus("maybe"))}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.UpdateStatus(ctx, "o1", tt.update)

			var vErr *ValidationError
			assert.ErrorAs(t, err, &vErr)
			f.repo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
		})
	}

	t.Run("NotFound", func(t *testing.T) {
		f := newFixture(t)
		f.repo.On("GetByID", ctx, "o9").Return(nil, ErrOrderNotFound)

		_, err := f.svc.UpdateStatus(ctx, "o9", StatusUpdate{PaymentStatus: ptr(PaymentRefunded)})
		assert.ErrorIs(t, err, ErrOrderNotFound)
	})
}
