package handler

import (
	"context"
	"net/http"
	"time"

	"storefront-be/internal/cart"
	"storefront-be/internal/category"
	"storefront-be/internal/logger"
	"storefront-be/internal/metrics"
	"storefront-be/internal/middleware"
	"storefront-be/internal/order"
	"storefront-be/internal/product"
	"storefront-be/internal/utils"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Pinger reports database health.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Handler struct {
	products   product.Service
	categories category.Service
	carts      cart.Service
	orders     order.Service
	metrics    *metrics.Registry
	db         Pinger
}

type Services struct {
	Products   product.Service
	Categories category.Service
	Carts      cart.Service
	Orders     order.Service
}

func New(svc Services, reg *metrics.Registry, db Pinger) *Handler {
	return &Handler{
		products:   svc.Products,
		categories: svc.Categories,
		carts:      svc.Carts,
		orders:     svc.Orders,
		metrics:    reg,
		db:         db,
	}
}

type RouterOptions struct {
	JWTSecret      string
	CORSOrigin     string
	Limiter        *middleware.RateLimiter
	RequestTimeout time.Duration
}

func NewRouter(h *Handler, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(logger.RequestIDMiddleware)
	r.Use(logger.LoggingMiddleware)
	r.Use(middleware.Recovery)
	r.Use(chimw.CleanPath)
	r.Use(middleware.CORS(opts.CORSOrigin))
	r.Use(middleware.AuthMiddleware(opts.JWTSecret))
	// The limiter keys authenticated callers by user id, so it runs after auth.
	if opts.Limiter != nil {
		r.Use(opts.Limiter.Middleware)
	}

	withTimeout := passThrough
	if opts.RequestTimeout > 0 {
		withTimeout = chimw.Timeout(opts.RequestTimeout)
	}

	r.With(withTimeout).Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		// Order creation finishes or compensates even past the deadline,
		// so it is not wrapped in the request timeout.
		r.With(middleware.RequireAuth).Post("/orders", h.CreateOrder)

		r.Group(func(r chi.Router) {
			r.Use(withTimeout)

			r.Get("/products", h.ListProducts)
			r.Get("/products/{id}", h.GetProduct)
			r.Get("/categories", h.ListCategories)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth)

				r.Get("/cart", h.GetCart)
				r.Post("/cart", h.AddToCart)
				r.Delete("/cart", h.ClearCart)
				r.Patch("/cart/{productId}", h.UpdateCartItem)
				r.Delete("/cart/{productId}", h.RemoveCartItem)

				r.Get("/orders", h.ListOrders)
				r.Get("/orders/{id}", h.GetOrder)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireRole(utils.RoleAdmin))

				r.Post("/products", h.CreateProduct)
				r.Put("/products/{id}", h.UpdateProduct)
				r.Delete("/products/{id}", h.DeleteProduct)
				r.Patch("/orders/{id}/status", h.UpdateOrderStatus)
				r.Get("/metrics", h.Metrics)
			})
		})
	})

	return r
}

func passThrough(next http.Handler) http.Handler { return next }

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			logger.FromCtx(r.Context()).Warn("health check failed", zap.Error(err))
			utils.WriteJSON(w, map[string]string{"status": "DOWN"}, http.StatusServiceUnavailable)
			return
		}
	}
	utils.WriteJSON(w, map[string]string{"status": "OK"}, http.StatusOK)
}

func (h *Handler) Metrics(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, h.metrics.Snapshot(), http.StatusOK)
}
