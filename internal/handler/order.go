package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"storefront-be/internal/logger"
	"storefront-be/internal/order"
	"storefront-be/internal/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CreateOrder places an order for the authenticated customer. Only admins
// may place orders on behalf of another customerId or set status and
// paymentStatus up front.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	req, err := order.DecodeCreateOrderRequest(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, r, err)
		return
	}

	userID, _ := utils.GetUserIDFromContext(r.Context())
	customerID := strings.TrimSpace(utils.PtrString(req.CustomerID))
	if customerID != "" && customerID != userID && !utils.IsAdmin(r.Context()) {
		logger.FromCtx(r.Context()).Warn("customerId does not match identity",
			zap.String("customer_id", customerID),
			zap.String("user_email", utils.GetUserEmailFromContext(r.Context())),
		)
		utils.WriteJSONError(w, "customerId does not match the authenticated user", http.StatusForbidden)
		return
	}

	// Customers always start at pending; only admins may seed the statuses.
	if !utils.IsAdmin(r.Context()) && (req.Status != nil || req.PaymentStatus != nil) {
		logger.FromCtx(r.Context()).Info("ignoring status fields from customer order")
		req.Status = nil
		req.PaymentStatus = nil
	}

	o, err := h.orders.CreateOrder(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, o, http.StatusCreated)
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	customerID := strings.TrimSpace(r.URL.Query().Get("customerId"))

	userID, _ := utils.GetUserIDFromContext(r.Context())
	if customerID != "" && customerID != userID && !utils.IsAdmin(r.Context()) {
		utils.WriteJSONError(w, "forbidden", http.StatusForbidden)
		return
	}

	orders, err := h.orders.ListOrders(r.Context(), order.ListOrdersParams{
		CustomerID: customerID,
		Status:     order.Status(r.URL.Query().Get("status")),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, orders, http.StatusOK)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	o, err := h.orders.GetOrderDetail(r.Context(), chi.URLParam(r, "id"), userID, utils.IsAdmin(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, o, http.StatusOK)
}

func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var update order.StatusUpdate
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&update); err != nil {
		utils.WriteJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), chi.URLParam(r, "id"), update)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, o, http.StatusOK)
}
