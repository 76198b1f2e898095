package handler

import (
	"encoding/json"
	"net/http"

	"storefront-be/internal/cart"
	"storefront-be/internal/utils"

	"github.com/go-chi/chi/v5"
)

type updateCartRequest struct {
	Quantity int    `json:"quantity"`
	Color    string `json:"color"`
	Size     string `json:"size"`
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	items, err := h.carts.GetCart(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, items, http.StatusOK)
}

func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	var params cart.AddToCartParams
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&params); err != nil {
		utils.WriteJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	params.UserID, _ = utils.GetUserIDFromContext(r.Context())

	item, err := h.carts.AddToCart(r.Context(), params)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, item, http.StatusCreated)
}

func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var req updateCartRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		utils.WriteJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	userID, _ := utils.GetUserIDFromContext(r.Context())

	err := h.carts.UpdateCartQuantity(r.Context(), cart.UpdateCartParams{
		LineKey: cart.LineKey{
			UserID:    userID,
			ProductID: chi.URLParam(r, "productId"),
			Color:     req.Color,
			Size:      req.Size,
		},
		Quantity: req.Quantity,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	err := h.carts.RemoveFromCart(r.Context(), cart.LineKey{
		UserID:    userID,
		ProductID: chi.URLParam(r, "productId"),
		Color:     r.URL.Query().Get("color"),
		Size:      r.URL.Query().Get("size"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	if err := h.carts.ClearCart(r.Context(), userID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
