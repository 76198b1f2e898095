package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"storefront-be/internal/product"
	"storefront-be/internal/utils"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	inStock, _ := strconv.ParseBool(q.Get("inStock"))

	products, err := h.products.List(r.Context(), product.ListOptions{
		Category:    q.Get("category"),
		Search:      q.Get("search"),
		InStockOnly: inStock,
		Limit:       utils.QueryInt(r, "limit", 20),
		Page:        utils.QueryInt(r, "page", 1),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, products, http.StatusOK)
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categories.GetCategories(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, categories, http.StatusOK)
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, p, http.StatusOK)
}

func decodeProductInput(w http.ResponseWriter, r *http.Request) (product.ProductInput, bool) {
	var input product.ProductInput
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&input); err != nil {
		utils.WriteJSONError(w, "Invalid request body", http.StatusBadRequest)
		return input, false
	}
	return input, true
}

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	input, ok := decodeProductInput(w, r)
	if !ok {
		return
	}

	p, err := h.products.Create(r.Context(), input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, p, http.StatusCreated)
}

func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	input, ok := decodeProductInput(w, r)
	if !ok {
		return
	}

	p, err := h.products.Update(r.Context(), chi.URLParam(r, "id"), input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, p, http.StatusOK)
}

func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.products.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
