package handlers

import (
	"net/http"

	"shopdesk/internal/middleware"
	"shopdesk/internal/models"
	"shopdesk/internal/store"
)

// Products groups the product CRUD handlers.
type Products struct {
	store *store.ProductStore
}

// NewProducts creates a new Products handler group.
func NewProducts(s *store.ProductStore) *Products {
	return &Products{store: s}
}

// Create handles POST /products.
func (h *Products) Create(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromCtx(r.Context())

	var req createProductRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationError(err))
		return
	}

	product, err := h.store.Create(r.Context(), userID, req.Name, req.Description, req.Price, req.Stock, req.CategoryID, req.ImageURL)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

// List handles GET /products.
func (h *Products) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromCtx(r.Context())

	products, err := h.store.List(r.Context(), userID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if products == nil {
		products = []models.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}

// Get handles GET /products/{id}. Detail lookup is not owner-gated:
// mutations check ownership, reads by id do not.
// TODO: decide whether cross-user product lookup should require ownership.
func (h *Products) Get(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	product, err := h.store.Get(r.Context(), id)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// Update handles PATCH /products/{id}. Only fields present in the body
// are applied; a categoryId of null clears the category reference.
func (h *Products) Update(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromCtx(r.Context())

	id, err := urlID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req updateProductRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationError(err))
		return
	}

	product, err := h.store.Update(r.Context(), id, userID, store.ProductUpdate{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		ImageURL:    req.ImageURL,
		SetCategory: req.CategoryID.Set,
		CategoryID:  req.CategoryID.Value,
	})
	if err != nil {
		respondStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// Delete handles DELETE /products/{id}.
func (h *Products) Delete(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromCtx(r.Context())

	id, err := urlID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	product, err := h.store.Delete(r.Context(), id, userID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}
