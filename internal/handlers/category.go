package handlers

import (
	"net/http"

	"shopdesk/internal/middleware"
	"shopdesk/internal/models"
	"shopdesk/internal/store"
)

// Categories groups the category CRUD handlers. All routes require a
// full access token; the owning user comes from the request context.
type Categories struct {
	store *store.CategoryStore
}

// NewCategories creates a new Categories handler group.
func NewCategories(s *store.CategoryStore) *Categories {
	return &Categories{store: s}
}

// Create handles POST /categories.
func (h *Categories) Create(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromCtx(r.Context())

	var req createCategoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationError(err))
		return
	}

	category, err := h.store.Create(r.Context(), userID, req.Name, req.ParentID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, category)
}

// List handles GET /categories.
func (h *Categories) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromCtx(r.Context())

	categories, err := h.store.List(r.Context(), userID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if categories == nil {
		categories = []models.Category{}
	}
	writeJSON(w, http.StatusOK, categories)
}

// Get handles GET /categories/{id}. Access is owner-gated.
func (h *Categories) Get(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromCtx(r.Context())

	id, err := urlID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	category, err := h.store.Get(r.Context(), id, &userID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, category)
}

// Update handles PATCH /categories/{id}. A parentId of null clears the
// parent; an absent parentId leaves it unchanged.
func (h *Categories) Update(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromCtx(r.Context())

	id, err := urlID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req updateCategoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationError(err))
		return
	}

	category, err := h.store.Update(r.Context(), id, userID, req.Name, req.ParentID.Set, req.ParentID.Value)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, category)
}

// Delete handles DELETE /categories/{id}.
func (h *Categories) Delete(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromCtx(r.Context())

	id, err := urlID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	category, err := h.store.Delete(r.Context(), id, userID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, category)
}
