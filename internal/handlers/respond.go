// Package handlers implements the JSON HTTP handlers for the shopdesk
// API: authentication, categories, products, and image upload.
package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"shopdesk/internal/store"
)

// maxBodySize bounds JSON request bodies.
const maxBodySize = 1 << 20

// writeJSON serializes v with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write json response", "error", err)
	}
}

// errorResponse is the uniform error body.
type errorResponse struct {
	Error string `json:"error"`
}

// writeError writes a JSON error body with the given status code.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// respondStoreError maps the store error taxonomy to HTTP status codes.
// Anything outside the taxonomy is a 500 with a generic body.
func respondStoreError(w http.ResponseWriter, err error) {
	switch store.KindOf(err) {
	case store.KindNotFound:
		writeError(w, http.StatusNotFound, err.Error())
	case store.KindConflict:
		writeError(w, http.StatusConflict, err.Error())
	case store.KindForbidden:
		writeError(w, http.StatusForbidden, err.Error())
	case store.KindInvalid:
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("store operation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// urlID parses the {id} route parameter as a positive integer.
func urlID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid id")
	}
	return id, nil
}
