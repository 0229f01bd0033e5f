package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all rollup routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/rollups", h.HandleGetRollups)
}
