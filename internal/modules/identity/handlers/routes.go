package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all identity routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/sign-up", h.HandleSignUp)
	r.Post("/login", h.HandleLogin)
}
