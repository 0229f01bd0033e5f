// Package handlers provides HTTP handlers for portfolio rollups.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/ghostportfolio/server/internal/domain"
	"github.com/ghostportfolio/server/internal/modules/identity"
	"github.com/ghostportfolio/server/internal/modules/rollup"
)

// Handler handles rollup HTTP requests
type Handler struct {
	service *rollup.Service
	log     zerolog.Logger
}

// NewHandler creates a new rollup handler
func NewHandler(service *rollup.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "rollups").Logger(),
	}
}

// HandleGetRollups handles GET /api/rollups
func (h *Handler) HandleGetRollups(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	entries, err := h.service.GetRollup(r.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnknownAsset):
			h.log.Warn().Err(err).Msg("Rollup rejected")
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		case errors.Is(err, domain.ErrEnrichmentUnavailable):
			h.log.Error().Err(err).Msg("Market data unavailable")
			http.Error(w, "Market data unavailable", http.StatusBadGateway)
		case errors.Is(err, domain.ErrDataIntegrity):
			h.log.Error().Err(err).Msg("Ledger integrity failure")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		default:
			h.log.Error().Err(err).Msg("Failed to compute rollup")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"rollups": entries,
			"count":   len(entries),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
