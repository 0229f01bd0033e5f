// Package handlers provides HTTP handlers for transaction operations.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ghostportfolio/server/internal/domain"
	"github.com/ghostportfolio/server/internal/modules/identity"
	"github.com/ghostportfolio/server/internal/modules/ledger"
	"github.com/ghostportfolio/server/internal/observability"
)

// Handler handles transaction HTTP requests
type Handler struct {
	service *ledger.Service
	metrics *observability.Metrics
	log     zerolog.Logger
}

// NewHandler creates a new transaction handler. metrics may be nil.
func NewHandler(service *ledger.Service, metrics *observability.Metrics, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		metrics: metrics,
		log:     log.With().Str("handler", "transactions").Logger(),
	}
}

type createRequest struct {
	Name        string          `json:"name"`
	Kind        string          `json:"kind"`
	AmountCents int64           `json:"amount"`
	Price       decimal.Decimal `json:"price_purchased_at"`
	Coins       decimal.Decimal `json:"no_of_coins"`
}

type deleteRequest struct {
	Name string `json:"name"`
}

// HandleCreate handles POST /api/transactions
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	tx, err := h.service.Create(r.Context(), userID, ledger.CreateInput{
		Asset:       req.Name,
		Kind:        domain.TransactionKind(req.Kind),
		AmountCents: req.AmountCents,
		Price:       req.Price,
		Coins:       req.Coins,
	})
	if err != nil {
		if errors.Is(err, ledger.ErrNoHoldings) {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		h.log.Warn().Err(err).Msg("Transaction rejected")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if h.metrics != nil {
		h.metrics.TransactionsCreated.WithLabelValues(string(tx.Kind)).Inc()
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"data": tx,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleList handles GET /api/transactions
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	transactions, err := h.service.List(r.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list transactions")
		http.Error(w, "Failed to list transactions", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"transactions": transactions,
			"count":        len(transactions),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleDelete handles DELETE /api/transactions
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req deleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	deleted, err := h.service.Delete(r.Context(), userID, req.Name)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to delete transactions")
		http.Error(w, "Failed to delete transactions", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"deleted": deleted,
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
