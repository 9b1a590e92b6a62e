package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/wonny/marketpulse/internal/contracts"
	"github.com/wonny/marketpulse/internal/store"
	"github.com/wonny/marketpulse/pkg/logger"
)

// Limits for the prices endpoint
const (
	DefaultPriceLimit = 30
	MaxPriceLimit     = 1000
)

// PriceHandler serves stored metric records
// ⭐ SSOT: 가격 조회 API 핸들러는 이 구조체에서만
type PriceHandler struct {
	store  store.Store
	logger *logger.Logger
}

// NewPriceHandler creates a new price handler
func NewPriceHandler(st store.Store, log *logger.Logger) *PriceHandler {
	return &PriceHandler{
		store:  st,
		logger: log,
	}
}

// PricesResponse is the body of GET /api/prices/{symbol}
type PricesResponse struct {
	Symbol string                `json:"symbol"`
	Count  int                   `json:"count"`
	Prices []contracts.StoredRow `json:"prices"`
}

// GetPrices returns the newest stored rows of a symbol in ascending date order
// GET /api/prices/{symbol}?limit=30
func (h *PriceHandler) GetPrices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	symbol := strings.ToUpper(strings.TrimSpace(mux.Vars(r)["symbol"]))

	if symbol == "" {
		respondError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	limit := DefaultPriceLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(l, MaxPriceLimit)
	}

	rows, err := h.store.ListBySymbol(ctx, symbol, limit)
	if err != nil {
		if errors.Is(err, store.ErrNotInitialized) {
			respondError(w, http.StatusServiceUnavailable, "store is not initialized")
			return
		}
		h.logger.WithError(err).WithFields(map[string]interface{}{
			"symbol": symbol,
			"limit":  limit,
		}).Error("Failed to list prices")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve prices")
		return
	}

	if len(rows) == 0 {
		respondError(w, http.StatusNotFound, "no data for symbol "+symbol)
		return
	}

	respondJSON(w, http.StatusOK, PricesResponse{
		Symbol: symbol,
		Count:  len(rows),
		Prices: rows,
	})
}
