package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tabortao/HomeRecord/internal/honor"
	"github.com/tabortao/HomeRecord/internal/model"
	"github.com/tabortao/HomeRecord/internal/store"
)

// WishHandler redeems gold for wishes. Wish definitions live with the
// client; the server only settles the cost and records the exchange.
type WishHandler struct {
	userStore *store.UserStore
	logStore  *store.OperationLogStore
	honors    reevaluator
	logger    *slog.Logger
}

// NewWishHandler creates a new WishHandler.
func NewWishHandler(us *store.UserStore, ls *store.OperationLogStore, honors reevaluator, logger *slog.Logger) *WishHandler {
	return &WishHandler{userStore: us, logStore: ls, honors: honors, logger: logger}
}

type exchangeRequest struct {
	UserID   int64  `json:"user_id"`
	Wish     string `json:"wish"`
	Cost     int    `json:"cost"`
	Quantity int    `json:"quantity"`
}

type exchangeResponse struct {
	RemainingGold int             `json:"remaining_gold"`
	TotalCost     int             `json:"total_cost"`
	Quantity      int             `json:"quantity"`
	Honors        []honor.Granted `json:"honors"`
}

// Exchange spends cost*quantity gold, records one exchange and re-evaluates
// honors.
func (h *WishHandler) Exchange(w http.ResponseWriter, r *http.Request) {
	var req exchangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Wish = strings.TrimSpace(req.Wish)
	if req.UserID <= 0 || req.Wish == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_id and wish are required"})
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.Quantity < 0 || req.Cost < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quantity must be positive and cost not negative"})
		return
	}

	u, err := h.userStore.GetUser(r.Context(), req.UserID)
	if err != nil {
		h.logger.Error("failed to get user", "user_id", req.UserID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to exchange wish"})
		return
	}
	if u == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
		return
	}

	total := req.Cost * req.Quantity
	ok, err := h.userStore.SpendGold(r.Context(), u.ID, total)
	if err != nil {
		h.logger.Error("failed to spend gold", "user_id", u.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to exchange wish"})
		return
	}
	if !ok {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "not enough gold"})
		return
	}

	content := fmt.Sprintf("%s x%d for %d gold", req.Wish, req.Quantity, total)
	if _, err := h.logStore.Create(r.Context(), u.ID, model.OperationWishExchange, content, model.OperationSuccess); err != nil {
		h.logger.Error("failed to record exchange", "user_id", u.ID, "error", err)
	}

	updated, err := h.userStore.GetUser(r.Context(), u.ID)
	if err != nil || updated == nil {
		h.logger.Error("failed to reload user", "user_id", u.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to exchange wish"})
		return
	}

	h.logger.Info("wish exchanged", "user_id", u.ID, "quantity", req.Quantity, "cost", total)
	writeJSON(w, http.StatusOK, exchangeResponse{
		RemainingGold: updated.TotalGold,
		TotalCost:     total,
		Quantity:      req.Quantity,
		Honors:        h.honors.Reevaluate(r.Context(), u.ID),
	})
}
