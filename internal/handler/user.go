package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tabortao/HomeRecord/internal/honor"
	"github.com/tabortao/HomeRecord/internal/model"
	"github.com/tabortao/HomeRecord/internal/store"
)

// reevaluator re-runs honor evaluation after a state change.
type reevaluator interface {
	Reevaluate(ctx context.Context, userID int64) []honor.Granted
}

// UserHandler manages accounts and gold adjustments.
type UserHandler struct {
	userStore *store.UserStore
	logStore  *store.OperationLogStore
	honors    reevaluator
	logger    *slog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(us *store.UserStore, ls *store.OperationLogStore, honors reevaluator, logger *slog.Logger) *UserHandler {
	return &UserHandler{userStore: us, logStore: ls, honors: honors, logger: logger}
}

type userRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Nickname string `json:"nickname"`
	ParentID *int64 `json:"parent_id"`
}

// Create adds an account. A parent_id makes it a sub-account of that
// top-level account.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "username and password are required"})
		return
	}

	existing, err := h.userStore.GetByUsername(r.Context(), req.Username)
	if err != nil {
		h.logger.Error("failed to check username", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create user"})
		return
	}
	if existing != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "username already taken"})
		return
	}

	if req.ParentID != nil {
		parent, err := h.userStore.GetUser(r.Context(), *req.ParentID)
		if err != nil {
			h.logger.Error("failed to get parent", "parent_id", *req.ParentID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create user"})
			return
		}
		if parent == nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "parent not found"})
			return
		}
		if parent.IsSubAccount() {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "parent must be a top-level account"})
			return
		}
	}

	if req.Nickname == "" {
		req.Nickname = req.Username
	}
	u, err := h.userStore.Create(r.Context(), req.Username, req.Password, req.Nickname, req.ParentID)
	if err != nil {
		h.logger.Error("failed to create user", "username", req.Username, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create user"})
		return
	}

	h.logger.Info("user created", "user_id", u.ID, "sub_account", u.IsSubAccount())
	writeJSON(w, http.StatusCreated, u)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	u, err := h.userStore.GetUser(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get user", "user_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get user"})
		return
	}
	if u == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// Delete removes an account together with its sub-accounts, tasks, audit
// entries and honors.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.userStore.GetUser(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get user", "user_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get user"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
		return
	}

	if err := h.userStore.Delete(r.Context(), id); err != nil {
		h.logger.Error("failed to delete user", "user_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete user"})
		return
	}

	h.logger.Info("user deleted", "user_id", id)
	w.WriteHeader(http.StatusNoContent)
}

type goldRequest struct {
	UserID int64  `json:"user_id"`
	Amount int    `json:"amount"`
	Reason string `json:"reason"`
}

type goldResponse struct {
	TotalGold int             `json:"total_gold"`
	Honors    []honor.Granted `json:"honors"`
}

// UpdateGold adjusts a user's gold by amount, records the adjustment and
// re-evaluates honors.
func (h *UserHandler) UpdateGold(w http.ResponseWriter, r *http.Request) {
	var req goldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.UserID <= 0 || req.Amount == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_id and a non-zero amount are required"})
		return
	}

	u, err := h.userStore.GetUser(r.Context(), req.UserID)
	if err != nil {
		h.logger.Error("failed to get user", "user_id", req.UserID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update gold"})
		return
	}
	if u == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
		return
	}

	if err := h.userStore.AddGold(r.Context(), u.ID, req.Amount); err != nil {
		h.logger.Error("failed to update gold", "user_id", u.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update gold"})
		return
	}

	content := fmt.Sprintf("gold %+d: %s", req.Amount, strings.TrimSpace(req.Reason))
	if _, err := h.logStore.Create(r.Context(), u.ID, model.OperationGoldUpdate, content, model.OperationSuccess); err != nil {
		h.logger.Warn("failed to record gold update", "user_id", u.ID, "error", err)
	}

	updated, err := h.userStore.GetUser(r.Context(), u.ID)
	if err != nil || updated == nil {
		h.logger.Error("failed to reload user", "user_id", u.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update gold"})
		return
	}

	writeJSON(w, http.StatusOK, goldResponse{
		TotalGold: updated.TotalGold,
		Honors:    h.honors.Reevaluate(r.Context(), u.ID),
	})
}
