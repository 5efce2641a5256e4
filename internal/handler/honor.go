package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/tabortao/HomeRecord/internal/honor"
	"github.com/tabortao/HomeRecord/internal/model"
	"github.com/tabortao/HomeRecord/internal/store"
	"github.com/tabortao/HomeRecord/internal/websocket"
)

// HonorHandler serves the honor catalog and runs evaluations.
type HonorHandler struct {
	engine     *honor.Engine
	userStore  *store.UserStore
	honorStore *store.HonorStore
	hub        *websocket.Hub
	logger     *slog.Logger
}

// NewHonorHandler creates a new HonorHandler.
func NewHonorHandler(engine *honor.Engine, us *store.UserStore, hs *store.HonorStore, hub *websocket.Hub, logger *slog.Logger) *HonorHandler {
	return &HonorHandler{engine: engine, userStore: us, honorStore: hs, hub: hub, logger: logger}
}

// AnnounceGrants sends one honor_granted message per newly granted honor to
// the clients following the effective account. A nil hub is a no-op.
func AnnounceGrants(hub *websocket.Hub, res *honor.Result) {
	if hub == nil || len(res.Granted) == 0 || hub.Listeners(res.EffectiveUserID) == 0 {
		return
	}
	for _, g := range res.Granted {
		hub.Send(res.EffectiveUserID, websocket.NewMessage("honor", "granted", g.ID, map[string]any{
			"user_id": res.EffectiveUserID,
			"key":     g.Key,
			"name":    g.Name,
			"icon":    g.Icon,
		}))
	}
}

// Reevaluate runs an evaluation after a change to userID's tasks, gold or
// exchanges and announces new grants. Failures are logged and do not undo
// the change; grants saved before a failure are still returned.
func (h *HonorHandler) Reevaluate(ctx context.Context, userID int64) []honor.Granted {
	res, err := h.engine.Evaluate(ctx, userID)
	if res != nil {
		AnnounceGrants(h.hub, res)
	}
	if err != nil {
		h.logger.Error("failed to re-evaluate honors", "user_id", userID, "error", err)
	}
	if res == nil {
		return []honor.Granted{}
	}
	return res.Granted
}

// honorView is a catalog entry annotated with the caller's progress.
type honorView struct {
	model.Honor
	Daily         bool   `json:"daily"`
	IsObtained    bool   `json:"is_obtained"`
	ObtainedCount int    `json:"obtained_count,omitempty"`
	LastObtained  string `json:"last_obtained,omitempty"`
}

type checkRequest struct {
	UserID int64 `json:"user_id"`
}

// Check evaluates every honor for the user and announces new grants.
func (h *HonorHandler) Check(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.UserID <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_id is required"})
		return
	}

	res, err := h.engine.Evaluate(r.Context(), req.UserID)
	if res != nil {
		AnnounceGrants(h.hub, res)
	}
	if errors.Is(err, honor.ErrUserNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
		return
	}
	if err != nil {
		h.logger.Error("failed to check honors", "user_id", req.UserID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to check honors"})
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// ListUserHonors returns the honors held by the effective account of {id}.
func (h *HonorHandler) ListUserHonors(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	held, err := h.heldHonors(r.Context(), id)
	if errors.Is(err, honor.ErrUserNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
		return
	}
	if err != nil {
		h.logger.Error("failed to list user honors", "user_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load honors"})
		return
	}

	views := []honorView{}
	for _, c := range h.engine.Catalog().All() {
		if rec, ok := held[c.ID]; ok {
			views = append(views, h.view(c, &rec))
		}
	}
	writeJSON(w, http.StatusOK, views)
}

// ListCatalog returns the full catalog. With ?user_id= each entry reports
// whether that user's effective account holds it; an unknown user gets the
// plain catalog.
func (h *HonorHandler) ListCatalog(w http.ResponseWriter, r *http.Request) {
	var held map[int64]model.UserHonor
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user_id"})
			return
		}
		held, err = h.heldHonors(r.Context(), id)
		if errors.Is(err, honor.ErrUserNotFound) {
			h.logger.Debug("catalog requested for unknown user", "user_id", id)
			held = nil
		} else if err != nil {
			h.logger.Error("failed to list user honors", "user_id", id, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load honors"})
			return
		}
	}

	catalog := h.engine.Catalog().All()
	views := make([]honorView, 0, len(catalog))
	for _, c := range catalog {
		if rec, ok := held[c.ID]; ok {
			views = append(views, h.view(c, &rec))
			continue
		}
		views = append(views, h.view(c, nil))
	}
	writeJSON(w, http.StatusOK, views)
}

// heldHonors loads the records of userID's effective account keyed by honor id.
func (h *HonorHandler) heldHonors(ctx context.Context, userID int64) (map[int64]model.UserHonor, error) {
	acct, err := honor.ResolveEffective(ctx, h.userStore, userID)
	if err != nil {
		return nil, err
	}

	records, err := h.honorStore.GetUserHonors(ctx, acct.EffectiveID)
	if err != nil {
		return nil, err
	}

	held := make(map[int64]model.UserHonor, len(records))
	for _, rec := range records {
		held[rec.HonorID] = rec
	}
	return held, nil
}

func (h *HonorHandler) view(c model.Honor, rec *model.UserHonor) honorView {
	v := honorView{Honor: c, Daily: honor.DailyBucketed(honor.Key(c.Key))}
	if rec != nil {
		v.IsObtained = true
		v.ObtainedCount = rec.ObtainedCount
		v.LastObtained = rec.LastObtainedAt.In(h.engine.Location()).Format(model.DateLayout)
	}
	return v
}

func parseIDParam(r *http.Request) (int64, error) {
	idStr := r.PathValue("id")
	return strconv.ParseInt(idStr, 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
