package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tabortao/HomeRecord/internal/honor"
	"github.com/tabortao/HomeRecord/internal/model"
	"github.com/tabortao/HomeRecord/internal/store"
)

// TaskHandler records tasks and their completion, paying out task points as
// gold.
type TaskHandler struct {
	taskStore *store.TaskStore
	userStore *store.UserStore
	logStore  *store.OperationLogStore
	honors    reevaluator
	logger    *slog.Logger
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(ts *store.TaskStore, us *store.UserStore, ls *store.OperationLogStore, honors reevaluator, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{taskStore: ts, userStore: us, logStore: ls, honors: honors, logger: logger}
}

type taskRequest struct {
	UserID          int64  `json:"user_id"`
	Name            string `json:"name"`
	Category        string `json:"category"`
	StartDate       string `json:"start_date"`
	PlannedDuration int    `json:"planned_duration"`
	Points          int    `json:"points"`
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	if _, err := time.Parse(model.DateLayout, req.StartDate); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "start_date must be YYYY-MM-DD"})
		return
	}
	if req.PlannedDuration < 0 || req.Points < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "planned_duration and points must not be negative"})
		return
	}

	owner, err := h.userStore.GetUser(r.Context(), req.UserID)
	if err != nil {
		h.logger.Error("failed to get user", "user_id", req.UserID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create task"})
		return
	}
	if owner == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user not found"})
		return
	}

	task, err := h.taskStore.Create(r.Context(), model.Task{
		UserID:          owner.ID,
		Name:            req.Name,
		Category:        strings.TrimSpace(req.Category),
		StartDate:       req.StartDate,
		PlannedDuration: req.PlannedDuration,
		Points:          req.Points,
	})
	if err != nil {
		h.logger.Error("failed to create task", "user_id", owner.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create task"})
		return
	}

	writeJSON(w, http.StatusCreated, task)
}

type taskStatusRequest struct {
	Status         model.TaskStatus `json:"status"`
	ActualDuration *int             `json:"actual_duration"`
	// OperatorID is the account making the change when it is not the owner,
	// e.g. a sub-account completing its parent's task.
	OperatorID int64 `json:"operator_id"`
}

type taskStatusResponse struct {
	Task   *model.Task     `json:"task"`
	Honors []honor.Granted `json:"honors"`
}

// UpdateStatus completes or reopens a task. Completing pays the task's
// points to its owner and reopening takes them back. Either transition is
// recorded in the audit log and re-evaluates honors for the operator.
func (h *TaskHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req taskStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.Status != model.TaskCompleted && req.Status != model.TaskIncomplete {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status must be completed or incomplete"})
		return
	}
	if req.ActualDuration != nil && *req.ActualDuration < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "actual_duration must not be negative"})
		return
	}

	existing, err := h.taskStore.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get task", "task_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get task"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "task not found"})
		return
	}

	operator := existing.UserID
	if req.OperatorID != 0 && req.OperatorID != existing.UserID {
		u, err := h.userStore.GetUser(r.Context(), req.OperatorID)
		if err != nil {
			h.logger.Error("failed to get operator", "user_id", req.OperatorID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update task"})
			return
		}
		if u == nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "operator not found"})
			return
		}
		operator = u.ID
	}

	if err := h.taskStore.SetStatus(r.Context(), id, req.Status, req.ActualDuration); err != nil {
		h.logger.Error("failed to update task status", "task_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update task"})
		return
	}

	wasCompleted := existing.Completed()
	switch {
	case !wasCompleted && req.Status == model.TaskCompleted:
		h.payout(r, existing, operator, existing.Points, model.OperationTaskComplete)
	case wasCompleted && req.Status == model.TaskIncomplete:
		h.payout(r, existing, operator, -existing.Points, model.OperationTaskUndo)
	}

	task, err := h.taskStore.GetByID(r.Context(), id)
	if err != nil || task == nil {
		h.logger.Error("failed to reload task", "task_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update task"})
		return
	}

	writeJSON(w, http.StatusOK, taskStatusResponse{
		Task:   task,
		Honors: h.honors.Reevaluate(r.Context(), operator),
	})
}

// payout moves delta gold to the task owner and records the change against
// the operator. Failures are logged; the status change stands.
func (h *TaskHandler) payout(r *http.Request, t *model.Task, operator int64, delta int, opType string) {
	if delta != 0 {
		if err := h.userStore.AddGold(r.Context(), t.UserID, delta); err != nil {
			h.logger.Error("failed to pay task points", "task_id", t.ID, "user_id", t.UserID, "error", err)
		}
	}

	content := fmt.Sprintf("%s (%+d gold)", t.Name, delta)
	if operator != t.UserID {
		content = fmt.Sprintf("task of user %d: %s", t.UserID, content)
	}
	if _, err := h.logStore.Create(r.Context(), operator, opType, content, model.OperationSuccess); err != nil {
		h.logger.Warn("failed to record task status", "task_id", t.ID, "error", err)
	}
}

// Delete removes a task. Points paid for a completed task are taken back.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.taskStore.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get task", "task_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get task"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "task not found"})
		return
	}

	if err := h.taskStore.Delete(r.Context(), id); err != nil {
		h.logger.Error("failed to delete task", "task_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete task"})
		return
	}

	if existing.Completed() && existing.Points > 0 {
		if err := h.userStore.AddGold(r.Context(), existing.UserID, -existing.Points); err != nil {
			h.logger.Error("failed to take back task points", "task_id", id, "error", err)
		}
	}

	w.WriteHeader(http.StatusNoContent)
}
