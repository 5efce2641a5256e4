package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/tabortao/HomeRecord/internal/honor"
	"github.com/tabortao/HomeRecord/internal/model"
)

func TestTaskCreate(t *testing.T) {
	env := setupHonorHandler(t)
	u, err := env.users.Create(context.Background(), "alice", "secret", "Alice", nil)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	tests := []struct {
		name string
		body string
		want int
	}{
		{"valid", `{"user_id": ` + itoa(u.ID) + `, "name": "口算", "category": "数学", "start_date": "2026-10-14", "points": 3}`, http.StatusCreated},
		{"missing name", `{"user_id": ` + itoa(u.ID) + `, "start_date": "2026-10-14"}`, http.StatusBadRequest},
		{"bad date", `{"user_id": ` + itoa(u.ID) + `, "name": "口算", "start_date": "14/10/2026"}`, http.StatusBadRequest},
		{"negative points", `{"user_id": ` + itoa(u.ID) + `, "name": "口算", "start_date": "2026-10-14", "points": -1}`, http.StatusBadRequest},
		{"unknown user", `{"user_id": 999, "name": "口算", "start_date": "2026-10-14"}`, http.StatusBadRequest},
		{"invalid json", `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, "POST", "/api/tasks", tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d; body: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func createTask(t *testing.T, env *honorTestEnv, userID int64, date string, points int) *model.Task {
	t.Helper()
	task, err := env.tasks.Create(context.Background(), model.Task{
		UserID: userID, Name: "口算", Category: "数学", StartDate: date, Points: points,
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	return task
}

func gold(t *testing.T, env *honorTestEnv, userID int64) int {
	t.Helper()
	u, err := env.users.GetUser(context.Background(), userID)
	if err != nil || u == nil {
		t.Fatalf("get user %d: %v", userID, err)
	}
	return u.TotalGold
}

func TestTaskUpdateStatusPaysPoints(t *testing.T) {
	env := setupHonorHandler(t)
	u, err := env.users.Create(context.Background(), "alice", "secret", "Alice", nil)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	task := createTask(t, env, u.ID, "2026-10-14", 5)
	path := "/api/tasks/" + itoa(task.ID) + "/status"

	steps := []struct {
		body string
		gold int
	}{
		{`{"status": "completed", "actual_duration": 25}`, 5},
		// Completing twice pays once.
		{`{"status": "completed"}`, 5},
		{`{"status": "incomplete"}`, 0},
		{`{"status": "completed"}`, 5},
	}
	for i, st := range steps {
		rec := env.do(t, "PATCH", path, st.body)
		if rec.Code != http.StatusOK {
			t.Fatalf("step %d: status = %d; body: %s", i, rec.Code, rec.Body.String())
		}
		if got := gold(t, env, u.ID); got != st.gold {
			t.Errorf("step %d: gold = %d, want %d", i, got, st.gold)
		}
	}

	got, err := env.tasks.GetByID(context.Background(), task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.Actual() != 25 {
		t.Errorf("actual_duration = %d, want 25", got.Actual())
	}
}

func TestTaskUpdateStatusEvaluatesHonors(t *testing.T) {
	env := setupHonorHandler(t)
	ctx := context.Background()
	u, err := env.users.Create(ctx, "alice", "secret", "Alice", nil)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	// Six earlier completed days; today's task completes the streak.
	for d := 1; d < 7; d++ {
		task := createTask(t, env, u.ID, testNow.AddDate(0, 0, -d).Format(model.DateLayout), 1)
		if err := env.tasks.SetStatus(ctx, task.ID, model.TaskCompleted, nil); err != nil {
			t.Fatalf("set status: %v", err)
		}
	}
	today := createTask(t, env, u.ID, testNow.Format(model.DateLayout), 1)

	rec := env.do(t, "PATCH", "/api/tasks/"+itoa(today.ID)+"/status", `{"status": "completed"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Task   model.Task      `json:"task"`
		Honors []honor.Granted `json:"honors"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Task.Status != model.TaskCompleted {
		t.Errorf("task status = %q, want completed", resp.Task.Status)
	}
	keys := make(map[honor.Key]bool)
	for _, g := range resp.Honors {
		keys[g.Key] = true
	}
	if !keys[honor.KeyCheckIn7] {
		t.Errorf("honors = %+v, want check_in_7", resp.Honors)
	}
}

func TestTaskUpdateStatusByOperator(t *testing.T) {
	env := setupHonorHandler(t)
	ctx := context.Background()
	parent, err := env.users.Create(ctx, "parent", "secret", "Parent", nil)
	if err != nil {
		t.Fatalf("create parent: %v", err)
	}
	kid, err := env.users.Create(ctx, "kid", "secret", "Kid", &parent.ID)
	if err != nil {
		t.Fatalf("create kid: %v", err)
	}
	task := createTask(t, env, parent.ID, "2026-10-14", 4)

	rec := env.do(t, "PATCH", "/api/tasks/"+itoa(task.ID)+"/status",
		`{"status": "completed", "operator_id": `+itoa(kid.ID)+`}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", rec.Code, rec.Body.String())
	}
	if got := gold(t, env, parent.ID); got != 4 {
		t.Errorf("owner gold = %d, want 4", got)
	}
	if got := gold(t, env, kid.ID); got != 0 {
		t.Errorf("operator gold = %d, want 0", got)
	}

	if n := countLogs(t, env, kid.ID, model.OperationTaskComplete); n != 1 {
		t.Errorf("operator task_complete logs = %d, want 1", n)
	}
	if n := countLogs(t, env, parent.ID, model.OperationTaskComplete); n != 0 {
		t.Errorf("owner task_complete logs = %d, want 0", n)
	}
}

func TestTaskUpdateStatusErrors(t *testing.T) {
	env := setupHonorHandler(t)
	u, err := env.users.Create(context.Background(), "alice", "secret", "Alice", nil)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	task := createTask(t, env, u.ID, "2026-10-14", 1)
	path := "/api/tasks/" + itoa(task.ID) + "/status"

	tests := []struct {
		name, path, body string
		want             int
	}{
		{"bad status", path, `{"status": "done"}`, http.StatusBadRequest},
		{"negative duration", path, `{"status": "completed", "actual_duration": -5}`, http.StatusBadRequest},
		{"unknown operator", path, `{"status": "completed", "operator_id": 999}`, http.StatusBadRequest},
		{"unknown task", "/api/tasks/999/status", `{"status": "completed"}`, http.StatusNotFound},
		{"bad id", "/api/tasks/abc/status", `{"status": "completed"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, "PATCH", tt.path, tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
	if got := gold(t, env, u.ID); got != 0 {
		t.Errorf("gold = %d, want 0 after rejected updates", got)
	}
}

func TestTaskDeleteTakesBackPoints(t *testing.T) {
	env := setupHonorHandler(t)
	u, err := env.users.Create(context.Background(), "alice", "secret", "Alice", nil)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	task := createTask(t, env, u.ID, "2026-10-14", 6)
	env.do(t, "PATCH", "/api/tasks/"+itoa(task.ID)+"/status", `{"status": "completed"}`)
	if got := gold(t, env, u.ID); got != 6 {
		t.Fatalf("gold = %d, want 6", got)
	}

	rec := env.do(t, "DELETE", "/api/tasks/"+itoa(task.ID), "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if got := gold(t, env, u.ID); got != 0 {
		t.Errorf("gold = %d, want 0", got)
	}
	if rec := env.do(t, "DELETE", "/api/tasks/"+itoa(task.ID), ""); rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func countLogs(t *testing.T, env *honorTestEnv, userID int64, opType string) int {
	t.Helper()
	n, err := env.logs.Count(context.Background(), userID, opType)
	if err != nil {
		t.Fatalf("count logs: %v", err)
	}
	return n
}
