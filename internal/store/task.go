package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/tabortao/HomeRecord/internal/model"
)

type TaskStore struct {
	db *sql.DB
}

func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

func scanTask(scanner interface{ Scan(...any) error }) (*model.Task, error) {
	var t model.Task
	var status string
	var actual sql.NullInt64

	err := scanner.Scan(
		&t.ID, &t.UserID, &t.Name, &t.Category, &status, &t.StartDate,
		&t.PlannedDuration, &actual, &t.Points, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Status = model.TaskStatus(status)
	if actual.Valid {
		v := int(actual.Int64)
		t.ActualDuration = &v
	}
	return &t, nil
}

const taskCols = `id, user_id, name, category, status, start_date, planned_duration, actual_duration, points, created_at`

func (s *TaskStore) Create(ctx context.Context, t model.Task) (*model.Task, error) {
	if t.Status == "" {
		t.Status = model.TaskIncomplete
	}

	var actual sql.NullInt64
	if t.ActualDuration != nil {
		actual = sql.NullInt64{Int64: int64(*t.ActualDuration), Valid: true}
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (user_id, name, category, status, start_date, planned_duration, actual_duration, points)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.UserID, t.Name, t.Category, string(t.Status), t.StartDate, t.PlannedDuration, actual, t.Points,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *TaskStore) GetByID(ctx context.Context, id int64) (*model.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskCols+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// SetStatus marks a task completed or incomplete, recording the actual
// duration when one is given.
func (s *TaskStore) SetStatus(ctx context.Context, id int64, status model.TaskStatus, actual *int) error {
	var a sql.NullInt64
	if actual != nil {
		a = sql.NullInt64{Int64: int64(*actual), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET status = ?, actual_duration = COALESCE(?, actual_duration) WHERE id = ?`,
		string(status), a, id,
	)
	if err != nil {
		return fmt.Errorf("update task status: %w", err)
	}
	return nil
}

// FindTasks returns the user's tasks matching f, ordered by start date then id.
// Date bounds compare the stored text, so rows with malformed dates may be
// included in range results and are left for the caller to reject.
func (s *TaskStore) FindTasks(ctx context.Context, userID int64, f model.TaskFilter) ([]model.Task, error) {
	where := []string{"user_id = ?"}
	args := []any{userID}

	switch {
	case f.Date != "":
		where = append(where, "start_date = ?")
		args = append(args, f.Date)
	default:
		if f.From != "" {
			where = append(where, "start_date >= ?")
			args = append(args, f.From)
		}
		if f.To != "" {
			where = append(where, "start_date <= ?")
			args = append(args, f.To)
		}
	}
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, f.Category)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}

	query := `SELECT ` + taskCols + ` FROM tasks WHERE ` + strings.Join(where, " AND ") + ` ORDER BY start_date ASC, id ASC`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (s *TaskStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}
