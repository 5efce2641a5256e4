package honor

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/tabortao/HomeRecord/internal/model"
)

// tasksByDay returns the user's tasks in the given number of days ending
// today, grouped by start date. Tasks with malformed dates are skipped.
func tasksByDay(ctx context.Context, src sources, s subject, days int, status model.TaskStatus) (map[string][]model.Task, error) {
	from := addDays(s.today, -(days - 1))
	tasks, err := src.tasks.FindTasks(ctx, s.userID, model.TaskFilter{
		From:   formatDate(from),
		To:     formatDate(s.today),
		Status: status,
	})
	if err != nil {
		return nil, err
	}

	byDay := make(map[string][]model.Task)
	for _, t := range tasks {
		d, err := parseDate(t.StartDate, s.today.Location())
		if err != nil {
			src.logger.Debug("skipping task", "task_id", t.ID, "error", err)
			continue
		}
		if d.Before(from) || d.After(s.today) {
			continue
		}
		day := formatDate(d)
		byDay[day] = append(byDay[day], t)
	}
	return byDay, nil
}

// consecutiveDays counts qualifying days walking back from today. It stops
// at the first day that does not qualify or after limit days.
func consecutiveDays(today time.Time, limit int, qualifies func(day string) bool) int {
	n := 0
	for i := 0; i < limit; i++ {
		if !qualifies(formatDate(addDays(today, -i))) {
			break
		}
		n++
	}
	return n
}

func streak(days int, status model.TaskStatus) predicate {
	return func(ctx context.Context, src sources, s subject) (bool, error) {
		byDay, err := tasksByDay(ctx, src, s, days, status)
		if err != nil {
			return false, err
		}
		n := consecutiveDays(s.today, days, func(day string) bool {
			return len(byDay[day]) > 0
		})
		return n >= days, nil
	}
}

// completedStreak requires at least one completed task on each of the last
// days days.
func completedStreak(days int) predicate {
	return streak(days, model.TaskCompleted)
}

// activityStreak requires at least one task of any status on each day.
func activityStreak(days int) predicate {
	return streak(days, "")
}

// perfectStreak requires each of the last days days to have tasks, all of
// them completed.
func perfectStreak(days int) predicate {
	return func(ctx context.Context, src sources, s subject) (bool, error) {
		byDay, err := tasksByDay(ctx, src, s, days, "")
		if err != nil {
			return false, err
		}
		n := consecutiveDays(s.today, days, func(day string) bool {
			tasks := byDay[day]
			if len(tasks) == 0 {
				return false
			}
			for _, t := range tasks {
				if !t.Completed() {
					return false
				}
			}
			return true
		})
		return n >= days, nil
	}
}

func dailyDurationAtLeast(minutes int) predicate {
	return func(ctx context.Context, src sources, s subject) (bool, error) {
		tasks, err := src.tasks.FindTasks(ctx, s.userID, model.TaskFilter{
			Date:   formatDate(s.today),
			Status: model.TaskCompleted,
		})
		if err != nil {
			return false, err
		}
		total := 0
		for _, t := range tasks {
			total += t.Actual()
		}
		return total >= minutes, nil
	}
}

func longestSessionAtLeast(minutes int) predicate {
	return func(ctx context.Context, src sources, s subject) (bool, error) {
		tasks, err := src.tasks.FindTasks(ctx, s.userID, model.TaskFilter{Status: model.TaskCompleted})
		if err != nil {
			return false, err
		}
		longest := 0
		for _, t := range tasks {
			longest = max(longest, t.Actual())
		}
		return longest >= minutes, nil
	}
}

func completedTodayAtLeast(n int) predicate {
	return func(ctx context.Context, src sources, s subject) (bool, error) {
		tasks, err := src.tasks.FindTasks(ctx, s.userID, model.TaskFilter{
			Date:   formatDate(s.today),
			Status: model.TaskCompleted,
		})
		if err != nil {
			return false, err
		}
		return len(tasks) >= n, nil
	}
}

func plannedTodayAtLeast(n int) predicate {
	return func(ctx context.Context, src sources, s subject) (bool, error) {
		tasks, err := src.tasks.FindTasks(ctx, s.userID, model.TaskFilter{Date: formatDate(s.today)})
		if err != nil {
			return false, err
		}
		return len(tasks) >= n, nil
	}
}

func goldAtLeast(n int) predicate {
	return func(_ context.Context, _ sources, s subject) (bool, error) {
		return s.gold >= n, nil
	}
}

func exchangesAtLeast(n int) predicate {
	return func(ctx context.Context, src sources, s subject) (bool, error) {
		count, err := src.exchanges.CountExchanges(ctx, s.userID)
		if err != nil {
			return false, err
		}
		return count >= n, nil
	}
}

// allCategoriesToday requires a completed task today in every category the
// user has ever used. A user with no categories never qualifies.
func allCategoriesToday(ctx context.Context, src sources, s subject) (bool, error) {
	all, err := src.tasks.FindTasks(ctx, s.userID, model.TaskFilter{})
	if err != nil {
		return false, err
	}
	today, err := src.tasks.FindTasks(ctx, s.userID, model.TaskFilter{
		Date:   formatDate(s.today),
		Status: model.TaskCompleted,
	})
	if err != nil {
		return false, err
	}

	done := make(map[string]bool, len(today))
	for _, t := range today {
		done[t.Category] = true
	}

	categories := 0
	seen := make(map[string]bool)
	for _, t := range all {
		if t.Category == "" || seen[t.Category] {
			continue
		}
		seen[t.Category] = true
		categories++
		if !done[t.Category] {
			return false, nil
		}
	}
	return categories > 0, nil
}

// perfectCategory is satisfied by the first category, in name order, with
// at least minTasks tasks that are all completed. Remaining categories are
// not examined.
func perfectCategory(minTasks int) predicate {
	return func(ctx context.Context, src sources, s subject) (bool, error) {
		tasks, err := src.tasks.FindTasks(ctx, s.userID, model.TaskFilter{})
		if err != nil {
			return false, err
		}

		type tally struct{ total, completed int }
		byCategory := make(map[string]*tally)
		for _, t := range tasks {
			if t.Category == "" {
				continue
			}
			c, ok := byCategory[t.Category]
			if !ok {
				c = &tally{}
				byCategory[t.Category] = c
			}
			c.total++
			if t.Completed() {
				c.completed++
			}
		}

		names := make([]string, 0, len(byCategory))
		for name := range byCategory {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			c := byCategory[name]
			if c.total >= minTasks && c.completed == c.total {
				src.logger.Debug("perfect category", "category", name, "tasks", c.total)
				return true, nil
			}
		}
		return false, nil
	}
}

// weekendWarrior requires completed tasks on both days of the current
// weekend, or the upcoming one when today is a weekday.
func weekendWarrior(ctx context.Context, src sources, s subject) (bool, error) {
	var saturday time.Time
	switch wd := s.today.Weekday(); wd {
	case time.Saturday:
		saturday = s.today
	case time.Sunday:
		saturday = addDays(s.today, -1)
	default:
		saturday = addDays(s.today, int(time.Saturday-wd))
	}
	sunday := addDays(saturday, 1)

	tasks, err := src.tasks.FindTasks(ctx, s.userID, model.TaskFilter{
		From:   formatDate(saturday),
		To:     formatDate(sunday),
		Status: model.TaskCompleted,
	})
	if err != nil {
		return false, err
	}

	var sat, sun bool
	for _, t := range tasks {
		d, err := parseDate(t.StartDate, s.today.Location())
		if err != nil {
			src.logger.Debug("skipping task", "task_id", t.ID, "error", err)
			continue
		}
		switch {
		case sameDay(d, saturday):
			sat = true
		case sameDay(d, sunday):
			sun = true
		}
	}
	return sat && sun, nil
}

// efficientTasksAtLeast counts completed tasks with a planned duration whose
// actual duration is at most planned*tenths/10.
func efficientTasksAtLeast(tenths, n int) predicate {
	return func(ctx context.Context, src sources, s subject) (bool, error) {
		tasks, err := src.tasks.FindTasks(ctx, s.userID, model.TaskFilter{Status: model.TaskCompleted})
		if err != nil {
			return false, err
		}
		efficient := 0
		for _, t := range tasks {
			if t.PlannedDuration <= 0 || t.Actual() <= 0 {
				continue
			}
			if t.Actual()*10 <= t.PlannedDuration*tenths {
				efficient++
			}
		}
		return efficient >= n, nil
	}
}

// completionRateImproved compares the completion rate of the last seven days
// with the seven days before. It is satisfied when the previous rate is
// positive and recent >= previous*tenths/10. Rates are compared by cross
// multiplication so empty windows never divide.
func completionRateImproved(tenths int) predicate {
	const window = 7
	return func(ctx context.Context, src sources, s subject) (bool, error) {
		byDay, err := tasksByDay(ctx, src, s, 2*window, "")
		if err != nil {
			return false, err
		}

		recentStart := addDays(s.today, -(window - 1))
		var recentTotal, recentDone, prevTotal, prevDone int
		for day, tasks := range byDay {
			d, err := parseDate(day, s.today.Location())
			if err != nil {
				continue
			}
			for _, t := range tasks {
				if d.Before(recentStart) {
					prevTotal++
					if t.Completed() {
						prevDone++
					}
					continue
				}
				recentTotal++
				if t.Completed() {
					recentDone++
				}
			}
		}

		if prevTotal == 0 || prevDone == 0 || recentTotal == 0 {
			return false, nil
		}
		return recentDone*prevTotal*10 >= prevDone*recentTotal*tenths, nil
	}
}

var (
	readingNameMarker     = "阅读"
	readingCategoryMarker = "语文"
)

// readingTimeAtLeast sums the actual duration of completed reading tasks: a
// task named for reading or filed under a language-arts category.
func readingTimeAtLeast(minutes int) predicate {
	return func(ctx context.Context, src sources, s subject) (bool, error) {
		tasks, err := src.tasks.FindTasks(ctx, s.userID, model.TaskFilter{Status: model.TaskCompleted})
		if err != nil {
			return false, err
		}
		total := 0
		for _, t := range tasks {
			if strings.Contains(t.Name, readingNameMarker) || strings.Contains(t.Category, readingCategoryMarker) {
				total += t.Actual()
			}
		}
		return total >= minutes, nil
	}
}
