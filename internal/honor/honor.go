// Package honor evaluates a user's task and exchange history against the
// honor catalog and grants or re-grants badges.
//
// Each catalog entry is dispatched by its stable key to a rule. A rule reads
// either the effective account's data or the requesting account's data; the
// split mirrors long-standing product behavior and is recorded per key in
// rules below. Honor records are always written to the effective account.
package honor

import (
	"context"
	"log/slog"
	"time"

	"github.com/tabortao/HomeRecord/internal/model"
)

// Key is the stable identifier of a catalog entry.
type Key string

const (
	KeyCheckIn7         Key = "check_in_7"
	KeyStudyExpert      Key = "study_expert"
	KeyFocusExpert      Key = "focus_expert"
	KeyAllRounder       Key = "all_rounder"
	KeyGoldTycoon       Key = "gold_tycoon"
	KeyTaskMaster       Key = "task_master"
	KeyDiligent         Key = "diligent"
	KeyWeekendWarrior   Key = "weekend_warrior"
	KeyStickToIt        Key = "stick_to_it"
	KeySubjectStar      Key = "subject_star"
	KeyPerfectionist    Key = "perfectionist"
	KeyWishMaster       Key = "wish_master"
	KeyGrowthPioneer    Key = "growth_pioneer"
	KeyPersistence      Key = "persistence"
	KeyTimeManager      Key = "time_manager"
	KeyPlanMaster       Key = "plan_master"
	KeyRapidProgress    Key = "rapid_progress"
	KeyEfficientLearner Key = "efficient_learner"
	KeyReadingStar      Key = "reading_star"
	KeyEarlyBird        Key = "early_bird"
)

// CapstoneThreshold is the number of distinct held honors that unlocks
// KeyGrowthPioneer.
const CapstoneThreshold = 10

// Binding selects whose data a rule reads.
type Binding int

const (
	// BindEffective reads the top-level account's data.
	BindEffective Binding = iota
	// BindRequester reads the data of the id passed to Evaluate, even when
	// it is a sub-account.
	BindRequester
)

func (b Binding) String() string {
	if b == BindRequester {
		return "requester"
	}
	return "effective"
}

// subject is the input to a predicate: the account whose data is read, the
// effective account's lifetime gold, and the start of today in the engine's
// location.
type subject struct {
	userID int64
	gold   int
	today  time.Time
}

type sources struct {
	tasks     TaskFinder
	exchanges ExchangeCounter
	logger    *slog.Logger
}

type predicate func(ctx context.Context, src sources, s subject) (bool, error)

type rule struct {
	binding Binding
	// daily suppresses re-grants within the same calendar day and reports a
	// re-grant on a new day as newly granted.
	daily bool
	check predicate
}

// rules is the closed set of evaluable honors. KeyGrowthPioneer has no entry;
// it is granted by the capstone step after the scan.
//
// Streak rules bound to the requester (diligent, stick_to_it, persistence,
// early_bird) differ from check_in_7, which reads the effective account.
// Sub-accounts therefore see different streak results depending on the honor.
var rules = map[Key]rule{
	KeyCheckIn7:         {binding: BindEffective, check: completedStreak(7)},
	KeyStudyExpert:      {binding: BindEffective, check: dailyDurationAtLeast(180)},
	KeyFocusExpert:      {binding: BindEffective, check: longestSessionAtLeast(60)},
	KeyAllRounder:       {binding: BindEffective, daily: true, check: allCategoriesToday},
	KeyGoldTycoon:       {binding: BindEffective, check: goldAtLeast(1000)},
	KeyTaskMaster:       {binding: BindEffective, check: completedTodayAtLeast(15)},
	KeyDiligent:         {binding: BindRequester, check: activityStreak(30)},
	KeyWeekendWarrior:   {binding: BindRequester, check: weekendWarrior},
	KeyStickToIt:        {binding: BindRequester, check: completedStreak(30)},
	KeySubjectStar:      {binding: BindRequester, daily: true, check: perfectCategory(5)},
	KeyPerfectionist:    {binding: BindRequester, check: perfectStreak(5)},
	KeyWishMaster:       {binding: BindRequester, check: exchangesAtLeast(10)},
	KeyPersistence:      {binding: BindRequester, check: completedStreak(30)},
	KeyTimeManager:      {binding: BindRequester, check: efficientTasksAtLeast(8, 10)},
	KeyPlanMaster:       {binding: BindRequester, check: plannedTodayAtLeast(20)},
	KeyRapidProgress:    {binding: BindRequester, check: completionRateImproved(12)},
	KeyEfficientLearner: {binding: BindRequester, check: efficientTasksAtLeast(7, 10)},
	KeyReadingStar:      {binding: BindRequester, check: readingTimeAtLeast(600)},
	KeyEarlyBird:        {binding: BindRequester, check: completedStreak(7)},
}

// BindingOf reports which account's data the rule for key reads.
func BindingOf(key Key) (Binding, bool) {
	r, ok := rules[key]
	return r.binding, ok
}

// DailyBucketed reports whether key is re-granted at most once per calendar day.
func DailyBucketed(key Key) bool {
	return rules[key].daily
}

// TaskFinder queries a user's tasks.
type TaskFinder interface {
	FindTasks(ctx context.Context, userID int64, f model.TaskFilter) ([]model.Task, error)
}

// ExchangeCounter counts a user's wish redemptions.
type ExchangeCounter interface {
	CountExchanges(ctx context.Context, userID int64) (int, error)
}

// UserGetter resolves accounts. GetUser returns nil, nil for an unknown id.
type UserGetter interface {
	GetUser(ctx context.Context, id int64) (*model.User, error)
}

// RecordStore persists per-user honor records.
type RecordStore interface {
	GetUserHonors(ctx context.Context, userID int64) ([]model.UserHonor, error)
	UpsertUserHonor(ctx context.Context, rec model.UserHonor) error
}

// CatalogSource lists honor definitions.
type CatalogSource interface {
	ListHonorCatalog(ctx context.Context) ([]model.Honor, error)
}
