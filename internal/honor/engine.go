package honor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tabortao/HomeRecord/internal/model"
)

// Granted describes an honor newly granted by an evaluation.
type Granted struct {
	ID          int64  `json:"id"`
	Key         Key    `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// Result is the outcome of one evaluation.
type Result struct {
	EvaluationID    string    `json:"evaluation_id"`
	UserID          int64     `json:"user_id"`
	EffectiveUserID int64     `json:"effective_user_id"`
	Granted         []Granted `json:"granted"`
}

// Config controls the engine's notion of "today".
type Config struct {
	Location *time.Location
	Now      func() time.Time
}

// Engine evaluates honors for one user at a time. It is safe for
// concurrent use.
type Engine struct {
	catalog   *Catalog
	users     UserGetter
	tasks     TaskFinder
	exchanges ExchangeCounter
	records   RecordStore
	loc       *time.Location
	now       func() time.Time
	logger    *slog.Logger
}

// NewEngine creates an Engine. A zero Config uses time.Local and time.Now.
func NewEngine(catalog *Catalog, users UserGetter, tasks TaskFinder, exchanges ExchangeCounter, records RecordStore, cfg Config, logger *slog.Logger) *Engine {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		catalog:   catalog,
		users:     users,
		tasks:     tasks,
		exchanges: exchanges,
		records:   records,
		loc:       loc,
		now:       now,
		logger:    logger.With("component", "honor"),
	}
}

// Location is the time zone that defines calendar days.
func (e *Engine) Location() *time.Location {
	return e.loc
}

// Catalog returns the catalog the engine scans.
func (e *Engine) Catalog() *Catalog {
	return e.catalog
}

// Account is a requesting account resolved to the account that owns its
// honors and gold.
type Account struct {
	RequesterID int64
	EffectiveID int64
	Gold        int
}

// ResolveEffective maps a sub-account to its parent. It returns
// ErrUserNotFound when id or the parent does not exist.
func ResolveEffective(ctx context.Context, users UserGetter, id int64) (Account, error) {
	u, err := users.GetUser(ctx, id)
	if err != nil {
		return Account{}, fmt.Errorf("get user %d: %w", id, err)
	}
	if u == nil {
		return Account{}, ErrUserNotFound
	}
	if !u.IsSubAccount() {
		return Account{RequesterID: id, EffectiveID: u.ID, Gold: u.TotalGold}, nil
	}

	parent, err := users.GetUser(ctx, u.EffectiveID())
	if err != nil {
		return Account{}, fmt.Errorf("get parent %d: %w", u.EffectiveID(), err)
	}
	if parent == nil {
		return Account{}, ErrUserNotFound
	}
	return Account{RequesterID: id, EffectiveID: parent.ID, Gold: parent.TotalGold}, nil
}

// Evaluate checks every catalog honor for userID and persists grants on the
// effective account. A failing rule or write is logged and skipped; only
// resolution failures and loading existing records abort the evaluation.
func (e *Engine) Evaluate(ctx context.Context, userID int64) (*Result, error) {
	acct, err := ResolveEffective(ctx, e.users, userID)
	if err != nil {
		return nil, err
	}

	existing, err := e.records.GetUserHonors(ctx, acct.EffectiveID)
	if err != nil {
		return nil, fmt.Errorf("get user honors: %w", err)
	}
	held := make(map[int64]model.UserHonor, len(existing))
	for _, rec := range existing {
		held[rec.HonorID] = rec
	}

	evalID := uuid.Must(uuid.NewV7()).String()
	logger := e.logger.With("evaluation_id", evalID, "user_id", acct.RequesterID, "effective_user_id", acct.EffectiveID)
	src := sources{tasks: e.tasks, exchanges: e.exchanges, logger: logger}
	today := startOfDay(e.now().In(e.loc))

	res := &Result{
		EvaluationID:    evalID,
		UserID:          acct.RequesterID,
		EffectiveUserID: acct.EffectiveID,
		Granted:         []Granted{},
	}

	for _, h := range e.catalog.All() {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		key := Key(h.Key)
		r, ok := rules[key]
		if !ok {
			continue
		}

		subj := subject{userID: acct.EffectiveID, gold: acct.Gold, today: today}
		if r.binding == BindRequester {
			subj.userID = acct.RequesterID
		}

		achieved, err := e.check(ctx, key, r, src, subj)
		if err != nil {
			logger.Warn("honor rule failed", "honor", key, "error", err)
			continue
		}
		if !achieved {
			continue
		}

		now := e.now().In(e.loc)
		rec, had := held[h.ID]
		switch {
		case !had:
			rec = model.UserHonor{UserID: acct.EffectiveID, HonorID: h.ID, ObtainedCount: 1, LastObtainedAt: now}
		case r.daily && sameDay(rec.LastObtainedAt.In(e.loc), now):
			continue
		default:
			rec.ObtainedCount++
			rec.LastObtainedAt = now
		}

		if err := e.records.UpsertUserHonor(ctx, rec); err != nil {
			logger.Warn("failed to save honor", "honor", key, "error", err)
			continue
		}
		held[h.ID] = rec

		if had && !r.daily {
			logger.Debug("honor re-obtained", "honor", key, "count", rec.ObtainedCount)
			continue
		}
		logger.Info("honor granted", "honor", key, "count", rec.ObtainedCount)
		res.Granted = append(res.Granted, grantedFrom(h))
	}

	if g, ok := e.grantCapstone(ctx, logger, acct.EffectiveID, held); ok {
		res.Granted = append(res.Granted, g)
	}
	return res, nil
}

// check runs a rule, converting errors and panics into a *PredicateError.
func (e *Engine) check(ctx context.Context, key Key, r rule, src sources, s subject) (achieved bool, err error) {
	defer func() {
		if p := recover(); p != nil {
			achieved = false
			err = &PredicateError{Key: key, Err: fmt.Errorf("panic: %v", p)}
		}
	}()
	ok, err := r.check(ctx, src, s)
	if err != nil {
		return false, &PredicateError{Key: key, Err: err}
	}
	return ok, nil
}

// grantCapstone grants KeyGrowthPioneer once the effective account holds at
// least CapstoneThreshold distinct honors. It is granted at most once.
func (e *Engine) grantCapstone(ctx context.Context, logger *slog.Logger, userID int64, held map[int64]model.UserHonor) (Granted, bool) {
	if len(held) < CapstoneThreshold {
		return Granted{}, false
	}
	h, ok := e.catalog.Lookup(KeyGrowthPioneer)
	if !ok {
		return Granted{}, false
	}
	if _, had := held[h.ID]; had {
		return Granted{}, false
	}

	rec := model.UserHonor{UserID: userID, HonorID: h.ID, ObtainedCount: 1, LastObtainedAt: e.now().In(e.loc)}
	if err := e.records.UpsertUserHonor(ctx, rec); err != nil {
		logger.Warn("failed to save honor", "honor", KeyGrowthPioneer, "error", err)
		return Granted{}, false
	}
	held[h.ID] = rec
	logger.Info("honor granted", "honor", KeyGrowthPioneer, "held", len(held)-1)
	return grantedFrom(h), true
}

func grantedFrom(h model.Honor) Granted {
	return Granted{ID: h.ID, Key: Key(h.Key), Name: h.Name, Description: h.Description, Icon: h.Icon}
}
