package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tabortao/HomeRecord/internal/model"
)

type HonorStore struct {
	db *sql.DB
}

func NewHonorStore(db *sql.DB) *HonorStore {
	return &HonorStore{db: db}
}

// --- Catalog methods ---

func scanHonor(scanner interface{ Scan(...any) error }) (*model.Honor, error) {
	var h model.Honor
	err := scanner.Scan(&h.ID, &h.Key, &h.Name, &h.Description, &h.Icon, &h.Condition)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

const honorCols = `id, honor_key, name, description, icon, condition`

// ListHonorCatalog returns every catalog entry ordered by id.
func (s *HonorStore) ListHonorCatalog(ctx context.Context) ([]model.Honor, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+honorCols+` FROM honors ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list honors: %w", err)
	}
	defer rows.Close()

	var honors []model.Honor
	for rows.Next() {
		h, err := scanHonor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan honor: %w", err)
		}
		honors = append(honors, *h)
	}
	return honors, rows.Err()
}

// --- User honor methods ---

func scanUserHonor(scanner interface{ Scan(...any) error }) (*model.UserHonor, error) {
	var uh model.UserHonor
	err := scanner.Scan(&uh.ID, &uh.UserID, &uh.HonorID, &uh.ObtainedCount, &uh.LastObtainedAt)
	if err != nil {
		return nil, err
	}
	return &uh, nil
}

const userHonorCols = `id, user_id, honor_id, obtained_count, obtained_at`

// GetUserHonors returns the user's honor records ordered by honor id.
func (s *HonorStore) GetUserHonors(ctx context.Context, userID int64) ([]model.UserHonor, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userHonorCols+` FROM user_honors WHERE user_id = ? ORDER BY honor_id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list user honors: %w", err)
	}
	defer rows.Close()

	var records []model.UserHonor
	for rows.Next() {
		uh, err := scanUserHonor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user honor: %w", err)
		}
		records = append(records, *uh)
	}
	return records, rows.Err()
}

// UpsertUserHonor writes rec keyed by (user_id, honor_id), replacing the
// count and timestamp of an existing record.
func (s *HonorStore) UpsertUserHonor(ctx context.Context, rec model.UserHonor) error {
	if rec.ObtainedCount < 1 {
		return fmt.Errorf("upsert user honor: obtained_count %d < 1", rec.ObtainedCount)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_honors (user_id, honor_id, obtained_count, obtained_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (user_id, honor_id) DO UPDATE SET
		     obtained_count = excluded.obtained_count,
		     obtained_at = excluded.obtained_at`,
		rec.UserID, rec.HonorID, rec.ObtainedCount, rec.LastObtainedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert user honor: %w", err)
	}
	return nil
}
