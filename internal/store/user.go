package store

import (
	"context"
	"database/sql"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/tabortao/HomeRecord/internal/model"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	var parentID sql.NullInt64

	err := scanner.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Nickname, &parentID, &u.TotalGold, &u.CreatedAt)
	if err != nil {
		return nil, err
	}

	if parentID.Valid {
		u.ParentID = &parentID.Int64
	}
	return &u, nil
}

const userCols = `id, username, password_hash, nickname, parent_id, total_gold, created_at`

// Create inserts a user. A non-nil parentID makes it a sub-account.
func (s *UserStore) Create(ctx context.Context, username, password, nickname string, parentID *int64) (*model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var pID sql.NullInt64
	if parentID != nil {
		pID = sql.NullInt64{Int64: *parentID, Valid: true}
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, nickname, parent_id) VALUES (?, ?, ?, ?)`,
		username, string(hash), nickname, pID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetUser(ctx, id)
}

// GetUser returns the user with the given id, or nil if none exists.
func (s *UserStore) GetUser(ctx context.Context, id int64) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// GetByUsername returns the user with the given username, or nil if none exists.
func (s *UserStore) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE username = ?`, username)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	return u, nil
}

// AddGold adjusts a user's gold by delta. The balance never drops below zero.
func (s *UserStore) AddGold(ctx context.Context, id int64, delta int) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET total_gold = MAX(0, total_gold + ?) WHERE id = ?`, delta, id)
	if err != nil {
		return fmt.Errorf("add gold: %w", err)
	}
	return nil
}

// SpendGold deducts amount if the user can afford it. It reports false,
// leaving the balance unchanged, when the user has too little gold.
func (s *UserStore) SpendGold(ctx context.Context, id int64, amount int) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET total_gold = total_gold - ? WHERE id = ? AND total_gold >= ?`,
		amount, id, amount,
	)
	if err != nil {
		return false, fmt.Errorf("spend gold: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

// ListTopLevel returns every account that is not a sub-account, ordered by id.
func (s *UserStore) ListTopLevel(ctx context.Context) ([]model.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userCols+` FROM users WHERE parent_id IS NULL ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list top-level users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (s *UserStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}
