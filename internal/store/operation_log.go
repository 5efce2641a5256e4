package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tabortao/HomeRecord/internal/model"
)

type OperationLogStore struct {
	db *sql.DB
}

func NewOperationLogStore(db *sql.DB) *OperationLogStore {
	return &OperationLogStore{db: db}
}

const operationLogCols = `id, user_id, operation_type, operation_content, operation_result, operation_time`

func (s *OperationLogStore) Create(ctx context.Context, userID int64, opType, content, result string) (*model.OperationLog, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO operation_logs (user_id, operation_type, operation_content, operation_result) VALUES (?, ?, ?, ?)`,
		userID, opType, content, result,
	)
	if err != nil {
		return nil, fmt.Errorf("insert operation log: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	var l model.OperationLog
	err = s.db.QueryRowContext(ctx, `SELECT `+operationLogCols+` FROM operation_logs WHERE id = ?`, id).Scan(
		&l.ID, &l.UserID, &l.OperationType, &l.OperationContent, &l.OperationResult, &l.OperationTime,
	)
	if err != nil {
		return nil, fmt.Errorf("get operation log: %w", err)
	}
	return &l, nil
}

// Count returns how many entries of opType the user has.
func (s *OperationLogStore) Count(ctx context.Context, userID int64, opType string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM operation_logs WHERE user_id = ? AND operation_type = ?`,
		userID, opType,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", opType, err)
	}
	return n, nil
}

// CountExchanges returns how many wishes the user has redeemed.
func (s *OperationLogStore) CountExchanges(ctx context.Context, userID int64) (int, error) {
	return s.Count(ctx, userID, model.OperationWishExchange)
}
