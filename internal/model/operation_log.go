package model

import "time"

// Operation types written to the audit log. Only OperationWishExchange is
// read back, as the exchange count.
const (
	OperationWishExchange = "wish_exchange"
	OperationTaskComplete = "task_complete"
	OperationTaskUndo     = "task_undo"
	OperationGoldUpdate   = "gold_update"
)

// OperationSuccess is the result recorded for completed operations.
const OperationSuccess = "success"

type OperationLog struct {
	ID               int64     `json:"id"`
	UserID           int64     `json:"user_id"`
	OperationType    string    `json:"operation_type"`
	OperationContent string    `json:"operation_content"`
	OperationResult  string    `json:"operation_result"`
	OperationTime    time.Time `json:"operation_time"`
}
