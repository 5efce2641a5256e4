package model

import "time"

// Honor is a catalog entry. Key is the stable identifier used for rule
// dispatch; Name is for display only.
type Honor struct {
	ID          int64  `json:"id"`
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Condition   string `json:"condition"`
}

type UserHonor struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	HonorID        int64     `json:"honor_id"`
	ObtainedCount  int       `json:"obtained_count"`
	LastObtainedAt time.Time `json:"last_obtained_at"`
}
