package model

import "time"

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Nickname     string    `json:"nickname"`
	ParentID     *int64    `json:"parent_id"`
	TotalGold    int       `json:"total_gold"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsSubAccount reports whether the user delegates to a parent account.
func (u User) IsSubAccount() bool {
	return u.ParentID != nil
}

// EffectiveID returns the account whose data is authoritative for u.
func (u User) EffectiveID() int64 {
	if u.ParentID != nil {
		return *u.ParentID
	}
	return u.ID
}
