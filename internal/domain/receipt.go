package domain

import "time"

// TurnReceipt represents the recorded outcome of a previously processed chat
// turn, keyed by (business_id, session_id, key). It enables safe client
// retries of POST /chat (duplicate network sends) by replaying the original
// turn instead of re-invoking the completion provider.
type TurnReceipt struct {
	ID         string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	BusinessID string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_business_session_key,priority:1"`
	SessionID  string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_business_session_key,priority:2"`
	Key        string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_business_session_key,priority:3"`
	LogID      string    `gorm:"type:TEXT NOT NULL"`
	Status     int       `gorm:"type:INTEGER NOT NULL"`
	CreatedAt  time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	ExpiresAt  time.Time `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (TurnReceipt) TableName() string { return "turn_receipts" }
