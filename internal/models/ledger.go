package models

import (
	"time"
)

// LedgerTransaction is an immutable record of one executed transfer.
// Rows are only ever appended, in the order payments executed.
type LedgerTransaction struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	CommunityID string    `gorm:"size:32;not null;index" json:"community_id"`
	EventID     uint      `gorm:"index" json:"event_id"`
	FromAddress string    `gorm:"size:64;not null" json:"from_address"`
	ToAddress   string    `gorm:"size:64;not null" json:"to_address"`
	Amount      float64   `gorm:"not null" json:"amount"` // native units (SOL)
	Signature   string    `gorm:"size:128;not null" json:"signature"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (LedgerTransaction) TableName() string {
	return "ledger_transactions"
}
