package models

import (
	"time"
)

// TreasuryWallet is the community-held funding source for payouts and refunds.
// EncryptedKey is the AES-256-GCM encrypted signing material; empty for
// watch-only records cached from the backend.
type TreasuryWallet struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	CommunityID  string    `gorm:"size:32;not null;uniqueIndex" json:"community_id"`
	Address      string    `gorm:"size:64;not null" json:"address"`
	EncryptedKey string    `gorm:"size:512" json:"-"`
	SpentTotal   float64   `gorm:"default:0" json:"spent_total"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (TreasuryWallet) TableName() string {
	return "treasury_wallets"
}

// UserWallet is a participant's registered payout address. Payouts prefer
// this over the address captured at entry time.
type UserWallet struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	UserID    string    `gorm:"size:32;not null;uniqueIndex" json:"user_id"`
	Address   string    `gorm:"size:64;not null" json:"address"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (UserWallet) TableName() string {
	return "user_wallets"
}

// CommunityBudget tracks cumulative treasury spend per community. A house cut
// is booked as negative spend (retained income); it never moves on chain.
type CommunityBudget struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	CommunityID string    `gorm:"size:32;not null;uniqueIndex" json:"community_id"`
	SpentTotal  float64   `gorm:"default:0" json:"spent_total"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (CommunityBudget) TableName() string {
	return "community_budgets"
}
