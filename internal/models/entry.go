package models

import (
	"time"
)

// Entry payment states
const (
	PaymentStatusNone         = "none"
	PaymentStatusCommitted    = "committed"
	PaymentStatusPaidOut      = "paid_out"
	PaymentStatusRefunded     = "refunded"
	PaymentStatusPayoutFailed = "payout_failed"
	PaymentStatusRefundFailed = "refund_failed"
	PaymentStatusLost         = "lost"
)

// EventEntry is one participant's bet or vote. Unique per (event, user).
type EventEntry struct {
	ID                uint      `gorm:"primarykey" json:"id"`
	EventID           uint      `gorm:"not null;uniqueIndex:idx_event_user" json:"event_id"`
	UserID            string    `gorm:"size:32;not null;uniqueIndex:idx_event_user" json:"user_id"`
	Outcome           int64     `gorm:"not null" json:"outcome"` // slot number or image id
	Amount            float64   `gorm:"default:0" json:"amount"` // staked amount in event currency
	PaymentStatus     string    `gorm:"size:16;not null;default:'none'" json:"payment_status"`
	PayoutAddress     string    `gorm:"size:64" json:"payout_address"` // captured at entry time
	TransferSignature string    `gorm:"size:128" json:"transfer_signature"`
	FailReason        string    `gorm:"size:255" json:"fail_reason"`
	CreatedAt         time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt         time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (EventEntry) TableName() string {
	return "event_entries"
}
