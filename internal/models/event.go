package models

import (
	"time"
)

// Event status lifecycle. Status is monotonic: active -> ended -> cancelled/completed.
const (
	EventStatusActive    = "active"
	EventStatusEnded     = "ended" // transient, settlement in progress
	EventStatusCancelled = "cancelled"
	EventStatusCompleted = "completed"
)

// Event modes and kinds
const (
	EventModePot   = "pot"   // prize pool from entry fees minus rake
	EventModeHouse = "house" // fixed prize funded by the organizer

	EventKindWager   = "wager"   // random slot draw
	EventKindContest = "contest" // image popularity vote
)

type Event struct {
	ID              uint       `gorm:"primarykey" json:"id"`
	CommunityID     string     `gorm:"size:32;not null;index" json:"community_id"`
	ChannelID       string     `gorm:"size:32;not null" json:"channel_id"`
	OrganizerID     string     `gorm:"size:32;not null" json:"organizer_id"`
	Title           string     `gorm:"size:128" json:"title"`
	Mode            string     `gorm:"size:16;not null;default:'pot'" json:"mode"` // 'pot' or 'house'
	Kind            string     `gorm:"size:16;not null;default:'wager'" json:"kind"`
	Currency        string     `gorm:"size:16;not null;default:'usd'" json:"currency"`
	EntryFee        float64    `gorm:"default:0" json:"entry_fee"`
	PrizeAmount     float64    `gorm:"default:0" json:"prize_amount"` // house mode only
	MinParticipants int        `gorm:"default:2" json:"min_participants"`
	MaxParticipants int        `gorm:"default:0" json:"max_participants"` // 0 = unlimited
	SlotCount       int        `gorm:"default:0" json:"slot_count"`       // wager kind
	FavoriteOutcome *int64     `json:"favorite_outcome"`                  // contest kind, organizer preselection
	Status          string     `gorm:"size:16;not null;default:'active';index" json:"status"`
	WinningOutcome  *int64     `json:"winning_outcome"`
	Deadline        time.Time  `json:"deadline"`
	SettledAt       *time.Time `json:"settled_at"`
	CreatedAt       time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Event) TableName() string {
	return "events"
}

// Terminal reports whether the event can no longer change state.
func (e *Event) Terminal() bool {
	return e.Status == EventStatusCancelled || e.Status == EventStatusCompleted
}

// CollectsFees reports whether participants paid into the pot.
func (e *Event) CollectsFees() bool {
	return e.Mode == EventModePot
}

// EventSlot is one selectable outcome of a wager event.
type EventSlot struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	EventID   uint      `gorm:"not null;index" json:"event_id"`
	Number    int       `gorm:"not null" json:"number"`
	Label     string    `gorm:"size:64" json:"label"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (EventSlot) TableName() string {
	return "event_slots"
}

// EventImage is one candidate of an image popularity contest.
type EventImage struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	EventID     uint      `gorm:"not null;index" json:"event_id"`
	URL         string    `gorm:"size:512;not null" json:"url"`
	Caption     string    `gorm:"size:128" json:"caption"`
	SubmittedBy string    `gorm:"size:32" json:"submitted_by"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (EventImage) TableName() string {
	return "event_images"
}
