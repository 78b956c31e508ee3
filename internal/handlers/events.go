package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"eventcontrol/internal/models"
	"eventcontrol/internal/settlement"
	dbconfig "eventcontrol/pkg/config"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// EventRequest represents the request body for creating an event
type EventRequest struct {
	CommunityID     *string  `json:"community_id"`
	ChannelID       *string  `json:"channel_id"`
	OrganizerID     *string  `json:"organizer_id"`
	Title           *string  `json:"title"`
	Mode            *string  `json:"mode"`
	Kind            *string  `json:"kind"`
	Currency        *string  `json:"currency"`
	EntryFee        *float64 `json:"entry_fee"`
	PrizeAmount     *float64 `json:"prize_amount"`
	MinParticipants *int     `json:"min_participants"`
	MaxParticipants *int     `json:"max_participants"`
	SlotCount       *int     `json:"slot_count"`
	FavoriteOutcome *int64   `json:"favorite_outcome"`
	Deadline        *string  `json:"deadline"` // RFC3339
	Slots           []struct {
		Number int    `json:"number"`
		Label  string `json:"label"`
	} `json:"slots"`
	Images []struct {
		URL         string `json:"url"`
		Caption     string `json:"caption"`
		SubmittedBy string `json:"submitted_by"`
	} `json:"images"`
}

// EventResp represents the response structure for an event
type EventResp struct {
	models.Event
	Slots      []models.EventSlot  `json:"slots,omitempty"`
	Images     []models.EventImage `json:"images,omitempty"`
	EntryCount int64               `json:"entry_count"`
}

// ListEvents returns events, optionally filtered by community and status
func ListEvents(c *gin.Context) {
	q := dbconfig.DB.Model(&models.Event{})
	if community := c.Query("community_id"); community != "" {
		q = q.Where("community_id = ?", community)
	}
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}

	var events []models.Event
	if err := q.Order("id desc").Find(&events).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, events)
}

// GetEvent returns a specific event with its slots, images and entry count
func GetEvent(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	var event models.Event
	if err := dbconfig.DB.First(&event, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
		return
	}

	resp := EventResp{Event: event}
	dbconfig.DB.Where("event_id = ?", event.ID).Order("number asc").Find(&resp.Slots)
	dbconfig.DB.Where("event_id = ?", event.ID).Order("id asc").Find(&resp.Images)
	dbconfig.DB.Model(&models.EventEntry{}).Where("event_id = ?", event.ID).Count(&resp.EntryCount)

	c.JSON(http.StatusOK, resp)
}

// CreateEvent creates a new event with its slots or images
func CreateEvent(c *gin.Context) {
	var request EventRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if request.CommunityID == nil || request.ChannelID == nil || request.OrganizerID == nil || request.Title == nil || request.Deadline == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "community_id, channel_id, organizer_id, title and deadline are required"})
		return
	}

	mode := models.EventModePot
	if request.Mode != nil {
		mode = *request.Mode
	}
	if mode != models.EventModePot && mode != models.EventModeHouse {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be pot or house"})
		return
	}

	kind := models.EventKindWager
	if request.Kind != nil {
		kind = *request.Kind
	}
	if kind != models.EventKindWager && kind != models.EventKindContest {
		c.JSON(http.StatusBadRequest, gin.H{"error": "kind must be wager or contest"})
		return
	}

	deadline, err := time.Parse(time.RFC3339, *request.Deadline)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "deadline must be RFC3339"})
		return
	}
	if !deadline.After(time.Now()) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "deadline must be in the future"})
		return
	}

	event := models.Event{
		CommunityID:     *request.CommunityID,
		ChannelID:       *request.ChannelID,
		OrganizerID:     *request.OrganizerID,
		Title:           *request.Title,
		Mode:            mode,
		Kind:            kind,
		Currency:        "usd",
		Status:          models.EventStatusActive,
		MinParticipants: 2,
		Deadline:        deadline,
		FavoriteOutcome: request.FavoriteOutcome,
	}
	if request.Currency != nil {
		event.Currency = *request.Currency
	}
	if request.EntryFee != nil {
		event.EntryFee = *request.EntryFee
	}
	if request.PrizeAmount != nil {
		event.PrizeAmount = *request.PrizeAmount
	}
	if request.MinParticipants != nil {
		event.MinParticipants = *request.MinParticipants
	}
	if request.MaxParticipants != nil {
		event.MaxParticipants = *request.MaxParticipants
	}
	if request.SlotCount != nil {
		event.SlotCount = *request.SlotCount
	}

	switch kind {
	case models.EventKindWager:
		if len(request.Slots) > 0 && event.SlotCount == 0 {
			event.SlotCount = len(request.Slots)
		}
		if event.SlotCount < 2 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "wager events need at least 2 slots"})
			return
		}
	case models.EventKindContest:
		if len(request.Images) < 2 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "contest events need at least 2 images"})
			return
		}
	}

	switch mode {
	case models.EventModePot:
		if event.EntryFee <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "pot events need a positive entry_fee"})
			return
		}
	case models.EventModeHouse:
		if event.PrizeAmount <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "house events need a positive prize_amount"})
			return
		}
	}

	if err := dbconfig.DB.Create(&event).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	for _, s := range request.Slots {
		slot := models.EventSlot{EventID: event.ID, Number: s.Number, Label: s.Label}
		if err := dbconfig.DB.Create(&slot).Error; err != nil {
			log.Errorf("Failed to create slot for event %d: %v", event.ID, err)
		}
	}
	for _, img := range request.Images {
		image := models.EventImage{EventID: event.ID, URL: img.URL, Caption: img.Caption, SubmittedBy: img.SubmittedBy}
		if err := dbconfig.DB.Create(&image).Error; err != nil {
			log.Errorf("Failed to create image for event %d: %v", event.ID, err)
		}
	}

	c.JSON(http.StatusCreated, event)
}

// ResolveEvent triggers settlement of an active event
func ResolveEvent(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	var event models.Event
	if err := dbconfig.DB.First(&event, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
		return
	}
	if event.Status != models.EventStatusActive {
		c.JSON(http.StatusConflict, gin.H{"error": "Event is not active"})
		return
	}

	go engine.Resolve(context.Background(), event.ID, settlement.ReasonManual)

	c.JSON(http.StatusAccepted, gin.H{"status": "settling"})
}

// DeleteEvent removes an event and everything attached to it
func DeleteEvent(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	var event models.Event
	if err := dbconfig.DB.First(&event, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
		return
	}
	if event.Status == models.EventStatusEnded {
		c.JSON(http.StatusConflict, gin.H{"error": "Event is being settled"})
		return
	}

	if err := dbconfig.DB.Where("event_id = ?", event.ID).Delete(&models.EventEntry{}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	dbconfig.DB.Where("event_id = ?", event.ID).Delete(&models.EventSlot{})
	dbconfig.DB.Where("event_id = ?", event.ID).Delete(&models.EventImage{})
	if err := dbconfig.DB.Delete(&event).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
