package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"eventcontrol/internal/models"
	"eventcontrol/internal/settlement"
	dbconfig "eventcontrol/pkg/config"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// EntryRequest represents the request body for joining an event
type EntryRequest struct {
	UserID        *string  `json:"user_id"`
	Outcome       *int64   `json:"outcome"`
	Amount        *float64 `json:"amount"`
	PayoutAddress *string  `json:"payout_address"`
}

// ListEventEntries returns all entries of an event
func ListEventEntries(c *gin.Context) {
	eventID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	var entries []models.EventEntry
	if err := dbconfig.DB.Where("event_id = ?", eventID).Order("id asc").Find(&entries).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, entries)
}

// CreateEntry joins a user into an event
func CreateEntry(c *gin.Context) {
	eventID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	var request EntryRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if request.UserID == nil || request.Outcome == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and outcome are required"})
		return
	}

	var event models.Event
	if err := dbconfig.DB.First(&event, eventID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
		return
	}
	if event.Status != models.EventStatusActive {
		c.JSON(http.StatusConflict, gin.H{"error": "Event is not accepting entries"})
		return
	}
	if !event.Deadline.After(time.Now()) {
		c.JSON(http.StatusConflict, gin.H{"error": "Entry deadline has passed"})
		return
	}

	if !validOutcome(&event, *request.Outcome) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "outcome is not a valid choice for this event"})
		return
	}

	var count int64
	if err := dbconfig.DB.Model(&models.EventEntry{}).Where("event_id = ?", event.ID).Count(&count).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if event.MaxParticipants > 0 && count >= int64(event.MaxParticipants) {
		c.JSON(http.StatusConflict, gin.H{"error": "Event is full"})
		return
	}

	entry := models.EventEntry{
		EventID:       event.ID,
		UserID:        *request.UserID,
		Outcome:       *request.Outcome,
		PaymentStatus: models.PaymentStatusNone,
	}
	if request.PayoutAddress != nil {
		entry.PayoutAddress = *request.PayoutAddress
	}

	if event.CollectsFees() {
		if request.Amount == nil || *request.Amount != event.EntryFee {
			c.JSON(http.StatusBadRequest, gin.H{"error": "amount must equal the event entry_fee"})
			return
		}
		entry.Amount = *request.Amount
		entry.PaymentStatus = models.PaymentStatusCommitted
	}

	if err := dbconfig.DB.Create(&entry).Error; err != nil {
		if strings.Contains(err.Error(), "idx_event_user") || strings.Contains(err.Error(), "duplicate") {
			c.JSON(http.StatusConflict, gin.H{"error": "User already joined this event"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// A full event settles immediately instead of waiting for the deadline.
	if event.MaxParticipants > 0 && count+1 >= int64(event.MaxParticipants) {
		log.Infof("Event %d reached capacity, triggering settlement", event.ID)
		go engine.Resolve(context.Background(), event.ID, settlement.ReasonThreshold)
	}

	c.JSON(http.StatusCreated, entry)
}

// validOutcome checks the chosen outcome against the event's slots or images.
func validOutcome(event *models.Event, outcome int64) bool {
	switch event.Kind {
	case models.EventKindWager:
		return outcome >= 1 && outcome <= int64(event.SlotCount)
	case models.EventKindContest:
		var n int64
		dbconfig.DB.Model(&models.EventImage{}).
			Where("event_id = ? AND id = ?", event.ID, outcome).
			Count(&n)
		return n > 0
	}
	return false
}
