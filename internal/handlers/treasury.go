package handlers

import (
	"errors"
	"net/http"

	"eventcontrol/internal/models"
	dbconfig "eventcontrol/pkg/config"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetTreasuryWallet returns the community's treasury wallet. A community with
// no treasury gets an explicit null, not a 404.
func GetTreasuryWallet(c *gin.Context) {
	communityID := c.Param("community_id")

	var wallet models.TreasuryWallet
	err := dbconfig.DB.Where("community_id = ?", communityID).First(&wallet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusOK, gin.H{"wallet": nil})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"wallet": wallet})
}

// ConnectTreasuryWallet provisions a treasury key pair for a community and
// caches its address. Idempotent: an existing treasury is returned as is.
func ConnectTreasuryWallet(c *gin.Context) {
	communityID := c.Param("community_id")

	var existing models.TreasuryWallet
	err := dbconfig.DB.Where("community_id = ?", communityID).First(&existing).Error
	if err == nil {
		c.JSON(http.StatusOK, gin.H{"wallet": existing})
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	address, err := keystore.Generate(communityID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	wallet := models.TreasuryWallet{CommunityID: communityID, Address: address}
	if err := dbconfig.DB.Create(&wallet).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"wallet": wallet})
}

// DisconnectTreasuryWallet removes a community's treasury wallet and its
// stored key material.
func DisconnectTreasuryWallet(c *gin.Context) {
	communityID := c.Param("community_id")

	if err := keystore.Delete(communityID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := dbconfig.DB.Where("community_id = ?", communityID).Delete(&models.TreasuryWallet{}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"wallet": nil})
}

// UserWalletRequest represents the request body for registering a payout address
type UserWalletRequest struct {
	Address *string `json:"address"`
}

// RegisterUserWallet upserts a user's payout address
func RegisterUserWallet(c *gin.Context) {
	userID := c.Param("user_id")

	var request UserWalletRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if request.Address == nil || *request.Address == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "address is required"})
		return
	}

	wallet := models.UserWallet{UserID: userID, Address: *request.Address}
	err := dbconfig.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"address"}),
	}).Create(&wallet).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, wallet)
}

// GetUserWallet returns a user's registered payout address
func GetUserWallet(c *gin.Context) {
	userID := c.Param("user_id")

	var wallet models.UserWallet
	err := dbconfig.DB.Where("user_id = ?", userID).First(&wallet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusOK, gin.H{"wallet": nil})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"wallet": wallet})
}

// ListLedger returns the community's on-chain payout ledger
func ListLedger(c *gin.Context) {
	communityID := c.Param("community_id")

	var rows []models.LedgerTransaction
	if err := dbconfig.DB.Where("community_id = ?", communityID).Order("id desc").Limit(200).Find(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, rows)
}
