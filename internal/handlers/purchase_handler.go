package handlers

import (
	"net/http"

	"github.com/Jengeka/bingwa-sokoni/internal/models"
	"github.com/Jengeka/bingwa-sokoni/internal/services"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PurchaseHandler handles purchase initiation HTTP requests
type PurchaseHandler struct {
	purchaseService services.PurchaseService
}

// NewPurchaseHandler creates a new PurchaseHandler
func NewPurchaseHandler(purchaseService services.PurchaseService) *PurchaseHandler {
	return &PurchaseHandler{
		purchaseService: purchaseService,
	}
}

// PurchaseAirtime handles POST /purchases/airtime
func (h *PurchaseHandler) PurchaseAirtime(c *gin.Context) {
	var req struct {
		AccountID string `json:"accountId" binding:"required"`
		Amount    int    `json:"amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	accountID, err := primitive.ObjectIDFromHex(req.AccountID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid account ID format"})
		return
	}

	result, err := h.purchaseService.InitiatePurchase(c, accountID, services.ProductSelection{
		Product: models.ProductAirtime,
		Amount:  req.Amount,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	// The gateway confirms asynchronously; points and transactions exist
	// only after the callback is reconciled.
	c.JSON(http.StatusAccepted, gin.H{
		"success":        true,
		"message":        "Airtime purchase initiated",
		"idempotencyKey": result.IdempotencyKey,
		"state":          result.State,
	})
}

// PurchaseData handles POST /purchases/data
func (h *PurchaseHandler) PurchaseData(c *gin.Context) {
	var req struct {
		AccountID string `json:"accountId" binding:"required"`
		Bundle    string `json:"bundle" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	accountID, err := primitive.ObjectIDFromHex(req.AccountID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid account ID format"})
		return
	}

	result, err := h.purchaseService.InitiatePurchase(c, accountID, services.ProductSelection{
		Product: models.ProductData,
		Bundle:  req.Bundle,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success":        true,
		"message":        "Data bundle purchase initiated",
		"idempotencyKey": result.IdempotencyKey,
		"state":          result.State,
	})
}
