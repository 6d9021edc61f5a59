package handlers

import (
	"net/http"

	"github.com/Jengeka/bingwa-sokoni/internal/services"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RedemptionHandler handles point redemption HTTP requests
type RedemptionHandler struct {
	redemptionService services.RedemptionService
}

// NewRedemptionHandler creates a new RedemptionHandler
func NewRedemptionHandler(redemptionService services.RedemptionService) *RedemptionHandler {
	return &RedemptionHandler{
		redemptionService: redemptionService,
	}
}

// Redeem handles POST /accounts/:id/redeem
func (h *RedemptionHandler) Redeem(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	result, err := h.redemptionService.Redeem(c, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"message":       "Points redeemed successfully",
		"points":        result.Points,
		"walletBalance": result.WalletBalance,
	})
}
