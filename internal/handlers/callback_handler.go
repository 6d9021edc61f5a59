package handlers

import (
	"net/http"

	"github.com/Jengeka/bingwa-sokoni/internal/services"
	"github.com/gin-gonic/gin"
)

// CallbackHandler receives asynchronous payment gateway callbacks
type CallbackHandler struct {
	callbackService services.CallbackService
}

// NewCallbackHandler creates a new CallbackHandler
func NewCallbackHandler(callbackService services.CallbackService) *CallbackHandler {
	return &CallbackHandler{
		callbackService: callbackService,
	}
}

// HandleCallback handles POST /payments/callback. Unknown references and
// duplicate deliveries are acknowledged with 200 so the gateway stops
// redelivering; only a storage failure earns a 5xx and a redelivery.
func (h *CallbackHandler) HandleCallback(c *gin.Context) {
	var req struct {
		Reference string `json:"reference" binding:"required"`
		Outcome   string `json:"outcome" binding:"required,oneof=success failure"`
		Reason    string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.callbackService.HandleCallback(c, req.Reference, services.CallbackOutcome(req.Outcome), req.Reason)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process callback: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"received":  true,
		"applied":   result.Applied,
		"duplicate": result.Duplicate,
		"points":    result.Points,
		"canRedeem": result.CanRedeem,
	})
}
