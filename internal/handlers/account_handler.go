package handlers

import (
	"net/http"

	"github.com/Jengeka/bingwa-sokoni/internal/services"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AccountHandler handles account-related HTTP requests
type AccountHandler struct {
	accountService services.AccountService
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(accountService services.AccountService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
	}
}

// Register handles POST /accounts
func (h *AccountHandler) Register(c *gin.Context) {
	var req struct {
		Name  string `json:"name" binding:"required"`
		Phone string `json:"phone" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	account, err := h.accountService.Register(c, req.Name, req.Phone)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, account)
}

// GetAccountByID handles GET /accounts/:id
func (h *AccountHandler) GetAccountByID(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	account, err := h.accountService.GetAccount(c, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, account)
}

// GetTransactions handles GET /accounts/:id/transactions
func (h *AccountHandler) GetTransactions(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	transactions, err := h.accountService.GetTransactions(c, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, transactions)
}

// RequestHelp handles POST /help/whatsapp
func (h *AccountHandler) RequestHelp(c *gin.Context) {
	var req struct {
		Phone   string `json:"phone" binding:"required"`
		Message string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.accountService.RequestHelp(c, req.Phone, req.Message); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Your help request has been sent to our WhatsApp support",
	})
}
