package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"escrow-service/internal/services"
)

type PayoutHandler struct {
	Escrow    *services.EscrowService
	Recipient *services.RecipientService
}

func NewPayoutHandler(escrow *services.EscrowService, recipient *services.RecipientService) *PayoutHandler {
	return &PayoutHandler{Escrow: escrow, Recipient: recipient}
}

type ReleaseRequest struct {
	TransactionId string `json:"transaction_id" binding:"required"`
}

// Release drives a payout for a fully-confirmed transaction. The usual
// trigger is the second confirmation call; this endpoint covers retries
// after a failed transfer or late recipient setup.
func (h *PayoutHandler) Release(c *gin.Context) {
	var req ReleaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "transaction_id is required"})
		return
	}

	result, err := h.Escrow.ReleaseFunds(c.Request.Context(), req.TransactionId)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":          true,
		"transfer":    result.Transfer,
		"transaction": result.Transaction,
	})
}

type RegisterRecipientRequest struct {
	UserId        string `json:"user_id" binding:"required"`
	BankCode      string `json:"bank_code" binding:"required"`
	AccountNumber string `json:"account_number" binding:"required"`
	AccountName   string `json:"account_name" binding:"required"`
}

// RegisterRecipient stores a seller's payout destination; required before
// any escrow can be released to them.
func (h *PayoutHandler) RegisterRecipient(c *gin.Context) {
	var req RegisterRecipientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile, err := h.Recipient.Register(c.Request.Context(), req.UserId, req.BankCode, req.AccountNumber, req.AccountName)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "profile": profile})
}
