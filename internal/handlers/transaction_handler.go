package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"escrow-service/internal/models"
	"escrow-service/internal/services"
	"escrow-service/pkg/common"
)

// TransactionLister serves the read side of the transactions API.
type TransactionLister interface {
	ListByUser(ctx context.Context, userID, role string, page, limit int) ([]models.Transaction, int64, error)
}

type TransactionHandler struct {
	Escrow *services.EscrowService
	Lister TransactionLister
}

func NewTransactionHandler(escrow *services.EscrowService, lister TransactionLister) *TransactionHandler {
	return &TransactionHandler{Escrow: escrow, Lister: lister}
}

type ConfirmRequest struct {
	TransactionId string `json:"transaction_id" binding:"required"`
	UserId        string `json:"user_id" binding:"required"`
}

// ConfirmBuyer applies the buyer's delivery confirmation.
func (h *TransactionHandler) ConfirmBuyer(c *gin.Context) {
	h.confirm(c, services.PartyBuyer)
}

// ConfirmSeller applies the seller's delivery confirmation.
func (h *TransactionHandler) ConfirmSeller(c *gin.Context) {
	h.confirm(c, services.PartySeller)
}

func (h *TransactionHandler) confirm(c *gin.Context, party services.Party) {
	var req ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "transaction_id and user_id are required"})
		return
	}

	trx, err := h.Escrow.Confirm(c.Request.Context(), party, req.TransactionId, req.UserId)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "transaction": trx})
}

func (h *TransactionHandler) Get(c *gin.Context) {
	trx, err := h.Escrow.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "transaction": trx})
}

func (h *TransactionHandler) List(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	transactions, total, err := h.Lister.ListByUser(c.Request.Context(), userID, c.Query("role"), page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch transactions"})
		return
	}

	c.JSON(http.StatusOK, common.PaginateResponse(transactions, total, page, limit, ""))
}

// Cancel is the administrative failure path; it bypasses delivery
// confirmation entirely.
func (h *TransactionHandler) Cancel(c *gin.Context) {
	trx, err := h.Escrow.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "transaction": trx})
}

// Refund marks a paid transaction refunded; administrative like Cancel.
func (h *TransactionHandler) Refund(c *gin.Context) {
	trx, err := h.Escrow.Refund(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "transaction": trx})
}
