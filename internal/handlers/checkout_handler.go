package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"escrow-service/internal/services"
)

type CheckoutHandler struct {
	Checkout *services.CheckoutService
}

func NewCheckoutHandler(checkout *services.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{Checkout: checkout}
}

type SingleCheckoutRequest struct {
	BuyerId   string  `json:"buyer_id" binding:"required"`
	Email     string  `json:"email" binding:"required,email"`
	ProductId string  `json:"product_id" binding:"required"`
	SellerId  string  `json:"seller_id" binding:"required"`
	Amount    float64 `json:"amount" binding:"required"`
}

// Single initiates payment for one listing and returns the hosted checkout
// URL the client should redirect the buyer to.
func (h *CheckoutHandler) Single(c *gin.Context) {
	var req SingleCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.Checkout.CheckoutSingle(c.Request.Context(), req.BuyerId, req.Email, req.ProductId, req.SellerId, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":                true,
		"authorization_url": result.AuthorizationUrl,
		"reference":         result.Reference,
		"transactions":      result.Transactions,
	})
}

type CartCheckoutRequest struct {
	BuyerId string `json:"buyer_id" binding:"required"`
	Email   string `json:"email" binding:"required,email"`
}

// Cart settles the buyer's stored cart as one transaction per distinct
// seller under a single charge.
func (h *CheckoutHandler) Cart(c *gin.Context) {
	var req CartCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.Checkout.CheckoutCart(c.Request.Context(), req.BuyerId, req.Email)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":                true,
		"authorization_url": result.AuthorizationUrl,
		"reference":         result.Reference,
		"transactions":      result.Transactions,
	})
}
