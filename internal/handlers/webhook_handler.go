package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"escrow-service/internal/paystack"
	"escrow-service/internal/services"
	"escrow-service/internal/util"
)

// DedupCache is the optional fast-path filter for replayed deliveries. The
// store's conditional updates stay authoritative; a nil or failing cache
// only means duplicate work, never duplicate effects.
type DedupCache interface {
	MarkProcessed(ctx context.Context, reference string, ttl time.Duration) (bool, error)
	Forget(ctx context.Context, reference string) error
}

type WebhookHandler struct {
	Escrow *services.EscrowService
	Secret string
	Dedup  DedupCache
	Logger *zap.Logger
}

func NewWebhookHandler(escrow *services.EscrowService, secret string, dedup DedupCache) *WebhookHandler {
	return &WebhookHandler{
		Escrow: escrow,
		Secret: secret,
		Dedup:  dedup,
		Logger: util.GetLogger(),
	}
}

type webhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
		Metadata  struct {
			TransactionID string   `json:"transaction_id"`
			CartTxIDs     []string `json:"cart_tx_ids"`
			BuyerID       string   `json:"buyer_id"`
		} `json:"metadata"`
	} `json:"data"`
}

// HandlePaystack is the sole entry point for payment-provider callbacks.
// The signature is checked over the raw body before anything is parsed;
// nothing downstream runs on an unverified payload.
func (h *WebhookHandler) HandlePaystack(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unable to read request body"})
		return
	}

	signature := c.GetHeader(paystack.SignatureHeader)
	if !paystack.VerifySignature(h.Secret, raw, signature) {
		util.WebhooksReceivedTotal.WithLabelValues("unknown", "rejected").Inc()
		h.Logger.Warn("webhook signature rejected", zap.Int("body_bytes", len(raw)))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook signature"})
		return
	}

	var event webhookEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook payload"})
		return
	}

	if event.Event != "charge.success" {
		// Acknowledge events this system does not model so the provider
		// stops retrying them.
		util.WebhooksReceivedTotal.WithLabelValues(event.Event, "ignored").Inc()
		h.Escrow.LogIgnoredWebhook(c.Request.Context(), event.Event, event.Data.Reference, raw, "unhandled event")
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	ids := event.Data.Metadata.CartTxIDs
	if len(ids) == 0 && event.Data.Metadata.TransactionID != "" {
		ids = []string{event.Data.Metadata.TransactionID}
	}
	if len(ids) == 0 {
		// Redelivery of the same payload can never supply the missing
		// correlation ids, so acknowledge and keep the evidence.
		util.WebhooksReceivedTotal.WithLabelValues(event.Event, "uncorrelated").Inc()
		h.Escrow.LogIgnoredWebhook(c.Request.Context(), event.Event, event.Data.Reference, raw, "no correlation ids in metadata")
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	marked := false
	if h.Dedup != nil && event.Data.Reference != "" {
		fresh, err := h.Dedup.MarkProcessed(c.Request.Context(), event.Data.Reference, 24*time.Hour)
		if err != nil {
			h.Logger.Warn("dedup cache unavailable", zap.Error(err))
		} else if !fresh {
			util.WebhooksReceivedTotal.WithLabelValues(event.Event, "duplicate").Inc()
			c.JSON(http.StatusOK, gin.H{"ok": true})
			return
		} else {
			marked = true
		}
	}

	if err := h.Escrow.HandleChargeSuccess(c.Request.Context(), ids, event.Data.Reference, event.Data.Metadata.BuyerID, raw); err != nil {
		if marked {
			// Let the provider's retry get past the cache.
			if forgetErr := h.Dedup.Forget(c.Request.Context(), event.Data.Reference); forgetErr != nil {
				h.Logger.Warn("failed to clear dedup mark", zap.Error(forgetErr))
			}
		}
		util.WebhooksReceivedTotal.WithLabelValues(event.Event, "failed").Inc()
		respondError(c, err)
		return
	}

	util.WebhooksReceivedTotal.WithLabelValues(event.Event, "processed").Inc()
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
