package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/suvilkaushik/easysched-mvp/internal/identity"
	"github.com/suvilkaushik/easysched-mvp/internal/logger"
	"github.com/suvilkaushik/easysched-mvp/internal/webhook"
)

// webhookEnvelope tolerates the envelope spellings seen from the provider:
// the event name under "type" or "event", the payload under "data" or
// "payload" (or the envelope itself being the payload).
type webhookEnvelope struct {
	Type    string         `json:"type"`
	Event   string         `json:"event"`
	Data    map[string]any `json:"data"`
	Payload map[string]any `json:"payload"`
}

// Webhook ingests one lifecycle event from the IdP. Permanently
// unprocessable events (unknown type, missing id) are acknowledged with 200
// so the provider does not retry them forever.
func (h *Handler) Webhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	// Verify against the exact bytes that get parsed below.
	if err := h.verifier.Verify(body, c.Request.Header); err != nil {
		if errors.Is(err, webhook.ErrNotConfigured) {
			logger.Error("webhook received but no secret configured", nil)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "webhook not configured"})
			return
		}
		logger.Warn("webhook rejected", map[string]any{
			"error": err.Error(),
		})
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	var env webhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	eventType := env.Type
	if eventType == "" {
		eventType = env.Event
	}
	payload := env.Data
	if payload == nil {
		payload = env.Payload
	}
	if payload == nil {
		// Some historical deliveries put the user fields at the top level.
		payload = map[string]any{}
		_ = json.Unmarshal(body, &payload)
	}

	ident := identity.Normalize(eventType, payload)
	if ident == nil {
		logger.Warn("webhook event ignored", map[string]any{
			"type": eventType,
		})
		c.JSON(http.StatusOK, gin.H{"ignored": true})
		return
	}

	ctx := c.Request.Context()
	switch ident.Kind {
	case identity.Deleted:
		err = h.engine.ApplyDeactivate(ctx, ident.RemoteID)
	default:
		_, err = h.engine.ApplyCreateOrUpdate(ctx, *ident)
	}
	if err != nil {
		logger.Error("webhook apply failed", map[string]any{
			"type":     eventType,
			"remoteId": ident.RemoteID,
			"error":    err.Error(),
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store write failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
