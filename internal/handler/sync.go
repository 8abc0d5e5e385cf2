package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/suvilkaushik/easysched-mvp/internal/identity"
	"github.com/suvilkaushik/easysched-mvp/internal/logger"
	"github.com/suvilkaushik/easysched-mvp/internal/middleware"
	"github.com/suvilkaushik/easysched-mvp/internal/sync"
)

// SyncUsers triggers a full two-way sync. Invoked manually or by cron.
func (h *Handler) SyncUsers(c *gin.Context) {
	report, err := h.runner.Run(c.Request.Context())
	if errors.Is(err, sync.ErrAlreadyRunning) {
		c.JSON(http.StatusConflict, gin.H{"ok": false, "error": err.Error()})
		return
	}
	if err != nil {
		logger.Error("full sync failed to start", map[string]any{
			"error": err.Error(),
		})
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "report": report})
}

// SyncReport returns the last stored full-sync report.
func (h *Handler) SyncReport(c *gin.Context) {
	report, err := h.runner.LastReport(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	if report == nil {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "no sync has run yet"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "report": report})
}

type syncMeRequest struct {
	RemoteID string `json:"remoteId"`
}

// SyncMe re-pulls the calling user's remote identity and applies it. A
// caller may only force-sync themselves; the verified token subject must
// match the requested id.
func (h *Handler) SyncMe(c *gin.Context) {
	var req syncMeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RemoteID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing remoteId"})
		return
	}

	callerID := c.GetString(middleware.ContextUserIDKey)
	if callerID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	if callerID != req.RemoteID {
		c.JSON(http.StatusForbidden, gin.H{"error": "may only sync your own user"})
		return
	}

	remote, err := h.idp.GetUser(c.Request.Context(), req.RemoteID)
	if err != nil {
		logger.Warn("per-user sync fetch failed", map[string]any{
			"remoteId": req.RemoteID,
			"error":    err.Error(),
		})
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed fetching remote user"})
		return
	}

	ident := identity.FromRemote(remote, identity.Updated)
	if ident.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "remote user has no email"})
		return
	}

	_, err = h.engine.ApplyCreateOrUpdate(c.Request.Context(), ident)
	if err == nil && (remote.Banned || remote.Locked) {
		// Banned and locked accounts read as deactivated, same as during a
		// full sync. Applied after the update so the profile stays fresh.
		err = h.engine.ApplyDeactivate(c.Request.Context(), remote.ID)
	}
	if err != nil {
		logger.Error("per-user sync apply failed", map[string]any{
			"remoteId": req.RemoteID,
			"error":    err.Error(),
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sync failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "id": remote.ID, "email": ident.Email})
}
