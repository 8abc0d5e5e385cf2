package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/suvilkaushik/easysched-mvp/internal/idp"
	"github.com/suvilkaushik/easysched-mvp/internal/reconcile"
	"github.com/suvilkaushik/easysched-mvp/internal/sync"
	"github.com/suvilkaushik/easysched-mvp/internal/webhook"
)

// Handler exposes the reconciliation surface over HTTP: the provider
// webhook, the bulk sync trigger and the per-user on-demand sync.
type Handler struct {
	verifier *webhook.Verifier
	engine   *reconcile.Engine
	runner   *sync.Runner
	idp      idp.Client
}

func NewHandler(
	verifier *webhook.Verifier,
	engine *reconcile.Engine,
	runner *sync.Runner,
	client idp.Client,
) *Handler {
	return &Handler{
		verifier: verifier,
		engine:   engine,
		runner:   runner,
		idp:      client,
	}
}

// RegisterRoutes wires the public routes. authed guards the routes that
// require a verified caller identity.
func (h *Handler) RegisterRoutes(r *gin.Engine, authed gin.HandlerFunc) {
	r.POST("/api/idp/webhook", h.Webhook)

	// GET kept so a cron scheduler can hit the same trigger.
	r.POST("/api/sync/users", h.SyncUsers)
	r.GET("/api/sync/users", h.SyncUsers)
	r.GET("/api/sync/report", h.SyncReport)

	me := r.Group("/api/sync")
	if authed != nil {
		me.Use(authed)
	}
	me.POST("/me", h.SyncMe)
}
