package app

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/suvilkaushik/easysched-mvp/internal/config"
	"github.com/suvilkaushik/easysched-mvp/internal/handler"
	"github.com/suvilkaushik/easysched-mvp/internal/idp"
	"github.com/suvilkaushik/easysched-mvp/internal/logger"
	"github.com/suvilkaushik/easysched-mvp/internal/middleware"
	"github.com/suvilkaushik/easysched-mvp/internal/reconcile"
	"github.com/suvilkaushik/easysched-mvp/internal/sync"
	"github.com/suvilkaushik/easysched-mvp/internal/webhook"
)

func setupHTTP(ctx context.Context, cfg config.Config) (*gin.Engine, func() error, error) {

	infra, err := setupInfra(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	// ----------------------------
	// Dependencies
	// ----------------------------

	verifier, err := webhook.NewVerifier(cfg.WebhookSecret)
	if err != nil {
		return nil, nil, err
	}
	if cfg.WebhookSecret == "" {
		logger.Warn("webhook secret not configured; webhook deliveries will be rejected", nil)
	}

	idpClient, err := idp.NewRESTClient(cfg.IdPAPIBaseURL, cfg.IdPSecretKey)
	if err != nil {
		return nil, nil, err
	}

	engine := reconcile.NewEngine(infra.Store)
	orchestrator := sync.NewOrchestrator(infra.Store, idpClient, engine, cfg.SyncPageSize)

	runner := sync.NewRunner(orchestrator, infra.Redis)

	var authed gin.HandlerFunc
	if cfg.IdPIssuerURL != "" {
		authMiddleware, err := middleware.NewAuthMiddleware(ctx, cfg.IdPIssuerURL)
		if err != nil {
			return nil, nil, err
		}
		authed = authMiddleware.RequireUser()
	} else {
		logger.Warn("CLERK_ISSUER_URL not set; per-user sync endpoint disabled", nil)
		authed = func(c *gin.Context) {
			c.AbortWithStatusJSON(503, gin.H{"error": "per-user sync not configured"})
		}
	}

	h := handler.NewHandler(verifier, engine, runner, idpClient)

	// ----------------------------
	// Router
	// ----------------------------

	router := gin.New()
	router.Use(gin.Recovery())

	h.RegisterRoutes(router, authed)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ----------------------------
	// Cleanup
	// ----------------------------

	return router, func() error {
		if infra.Redis != nil {
			_ = infra.Redis.Close()
		}
		return infra.Mongo.Disconnect(context.Background())
	}, nil
}
