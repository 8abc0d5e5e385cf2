package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gin-gonic/gin"

	"github.com/suvilkaushik/easysched-mvp/internal/logger"
)

// ContextUserIDKey is where RequireUser stores the verified remote user id.
const ContextUserIDKey = "userID"

// AuthMiddleware verifies IdP-issued bearer tokens. The token subject is
// the caller's remote user id; no local lookup happens here.
type AuthMiddleware struct {
	verifier *oidc.IDTokenVerifier
}

// NewAuthMiddleware discovers the IdP's OIDC configuration. The audience
// check is skipped: the IdP issues session tokens whose azp varies per
// frontend, and the only claim this service consumes is sub.
func NewAuthMiddleware(ctx context.Context, issuerURL string) (*AuthMiddleware, error) {
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("middleware: init oidc provider: %w", err)
	}
	verifier := provider.Verifier(&oidc.Config{SkipClientIDCheck: true})
	return &AuthMiddleware{verifier: verifier}, nil
}

// RequireUser aborts with 401 unless the request carries a valid bearer
// token, and stores the token subject under ContextUserIDKey.
func (a *AuthMiddleware) RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			return
		}
		raw := strings.TrimPrefix(authHeader, "Bearer ")

		token, err := a.verifier.Verify(c.Request.Context(), raw)
		if err != nil {
			logger.Warn("bearer token rejected", map[string]any{
				"error": err.Error(),
			})
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(ContextUserIDKey, token.Subject)
		c.Next()
	}
}
