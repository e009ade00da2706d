package middleware

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	cache "github.com/patrickmn/go-cache"

	"github.com/gramsetu/chw-api/internal/model"
	"github.com/gramsetu/chw-api/internal/repository"
	"github.com/gramsetu/chw-api/pkg/auth"
	apperrors "github.com/gramsetu/chw-api/pkg/errors"
	"github.com/gramsetu/chw-api/pkg/httputil"
)

const ContextIdentity = "identity"

// AuthMiddleware is the credential gate: it validates the bearer token
// and resolves the acting worker, rejecting tokens whose worker has been
// deactivated since issuance. Worker rows are cached briefly so the gate
// does not cost a DB round trip per request.
type AuthMiddleware struct {
	tokens     auth.TokenService
	workerRepo repository.WorkerRepository
	workers    *cache.Cache
}

func NewAuthMiddleware(tokens auth.TokenService, workerRepo repository.WorkerRepository, cacheTTL time.Duration) *AuthMiddleware {
	return &AuthMiddleware{
		tokens:     tokens,
		workerRepo: workerRepo,
		workers:    cache.New(cacheTTL, 2*cacheTTL),
	}
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortUnauthorized(c, "access denied, no token provided")
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortUnauthorized(c, "invalid authorization format")
			return
		}

		claims, err := m.tokens.Validate(parts[1])
		if err != nil {
			if errors.Is(err, auth.ErrTokenExpired) {
				abortUnauthorized(c, "token expired")
				return
			}
			abortUnauthorized(c, "invalid token")
			return
		}

		worker, err := m.loadWorker(c, claims.WorkerID)
		if err != nil || !worker.IsActive {
			abortUnauthorized(c, "worker not found or inactive")
			return
		}

		c.Set(ContextIdentity, model.Identity{
			WorkerID: worker.WorkerID,
			Role:     worker.Role,
		})
		c.Next()
	}
}

// RequireRole gates an endpoint to one role. Must run after RequireAuth.
func (m *AuthMiddleware) RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := IdentityFromContext(c)
		if !ok {
			abortUnauthorized(c, "unauthorized")
			return
		}
		if identity.Role != role {
			httputil.RespondWithError(c, apperrors.NewForbidden(
				fmt.Sprintf("access denied, %s role required", role)))
			c.Abort()
			return
		}
		c.Next()
	}
}

func (m *AuthMiddleware) loadWorker(c *gin.Context, workerID string) (*model.Worker, error) {
	if cached, ok := m.workers.Get(workerID); ok {
		return cached.(*model.Worker), nil
	}

	worker, err := m.workerRepo.Get(c.Request.Context(), workerID)
	if err != nil {
		return nil, err
	}

	m.workers.Set(workerID, worker, cache.DefaultExpiration)
	return worker, nil
}

// IdentityFromContext returns the authenticated caller set by RequireAuth
func IdentityFromContext(c *gin.Context) (model.Identity, bool) {
	v, ok := c.Get(ContextIdentity)
	if !ok {
		return model.Identity{}, false
	}
	identity, ok := v.(model.Identity)
	return identity, ok
}

func abortUnauthorized(c *gin.Context, message string) {
	httputil.RespondWithError(c, apperrors.NewUnauthorized(message))
	c.Abort()
}
