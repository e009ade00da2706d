package worker

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gramsetu/chw-api/internal/middleware"
	"github.com/gramsetu/chw-api/internal/model"
	"github.com/gramsetu/chw-api/internal/service/worker"
	apperrors "github.com/gramsetu/chw-api/pkg/errors"
	"github.com/gramsetu/chw-api/pkg/httputil"
)

type Handler struct {
	svc  worker.Service
	auth *middleware.AuthMiddleware
}

func NewHandler(svc worker.Service, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{svc: svc, auth: auth}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	workers := r.Group("/workers")
	{
		workers.GET("/profile", h.GetProfile)
		workers.PUT("/profile", h.UpdateProfile)
		workers.GET("", h.auth.RequireRole(model.RoleFacilityStaff), h.ListWorkers)
	}
}

func (h *Handler) GetProfile(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.NewUnauthorized("unauthorized"))
		return
	}

	w, err := h.svc.Profile(c.Request.Context(), identity.WorkerID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, gin.H{"worker": w})
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.NewUnauthorized("unauthorized"))
		return
	}

	var req model.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBindingError(c, err)
		return
	}

	w, err := h.svc.UpdateProfile(c.Request.Context(), identity.WorkerID, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithMessage(c, http.StatusOK, "profile updated successfully", gin.H{"worker": w})
}

func (h *Handler) ListWorkers(c *gin.Context) {
	workers, err := h.svc.List(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, gin.H{
		"workers": workers,
		"total":   len(workers),
	})
}
