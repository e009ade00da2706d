package sync

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gramsetu/chw-api/internal/middleware"
	"github.com/gramsetu/chw-api/internal/model"
	"github.com/gramsetu/chw-api/internal/service/sync"
	apperrors "github.com/gramsetu/chw-api/pkg/errors"
	"github.com/gramsetu/chw-api/pkg/httputil"
)

type Handler struct {
	svc sync.Service
}

func NewHandler(svc sync.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	group := r.Group("/sync")
	{
		group.POST("/patients", h.PushPatients)
		group.GET("/patients", h.PullPatients)
		group.GET("/status", h.SyncStatus)
	}
}

func (h *Handler) PushPatients(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.NewUnauthorized("unauthorized"))
		return
	}

	var req model.SyncBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBindingError(c, err)
		return
	}

	result, err := h.svc.Push(c.Request.Context(), identity.WorkerID, req.Patients)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithMessage(c, http.StatusOK, "sync completed", result)
}

func (h *Handler) PullPatients(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.NewUnauthorized("unauthorized"))
		return
	}

	var since *time.Time
	if raw := c.Query("lastSync"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httputil.RespondWithError(c, apperrors.NewValidation("validation errors",
				apperrors.FieldError{Field: "lastSync", Message: "must be an RFC 3339 timestamp"}))
			return
		}
		since = &t
	}

	feed, err := h.svc.Pull(c.Request.Context(), identity, since)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, feed)
}

func (h *Handler) SyncStatus(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.NewUnauthorized("unauthorized"))
		return
	}

	groups, err := h.svc.Status(c.Request.Context(), identity.WorkerID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if groups == nil {
		groups = []*model.SyncStatusGroup{}
	}

	httputil.RespondWithSuccess(c, http.StatusOK, gin.H{"syncStatus": groups})
}
