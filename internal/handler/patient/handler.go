package patient

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gramsetu/chw-api/internal/middleware"
	"github.com/gramsetu/chw-api/internal/model"
	"github.com/gramsetu/chw-api/internal/service/patient"
	apperrors "github.com/gramsetu/chw-api/pkg/errors"
	"github.com/gramsetu/chw-api/pkg/httputil"
)

type Handler struct {
	svc patient.Service
}

func NewHandler(svc patient.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	patients := r.Group("/patients")
	{
		patients.GET("", h.ListPatients)
		patients.POST("", h.CreatePatient)
		patients.GET("/:id", h.GetPatient)
		patients.PUT("/:id", h.UpdatePatient)
		patients.DELETE("/:id", h.DeletePatient)

		patients.POST("/:id/visits", h.AddVisit)
		patients.GET("/:id/visits", h.ListVisits)
	}
}

func (h *Handler) ListPatients(c *gin.Context) {
	var filter model.PatientFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		httputil.RespondWithBindingError(c, err)
		return
	}

	patients, err := h.svc.List(c.Request.Context(), &filter)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if patients == nil {
		patients = []*model.Patient{}
	}

	httputil.RespondWithSuccess(c, http.StatusOK, patients)
}

func (h *Handler) GetPatient(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.NewValidation("invalid patient ID"))
		return
	}

	p, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, p)
}

func (h *Handler) CreatePatient(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.NewUnauthorized("unauthorized"))
		return
	}

	var req model.CreatePatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBindingError(c, err)
		return
	}

	p, err := h.svc.Create(c.Request.Context(), &req, identity.WorkerID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusCreated, p)
}

// UpdatePatient binds into a map so the service can distinguish absent
// fields from explicit nulls and reject keys outside the field map.
func (h *Handler) UpdatePatient(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.NewValidation("invalid patient ID"))
		return
	}

	var updates map[string]interface{}
	if err := c.ShouldBindJSON(&updates); err != nil {
		httputil.RespondWithBindingError(c, err)
		return
	}

	p, err := h.svc.Update(c.Request.Context(), id, updates)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithMessage(c, http.StatusOK, "patient updated", p)
}

func (h *Handler) DeletePatient(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.NewValidation("invalid patient ID"))
		return
	}

	p, err := h.svc.Delete(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithMessage(c, http.StatusOK, "patient deleted", p)
}

func (h *Handler) AddVisit(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.NewUnauthorized("unauthorized"))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.NewValidation("invalid patient ID"))
		return
	}

	var req model.CreateVisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBindingError(c, err)
		return
	}

	visit, err := h.svc.AddVisit(c.Request.Context(), id, identity.WorkerID, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusCreated, visit)
}

func (h *Handler) ListVisits(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.NewValidation("invalid patient ID"))
		return
	}

	visits, err := h.svc.ListVisits(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if visits == nil {
		visits = []*model.Visit{}
	}

	httputil.RespondWithSuccess(c, http.StatusOK, visits)
}
