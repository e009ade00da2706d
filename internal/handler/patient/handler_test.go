package patient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gramsetu/chw-api/internal/middleware"
	"github.com/gramsetu/chw-api/internal/model"
)

type fakeService struct {
	patient     *model.Patient
	lastUpdates map[string]interface{}
	lastCaller  string
}

func (f *fakeService) List(ctx context.Context, filter *model.PatientFilter) ([]*model.Patient, error) {
	return nil, nil
}

func (f *fakeService) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	return f.patient, nil
}

func (f *fakeService) Create(ctx context.Context, req *model.CreatePatientRequest, callerID string) (*model.Patient, error) {
	f.lastCaller = callerID
	return f.patient, nil
}

func (f *fakeService) Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) (*model.Patient, error) {
	f.lastUpdates = updates
	return f.patient, nil
}

func (f *fakeService) Delete(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	return f.patient, nil
}

func (f *fakeService) AddVisit(ctx context.Context, patientID uuid.UUID, workerID string, req *model.CreateVisitRequest) (*model.Visit, error) {
	return &model.Visit{ID: uuid.New(), PatientID: patientID, WorkerID: workerID}, nil
}

func (f *fakeService) ListVisits(ctx context.Context, patientID uuid.UUID) ([]*model.Visit, error) {
	return nil, nil
}

func setupRouter(svc *fakeService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	group := r.Group("/api")
	group.Use(func(c *gin.Context) {
		c.Set(middleware.ContextIdentity, model.Identity{WorkerID: "CHW001", Role: model.RoleFieldWorker})
	})
	NewHandler(svc).RegisterRoutes(group)
	return r
}

func TestGetPatient_InvalidID(t *testing.T) {
	r := setupRouter(&fakeService{})

	req := httptest.NewRequest(http.MethodGet, "/api/patients/not-a-uuid", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid patient ID")
}

func TestCreatePatient_InvalidBody(t *testing.T) {
	r := setupRouter(&fakeService{})

	// gender outside the allowed set
	body := `{"name":"Sita Devi","age":30,"gender":"unknown","village":"Rampur"}`
	req := httptest.NewRequest(http.MethodPost, "/api/patients", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "must be one of")
}

func TestCreatePatient_PassesCallerID(t *testing.T) {
	svc := &fakeService{patient: &model.Patient{ID: uuid.New(), Name: "Sita Devi"}}
	r := setupRouter(svc)

	body := `{"name":"Sita Devi","age":30,"gender":"female","village":"Rampur"}`
	req := httptest.NewRequest(http.MethodPost, "/api/patients", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "CHW001", svc.lastCaller)
}

func TestUpdatePatient_BindsRawMap(t *testing.T) {
	svc := &fakeService{patient: &model.Patient{ID: uuid.New(), Name: "Sita Devi"}}
	r := setupRouter(svc)

	id := uuid.New()
	body := `{"riskLevel":"high","nextVisitDate":null}`
	req := httptest.NewRequest(http.MethodPut, "/api/patients/"+id.String(), strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.lastUpdates)
	assert.Equal(t, "high", svc.lastUpdates["riskLevel"])

	// explicit null survives binding so the service can clear the column
	val, present := svc.lastUpdates["nextVisitDate"]
	assert.True(t, present)
	assert.Nil(t, val)
}

func TestListPatients_RejectsBadFilter(t *testing.T) {
	r := setupRouter(&fakeService{})

	req := httptest.NewRequest(http.MethodGet, "/api/patients?riskLevel=critical", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListPatients_EmptyResultIsNotNull(t *testing.T) {
	r := setupRouter(&fakeService{})

	req := httptest.NewRequest(http.MethodGet, "/api/patients", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"data":[]`)
}
