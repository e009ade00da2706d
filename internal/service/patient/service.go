package patient

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/gramsetu/chw-api/internal/model"
	"github.com/gramsetu/chw-api/internal/repository"
	apperrors "github.com/gramsetu/chw-api/pkg/errors"
)

// updatableFields is the static field map for partial updates: request
// key to storage column. Keys outside this table are rejected; nothing
// is ever derived from the key string itself.
var updatableFields = map[string]string{
	"name":              "name",
	"age":               "age",
	"gender":            "gender",
	"phone":             "phone",
	"village":           "village",
	"abhaId":            "abha_id",
	"riskLevel":         "risk_level",
	"isPriority":        "is_priority",
	"medicalConditions": "medical_conditions",
	"nextVisitDate":     "next_visit_date",
	"ancVisitDate":      "anc_visit_date",
	"assignedWorker":    "assigned_worker",
}

type Service interface {
	List(ctx context.Context, filter *model.PatientFilter) ([]*model.Patient, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
	Create(ctx context.Context, req *model.CreatePatientRequest, callerID string) (*model.Patient, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) (*model.Patient, error)
	Delete(ctx context.Context, id uuid.UUID) (*model.Patient, error)
	AddVisit(ctx context.Context, patientID uuid.UUID, workerID string, req *model.CreateVisitRequest) (*model.Visit, error)
	ListVisits(ctx context.Context, patientID uuid.UUID) ([]*model.Visit, error)
}

type service struct {
	repo      repository.PatientRepository
	visitRepo repository.VisitRepository
}

func NewService(repo repository.PatientRepository, visitRepo repository.VisitRepository) Service {
	return &service{repo: repo, visitRepo: visitRepo}
}

func (s *service) List(ctx context.Context, filter *model.PatientFilter) ([]*model.Patient, error) {
	patients, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, apperrors.FromPersistence(err, "patients")
	}
	return patients, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	patient, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFound("patient")
		}
		return nil, apperrors.FromPersistence(err, "patient")
	}
	return patient, nil
}

func (s *service) Create(ctx context.Context, req *model.CreatePatientRequest, callerID string) (*model.Patient, error) {
	id := uuid.New()
	if req.ID != nil {
		id = *req.ID
	}

	riskLevel := req.RiskLevel
	if riskLevel == "" {
		riskLevel = model.RiskLow
	}

	assignedWorker := req.AssignedWorker
	if assignedWorker == nil {
		assignedWorker = &callerID
	}

	patient := &model.Patient{
		ID:                id,
		Name:              req.Name,
		Age:               req.Age,
		Gender:            req.Gender,
		Phone:             req.Phone,
		Village:           req.Village,
		AbhaID:            req.AbhaID,
		RiskLevel:         riskLevel,
		IsPriority:        req.IsPriority,
		MedicalConditions: pq.StringArray(req.MedicalConditions),
		NextVisitDate:     req.NextVisitDate,
		ANCVisitDate:      req.ANCVisitDate,
		AssignedWorker:    assignedWorker,
		SyncStatus:        model.SyncStatusSynced,
	}

	created, err := s.repo.Create(ctx, patient)
	if err != nil {
		return nil, apperrors.FromPersistence(err, "patient")
	}
	return created, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) (*model.Patient, error) {
	columns, err := translateUpdates(updates)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, apperrors.NewValidation("no valid fields to update")
	}

	patient, err := s.repo.Update(ctx, id, columns)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFound("patient")
		}
		return nil, apperrors.FromPersistence(err, "patient")
	}
	return patient, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	patient, err := s.repo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFound("patient")
		}
		return nil, apperrors.FromPersistence(err, "patient")
	}
	return patient, nil
}

func (s *service) AddVisit(ctx context.Context, patientID uuid.UUID, workerID string, req *model.CreateVisitRequest) (*model.Visit, error) {
	if _, err := s.Get(ctx, patientID); err != nil {
		return nil, err
	}

	visit := &model.Visit{
		ID:               uuid.New(),
		PatientID:        patientID,
		WorkerID:         workerID,
		VisitDate:        req.VisitDate,
		VisitType:        req.VisitType,
		Notes:            req.Notes,
		VitalSigns:       req.VitalSigns,
		FollowUpRequired: req.FollowUpRequired,
		FollowUpDate:     req.FollowUpDate,
	}
	if err := s.visitRepo.Create(ctx, visit); err != nil {
		return nil, apperrors.FromPersistence(err, "visit")
	}
	return visit, nil
}

func (s *service) ListVisits(ctx context.Context, patientID uuid.UUID) ([]*model.Visit, error) {
	if _, err := s.Get(ctx, patientID); err != nil {
		return nil, err
	}
	visits, err := s.visitRepo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, apperrors.FromPersistence(err, "visits")
	}
	return visits, nil
}

// translateUpdates checks every key against the static field map and
// coerces the JSON value into its column type. Unknown keys are a
// validation failure rather than being silently dropped.
func translateUpdates(updates map[string]interface{}) (map[string]interface{}, error) {
	columns := make(map[string]interface{}, len(updates))
	var fieldErrs []apperrors.FieldError

	for key, value := range updates {
		column, ok := updatableFields[key]
		if !ok {
			fieldErrs = append(fieldErrs, apperrors.FieldError{Field: key, Message: "unknown field"})
			continue
		}
		if value == nil {
			columns[column] = nil
			continue
		}

		coerced, err := coerceValue(key, value)
		if err != nil {
			fieldErrs = append(fieldErrs, apperrors.FieldError{Field: key, Message: err.Error()})
			continue
		}
		columns[column] = coerced
	}

	if len(fieldErrs) > 0 {
		return nil, apperrors.NewValidation("validation errors", fieldErrs...)
	}
	return columns, nil
}

func coerceValue(key string, value interface{}) (interface{}, error) {
	switch key {
	case "age":
		age, ok := value.(float64)
		if !ok || age != float64(int(age)) {
			return nil, fmt.Errorf("must be an integer")
		}
		if age < 0 || age > 120 {
			return nil, fmt.Errorf("must be between 0 and 120")
		}
		return int(age), nil

	case "gender":
		return stringInSet(value, model.GenderMale, model.GenderFemale, model.GenderOther)

	case "riskLevel":
		return stringInSet(value, model.RiskLow, model.RiskMedium, model.RiskHigh)

	case "isPriority":
		v, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("must be a boolean")
		}
		return v, nil

	case "medicalConditions":
		items, ok := value.([]interface{})
		if !ok {
			return nil, fmt.Errorf("must be an array of strings")
		}
		conditions := make(pq.StringArray, 0, len(items))
		for _, item := range items {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("must be an array of strings")
			}
			conditions = append(conditions, s)
		}
		return conditions, nil

	case "nextVisitDate", "ancVisitDate":
		return parseDate(value)

	default:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("must be a string")
		}
		return s, nil
	}
}

func stringInSet(value interface{}, allowed ...string) (interface{}, error) {
	s, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("must be a string")
	}
	for _, a := range allowed {
		if s == a {
			return s, nil
		}
	}
	return nil, fmt.Errorf("must be one of: %v", allowed)
}

func parseDate(value interface{}) (interface{}, error) {
	s, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("must be a date string")
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return nil, fmt.Errorf("must be an ISO 8601 date")
}
