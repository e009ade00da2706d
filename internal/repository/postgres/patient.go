package postgres

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/gramsetu/chw-api/internal/model"
	"github.com/gramsetu/chw-api/internal/repository"
)

const patientColumns = `id, name, age, gender, phone, village, abha_id, risk_level,
	is_priority, medical_conditions, next_visit_date, anc_visit_date,
	assigned_worker, sync_status, created_at, updated_at`

type patientRepository struct {
	db *sqlx.DB
}

func NewPatientRepository(db *sqlx.DB) repository.PatientRepository {
	return &patientRepository{db: db}
}

func (r *patientRepository) List(ctx context.Context, filter *model.PatientFilter) ([]*model.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE 1=1`
	var args []interface{}

	if filter.AssignedWorker != "" {
		args = append(args, filter.AssignedWorker)
		query += fmt.Sprintf(" AND assigned_worker = $%d", len(args))
	}
	if filter.SyncStatus != "" {
		args = append(args, filter.SyncStatus)
		query += fmt.Sprintf(" AND sync_status = $%d", len(args))
	}
	if filter.RiskLevel != "" {
		args = append(args, filter.RiskLevel)
		query += fmt.Sprintf(" AND risk_level = $%d", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		query += fmt.Sprintf(" AND (name ILIKE $%d OR phone ILIKE $%d OR village ILIKE $%d)", n, n, n)
	}

	query += " ORDER BY updated_at DESC"

	var patients []*model.Patient
	if err := r.db.SelectContext(ctx, &patients, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, nil
}

func (r *patientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE id = $1`
	var patient model.Patient
	if err := r.db.GetContext(ctx, &patient, query, id); err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return &patient, nil
}

func (r *patientRepository) Create(ctx context.Context, patient *model.Patient) (*model.Patient, error) {
	query := `
		INSERT INTO patients (
			id, name, age, gender, phone, village, abha_id, risk_level,
			is_priority, medical_conditions, next_visit_date, anc_visit_date,
			assigned_worker, sync_status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING ` + patientColumns

	var created model.Patient
	err := r.db.GetContext(ctx, &created, query,
		patient.ID,
		patient.Name,
		patient.Age,
		patient.Gender,
		patient.Phone,
		patient.Village,
		patient.AbhaID,
		patient.RiskLevel,
		patient.IsPriority,
		pq.StringArray(patient.MedicalConditions),
		patient.NextVisitDate,
		patient.ANCVisitDate,
		patient.AssignedWorker,
		patient.SyncStatus,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create patient: %w", err)
	}
	return &created, nil
}

// Update applies the given column set and marks the row pending for the
// next reconciliation. Column names come from the service's static field
// map, never from request input.
func (r *patientRepository) Update(ctx context.Context, id uuid.UUID, columns map[string]interface{}) (*model.Patient, error) {
	names := make([]string, 0, len(columns))
	for name := range columns {
		names = append(names, name)
	}
	sort.Strings(names)

	query := `UPDATE patients SET `
	args := []interface{}{id}
	for _, name := range names {
		args = append(args, columns[name])
		query += fmt.Sprintf("%s = $%d, ", name, len(args))
	}
	query += `sync_status = 'pending', updated_at = NOW() WHERE id = $1 RETURNING ` + patientColumns

	var patient model.Patient
	if err := r.db.GetContext(ctx, &patient, query, args...); err != nil {
		return nil, fmt.Errorf("failed to update patient: %w", err)
	}
	return &patient, nil
}

func (r *patientRepository) Delete(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	query := `DELETE FROM patients WHERE id = $1 RETURNING ` + patientColumns
	var patient model.Patient
	if err := r.db.GetContext(ctx, &patient, query, id); err != nil {
		return nil, fmt.Errorf("failed to delete patient: %w", err)
	}
	return &patient, nil
}
