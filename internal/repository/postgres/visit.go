package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/gramsetu/chw-api/internal/model"
	"github.com/gramsetu/chw-api/internal/repository"
)

type visitRepository struct {
	db *sqlx.DB
}

func NewVisitRepository(db *sqlx.DB) repository.VisitRepository {
	return &visitRepository{db: db}
}

func (r *visitRepository) Create(ctx context.Context, visit *model.Visit) error {
	query := `
		INSERT INTO patient_visits (
			id, patient_id, worker_id, visit_date, visit_type, notes,
			vital_signs, follow_up_required, follow_up_date
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`
	row := r.db.QueryRowxContext(ctx, query,
		visit.ID,
		visit.PatientID,
		visit.WorkerID,
		visit.VisitDate,
		visit.VisitType,
		visit.Notes,
		visit.VitalSigns,
		visit.FollowUpRequired,
		visit.FollowUpDate,
	)
	if err := row.Scan(&visit.CreatedAt); err != nil {
		return fmt.Errorf("failed to create visit: %w", err)
	}
	return nil
}

func (r *visitRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Visit, error) {
	query := `
		SELECT id, patient_id, worker_id, visit_date, visit_type, notes,
		       vital_signs, follow_up_required, follow_up_date, created_at
		FROM patient_visits
		WHERE patient_id = $1
		ORDER BY visit_date DESC
	`
	var visits []*model.Visit
	if err := r.db.SelectContext(ctx, &visits, query, patientID); err != nil {
		return nil, fmt.Errorf("failed to list visits: %w", err)
	}
	return visits, nil
}
