package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Visit is one home or facility visit recorded against a patient
type Visit struct {
	ID               uuid.UUID       `db:"id" json:"id"`
	PatientID        uuid.UUID       `db:"patient_id" json:"patientId"`
	WorkerID         string          `db:"worker_id" json:"workerId"`
	VisitDate        time.Time       `db:"visit_date" json:"visitDate"`
	VisitType        *string         `db:"visit_type" json:"visitType,omitempty"`
	Notes            *string         `db:"notes" json:"notes,omitempty"`
	VitalSigns       json.RawMessage `db:"vital_signs" json:"vitalSigns,omitempty"`
	FollowUpRequired bool            `db:"follow_up_required" json:"followUpRequired"`
	FollowUpDate     *time.Time      `db:"follow_up_date" json:"followUpDate,omitempty"`
	CreatedAt        time.Time       `db:"created_at" json:"createdAt"`
}

type CreateVisitRequest struct {
	VisitDate        time.Time       `json:"visitDate" binding:"required"`
	VisitType        *string         `json:"visitType"`
	Notes            *string         `json:"notes"`
	VitalSigns       json.RawMessage `json:"vitalSigns"`
	FollowUpRequired bool            `json:"followUpRequired"`
	FollowUpDate     *time.Time      `json:"followUpDate"`
}
