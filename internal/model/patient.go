package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Patient gender values
const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderOther  = "other"
)

// Patient risk levels
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// Patient sync states. Rows created or updated through the sync engine
// are 'synced'; direct updates through the CRUD API mark the row
// 'pending' until the next reconciliation.
const (
	SyncStatusLocal   = "local"
	SyncStatusPending = "pending"
	SyncStatusSynced  = "synced"
)

type Patient struct {
	ID                uuid.UUID      `db:"id" json:"id"`
	Name              string         `db:"name" json:"name"`
	Age               int            `db:"age" json:"age"`
	Gender            string         `db:"gender" json:"gender"`
	Phone             *string        `db:"phone" json:"phone,omitempty"`
	Village           string         `db:"village" json:"village"`
	AbhaID            *string        `db:"abha_id" json:"abhaId,omitempty"`
	RiskLevel         string         `db:"risk_level" json:"riskLevel"`
	IsPriority        bool           `db:"is_priority" json:"isPriority"`
	MedicalConditions pq.StringArray `db:"medical_conditions" json:"medicalConditions"`
	NextVisitDate     *time.Time     `db:"next_visit_date" json:"nextVisitDate,omitempty"`
	ANCVisitDate      *time.Time     `db:"anc_visit_date" json:"ancVisitDate,omitempty"`
	AssignedWorker    *string        `db:"assigned_worker" json:"assignedWorker,omitempty"`
	SyncStatus        string         `db:"sync_status" json:"syncStatus"`
	CreatedAt         time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time      `db:"updated_at" json:"updatedAt"`
}

type CreatePatientRequest struct {
	ID                *uuid.UUID `json:"id"`
	Name              string     `json:"name" binding:"required"`
	Age               int        `json:"age" binding:"gte=0,lte=120"`
	Gender            string     `json:"gender" binding:"required,oneof=male female other"`
	Phone             *string    `json:"phone"`
	Village           string     `json:"village" binding:"required"`
	AbhaID            *string    `json:"abhaId"`
	RiskLevel         string     `json:"riskLevel" binding:"omitempty,oneof=low medium high"`
	IsPriority        bool       `json:"isPriority"`
	MedicalConditions []string   `json:"medicalConditions"`
	NextVisitDate     *time.Time `json:"nextVisitDate"`
	ANCVisitDate      *time.Time `json:"ancVisitDate"`
	AssignedWorker    *string    `json:"assignedWorker"`
}

// PatientFilter narrows list queries. Exact-match filters are AND'd;
// Search matches name, phone or village case-insensitively.
type PatientFilter struct {
	AssignedWorker string `form:"assignedWorker"`
	SyncStatus     string `form:"syncStatus" binding:"omitempty,oneof=local pending synced"`
	RiskLevel      string `form:"riskLevel" binding:"omitempty,oneof=low medium high"`
	Search         string `form:"search"`
}
