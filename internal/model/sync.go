package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Sync actions a mobile client can submit
const (
	SyncActionCreate = "create"
	SyncActionUpdate = "update"
	SyncActionDelete = "delete"
)

// Sync log outcomes
const (
	SyncLogPending   = "pending"
	SyncLogCompleted = "completed"
	SyncLogFailed    = "failed"
)

// Sync directions and entities recorded in the ledger
const (
	SyncTypeMobileToServer = "mobile_to_server"
	SyncEntityPatient      = "patient"
)

// SyncItem is one client-originated mutation inside a batch. Data is kept
// raw so the audit ledger records exactly what the client sent.
type SyncItem struct {
	ID     string          `json:"id"`
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// SyncPatientData is the mutable patient field set carried by create and
// update items.
type SyncPatientData struct {
	Name              string     `json:"name"`
	Age               int        `json:"age"`
	Gender            string     `json:"gender"`
	Phone             *string    `json:"phone"`
	Village           string     `json:"village"`
	AbhaID            *string    `json:"abhaId"`
	RiskLevel         string     `json:"riskLevel"`
	IsPriority        bool       `json:"isPriority"`
	MedicalConditions []string   `json:"medicalConditions"`
	NextVisitDate     *time.Time `json:"nextVisitDate"`
	ANCVisitDate      *time.Time `json:"ancVisitDate"`
	AssignedWorker    *string    `json:"assignedWorker"`
}

// SyncBatchRequest is the push-sync payload
type SyncBatchRequest struct {
	Patients []SyncItem `json:"patients" binding:"required"`
}

// SyncItemResult reports the outcome of one item
type SyncItemResult struct {
	ID     string   `json:"id"`
	Action string   `json:"action"`
	Status string   `json:"status"`
	Data   *Patient `json:"data,omitempty"`
	Error  string   `json:"error,omitempty"`
}

// SyncItemResult statuses
const (
	SyncResultSuccess = "success"
	SyncResultError   = "error"
)

// SyncBatchResult summarizes a whole batch
type SyncBatchResult struct {
	Results        []SyncItemResult `json:"results"`
	TotalProcessed int              `json:"totalProcessed"`
	Successful     int              `json:"successful"`
	Failed         int              `json:"failed"`
}

// SyncLogEntry is one immutable row of the audit ledger, written once per
// attempted sync item and never mutated afterwards.
type SyncLogEntry struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	WorkerID     string          `db:"worker_id" json:"workerId"`
	SyncType     string          `db:"sync_type" json:"syncType"`
	EntityType   string          `db:"entity_type" json:"entityType"`
	EntityID     string          `db:"entity_id" json:"entityId"`
	Action       string          `db:"action" json:"action"`
	Data         json.RawMessage `db:"data" json:"data,omitempty"`
	Status       string          `db:"status" json:"status"`
	ErrorMessage *string         `db:"error_message" json:"errorMessage,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"createdAt"`
}

// SyncStatusGroup is one aggregate row of the status report
type SyncStatusGroup struct {
	SyncType   string    `db:"sync_type" json:"syncType"`
	EntityType string    `db:"entity_type" json:"entityType"`
	Status     string    `db:"status" json:"status"`
	Count      int       `db:"count" json:"count"`
	LastSync   time.Time `db:"last_sync" json:"lastSync"`
}

// PullFeedResult is the pull-sync response: changed patients plus the
// watermark the client should persist for its next pull.
type PullFeedResult struct {
	Patients []*Patient `json:"patients"`
	Total    int        `json:"total"`
	SyncTime time.Time  `json:"syncTime"`
}
