package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/gramsetu/chw-api/internal/model"
)

type WorkerRepository interface {
	Get(ctx context.Context, workerID string) (*model.Worker, error)
	GetWithCredentials(ctx context.Context, workerID string) (*model.WorkerWithCredentials, error)
	Exists(ctx context.Context, workerID string) (bool, error)
	Create(ctx context.Context, worker *model.Worker) error
	UpsertPassword(ctx context.Context, workerID, passwordHash string) error
	UpdateProfile(ctx context.Context, workerID string, columns map[string]interface{}) (*model.Worker, error)
	List(ctx context.Context) ([]*model.Worker, error)
}

type PatientRepository interface {
	List(ctx context.Context, filter *model.PatientFilter) ([]*model.Patient, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
	Create(ctx context.Context, patient *model.Patient) (*model.Patient, error)
	Update(ctx context.Context, id uuid.UUID, columns map[string]interface{}) (*model.Patient, error)
	Delete(ctx context.Context, id uuid.UUID) (*model.Patient, error)
}

type VisitRepository interface {
	Create(ctx context.Context, visit *model.Visit) error
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Visit, error)
}

// SyncRepository owns the reconciliation transaction and the read side of
// the sync protocol.
type SyncRepository interface {
	ApplyBatch(ctx context.Context, workerID string, items []model.SyncItem) (*model.SyncBatchResult, error)
	ListChangedSince(ctx context.Context, identity model.Identity, since *time.Time) ([]*model.Patient, error)
	StatusByWorker(ctx context.Context, workerID string) ([]*model.SyncStatusGroup, error)
}
