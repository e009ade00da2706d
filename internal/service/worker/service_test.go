package worker

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gramsetu/chw-api/internal/model"
	apperrors "github.com/gramsetu/chw-api/pkg/errors"
)

type fakeWorkerRepo struct {
	worker      *model.Worker
	getErr      error
	updateErr   error
	lastColumns map[string]interface{}
}

func (f *fakeWorkerRepo) Get(ctx context.Context, workerID string) (*model.Worker, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.worker, nil
}

func (f *fakeWorkerRepo) GetWithCredentials(ctx context.Context, workerID string) (*model.WorkerWithCredentials, error) {
	return nil, sql.ErrNoRows
}

func (f *fakeWorkerRepo) Exists(ctx context.Context, workerID string) (bool, error) {
	return f.worker != nil, nil
}

func (f *fakeWorkerRepo) Create(ctx context.Context, worker *model.Worker) error {
	return nil
}

func (f *fakeWorkerRepo) UpsertPassword(ctx context.Context, workerID, passwordHash string) error {
	return nil
}

func (f *fakeWorkerRepo) UpdateProfile(ctx context.Context, workerID string, columns map[string]interface{}) (*model.Worker, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	f.lastColumns = columns
	return f.worker, nil
}

func (f *fakeWorkerRepo) List(ctx context.Context) ([]*model.Worker, error) {
	return []*model.Worker{f.worker}, nil
}

func strPtr(s string) *string { return &s }

func TestProfile_NotFound(t *testing.T) {
	svc := NewService(&fakeWorkerRepo{getErr: sql.ErrNoRows})

	_, err := svc.Profile(context.Background(), "CHW404")
	require.Error(t, err)

	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrNotFound, appErr.Code)
}

func TestUpdateProfile_MapsFieldsToColumns(t *testing.T) {
	repo := &fakeWorkerRepo{worker: &model.Worker{WorkerID: "CHW001"}}
	svc := NewService(repo)

	_, err := svc.UpdateProfile(context.Background(), "CHW001", &model.UpdateProfileRequest{
		Name:        strPtr("Radha Kumari"),
		PhoneNumber: strPtr("9876543210"),
	})
	require.NoError(t, err)

	assert.Equal(t, "Radha Kumari", repo.lastColumns["name"])
	assert.Equal(t, "9876543210", repo.lastColumns["phone_number"])
	_, hasVillage := repo.lastColumns["village"]
	assert.False(t, hasVillage)
}

func TestUpdateProfile_EmptyNameRejected(t *testing.T) {
	svc := NewService(&fakeWorkerRepo{})

	_, err := svc.UpdateProfile(context.Background(), "CHW001", &model.UpdateProfileRequest{
		Name: strPtr(""),
	})
	require.Error(t, err)

	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrValidation, appErr.Code)
	require.Len(t, appErr.Fields, 1)
	assert.Equal(t, "name", appErr.Fields[0].Field)
}

func TestUpdateProfile_NoFields(t *testing.T) {
	svc := NewService(&fakeWorkerRepo{})

	_, err := svc.UpdateProfile(context.Background(), "CHW001", &model.UpdateProfileRequest{})
	require.Error(t, err)

	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrValidation, appErr.Code)
	assert.Equal(t, "no valid fields to update", appErr.Message)
}

func TestUpdateProfile_WorkerGone(t *testing.T) {
	svc := NewService(&fakeWorkerRepo{updateErr: sql.ErrNoRows})

	_, err := svc.UpdateProfile(context.Background(), "CHW404", &model.UpdateProfileRequest{
		Village: strPtr("Lakhanpur"),
	})
	require.Error(t, err)

	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrNotFound, appErr.Code)
}
