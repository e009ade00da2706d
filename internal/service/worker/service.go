package worker

import (
	"context"
	"database/sql"
	"errors"

	"github.com/gramsetu/chw-api/internal/model"
	"github.com/gramsetu/chw-api/internal/repository"
	apperrors "github.com/gramsetu/chw-api/pkg/errors"
)

type Service interface {
	Profile(ctx context.Context, workerID string) (*model.Worker, error)
	UpdateProfile(ctx context.Context, workerID string, req *model.UpdateProfileRequest) (*model.Worker, error)
	List(ctx context.Context) ([]*model.Worker, error)
}

type service struct {
	workerRepo repository.WorkerRepository
}

func NewService(workerRepo repository.WorkerRepository) Service {
	return &service{workerRepo: workerRepo}
}

func (s *service) Profile(ctx context.Context, workerID string) (*model.Worker, error) {
	worker, err := s.workerRepo.Get(ctx, workerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFound("worker")
		}
		return nil, apperrors.FromPersistence(err, "worker")
	}
	return worker, nil
}

func (s *service) UpdateProfile(ctx context.Context, workerID string, req *model.UpdateProfileRequest) (*model.Worker, error) {
	columns := map[string]interface{}{}
	if req.Name != nil {
		if *req.Name == "" {
			return nil, apperrors.NewValidation("validation errors",
				apperrors.FieldError{Field: "name", Message: "cannot be empty"})
		}
		columns["name"] = *req.Name
	}
	if req.Village != nil {
		if *req.Village == "" {
			return nil, apperrors.NewValidation("validation errors",
				apperrors.FieldError{Field: "village", Message: "cannot be empty"})
		}
		columns["village"] = *req.Village
	}
	if req.PhoneNumber != nil {
		columns["phone_number"] = *req.PhoneNumber
	}

	if len(columns) == 0 {
		return nil, apperrors.NewValidation("no valid fields to update")
	}

	worker, err := s.workerRepo.UpdateProfile(ctx, workerID, columns)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFound("worker")
		}
		return nil, apperrors.FromPersistence(err, "worker")
	}
	return worker, nil
}

func (s *service) List(ctx context.Context) ([]*model.Worker, error) {
	workers, err := s.workerRepo.List(ctx)
	if err != nil {
		return nil, apperrors.FromPersistence(err, "workers")
	}
	return workers, nil
}
