package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gramsetu/chw-api/internal/model"
	"github.com/gramsetu/chw-api/internal/repository"
	"github.com/gramsetu/chw-api/pkg/auth"
	apperrors "github.com/gramsetu/chw-api/pkg/errors"
	"github.com/gramsetu/chw-api/pkg/security"
)

type Service interface {
	Register(ctx context.Context, req *model.RegisterRequest) (*model.AuthResponse, error)
	Login(ctx context.Context, workerID, password string) (*model.AuthResponse, error)
	VerifyPin(ctx context.Context, workerID, pin string) (bool, error)
}

type service struct {
	workerRepo repository.WorkerRepository
	hasher     security.Hasher
	tokens     auth.TokenService
}

func NewService(workerRepo repository.WorkerRepository, hasher security.Hasher, tokens auth.TokenService) Service {
	return &service{
		workerRepo: workerRepo,
		hasher:     hasher,
		tokens:     tokens,
	}
}

func (s *service) Register(ctx context.Context, req *model.RegisterRequest) (*model.AuthResponse, error) {
	exists, err := s.workerRepo.Exists(ctx, req.WorkerID)
	if err != nil {
		return nil, apperrors.FromPersistence(err, "worker")
	}
	if exists {
		return nil, apperrors.NewConflict("worker ID already exists")
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, apperrors.NewInternal(fmt.Errorf("failed to hash password: %w", err))
	}
	pinHash, err := s.hasher.Hash(req.Pin)
	if err != nil {
		return nil, apperrors.NewInternal(fmt.Errorf("failed to hash pin: %w", err))
	}

	worker := &model.Worker{
		WorkerID:    req.WorkerID,
		Name:        req.Name,
		Village:     req.Village,
		Role:        req.Role,
		PinHash:     pinHash,
		PhoneNumber: req.PhoneNumber,
	}
	if err := s.workerRepo.Create(ctx, worker); err != nil {
		return nil, apperrors.FromPersistence(err, "worker")
	}
	if err := s.workerRepo.UpsertPassword(ctx, worker.WorkerID, passwordHash); err != nil {
		return nil, apperrors.FromPersistence(err, "worker credentials")
	}

	token, err := s.tokens.Generate(worker.WorkerID, worker.Role)
	if err != nil {
		return nil, apperrors.NewInternal(err)
	}

	return &model.AuthResponse{Worker: worker, Token: token}, nil
}

func (s *service) Login(ctx context.Context, workerID, password string) (*model.AuthResponse, error) {
	worker, err := s.workerRepo.GetWithCredentials(ctx, workerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, apperrors.FromPersistence(err, "worker")
	}

	if worker.PasswordHash == nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	if err := s.hasher.Compare(*worker.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}

	token, err := s.tokens.Generate(worker.WorkerID, worker.Role)
	if err != nil {
		return nil, apperrors.NewInternal(err)
	}

	return &model.AuthResponse{Worker: &worker.Worker, Token: token}, nil
}

// VerifyPin reports whether the PIN matches. A wrong PIN is a negative
// answer, not an error; only a missing or inactive worker fails.
func (s *service) VerifyPin(ctx context.Context, workerID, pin string) (bool, error) {
	worker, err := s.workerRepo.GetWithCredentials(ctx, workerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, apperrors.NewNotFound("worker")
		}
		return false, apperrors.FromPersistence(err, "worker")
	}

	if err := s.hasher.Compare(worker.PinHash, pin); err != nil {
		return false, nil
	}
	return true, nil
}
