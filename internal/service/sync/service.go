package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/gramsetu/chw-api/internal/model"
	"github.com/gramsetu/chw-api/internal/repository"
	apperrors "github.com/gramsetu/chw-api/pkg/errors"
	"github.com/gramsetu/chw-api/pkg/metrics"
)

type Service interface {
	Push(ctx context.Context, workerID string, items []model.SyncItem) (*model.SyncBatchResult, error)
	Pull(ctx context.Context, identity model.Identity, since *time.Time) (*model.PullFeedResult, error)
	Status(ctx context.Context, workerID string) ([]*model.SyncStatusGroup, error)
}

type service struct {
	repo    repository.SyncRepository
	metrics *metrics.Metrics
}

func NewService(repo repository.SyncRepository, m *metrics.Metrics) Service {
	return &service{repo: repo, metrics: m}
}

// Push applies a batch of client mutations. Validation runs before the
// transaction opens: a malformed batch is rejected whole, nothing is
// applied and nothing is logged.
func (s *service) Push(ctx context.Context, workerID string, items []model.SyncItem) (*model.SyncBatchResult, error) {
	if err := validateItems(items); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.SyncBatchesTotal.Inc()
	}
	start := time.Now()

	result, err := s.repo.ApplyBatch(ctx, workerID, items)
	if err != nil {
		return nil, apperrors.FromPersistence(err, "sync batch")
	}

	if s.metrics != nil {
		s.metrics.SyncBatchDuration.Observe(time.Since(start).Seconds())
		for _, r := range result.Results {
			s.metrics.SyncItemsProcessed.WithLabelValues(r.Action, r.Status).Inc()
		}
	}
	return result, nil
}

func (s *service) Pull(ctx context.Context, identity model.Identity, since *time.Time) (*model.PullFeedResult, error) {
	patients, err := s.repo.ListChangedSince(ctx, identity, since)
	if err != nil {
		return nil, apperrors.FromPersistence(err, "patients")
	}
	if patients == nil {
		patients = []*model.Patient{}
	}
	return &model.PullFeedResult{
		Patients: patients,
		Total:    len(patients),
		SyncTime: time.Now().UTC(),
	}, nil
}

func (s *service) Status(ctx context.Context, workerID string) ([]*model.SyncStatusGroup, error) {
	groups, err := s.repo.StatusByWorker(ctx, workerID)
	if err != nil {
		return nil, apperrors.FromPersistence(err, "sync status")
	}
	return groups, nil
}

func validateItems(items []model.SyncItem) error {
	var fieldErrs []apperrors.FieldError
	for i, item := range items {
		if item.ID == "" {
			fieldErrs = append(fieldErrs, apperrors.FieldError{
				Field:   fmt.Sprintf("patients[%d].id", i),
				Message: "patient ID is required",
			})
		}
		switch item.Action {
		case model.SyncActionCreate, model.SyncActionUpdate, model.SyncActionDelete:
		default:
			fieldErrs = append(fieldErrs, apperrors.FieldError{
				Field:   fmt.Sprintf("patients[%d].action", i),
				Message: "invalid action",
			})
		}
	}
	if len(fieldErrs) > 0 {
		return apperrors.NewValidation("validation errors", fieldErrs...)
	}
	return nil
}
