package postgres

import (
	"context"
	"fmt"
	"sort"

	"github.com/jmoiron/sqlx"

	"github.com/gramsetu/chw-api/internal/model"
	"github.com/gramsetu/chw-api/internal/repository"
)

const workerColumns = `worker_id, name, village, role, pin_hash, phone_number, is_active, created_at, updated_at`

type workerRepository struct {
	db *sqlx.DB
}

func NewWorkerRepository(db *sqlx.DB) repository.WorkerRepository {
	return &workerRepository{db: db}
}

func (r *workerRepository) Get(ctx context.Context, workerID string) (*model.Worker, error) {
	query := `SELECT ` + workerColumns + ` FROM workers WHERE worker_id = $1`
	var worker model.Worker
	if err := r.db.GetContext(ctx, &worker, query, workerID); err != nil {
		return nil, fmt.Errorf("failed to get worker: %w", err)
	}
	return &worker, nil
}

func (r *workerRepository) GetWithCredentials(ctx context.Context, workerID string) (*model.WorkerWithCredentials, error) {
	query := `
		SELECT w.worker_id, w.name, w.village, w.role, w.pin_hash, w.phone_number,
		       w.is_active, w.created_at, w.updated_at, wa.password_hash
		FROM workers w
		LEFT JOIN worker_auth wa ON w.worker_id = wa.worker_id
		WHERE w.worker_id = $1 AND w.is_active = true
	`
	var worker model.WorkerWithCredentials
	if err := r.db.GetContext(ctx, &worker, query, workerID); err != nil {
		return nil, fmt.Errorf("failed to get worker credentials: %w", err)
	}
	return &worker, nil
}

func (r *workerRepository) Exists(ctx context.Context, workerID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM workers WHERE worker_id = $1)`
	if err := r.db.GetContext(ctx, &exists, query, workerID); err != nil {
		return false, fmt.Errorf("failed to check worker existence: %w", err)
	}
	return exists, nil
}

func (r *workerRepository) Create(ctx context.Context, worker *model.Worker) error {
	query := `
		INSERT INTO workers (worker_id, name, village, role, pin_hash, phone_number)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at, is_active
	`
	row := r.db.QueryRowxContext(ctx, query,
		worker.WorkerID,
		worker.Name,
		worker.Village,
		worker.Role,
		worker.PinHash,
		worker.PhoneNumber,
	)
	if err := row.Scan(&worker.CreatedAt, &worker.UpdatedAt, &worker.IsActive); err != nil {
		return fmt.Errorf("failed to create worker: %w", err)
	}
	return nil
}

func (r *workerRepository) UpsertPassword(ctx context.Context, workerID, passwordHash string) error {
	query := `
		INSERT INTO worker_auth (worker_id, password_hash)
		VALUES ($1, $2)
		ON CONFLICT (worker_id) DO UPDATE SET password_hash = $2, updated_at = NOW()
	`
	if _, err := r.db.ExecContext(ctx, query, workerID, passwordHash); err != nil {
		return fmt.Errorf("failed to store worker password: %w", err)
	}
	return nil
}

func (r *workerRepository) UpdateProfile(ctx context.Context, workerID string, columns map[string]interface{}) (*model.Worker, error) {
	names := make([]string, 0, len(columns))
	for name := range columns {
		names = append(names, name)
	}
	sort.Strings(names)

	query := `UPDATE workers SET `
	args := []interface{}{workerID}
	for i, name := range names {
		if i > 0 {
			query += ", "
		}
		args = append(args, columns[name])
		query += fmt.Sprintf("%s = $%d", name, len(args))
	}
	query += `, updated_at = NOW() WHERE worker_id = $1 RETURNING ` + workerColumns

	var worker model.Worker
	if err := r.db.GetContext(ctx, &worker, query, args...); err != nil {
		return nil, fmt.Errorf("failed to update worker profile: %w", err)
	}
	return &worker, nil
}

func (r *workerRepository) List(ctx context.Context) ([]*model.Worker, error) {
	query := `SELECT ` + workerColumns + ` FROM workers ORDER BY created_at DESC`
	var workers []*model.Worker
	if err := r.db.SelectContext(ctx, &workers, query); err != nil {
		return nil, fmt.Errorf("failed to list workers: %w", err)
	}
	return workers, nil
}
