package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/gramsetu/chw-api/internal/model"
	"github.com/gramsetu/chw-api/internal/repository"
)

type syncRepository struct {
	db *sqlx.DB
}

func NewSyncRepository(db *sqlx.DB) repository.SyncRepository {
	return &syncRepository{db: db}
}

// ApplyBatch reconciles one worker's mutations inside a single
// transaction. Item failures are confined to a savepoint: the failing
// statement is rolled back, the failure is written to the ledger, and the
// batch carries on, so a partially failed batch still commits the
// surviving items. Only errors outside the per-item boundary (ledger
// writes, commit) abort the whole batch.
func (r *syncRepository) ApplyBatch(ctx context.Context, workerID string, items []model.SyncItem) (*model.SyncBatchResult, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin sync transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	result := &model.SyncBatchResult{
		Results:        make([]model.SyncItemResult, 0, len(items)),
		TotalProcessed: len(items),
	}

	for i, item := range items {
		patient, itemErr := r.applyItem(ctx, tx, i, item)
		if itemErr != nil {
			msg := itemErr.Error()
			if logErr := r.writeLog(ctx, tx, workerID, item, model.SyncLogFailed, &msg); logErr != nil {
				tx.Rollback()
				return nil, fmt.Errorf("failed to record sync failure: %w", logErr)
			}
			result.Results = append(result.Results, model.SyncItemResult{
				ID:     item.ID,
				Action: item.Action,
				Status: model.SyncResultError,
				Error:  msg,
			})
			result.Failed++
			continue
		}

		if logErr := r.writeLog(ctx, tx, workerID, item, model.SyncLogCompleted, nil); logErr != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to record sync outcome: %w", logErr)
		}
		result.Results = append(result.Results, model.SyncItemResult{
			ID:     item.ID,
			Action: item.Action,
			Status: model.SyncResultSuccess,
			Data:   patient,
		})
		result.Successful++
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit sync batch: %w", err)
	}
	return result, nil
}

// applyItem runs one mutation inside a savepoint so its failure cannot
// poison the enclosing transaction. A nil patient with nil error is a
// no-op (update or delete of an absent row).
func (r *syncRepository) applyItem(ctx context.Context, tx *sqlx.Tx, seq int, item model.SyncItem) (*model.Patient, error) {
	sp := fmt.Sprintf("sync_item_%d", seq)
	if _, err := tx.ExecContext(ctx, "SAVEPOINT "+sp); err != nil {
		return nil, fmt.Errorf("failed to create savepoint: %w", err)
	}

	patient, err := r.mutate(ctx, tx, item)
	if err != nil {
		if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+sp); rbErr != nil {
			return nil, fmt.Errorf("failed to roll back savepoint after %v: %w", err, rbErr)
		}
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT "+sp); err != nil {
		return nil, fmt.Errorf("failed to release savepoint: %w", err)
	}
	return patient, nil
}

func (r *syncRepository) mutate(ctx context.Context, tx *sqlx.Tx, item model.SyncItem) (*model.Patient, error) {
	switch item.Action {
	case model.SyncActionCreate:
		return r.upsertPatient(ctx, tx, item)
	case model.SyncActionUpdate:
		return r.updatePatient(ctx, tx, item)
	case model.SyncActionDelete:
		return r.deletePatient(ctx, tx, item.ID)
	default:
		return nil, fmt.Errorf("unknown sync action %q", item.Action)
	}
}

func (r *syncRepository) decodeData(item model.SyncItem) (*model.SyncPatientData, error) {
	if len(item.Data) == 0 {
		return nil, fmt.Errorf("sync item %s has no data", item.ID)
	}
	var data model.SyncPatientData
	if err := json.Unmarshal(item.Data, &data); err != nil {
		return nil, fmt.Errorf("invalid patient data: %w", err)
	}
	return &data, nil
}

// upsertPatient makes create idempotent: a resubmitted item overwrites
// the existing row instead of failing on the duplicate key.
func (r *syncRepository) upsertPatient(ctx context.Context, tx *sqlx.Tx, item model.SyncItem) (*model.Patient, error) {
	data, err := r.decodeData(item)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO patients (
			id, name, age, gender, phone, village, abha_id, risk_level,
			is_priority, medical_conditions, next_visit_date, anc_visit_date,
			assigned_worker, sync_status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, 'synced')
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			age = EXCLUDED.age,
			gender = EXCLUDED.gender,
			phone = EXCLUDED.phone,
			village = EXCLUDED.village,
			abha_id = EXCLUDED.abha_id,
			risk_level = EXCLUDED.risk_level,
			is_priority = EXCLUDED.is_priority,
			medical_conditions = EXCLUDED.medical_conditions,
			next_visit_date = EXCLUDED.next_visit_date,
			anc_visit_date = EXCLUDED.anc_visit_date,
			sync_status = 'synced',
			updated_at = NOW()
		RETURNING ` + patientColumns

	var patient model.Patient
	err = tx.GetContext(ctx, &patient, query,
		item.ID,
		data.Name,
		data.Age,
		data.Gender,
		data.Phone,
		data.Village,
		data.AbhaID,
		riskLevelOrDefault(data.RiskLevel),
		data.IsPriority,
		pq.StringArray(data.MedicalConditions),
		data.NextVisitDate,
		data.ANCVisitDate,
		data.AssignedWorker,
	)
	if err != nil {
		return nil, err
	}
	return &patient, nil
}

// updatePatient overwrites unconditionally, last write wins. An absent
// row is a no-op, not an error.
func (r *syncRepository) updatePatient(ctx context.Context, tx *sqlx.Tx, item model.SyncItem) (*model.Patient, error) {
	data, err := r.decodeData(item)
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE patients
		SET name = $2, age = $3, gender = $4, phone = $5, village = $6,
		    abha_id = $7, risk_level = $8, is_priority = $9,
		    medical_conditions = $10, next_visit_date = $11,
		    anc_visit_date = $12, sync_status = 'synced', updated_at = NOW()
		WHERE id = $1
		RETURNING ` + patientColumns

	var patient model.Patient
	err = tx.GetContext(ctx, &patient, query,
		item.ID,
		data.Name,
		data.Age,
		data.Gender,
		data.Phone,
		data.Village,
		data.AbhaID,
		riskLevelOrDefault(data.RiskLevel),
		data.IsPriority,
		pq.StringArray(data.MedicalConditions),
		data.NextVisitDate,
		data.ANCVisitDate,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &patient, nil
}

func (r *syncRepository) deletePatient(ctx context.Context, tx *sqlx.Tx, id string) (*model.Patient, error) {
	query := `DELETE FROM patients WHERE id = $1 RETURNING ` + patientColumns
	var patient model.Patient
	err := tx.GetContext(ctx, &patient, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &patient, nil
}

func (r *syncRepository) writeLog(ctx context.Context, tx *sqlx.Tx, workerID string, item model.SyncItem, status string, errMsg *string) error {
	query := `
		INSERT INTO sync_logs (
			id, worker_id, sync_type, entity_type, entity_id, action, data, status, error_message
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	var payload []byte
	if len(item.Data) > 0 {
		payload = item.Data
	}
	_, err := tx.ExecContext(ctx, query,
		uuid.New(),
		workerID,
		model.SyncTypeMobileToServer,
		model.SyncEntityPatient,
		item.ID,
		item.Action,
		payload,
		status,
		errMsg,
	)
	return err
}

// ListChangedSince is the pull side of the protocol: synced rows, scoped
// to the caller's visibility, optionally after the client's watermark.
func (r *syncRepository) ListChangedSince(ctx context.Context, identity model.Identity, since *time.Time) ([]*model.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE sync_status = $1`
	args := []interface{}{model.SyncStatusSynced}

	if identity.Role == model.RoleFieldWorker {
		args = append(args, identity.WorkerID)
		query += fmt.Sprintf(" AND assigned_worker = $%d", len(args))
	}
	if since != nil {
		args = append(args, *since)
		query += fmt.Sprintf(" AND updated_at > $%d", len(args))
	}

	query += " ORDER BY updated_at DESC"

	var patients []*model.Patient
	if err := r.db.SelectContext(ctx, &patients, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list changed patients: %w", err)
	}
	return patients, nil
}

func (r *syncRepository) StatusByWorker(ctx context.Context, workerID string) ([]*model.SyncStatusGroup, error) {
	query := `
		SELECT sync_type, entity_type, status,
		       COUNT(*) AS count, MAX(created_at) AS last_sync
		FROM sync_logs
		WHERE worker_id = $1
		GROUP BY sync_type, entity_type, status
		ORDER BY last_sync DESC
	`
	var groups []*model.SyncStatusGroup
	if err := r.db.SelectContext(ctx, &groups, query, workerID); err != nil {
		return nil, fmt.Errorf("failed to aggregate sync status: %w", err)
	}
	return groups, nil
}

func riskLevelOrDefault(level string) string {
	if level == "" {
		return model.RiskLow
	}
	return level
}
