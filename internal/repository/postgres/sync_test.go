package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gramsetu/chw-api/internal/model"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

var patientTestColumns = []string{
	"id", "name", "age", "gender", "phone", "village", "abha_id", "risk_level",
	"is_priority", "medical_conditions", "next_visit_date", "anc_visit_date",
	"assigned_worker", "sync_status", "created_at", "updated_at",
}

func patientRow(id, name string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(patientTestColumns).
		AddRow(id, name, 30, "female", nil, "Rampur", nil, "low",
			false, "{anemia}", nil, nil, "CHW001", "synced", now, now)
}

func syncItem(t *testing.T, id, action string, data map[string]interface{}) model.SyncItem {
	t.Helper()
	item := model.SyncItem{ID: id, Action: action}
	if data != nil {
		raw, err := json.Marshal(data)
		require.NoError(t, err)
		item.Data = raw
	}
	return item
}

func expectItemSuccess(mock sqlmock.Sqlmock, seq string, query string, rows *sqlmock.Rows) {
	mock.ExpectExec("^SAVEPOINT sync_item_" + seq + "$").
		WillReturnResult(sqlmock.NewResult(0, 0))
	q := mock.ExpectQuery(query)
	if rows != nil {
		q.WillReturnRows(rows)
	} else {
		q.WillReturnError(sql.ErrNoRows)
	}
	mock.ExpectExec("^RELEASE SAVEPOINT sync_item_" + seq + "$").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO sync_logs").
		WillReturnResult(sqlmock.NewResult(0, 1))
}

func TestApplyBatch_AllActionsSucceed(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSyncRepository(db)

	data := map[string]interface{}{"name": "Sita Devi", "age": 30, "gender": "female", "village": "Rampur"}
	items := []model.SyncItem{
		syncItem(t, "11111111-1111-1111-1111-111111111111", "create", data),
		syncItem(t, "22222222-2222-2222-2222-222222222222", "update", data),
		syncItem(t, "33333333-3333-3333-3333-333333333333", "delete", nil),
	}

	mock.ExpectBegin()
	expectItemSuccess(mock, "0", "INSERT INTO patients", patientRow(items[0].ID, "Sita Devi"))
	expectItemSuccess(mock, "1", "UPDATE patients", patientRow(items[1].ID, "Sita Devi"))
	expectItemSuccess(mock, "2", "DELETE FROM patients", patientRow(items[2].ID, "Sita Devi"))
	mock.ExpectCommit()

	result, err := repo.ApplyBatch(context.Background(), "CHW001", items)
	require.NoError(t, err)

	assert.Equal(t, 3, result.TotalProcessed)
	assert.Equal(t, 3, result.Successful)
	assert.Equal(t, 0, result.Failed)
	require.Len(t, result.Results, 3)
	for i, r := range result.Results {
		assert.Equal(t, items[i].ID, r.ID)
		assert.Equal(t, model.SyncResultSuccess, r.Status)
		assert.NotNil(t, r.Data)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyBatch_ItemFailureDoesNotAbortBatch(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSyncRepository(db)

	data := map[string]interface{}{"name": "Sita Devi", "age": 30, "gender": "female", "village": "Rampur"}
	items := []model.SyncItem{
		syncItem(t, "11111111-1111-1111-1111-111111111111", "create", data),
		syncItem(t, "22222222-2222-2222-2222-222222222222", "create", data),
		syncItem(t, "33333333-3333-3333-3333-333333333333", "create", data),
	}

	mock.ExpectBegin()
	expectItemSuccess(mock, "0", "INSERT INTO patients", patientRow(items[0].ID, "Sita Devi"))

	// item 1 blows up inside its savepoint
	mock.ExpectExec("^SAVEPOINT sync_item_1$").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("INSERT INTO patients").
		WillReturnError(errors.New("value too long for type character varying"))
	mock.ExpectExec("^ROLLBACK TO SAVEPOINT sync_item_1$").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO sync_logs").
		WillReturnResult(sqlmock.NewResult(0, 1))

	expectItemSuccess(mock, "2", "INSERT INTO patients", patientRow(items[2].ID, "Sita Devi"))
	mock.ExpectCommit()

	result, err := repo.ApplyBatch(context.Background(), "CHW001", items)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Successful)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Results, 3)
	assert.Equal(t, model.SyncResultSuccess, result.Results[0].Status)
	assert.Equal(t, model.SyncResultError, result.Results[1].Status)
	assert.Contains(t, result.Results[1].Error, "value too long")
	assert.Equal(t, model.SyncResultSuccess, result.Results[2].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyBatch_UpdateMissingRowIsNoOp(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSyncRepository(db)

	data := map[string]interface{}{"name": "Sita Devi", "age": 30, "gender": "female", "village": "Rampur"}
	items := []model.SyncItem{
		syncItem(t, "99999999-9999-9999-9999-999999999999", "update", data),
	}

	mock.ExpectBegin()
	expectItemSuccess(mock, "0", "UPDATE patients", nil)
	mock.ExpectCommit()

	result, err := repo.ApplyBatch(context.Background(), "CHW001", items)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Successful)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, model.SyncResultSuccess, result.Results[0].Status)
	assert.Nil(t, result.Results[0].Data)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyBatch_DeleteAbsentRowIsNoOp(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSyncRepository(db)

	items := []model.SyncItem{
		syncItem(t, "99999999-9999-9999-9999-999999999999", "delete", nil),
	}

	mock.ExpectBegin()
	expectItemSuccess(mock, "0", "DELETE FROM patients", nil)
	mock.ExpectCommit()

	result, err := repo.ApplyBatch(context.Background(), "CHW001", items)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Successful)
	assert.Nil(t, result.Results[0].Data)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyBatch_CreateUsesUpsert(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSyncRepository(db)

	data := map[string]interface{}{"name": "Sita Devi", "age": 30, "gender": "female", "village": "Rampur"}
	item := syncItem(t, "11111111-1111-1111-1111-111111111111", "create", data)

	// Resubmitting the same create must hit the conflict branch, not fail
	// on the duplicate key.
	mock.ExpectBegin()
	mock.ExpectExec("^SAVEPOINT sync_item_0$").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`ON CONFLICT \(id\) DO UPDATE`).
		WillReturnRows(patientRow(item.ID, "Sita Devi"))
	mock.ExpectExec("^RELEASE SAVEPOINT sync_item_0$").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO sync_logs").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := repo.ApplyBatch(context.Background(), "CHW001", []model.SyncItem{item})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Successful)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyBatch_OneLedgerRowPerItem(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSyncRepository(db)

	items := []model.SyncItem{
		syncItem(t, "11111111-1111-1111-1111-111111111111", "delete", nil),
		// no data on a create is an item-level failure
		syncItem(t, "22222222-2222-2222-2222-222222222222", "create", nil),
	}

	mock.ExpectBegin()
	expectItemSuccess(mock, "0", "DELETE FROM patients", nil)

	mock.ExpectExec("^SAVEPOINT sync_item_1$").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("^ROLLBACK TO SAVEPOINT sync_item_1$").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO sync_logs").
		WithArgs(sqlmock.AnyArg(), "CHW001", "mobile_to_server", "patient",
			items[1].ID, "create", nil, "failed", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := repo.ApplyBatch(context.Background(), "CHW001", items)
	require.NoError(t, err)

	// one ledger row per item regardless of outcome
	assert.Equal(t, 2, result.TotalProcessed)
	assert.Equal(t, 1, result.Successful)
	assert.Equal(t, 1, result.Failed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyBatch_CommitFailureAbortsBatch(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSyncRepository(db)

	items := []model.SyncItem{
		syncItem(t, "11111111-1111-1111-1111-111111111111", "delete", nil),
	}

	mock.ExpectBegin()
	expectItemSuccess(mock, "0", "DELETE FROM patients", nil)
	mock.ExpectCommit().WillReturnError(errors.New("connection reset"))

	_, err := repo.ApplyBatch(context.Background(), "CHW001", items)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to commit sync batch")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyBatch_LedgerFailureRollsBackBatch(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSyncRepository(db)

	items := []model.SyncItem{
		syncItem(t, "11111111-1111-1111-1111-111111111111", "delete", nil),
	}

	mock.ExpectBegin()
	mock.ExpectExec("^SAVEPOINT sync_item_0$").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("DELETE FROM patients").WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("^RELEASE SAVEPOINT sync_item_0$").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO sync_logs").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := repo.ApplyBatch(context.Background(), "CHW001", items)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to record sync outcome")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListChangedSince_FieldWorkerScopedToOwnPatients(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSyncRepository(db)

	mock.ExpectQuery(`sync_status = \$1 AND assigned_worker = \$2 ORDER BY updated_at DESC`).
		WithArgs("synced", "CHW001").
		WillReturnRows(patientRow("11111111-1111-1111-1111-111111111111", "Sita Devi"))

	patients, err := repo.ListChangedSince(context.Background(),
		model.Identity{WorkerID: "CHW001", Role: model.RoleFieldWorker}, nil)
	require.NoError(t, err)
	require.Len(t, patients, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListChangedSince_FacilityStaffSeesAll(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSyncRepository(db)

	mock.ExpectQuery(`sync_status = \$1 ORDER BY updated_at DESC`).
		WithArgs("synced").
		WillReturnRows(patientRow("11111111-1111-1111-1111-111111111111", "Sita Devi"))

	patients, err := repo.ListChangedSince(context.Background(),
		model.Identity{WorkerID: "PHC001", Role: model.RoleFacilityStaff}, nil)
	require.NoError(t, err)
	require.Len(t, patients, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListChangedSince_AppliesWatermark(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSyncRepository(db)

	since := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`sync_status = \$1 AND assigned_worker = \$2 AND updated_at > \$3`).
		WithArgs("synced", "CHW001", since).
		WillReturnRows(sqlmock.NewRows(patientTestColumns))

	patients, err := repo.ListChangedSince(context.Background(),
		model.Identity{WorkerID: "CHW001", Role: model.RoleFieldWorker}, &since)
	require.NoError(t, err)
	assert.Empty(t, patients)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatusByWorker_GroupsLedger(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSyncRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"sync_type", "entity_type", "status", "count", "last_sync"}).
		AddRow("mobile_to_server", "patient", "completed", 12, now).
		AddRow("mobile_to_server", "patient", "failed", 2, now.Add(-time.Hour))

	mock.ExpectQuery(`GROUP BY sync_type, entity_type, status`).
		WithArgs("CHW001").
		WillReturnRows(rows)

	groups, err := repo.StatusByWorker(context.Background(), "CHW001")
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, 12, groups[0].Count)
	assert.Equal(t, "failed", groups[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
