package persistence

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/distribuidora/backend/internal/domain/audit"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormAuditRepository_Append(t *testing.T) {
	gormDB, mock, mockDB := newMockGormDB(t)
	defer mockDB.Close()
	repo := NewGormAuditRepository(gormDB)

	actor := uuid.New()
	entry := audit.NewEntry("orders", uuid.New(), audit.ActionUpdate, &actor,
		json.RawMessage(`{"status":"pending"}`), json.RawMessage(`{"status":"prepared"}`))

	mock.ExpectExec(`INSERT INTO "audit_logs"`).
		WithArgs(entry.ID, "orders", entry.RecordID, "UPDATE", actor, `{"status":"pending"}`, `{"status":"prepared"}`, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Append(context.Background(), entry))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormAuditRepository_FindAll(t *testing.T) {
	gormDB, mock, mockDB := newMockGormDB(t)
	defer mockDB.Close()
	repo := NewGormAuditRepository(gormDB)

	recordID := uuid.New()
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "audit_logs" WHERE table_name = \$1 AND record_id = \$2 AND occurred_at >= \$3`).
		WithArgs("orders", recordID, from).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(`SELECT \* FROM "audit_logs" WHERE table_name = \$1 AND record_id = \$2 AND occurred_at >= \$3 ORDER BY occurred_at DESC LIMIT \$4`).
		WithArgs("orders", recordID, from, 50).
		WillReturnRows(sqlmock.NewRows([]string{"id", "table_name", "record_id", "action", "new_values", "occurred_at"}).
			AddRow(uuid.New().String(), "orders", recordID.String(), "UPDATE", `{"status":"prepared"}`, from.Add(time.Hour)).
			AddRow(uuid.New().String(), "orders", recordID.String(), "INSERT", `{"status":"pending"}`, from))

	entries, total, err := repo.FindAll(context.Background(), audit.Filter{
		TableName: "orders",
		RecordID:  &recordID,
		From:      &from,
		Page:      1,
		PageSize:  50,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, entries, 2)
	assert.Equal(t, audit.ActionUpdate, entries[0].Action)
	assert.JSONEq(t, `{"status":"prepared"}`, string(entries[0].NewValues))
	assert.Nil(t, entries[0].OldValues)
	assert.NoError(t, mock.ExpectationsWereMet())
}
