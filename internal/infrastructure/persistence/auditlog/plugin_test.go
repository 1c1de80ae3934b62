package auditlog

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/distribuidora/backend/internal/domain/identity"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type noteModel struct {
	ID   uuid.UUID `gorm:"type:uuid;primary_key"`
	Body string
}

func (noteModel) TableName() string { return "notes" }

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	require.NoError(t, gormDB.Use(New(map[string]bool{"notes": true})))

	return gormDB, mock, mockDB
}

func TestPlugin_Name(t *testing.T) {
	assert.Equal(t, "distribuidora:audit", New(nil).Name())
}

func TestPlugin_Create(t *testing.T) {
	db, mock, mockDB := setupMockDB(t)
	defer mockDB.Close()

	actorID := uuid.New()
	ctx := identity.WithActor(context.Background(), identity.Actor{UserID: actorID, Role: identity.RoleAdmin})
	note := &noteModel{ID: uuid.New(), Body: "hello"}

	mock.ExpectExec(`INSERT INTO "notes"`).
		WithArgs(note.ID, "hello").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`^INSERT INTO "audit_logs"`).
		WithArgs(sqlmock.AnyArg(), "notes", note.ID, "INSERT", actorID, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, db.WithContext(ctx).Create(note).Error)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlugin_Delete(t *testing.T) {
	db, mock, mockDB := setupMockDB(t)
	defer mockDB.Close()

	id := uuid.New()

	mock.ExpectQuery(`^SELECT \* FROM "notes" WHERE id = \$1$`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "body"}).AddRow(id.String(), "bye"))
	mock.ExpectExec(`DELETE FROM "notes" WHERE id = \$1`).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`^INSERT INTO "audit_logs"`).
		WithArgs(sqlmock.AnyArg(), "notes", id, "DELETE", nil, sqlmock.AnyArg(), nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, db.WithContext(context.Background()).Delete(&noteModel{}, "id = ?", id).Error)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlugin_IgnoresUnwatchedTables(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB, DriverName: "postgres"}),
		&gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	require.NoError(t, db.Use(New(map[string]bool{"customers": true})))

	mock.ExpectExec(`INSERT INTO "notes"`).WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, db.Create(&noteModel{ID: uuid.New(), Body: "x"}).Error)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRowID(t *testing.T) {
	id := uuid.New()
	for _, v := range []any{id, id.String(), []byte(id.String()), [16]byte(id)} {
		got, ok := rowID(map[string]any{"id": v})
		assert.True(t, ok)
		assert.Equal(t, id, got)
	}
	_, ok := rowID(map[string]any{"id": 42})
	assert.False(t, ok)
}

func TestPlugin_AuditInsertIsItsOwnStatement(t *testing.T) {
	db, mock, mockDB := setupMockDB(t)
	defer mockDB.Close()

	first := &noteModel{ID: uuid.New(), Body: "one"}
	second := &noteModel{ID: uuid.New(), Body: "two"}
	for _, n := range []*noteModel{first, second} {
		mock.ExpectExec(`^INSERT INTO "notes"`).
			WithArgs(n.ID, n.Body).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`^INSERT INTO "audit_logs" \(`).
			WithArgs(sqlmock.AnyArg(), "notes", n.ID, "INSERT", nil, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}

	tx := db.WithContext(context.Background())
	require.NoError(t, tx.Create(first).Error)
	require.NoError(t, tx.Create(second).Error)
	assert.NoError(t, mock.ExpectationsWereMet())
}
