package persistence

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/distribuidora/backend/internal/domain/identity"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockGormDB opens GORM over sqlmock the way the repositories are tested
func newMockGormDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	require.NoError(t, err)

	return gormDB, mock, mockDB
}

// mockedDB is newMockGormDB that closes the connection and checks every
// expectation was met when the test ends
func mockedDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, conn := newMockGormDB(t)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = conn.Close()
	})
	return db, mock
}

// newMockDatabase creates a Database instance with a mocked SQL connection
func newMockDatabase(t *testing.T) (*Database, sqlmock.Sqlmock, *sql.DB) {
	gormDB, mock, mockDB := newMockGormDB(t)
	return &Database{DB: gormDB}, mock, mockDB
}

// expectSession expects the row-level-security settings for an actor
func expectSession(mock sqlmock.Sqlmock, actor identity.Actor) {
	mock.ExpectExec(regexp.QuoteMeta("SELECT set_config('app.user_id', $1, true), set_config('app.user_role', $2, true)")).
		WithArgs(actor.UserID.String(), string(actor.Role)).
		WillReturnResult(sqlmock.NewResult(0, 1))
}

func actorContext(role identity.Role) (context.Context, identity.Actor) {
	actor := identity.Actor{UserID: uuid.New(), Username: string(role), Role: role}
	return identity.WithActor(context.Background(), actor), actor
}

func TestDatabase_Ping(t *testing.T) {
	db, mock, mockDB := newMockDatabase(t)
	defer mockDB.Close()

	mock.ExpectPing()

	assert.NoError(t, db.Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabase_Close(t *testing.T) {
	db, mock, _ := newMockDatabase(t)

	mock.ExpectClose()

	assert.NoError(t, db.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormTransactionManager_WithinTransaction(t *testing.T) {
	t.Run("sets session actor and commits", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		ctx, actor := actorContext(identity.RoleDriver)

		mock.ExpectBegin()
		expectSession(mock, actor)
		mock.ExpectCommit()

		var inner context.Context
		err := NewGormTransactionManager(gormDB).WithinTransaction(ctx, func(ctx context.Context) error {
			inner = ctx
			return nil
		})

		require.NoError(t, err)
		assert.NotNil(t, txFromContext(inner))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nested call joins the outer transaction", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		tm := NewGormTransactionManager(gormDB)

		mock.ExpectBegin()
		mock.ExpectCommit()

		err := tm.WithinTransaction(context.Background(), func(ctx context.Context) error {
			return tm.WithinTransaction(ctx, func(ctx context.Context) error { return nil })
		})

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()

		mock.ExpectBegin()
		mock.ExpectRollback()

		err := NewGormTransactionManager(gormDB).WithinTransaction(context.Background(), func(ctx context.Context) error {
			return assert.AnError
		})

		assert.ErrorIs(t, err, assert.AnError)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
