package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/distribuidora/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func outboxRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "event_id", "event_type", "aggregate_id", "aggregate_type", "payload", "status", "retry_count", "max_retries", "created_at", "updated_at"})
}

func TestGormOutboxRepository_Save(t *testing.T) {
	t.Run("empty is a no-op", func(t *testing.T) {
		gormDB, _, mockDB := newMockGormDB(t)
		defer mockDB.Close()

		assert.NoError(t, NewGormOutboxRepository(gormDB).Save(context.Background()))
	})

	t.Run("joins the context transaction", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormOutboxRepository(gormDB)
		txm := NewGormTransactionManager(gormDB)

		entry := &shared.OutboxEntry{
			ID: uuid.New(), EventID: uuid.New(), EventType: "order.created",
			AggregateID: uuid.New(), AggregateType: "Order", Payload: []byte(`{}`),
			Status: shared.OutboxStatusPending, MaxRetries: shared.DefaultMaxRetries,
			CreatedAt: time.Now(), UpdatedAt: time.Now(),
		}

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO "outbox_events"`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := txm.WithinTransaction(context.Background(), func(ctx context.Context) error {
			return repo.Save(ctx, entry)
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormOutboxRepository_FindPending(t *testing.T) {
	gormDB, mock, mockDB := newMockGormDB(t)
	defer mockDB.Close()
	repo := NewGormOutboxRepository(gormDB)

	now := time.Now()
	mock.ExpectQuery(`SELECT \* FROM "outbox_events" WHERE status = \$1 ORDER BY created_at ASC LIMIT \$2`).
		WithArgs("PENDING", 100).
		WillReturnRows(outboxRows().AddRow(uuid.New().String(), uuid.New().String(), "order.created",
			uuid.New().String(), "Order", []byte(`{"id":1}`), "PENDING", 0, 5, now, now))

	entries, err := repo.FindPending(context.Background(), 100)

	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "order.created", entries[0].EventType)
	assert.Equal(t, shared.OutboxStatusPending, entries[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormOutboxRepository_MarkProcessing(t *testing.T) {
	t.Run("nothing to claim", func(t *testing.T) {
		gormDB, _, mockDB := newMockGormDB(t)
		defer mockDB.Close()

		entries, err := NewGormOutboxRepository(gormDB).MarkProcessing(context.Background(), nil)
		require.NoError(t, err)
		assert.Nil(t, entries)
	})

	t.Run("claims unlocked rows", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormOutboxRepository(gormDB)

		id := uuid.New()
		now := time.Now()
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT \* FROM "outbox_events" WHERE id IN \(\$1\) AND status IN \(\$2,\$3\) FOR UPDATE SKIP LOCKED`).
			WithArgs(id, "PENDING", "FAILED").
			WillReturnRows(outboxRows().AddRow(id.String(), uuid.New().String(), "order.created",
				uuid.New().String(), "Order", []byte(`{}`), "PENDING", 0, 5, now, now))
		mock.ExpectExec(`UPDATE "outbox_events" SET "status"=\$1,"updated_at"=\$2 WHERE id IN \(\$3\)`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		entries, err := repo.MarkProcessing(context.Background(), []uuid.UUID{id})

		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, shared.OutboxStatusProcessing, entries[0].Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormOutboxRepository_CountByStatus(t *testing.T) {
	gormDB, mock, mockDB := newMockGormDB(t)
	defer mockDB.Close()
	repo := NewGormOutboxRepository(gormDB)

	mock.ExpectQuery(`SELECT status, count\(\*\) as count FROM "outbox_events" GROUP BY "status"`).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("PENDING", 3).
			AddRow("DEAD", 1))

	counts, err := repo.CountByStatus(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(3), counts[shared.OutboxStatusPending])
	assert.Equal(t, int64(1), counts[shared.OutboxStatusDead])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormOutboxRepository_FindDead(t *testing.T) {
	gormDB, mock, mockDB := newMockGormDB(t)
	defer mockDB.Close()
	repo := NewGormOutboxRepository(gormDB)

	id := uuid.New()
	mock.ExpectQuery(`SELECT count\(\*\) FROM "outbox_events" WHERE status = \$1`).
		WithArgs(shared.OutboxStatusDead).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT \* FROM "outbox_events" WHERE status = \$1 ORDER BY updated_at DESC LIMIT \$2`).
		WithArgs(shared.OutboxStatusDead, 10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "event_type", "status", "retry_count", "max_retries", "last_error"}).
			AddRow(id, "order.created", "DEAD", 5, 5, "broker unreachable"))

	entries, total, err := repo.FindDead(context.Background(), 1, 10)

	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, entries, 1)
	assert.Equal(t, id, entries[0].ID)
	assert.True(t, entries[0].IsDead())
	assert.NoError(t, mock.ExpectationsWereMet())
}
