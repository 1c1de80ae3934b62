package persistence

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/distribuidora/backend/internal/domain/identity"
	"github.com/distribuidora/backend/internal/domain/shared"
	"github.com/distribuidora/backend/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockOrderRepository(t *testing.T) (*GormOrderRepository, sqlmock.Sqlmock, *sql.DB) {
	gormDB, mock, mockDB := newMockGormDB(t)
	return NewGormOrderRepository(gormDB), mock, mockDB
}

func orderRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "version", "order_number", "customer_id", "customer_name", "status", "total_amount", "assigned_driver_id"})
}

func TestGormOrderRepository_FindByID(t *testing.T) {
	t.Run("driver reads an assigned order with items", func(t *testing.T) {
		repo, mock, mockDB := newMockOrderRepository(t)
		defer mockDB.Close()

		ctx, driver := actorContext(identity.RoleDriver)
		orderID, customerID := uuid.New(), uuid.New()

		mock.ExpectBegin()
		expectSession(mock, driver)
		mock.ExpectQuery(`SELECT \* FROM "orders" WHERE orders.id = \$1 AND orders.assigned_driver_id = \$2 ORDER BY "orders"."id" LIMIT \$3`).
			WithArgs(orderID, driver.UserID, 1).
			WillReturnRows(orderRows().AddRow(orderID.String(), 2, "ORD-2026-00001", customerID.String(), "Almacen Sur", "in_transit", "250.00", driver.UserID.String()))
		mock.ExpectQuery(`SELECT \* FROM "order_items" WHERE "order_items"."order_id" = \$1 ORDER BY created_at, id`).
			WithArgs(orderID.String()).
			WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "product_id", "product_name", "product_sku", "quantity", "unit_price", "amount"}).
				AddRow(uuid.New().String(), orderID.String(), uuid.New().String(), "Arroz", "ARZ-1", "5", "50.00", "250.00"))
		mock.ExpectCommit()

		order, err := repo.FindByID(ctx, orderID)

		require.NoError(t, err)
		assert.Equal(t, trade.OrderStatusInTransit, order.Status)
		require.Len(t, order.Items, 1)
		assert.True(t, order.Items[0].Amount.Equal(decimal.NewFromInt(250)))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("order outside the scope is not found", func(t *testing.T) {
		repo, mock, mockDB := newMockOrderRepository(t)
		defer mockDB.Close()

		ctx, rep := actorContext(identity.RoleSalesRep)
		orderID := uuid.New()

		mock.ExpectBegin()
		expectSession(mock, rep)
		mock.ExpectQuery(`SELECT \* FROM "orders" WHERE orders.id = \$1 AND orders.created_by = \$2`).
			WithArgs(orderID, rep.UserID, 1).
			WillReturnRows(orderRows())
		mock.ExpectRollback()

		order, err := repo.FindByID(ctx, orderID)

		assert.Nil(t, order)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

// A driver asking for another driver's orders gets nothing back: both the
// scope and the explicit filter must match.
func TestGormOrderRepository_FindAll_DriverSeesOnlyAssigned(t *testing.T) {
	repo, mock, mockDB := newMockOrderRepository(t)
	defer mockDB.Close()

	ctx, driver := actorContext(identity.RoleDriver)
	otherDriver := uuid.New()

	mock.ExpectBegin()
	expectSession(mock, driver)
	mock.ExpectQuery(`SELECT \* FROM "orders" WHERE orders.assigned_driver_id = \$1 AND orders.assigned_driver_id = \$2 ORDER BY orders.created_at DESC`).
		WithArgs(otherDriver, driver.UserID).
		WillReturnRows(orderRows())
	mock.ExpectCommit()

	orders, err := repo.FindAll(ctx, shared.Filter{
		OrderBy:  "created_at",
		OrderDir: "desc",
		Filters:  map[string]any{"driver_id": otherDriver},
	})

	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormOrderRepository_Count_NoActor(t *testing.T) {
	repo, mock, mockDB := newMockOrderRepository(t)
	defer mockDB.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT count\(\*\) FROM "orders" WHERE 1 = 0`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectCommit()

	count, err := repo.Count(context.Background(), shared.Filter{})

	require.NoError(t, err)
	assert.Zero(t, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormOrderRepository_NextOrderNumber(t *testing.T) {
	repo, mock, mockDB := newMockOrderRepository(t)
	defer mockDB.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT nextval($1)")).
		WithArgs("order_number_seq").
		WillReturnRows(sqlmock.NewRows([]string{"nextval"}).AddRow(42))

	number, err := repo.NextOrderNumber(context.Background())

	require.NoError(t, err)
	assert.Regexp(t, `^ORD-\d{4}-00042$`, number)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormOrderRepository_Save(t *testing.T) {
	t.Run("new order inserts header and items", func(t *testing.T) {
		repo, mock, mockDB := newMockOrderRepository(t)
		defer mockDB.Close()

		ctx, rep := actorContext(identity.RoleSalesRep)
		order, err := trade.NewOrder("ORD-2026-00001", uuid.New(), "Almacen Sur")
		require.NoError(t, err)
		require.NoError(t, order.AddItem(uuid.New(), "Arroz", "ARZ-1", decimal.NewFromInt(2), decimal.NewFromInt(10)))

		mock.ExpectBegin()
		expectSession(mock, rep)
		mock.ExpectExec(`INSERT INTO "orders"`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`DELETE FROM "order_items" WHERE order_id = \$1 AND id NOT IN \(\$2\)`).
			WithArgs(order.ID, order.Items[0].ID).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`INSERT INTO "order_items" .* ON CONFLICT \("id"\) DO UPDATE SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, repo.Save(ctx, order))
		assert.False(t, order.IsNew())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("lost update rolls back", func(t *testing.T) {
		repo, mock, mockDB := newMockOrderRepository(t)
		defer mockDB.Close()

		ctx, rep := actorContext(identity.RoleWarehouse)
		order, err := trade.NewOrder("ORD-2026-00002", uuid.New(), "Kiosco")
		require.NoError(t, err)
		order.MarkPersisted()

		mock.ExpectBegin()
		expectSession(mock, rep)
		mock.ExpectExec(`UPDATE "orders" SET .* WHERE \(id = \$\d+ AND version = \$\d+\)`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err = repo.Save(ctx, order)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormPurchaseRepository_NextPurchaseNumber(t *testing.T) {
	gormDB, mock, mockDB := newMockGormDB(t)
	defer mockDB.Close()
	repo := NewGormPurchaseRepository(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT nextval($1)")).
		WithArgs("purchase_number_seq").
		WillReturnRows(sqlmock.NewRows([]string{"nextval"}).AddRow(7))

	number, err := repo.NextPurchaseNumber(context.Background())

	require.NoError(t, err)
	assert.Regexp(t, `^PUR-\d{4}-00007$`, number)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormPurchaseRepository_FindAll(t *testing.T) {
	gormDB, mock, mockDB := newMockGormDB(t)
	defer mockDB.Close()
	repo := NewGormPurchaseRepository(gormDB)

	supplierID := uuid.New()
	mock.ExpectQuery(`SELECT \* FROM "purchases" WHERE status = \$1 AND supplier_id = \$2 ORDER BY created_at DESC LIMIT \$3`).
		WithArgs("draft", supplierID, 20).
		WillReturnRows(sqlmock.NewRows([]string{"id", "version", "purchase_number", "supplier_id", "supplier_name", "status", "total_amount"}).
			AddRow(uuid.New().String(), 1, "PUR-2026-00001", supplierID.String(), "Molinos", "draft", "100.00"))

	purchases, err := repo.FindAll(context.Background(), shared.Filter{
		Page:     1,
		PageSize: 20,
		OrderDir: "desc",
		Filters:  map[string]any{"status": "draft", "supplier_id": supplierID.String()},
	})

	require.NoError(t, err)
	require.Len(t, purchases, 1)
	assert.Equal(t, trade.PurchaseStatusDraft, purchases[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
