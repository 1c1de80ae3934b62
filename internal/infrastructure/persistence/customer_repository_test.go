package persistence

import (
	"context"
	"database/sql/driver"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/distribuidora/backend/internal/domain/partner"
	"github.com/distribuidora/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const selectCustomerByID = `SELECT \* FROM "customers" WHERE id = \$1 ORDER BY .* LIMIT .*`

func customerRepo(t *testing.T) (*GormCustomerRepository, sqlmock.Sqlmock) {
	db, mock := mockedDB(t)
	return NewGormCustomerRepository(db), mock
}

// customerRows returns a result set; each row is id, version, code, name,
// zone, credit_limit, status
func customerRows(rows ...[]any) *sqlmock.Rows {
	rs := sqlmock.NewRows([]string{"id", "version", "code", "name", "zone", "credit_limit", "status"})
	for _, r := range rows {
		vals := make([]driver.Value, len(r))
		for i, v := range r {
			vals[i] = v
		}
		rs.AddRow(vals...)
	}
	return rs
}

func loadedCustomer(t *testing.T) *partner.Customer {
	t.Helper()
	c, err := partner.NewCustomer("C001", "Almacen Sur")
	require.NoError(t, err)
	c.MarkPersisted()
	require.NoError(t, c.Update("Almacen Sur SA", ""))
	return c
}

func TestGormCustomerRepository_FindByID(t *testing.T) {
	id := uuid.New()

	t.Run("maps the row", func(t *testing.T) {
		repo, mock := customerRepo(t)
		mock.ExpectQuery(selectCustomerByID).WithArgs(id, 1).
			WillReturnRows(customerRows([]any{id.String(), 3, "C001", "Almacen Sur", "south", "500.00", "active"}))

		got, err := repo.FindByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, id, got.ID)
		assert.Equal(t, "south", got.Zone)
		assert.Equal(t, 3, got.PersistedVersion())
		assert.True(t, got.CreditLimit.Equal(decimal.NewFromInt(500)))
	})

	t.Run("no row is not found", func(t *testing.T) {
		repo, mock := customerRepo(t)
		mock.ExpectQuery(selectCustomerByID).WithArgs(id, 1).WillReturnRows(customerRows())

		got, err := repo.FindByID(context.Background(), id)
		assert.Nil(t, got)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormCustomerRepository_CodeIsNormalized(t *testing.T) {
	repo, mock := customerRepo(t)
	mock.ExpectQuery(`SELECT \* FROM "customers" WHERE code = \$1 ORDER BY .* LIMIT .*`).
		WithArgs("C001", 1).
		WillReturnRows(customerRows([]any{uuid.NewString(), 1, "C001", "Almacen Sur", "", "0", "active"}))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "customers" WHERE code = \$1`).
		WithArgs("C001").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	got, err := repo.FindByCode(context.Background(), " c001 ")
	require.NoError(t, err)
	assert.Equal(t, "C001", got.Code)

	taken, err := repo.ExistsByCode(context.Background(), "c001")
	require.NoError(t, err)
	assert.True(t, taken)
}

func TestGormCustomerRepository_FindByIDs(t *testing.T) {
	repo, mock := customerRepo(t)

	none, err := repo.FindByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, none)

	a, b := uuid.New(), uuid.New()
	mock.ExpectQuery(`SELECT \* FROM "customers" WHERE id IN \(\$1,\$2\)`).
		WithArgs(a, b).
		WillReturnRows(customerRows(
			[]any{a.String(), 1, "A", "A", "", "0", "active"},
			[]any{b.String(), 1, "B", "B", "", "0", "active"},
		))

	got, err := repo.FindByIDs(context.Background(), []uuid.UUID{a, b})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestGormCustomerRepository_FindAll(t *testing.T) {
	t.Run("search, zone and paging", func(t *testing.T) {
		repo, mock := customerRepo(t)
		mock.ExpectQuery(`SELECT \* FROM "customers" WHERE \(name ILIKE \$1 OR code ILIKE \$2 OR phone ILIKE \$3 OR tax_id ILIKE \$4\) AND zone = \$5 ORDER BY name ASC LIMIT \$6`).
			WithArgs("%sur%", "%sur%", "%sur%", "%sur%", "south", 10).
			WillReturnRows(customerRows([]any{uuid.NewString(), 1, "C001", "Almacen Sur", "south", "0", "active"}))

		got, err := repo.FindAll(context.Background(), shared.Filter{
			Page: 1, PageSize: 10, OrderBy: "name", OrderDir: "asc", Search: "sur",
			Filters: map[string]any{"zone": "south"},
		})
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("unknown sort column falls back to name", func(t *testing.T) {
		repo, mock := customerRepo(t)
		mock.ExpectQuery(`SELECT \* FROM "customers" ORDER BY name DESC`).WillReturnRows(customerRows())

		_, err := repo.FindAll(context.Background(), shared.Filter{OrderBy: "name; DROP TABLE customers"})
		require.NoError(t, err)
	})
}

func TestGormCustomerRepository_Save(t *testing.T) {
	t.Run("new customer is inserted", func(t *testing.T) {
		repo, mock := customerRepo(t)
		c, err := partner.NewCustomer("C001", "Almacen Sur")
		require.NoError(t, err)
		mock.ExpectExec(`INSERT INTO "customers"`).WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Save(context.Background(), c))
		assert.False(t, c.IsNew())
	})

	t.Run("loaded customer is updated against its version", func(t *testing.T) {
		repo, mock := customerRepo(t)
		c := loadedCustomer(t)
		mock.ExpectExec(`UPDATE "customers" SET .* WHERE .*id = \$\d+ AND version = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Save(context.Background(), c))
		assert.Equal(t, c.Version, c.PersistedVersion())
	})

	t.Run("stale version is a conflict", func(t *testing.T) {
		repo, mock := customerRepo(t)
		mock.ExpectExec(`UPDATE "customers" SET`).WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, repo.Save(context.Background(), loadedCustomer(t)), shared.ErrConcurrencyConflict)
	})
}

func TestGormCustomerRepository_Delete(t *testing.T) {
	for name, tc := range map[string]struct {
		affected int64
		want     error
	}{
		"deleted":        {1, nil},
		"already absent": {0, shared.ErrNotFound},
	} {
		t.Run(name, func(t *testing.T) {
			repo, mock := customerRepo(t)
			id := uuid.New()
			mock.ExpectExec(`DELETE FROM "customers" WHERE id = \$1`).
				WithArgs(id).
				WillReturnResult(sqlmock.NewResult(0, tc.affected))

			err := repo.Delete(context.Background(), id)
			if tc.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tc.want)
			}
		})
	}
}

func TestGormSupplierRepository_Count(t *testing.T) {
	db, mock := mockedDB(t)
	mock.ExpectQuery(`SELECT count\(\*\) FROM "suppliers" WHERE status = \$1`).
		WithArgs("active").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	n, err := NewGormSupplierRepository(db).Count(context.Background(),
		shared.Filter{Filters: map[string]any{"status": "active"}})
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}
