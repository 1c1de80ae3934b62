package offline_test

import (
	"context"
	"testing"

	appoffline "github.com/distribuidora/backend/internal/application/offline"
	"github.com/distribuidora/backend/internal/domain/offline"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStockChecker_NoCache(t *testing.T) {
	queue, _ := newQueue(t)
	checker := appoffline.NewStockChecker(queue, nil)

	_, err := checker.Check(context.Background(), []appoffline.StockLine{{ProductID: uuid.New(), Quantity: decimal.NewFromInt(1)}})
	assert.ErrorIs(t, err, appoffline.ErrNoCachedProducts)
}

func TestStockChecker_Check(t *testing.T) {
	queue, _ := newQueue(t)
	ctx := context.Background()
	checker := appoffline.NewStockChecker(queue, nil)

	oil, flour := uuid.New(), uuid.New()
	require.NoError(t, queue.CacheData(ctx, appoffline.ProductsCacheKey, []appoffline.CachedProduct{
		{ID: oil, SKU: "ACE-900", Name: "Aceite", Stock: decimal.NewFromInt(10)},
		{ID: flour, SKU: "HAR-1", Name: "Harina", Stock: decimal.NewFromInt(3)},
	}))

	t.Run("covered", func(t *testing.T) {
		res, err := checker.Check(ctx, []appoffline.StockLine{
			{ProductID: oil, Quantity: decimal.NewFromInt(4)},
			{ProductID: oil, Quantity: decimal.NewFromInt(6)},
		})
		require.NoError(t, err)
		assert.True(t, res.OK)
		assert.Empty(t, res.Shortfalls)
	})

	t.Run("short and unknown", func(t *testing.T) {
		ghost := uuid.New()
		res, err := checker.Check(ctx, []appoffline.StockLine{
			{ProductID: flour, Quantity: decimal.NewFromInt(5)},
			{ProductID: ghost, Quantity: decimal.NewFromInt(1)},
		})
		require.NoError(t, err)
		assert.False(t, res.OK)
		require.Len(t, res.Shortfalls, 2)
		assert.Equal(t, "HAR-1", res.Shortfalls[0].SKU)
		assert.True(t, res.Shortfalls[0].Available.Equal(decimal.NewFromInt(3)))
		assert.True(t, res.Shortfalls[1].Unknown)
	})

	t.Run("queued orders claim stock", func(t *testing.T) {
		_, err := queue.Enqueue(ctx, offline.TypeOrderCreate, map[string]any{
			"customer_id": uuid.NewString(),
			"items":       []map[string]any{{"product_id": oil.String(), "quantity": "8"}},
		})
		require.NoError(t, err)

		res, err := checker.Check(ctx, []appoffline.StockLine{{ProductID: oil, Quantity: decimal.NewFromInt(3)}})
		require.NoError(t, err)
		assert.False(t, res.OK)
		require.Len(t, res.Shortfalls, 1)
		assert.True(t, res.Shortfalls[0].Available.Equal(decimal.NewFromInt(2)))
	})

	t.Run("non positive quantity", func(t *testing.T) {
		_, err := checker.Check(ctx, []appoffline.StockLine{{ProductID: oil, Quantity: decimal.Zero}})
		assert.Error(t, err)
	})
}
