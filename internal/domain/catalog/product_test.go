package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProduct(t *testing.T, stock int64) *Product {
	t.Helper()
	p, err := NewProduct("yerba-1kg", "Yerba Mate 1kg", "unit", decimal.NewFromInt(3500))
	require.NoError(t, err)
	if stock > 0 {
		require.NoError(t, p.AddStock(decimal.NewFromInt(stock)))
	}
	p.ClearDomainEvents()
	return p
}

func TestNewProduct(t *testing.T) {
	p, err := NewProduct("yerba-1kg", "Yerba Mate 1kg", "unit", decimal.NewFromInt(3500))
	require.NoError(t, err)
	assert.Equal(t, "YERBA-1KG", p.SKU)
	assert.True(t, p.Stock.IsZero())
	assert.True(t, p.IsActive())

	_, err = NewProduct("", "X", "unit", decimal.Zero)
	assert.Error(t, err)
	_, err = NewProduct("A", "", "unit", decimal.Zero)
	assert.Error(t, err)
	_, err = NewProduct("A", "X", "", decimal.Zero)
	assert.Error(t, err)
	_, err = NewProduct("A", "X", "kg", decimal.NewFromInt(-1))
	assert.Error(t, err)
}

func TestProduct_DeductStock(t *testing.T) {
	t.Run("deducts available stock", func(t *testing.T) {
		p := newTestProduct(t, 10)
		require.NoError(t, p.DeductStock(decimal.NewFromInt(4)))
		assert.True(t, p.Stock.Equal(decimal.NewFromInt(6)))
	})

	t.Run("takes stock down to exactly zero", func(t *testing.T) {
		p := newTestProduct(t, 3)
		require.NoError(t, p.DeductStock(decimal.NewFromInt(3)))
		assert.True(t, p.Stock.IsZero())
	})

	t.Run("never goes negative", func(t *testing.T) {
		p := newTestProduct(t, 2)
		err := p.DeductStock(decimal.NewFromInt(3))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Insufficient stock")
		assert.True(t, p.Stock.Equal(decimal.NewFromInt(2)))
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		p := newTestProduct(t, 2)
		assert.Error(t, p.DeductStock(decimal.Zero))
		assert.Error(t, p.DeductStock(decimal.NewFromInt(-1)))
	})

	t.Run("raises low stock event", func(t *testing.T) {
		p := newTestProduct(t, 10)
		require.NoError(t, p.SetMinStock(decimal.NewFromInt(5)))
		require.NoError(t, p.DeductStock(decimal.NewFromInt(5)))
		require.Len(t, p.GetDomainEvents(), 1)
		assert.Equal(t, EventTypeStockLow, p.GetDomainEvents()[0].EventType())
	})
}

func TestProduct_AdjustStock(t *testing.T) {
	p := newTestProduct(t, 10)
	require.NoError(t, p.AdjustStock(decimal.NewFromInt(7)))
	assert.True(t, p.Stock.Equal(decimal.NewFromInt(7)))
	assert.Error(t, p.AdjustStock(decimal.NewFromInt(-1)))
}

func TestProduct_Lifecycle(t *testing.T) {
	p := newTestProduct(t, 0)
	require.NoError(t, p.Deactivate())
	assert.Error(t, p.Deactivate())
	require.NoError(t, p.Activate())
	require.NoError(t, p.Discontinue())
	assert.Error(t, p.Activate())
}
