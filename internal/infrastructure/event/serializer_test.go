package event

import (
	"testing"

	"github.com/distribuidora/backend/internal/domain/catalog"
	"github.com/distribuidora/backend/internal/domain/identity"
	"github.com/distribuidora/backend/internal/domain/trade"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterDomainEvents(t *testing.T) {
	s := NewEventSerializer()
	RegisterDomainEvents(s)

	for _, eventType := range []string{
		catalog.EventTypeProductCreated,
		catalog.EventTypeStockLow,
		identity.EventTypeUserCreated,
		identity.EventTypeUserRoleChanged,
		trade.EventTypeOrderCreated,
		trade.EventTypeOrderStatusChanged,
	} {
		assert.True(t, s.IsRegistered(eventType), eventType)
	}
	types := s.RegisteredTypes()
	assert.Len(t, types, 12)
	assert.IsNonDecreasing(t, types)
}

func TestEventSerializer_RoundTrip(t *testing.T) {
	s := NewEventSerializer()
	RegisterDomainEvents(s)

	original := catalog.NewStockLowEvent(newTestProduct())
	data, err := s.Serialize(original)
	require.NoError(t, err)

	decoded, err := s.Deserialize(catalog.EventTypeStockLow, data)
	require.NoError(t, err)

	got, ok := decoded.(*catalog.StockLowEvent)
	require.True(t, ok)
	assert.Equal(t, original.EventID(), got.EventID())
	assert.Equal(t, original.AggregateID(), got.AggregateID())
	assert.Equal(t, catalog.AggregateTypeProduct, got.AggregateType())
	assert.Equal(t, "AGUA-500", got.SKU)
	assert.True(t, original.Stock.Equal(got.Stock))
	assert.True(t, original.OccurredAt().Equal(got.OccurredAt()))
}

func TestEventSerializer_Errors(t *testing.T) {
	s := NewEventSerializer()
	RegisterDomainEvents(s)

	_, err := s.Deserialize("unknown.event", []byte(`{}`))
	assert.ErrorContains(t, err, "unknown event type")

	_, err = s.Deserialize(catalog.EventTypeStockLow, []byte(`{not json`))
	assert.ErrorContains(t, err, "decode "+catalog.EventTypeStockLow)
}
