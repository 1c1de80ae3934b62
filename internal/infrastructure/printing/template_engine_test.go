package printing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTemplateEngine_ParsesEmbeddedLayouts(t *testing.T) {
	engine, err := NewTemplateEngine()
	require.NoError(t, err)
	for _, name := range []string{TemplateDeliveryNote, TemplateRouteSheet} {
		assert.NotNil(t, engine.templates.Lookup(name), name)
	}
	assert.Contains(t, engine.FuncMap(), "formatMoney")
}

func TestTemplateEngine_Render_UnknownLayout(t *testing.T) {
	engine, err := NewTemplateEngine()
	require.NoError(t, err)

	_, err = engine.Render("invoice.html", nil)
	var re *RenderError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, ErrCodeUnknownLayout, re.Code)
}

func TestTemplateEngine_RenderString(t *testing.T) {
	engine, err := NewTemplateEngine()
	require.NoError(t, err)

	out, err := engine.RenderString("t", `{{.Name}} {{formatMoney .Amount}}`, map[string]any{
		"Name":   "<b>Kiosco</b>",
		"Amount": decimal.RequireFromString("1234.5"),
	})
	require.NoError(t, err)
	assert.Equal(t, "&lt;b&gt;Kiosco&lt;/b&gt; $ 1,234.50", out)

	_, err = engine.RenderString("empty", "", nil)
	assert.Error(t, err)

	_, err = engine.RenderString("bad", "{{.Name", nil)
	assert.Error(t, err)
}

func TestFormatMoney(t *testing.T) {
	tests := map[string]string{
		"0":          "$ 0.00",
		"12.3":       "$ 12.30",
		"1234567.89": "$ 1,234,567.89",
		"-950":       "-$ 950.00",
	}
	for in, want := range tests {
		assert.Equal(t, want, formatMoney(decimal.RequireFromString(in)), in)
	}
}

func TestFormatQuantity(t *testing.T) {
	assert.Equal(t, "12.5", formatQuantity(decimal.RequireFromString("12.500")))
	assert.Equal(t, "3", formatQuantity(decimal.NewFromInt(3)))
}

func TestFormatDates(t *testing.T) {
	ts := time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)
	assert.Equal(t, "04/05/2026", formatDate(ts))
	assert.Equal(t, "04/05/2026 09:30", formatDateTime(ts))
	assert.Empty(t, formatDate(time.Time{}))
	assert.Empty(t, formatDateTime(time.Time{}))
}

func TestStatusText(t *testing.T) {
	assert.Equal(t, "En reparto", statusText("in_transit"))
	assert.Equal(t, "Planificada", statusText("planned"))
	assert.Equal(t, "unknown", statusText("unknown"))
}

func TestShortUUID(t *testing.T) {
	id := uuid.MustParse("4f1c2d3e-0000-4000-8000-000000000000")
	assert.Equal(t, "4f1c2d3e", shortUUID(id))
}
