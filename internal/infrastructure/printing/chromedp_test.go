package printing

import (
	"context"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChromedpRenderer_Defaults(t *testing.T) {
	r := NewChromedpRenderer(ChromedpConfig{NoSandbox: true})
	defer r.Close()

	assert.Equal(t, defaultChromeTimeout, r.cfg.DefaultTimeout)
	assert.NotNil(t, r.log)
	assert.NotNil(t, r.alloc)
}

func TestPrintParams(t *testing.T) {
	t.Run("portrait A4", func(t *testing.T) {
		params := printParams(&RenderRequest{HTML: "<p>x</p>"})
		assert.InDelta(t, inches(210), params.PaperWidth, 0.001)
		assert.InDelta(t, inches(297), params.PaperHeight, 0.001)
		assert.InDelta(t, inches(12), params.MarginTop, 0.001)
		assert.InDelta(t, inches(12), params.MarginLeft, 0.001)
		assert.False(t, params.Landscape)
		assert.True(t, params.PrintBackground)
	})

	t.Run("landscape", func(t *testing.T) {
		params := printParams(&RenderRequest{HTML: "<p>x</p>", Landscape: true})
		assert.True(t, params.Landscape)
	})
}

func TestWrapDocument(t *testing.T) {
	t.Run("full document passes through", func(t *testing.T) {
		doc := "<!DOCTYPE html><html><body>ok</body></html>"
		assert.Equal(t, doc, wrapDocument(&RenderRequest{HTML: doc}))
	})

	t.Run("fragment is wrapped with an escaped title", func(t *testing.T) {
		out := wrapDocument(&RenderRequest{HTML: "<p>Remito</p>", Title: "A&B"})
		assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
		assert.Contains(t, out, `<meta charset="UTF-8">`)
		assert.Contains(t, out, "<title>A&amp;B</title>")
		assert.Contains(t, out, "<body><p>Remito</p></body>")
	})
}

func TestInches(t *testing.T) {
	assert.InDelta(t, 1.0, inches(25.4), 0.0001)
	assert.InDelta(t, 8.2677, inches(210), 0.001)
}

func TestChromedpRenderer_Close(t *testing.T) {
	r := &ChromedpRenderer{}
	assert.NoError(t, r.Close())
}

func chromePath(t *testing.T) string {
	t.Helper()
	for _, name := range []string{"chromium", "chromium-browser", "google-chrome", "google-chrome-stable"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	t.Skip("no Chrome/Chromium binary available")
	return ""
}

func TestChromedpRenderer_RenderPDF(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	r := NewChromedpRenderer(ChromedpConfig{ExecPath: chromePath(t), NoSandbox: true, DefaultTimeout: 60 * time.Second})
	defer r.Close()

	result, err := r.Render(context.Background(), &RenderRequest{HTML: "<h1>Remito 0001</h1>", Title: "Remito"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(result.PDFData), "%PDF"))
	assert.GreaterOrEqual(t, result.PageCount, 1)
}
