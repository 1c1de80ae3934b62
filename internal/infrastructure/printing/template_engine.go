package printing

import (
	"bytes"
	"embed"
	"html/template"
	"maps"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

//go:embed templates/*.html
var templateFS embed.FS

// Embedded layouts
const (
	TemplateDeliveryNote = "delivery_note.html"
	TemplateRouteSheet   = "route_sheet.html"
)

// TemplateEngine renders the embedded document layouts with html/template
type TemplateEngine struct {
	funcMap   template.FuncMap
	templates *template.Template
}

// NewTemplateEngine parses every embedded layout
func NewTemplateEngine() (*TemplateEngine, error) {
	e := &TemplateEngine{funcMap: defaultFuncMap()}
	tmpl, err := template.New("documents").Funcs(e.funcMap).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, NewRenderError(ErrCodeInvalidHTML, "failed to parse embedded templates", err)
	}
	e.templates = tmpl
	return e, nil
}

// Render executes a named embedded layout
func (e *TemplateEngine) Render(name string, data any) (string, error) {
	tmpl := e.templates.Lookup(name)
	if tmpl == nil {
		return "", NewRenderError(ErrCodeUnknownLayout, "unknown template "+name, nil)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", NewRenderError(ErrCodeRenderFailed, "failed to execute template", err)
	}
	return buf.String(), nil
}

// RenderString parses and executes an ad-hoc template with the same functions
func (e *TemplateEngine) RenderString(name, content string, data any) (string, error) {
	if content == "" {
		return "", NewRenderError(ErrCodeInvalidHTML, "template content is empty", nil)
	}
	tmpl, err := template.New(name).Funcs(e.funcMap).Parse(content)
	if err != nil {
		return "", NewRenderError(ErrCodeInvalidHTML, "failed to parse template", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", NewRenderError(ErrCodeRenderFailed, "failed to execute template", err)
	}
	return buf.String(), nil
}

// FuncMap returns a copy of the template functions
func (e *TemplateEngine) FuncMap() template.FuncMap {
	funcMap := make(template.FuncMap, len(e.funcMap))
	maps.Copy(funcMap, e.funcMap)
	return funcMap
}

func defaultFuncMap() template.FuncMap {
	return template.FuncMap{
		"formatMoney":    formatMoney,
		"formatQuantity": formatQuantity,
		"formatDate":     formatDate,
		"formatDateTime": formatDateTime,
		"statusText":     statusText,
		"shortUUID":      shortUUID,
		"upper":          strings.ToUpper,
		"inc":            func(i int) int { return i + 1 },
		"default": func(def, val string) string {
			if strings.TrimSpace(val) == "" {
				return def
			}
			return val
		},
	}
}

// formatMoney renders an amount with thousands separators: 1234.5 -> "$ 1,234.50"
func formatMoney(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}
	intPart, decPart, _ := strings.Cut(d.StringFixed(2), ".")

	var out strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			out.WriteRune(',')
		}
		out.WriteRune(c)
	}
	return sign + "$ " + out.String() + "." + decPart
}

// formatQuantity drops trailing zeros: 12.500 -> "12.5"
func formatQuantity(d decimal.Decimal) string {
	return d.String()
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02/01/2006")
}

func formatDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02/01/2006 15:04")
}

var statusLabels = map[string]string{
	"pending":    "Pendiente",
	"prepared":   "Preparado",
	"in_transit": "En reparto",
	"delivered":  "Entregado",
	"cancelled":  "Cancelado",
	"planned":    "Planificada",
	"active":     "En curso",
	"completed":  "Completada",
}

// statusText converts a status code to its printed label
func statusText(status string) string {
	if label, ok := statusLabels[status]; ok {
		return label
	}
	return status
}

func shortUUID(id uuid.UUID) string {
	return id.String()[:8]
}
