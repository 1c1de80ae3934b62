package export

import (
	"time"

	"github.com/distribuidora/backend/internal/domain/shared"
	"github.com/google/uuid"
)

var errPDFDisabled = shared.NewDomainError("PDF_DISABLED", "PDF export is not enabled on this server")

// Query narrows a CSV export with the same keys the list endpoints accept
type Query struct {
	Search  string
	Filters map[string]any
}

func (q Query) filter(orderBy string) shared.Filter {
	filters := make(map[string]any, len(q.Filters))
	for k, v := range q.Filters {
		filters[k] = v
	}
	return shared.Filter{Search: q.Search, OrderBy: orderBy, OrderDir: "asc", Filters: filters}.Normalize(orderBy)
}

// File is a generated export. Either Data is set (direct download) or URL
// points at the stored object.
type File struct {
	Name        string     `json:"name"`
	ContentType string     `json:"content_type"`
	Size        int        `json:"size"`
	Key         string     `json:"key,omitempty"`
	URL         string     `json:"url,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	Data        []byte     `json:"-"`
}

// Stored reports whether the file went to object storage
func (f *File) Stored() bool {
	return f.URL != ""
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatOptional(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTimestamp(*t)
}

func formatDay(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.DateOnly)
}

func optionalID(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
