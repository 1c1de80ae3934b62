package persistence

import "strings"

// sortable whitelists the columns a list query may be ordered by. Anything
// else, including injection attempts, falls back to the caller's default.
type sortable struct {
	table   string
	columns map[string]struct{}
}

func newSortable(table string, columns ...string) sortable {
	s := sortable{table: table, columns: make(map[string]struct{}, len(columns)+3)}
	for _, c := range append([]string{"id", "created_at", "updated_at"}, columns...) {
		s.columns[c] = struct{}{}
	}
	return s
}

// column resolves a requested sort field to a safe column reference
func (s sortable) column(field, fallback string) string {
	field = strings.TrimSpace(field)
	if _, ok := s.columns[field]; !ok {
		field = fallback
	}
	if s.table != "" && field != "" {
		return s.table + "." + field
	}
	return field
}

func (s sortable) allows(field string) bool {
	_, ok := s.columns[field]
	return ok
}

// sortDirection accepts asc in any case and defaults to DESC
func sortDirection(dir string) string {
	if strings.EqualFold(strings.TrimSpace(dir), "asc") {
		return "ASC"
	}
	return "DESC"
}

// Joined list queries qualify columns with their table.
var (
	customerSort = newSortable("", "code", "name", "contact_name", "city", "zone", "status", "credit_limit")
	productSort  = newSortable("", "sku", "name", "price", "cost", "stock", "min_stock", "status")
	supplierSort = newSortable("", "code", "name", "payment_terms", "status")
	purchaseSort = newSortable("", "purchase_number", "supplier_name", "status", "total_amount", "received_at")
	orderSort    = newSortable("orders", "order_number", "customer_name", "status", "total_amount", "delivery_date", "delivered_at")
	paymentSort  = newSortable("payments", "paid_at", "amount", "method", "direction")
	routeSort    = newSortable("routes", "name", "scheduled_date", "status", "distance_km")
)
