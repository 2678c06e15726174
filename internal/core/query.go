package core

// query.go builds parameterized WHERE clauses for row queries and reports.
// All values go through $n placeholders; identifiers are quoted separately.

import (
	"fmt"
	"strings"
	"time"
)

// WhereBuilder accumulates WHERE conditions with correctly numbered
// placeholders. Conditions combine with AND.
type WhereBuilder struct {
	conditions []string
	args       []interface{}
	argIndex   int
}

// NewWhereBuilder creates an empty builder. The first placeholder is $1.
func NewWhereBuilder() *WhereBuilder {
	return &WhereBuilder{argIndex: 1}
}

// Add appends an equality condition. Empty values are skipped.
func (wb *WhereBuilder) Add(column, value string) {
	if value == "" {
		return
	}
	wb.conditions = append(wb.conditions, fmt.Sprintf("%s = $%d", column, wb.argIndex))
	wb.args = append(wb.args, value)
	wb.argIndex++
}

// AddDatasetID appends a dataset_id condition. Empty IDs are skipped.
func (wb *WhereBuilder) AddDatasetID(id string) {
	if id == "" {
		return
	}
	wb.conditions = append(wb.conditions, fmt.Sprintf("dataset_id = $%d", wb.argIndex))
	wb.args = append(wb.args, id)
	wb.argIndex++
}

// AddDateRange appends inclusive lower and upper bounds on a date column.
// Nil bounds are skipped.
func (wb *WhereBuilder) AddDateRange(column string, from, to *time.Time) {
	if from != nil {
		wb.conditions = append(wb.conditions, fmt.Sprintf("%s >= $%d", column, wb.argIndex))
		wb.args = append(wb.args, *from)
		wb.argIndex++
	}
	if to != nil {
		wb.conditions = append(wb.conditions, fmt.Sprintf("%s <= $%d", column, wb.argIndex))
		wb.args = append(wb.args, *to)
		wb.argIndex++
	}
}

// AddIn appends an IN condition over the given values. Empty lists are
// skipped; blank entries within a list are dropped.
func (wb *WhereBuilder) AddIn(column string, values []string) {
	var clean []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			clean = append(clean, v)
		}
	}
	if len(clean) == 0 {
		return
	}

	placeholders := make([]string, len(clean))
	for i, v := range clean {
		placeholders[i] = fmt.Sprintf("$%d", wb.argIndex)
		wb.args = append(wb.args, v)
		wb.argIndex++
	}
	wb.conditions = append(wb.conditions,
		fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ", ")))
}

// AddSearch appends a case-insensitive substring search ORed across the
// given text columns, sharing a single placeholder. Empty queries and empty
// column lists are skipped.
func (wb *WhereBuilder) AddSearch(query string, columns []string) {
	if query == "" || len(columns) == 0 {
		return
	}

	parts := make([]string, len(columns))
	for i, col := range columns {
		parts[i] = fmt.Sprintf("%s ILIKE $%d", quoteIdentifier(col), wb.argIndex)
	}
	wb.conditions = append(wb.conditions, "("+strings.Join(parts, " OR ")+")")
	wb.args = append(wb.args, "%"+query+"%")
	wb.argIndex++
}

// AddFilter appends every condition a RowFilter carries.
func (wb *WhereBuilder) AddFilter(f RowFilter, searchColumns []string) {
	wb.AddDatasetID(f.DatasetID)
	wb.Add("segment", f.Segment)
	wb.AddDateRange("invoice_date", f.From, f.To)
	wb.AddIn("customer_name", f.Customers)
	wb.AddIn("brand", f.Brands)
	wb.AddIn("item_code", f.Items)
	wb.AddSearch(f.Search, searchColumns)
}

// NextArgIndex returns the placeholder number the next argument would take.
// Used when appending LIMIT/OFFSET after Build.
func (wb *WhereBuilder) NextArgIndex() int {
	return wb.argIndex
}

// Build returns the WHERE clause (with a leading space) and its arguments.
// Returns an empty string and nil args when no conditions were added.
func (wb *WhereBuilder) Build() (string, []interface{}) {
	if len(wb.conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(wb.conditions, " AND "), wb.args
}

// quoteIdentifier quotes a SQL identifier to prevent injection.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
