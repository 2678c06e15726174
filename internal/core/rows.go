package core

// rows.go serves filtered, sorted, paginated invoice rows plus the CSV
// export used by the dashboard's download button.

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/biogene/stockdash/internal/catalog"
)

// DefaultPageSize bounds row queries when the caller asks for nothing.
const DefaultPageSize = 50

// MaxPageSize caps a single page of rows.
const MaxPageSize = 500

// searchColumns are the text columns free-text search scans.
var searchColumns = []string{
	catalog.InvoiceNumber, catalog.CustomerName, catalog.Station,
	catalog.Brand, catalog.ItemCode, catalog.Description,
}

// selectColumns are the row columns returned to clients, in display order.
var selectColumns = []string{
	catalog.InvoiceNumber, catalog.InvoiceDate, catalog.GoodsRecdDate,
	catalog.DispatchDate, catalog.DeliveryDate, catalog.CustomerName,
	catalog.Station, catalog.Brand, catalog.ItemCode, catalog.Description,
	catalog.TaxableValue, catalog.PurchaseValue, catalog.ClosingBalance,
	catalog.InQty, catalog.OutQty, catalog.UnitPrice,
	"amount", "delivery_time_days", "dispatch_day", "delivery_day", "invoice_day", "segment",
}

// sortableColumn reports whether clients may order by the given column.
func sortableColumn(name string) bool {
	for _, col := range selectColumns {
		if col == name {
			return true
		}
	}
	return false
}

// GetRows fetches one page of invoice rows matching the filter.
func (s *Service) GetRows(ctx context.Context, filter RowFilter, page, pageSize int, sorts []SortSpec) (*RowsPage, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	wb := NewWhereBuilder()
	wb.AddFilter(filter, searchColumns)
	whereClause, args := wb.Build()

	var totalRows int64
	countQuery := "SELECT COUNT(*) FROM invoice_rows" + whereClause
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&totalRows); err != nil {
		return nil, fmt.Errorf("count rows: %w", err)
	}

	if page < 1 {
		page = 1
	}
	totalPages := int((totalRows + int64(pageSize) - 1) / int64(pageSize))
	if totalPages < 1 {
		totalPages = 1
	}
	if page > totalPages {
		page = totalPages
	}
	offset := (page - 1) * pageSize

	// Validate sorts against the column whitelist, max 2 levels.
	var validSorts []SortSpec
	var orderParts []string
	for _, sort := range sorts {
		if !sortableColumn(sort.Column) {
			continue
		}
		dir := strings.ToLower(sort.Dir)
		if dir != "asc" && dir != "desc" {
			dir = "asc"
		}
		orderParts = append(orderParts, fmt.Sprintf("%s %s NULLS LAST", quoteIdentifier(sort.Column), dir))
		validSorts = append(validSorts, SortSpec{Column: sort.Column, Dir: dir})
		if len(validSorts) >= 2 {
			break
		}
	}
	if len(orderParts) == 0 {
		orderParts = append(orderParts, quoteIdentifier(catalog.InvoiceDate)+" desc NULLS LAST")
		validSorts = append(validSorts, SortSpec{Column: catalog.InvoiceDate, Dir: "desc"})
	}
	orderParts = append(orderParts, "id asc") // stable pagination

	argIndex := wb.NextArgIndex()
	query := fmt.Sprintf(
		"SELECT %s FROM invoice_rows%s ORDER BY %s LIMIT $%d OFFSET $%d",
		strings.Join(quoteColumns(selectColumns), ", "),
		whereClause,
		strings.Join(orderParts, ", "),
		argIndex,
		argIndex+1,
	)
	args = append(args, pageSize, offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()

	resultRows := make([]InvoiceRow, 0, pageSize)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row values: %w", err)
		}
		row := make(InvoiceRow, len(selectColumns))
		for i, col := range selectColumns {
			row[col] = values[i]
		}
		resultRows = append(resultRows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return &RowsPage{
		Rows:       resultRows,
		TotalRows:  totalRows,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
		Sorts:      validSorts,
	}, nil
}

// FilterOptions lists the distinct values the UI offers in its filter
// dropdowns for the current filter scope.
type FilterOptions struct {
	Customers []string `json:"customers"`
	Brands    []string `json:"brands"`
	Items     []string `json:"items"`
	Stations  []string `json:"stations"`
}

// GetFilterOptions returns the distinct customers, brands, items, and
// stations within a dataset (or across all data when DatasetID is empty).
func (s *Service) GetFilterOptions(ctx context.Context, datasetID string) (*FilterOptions, error) {
	opts := &FilterOptions{}

	for _, q := range []struct {
		column string
		dest   *[]string
	}{
		{catalog.CustomerName, &opts.Customers},
		{catalog.Brand, &opts.Brands},
		{catalog.ItemCode, &opts.Items},
		{catalog.Station, &opts.Stations},
	} {
		wb := NewWhereBuilder()
		wb.AddDatasetID(datasetID)
		whereClause, args := wb.Build()

		col := quoteIdentifier(q.column)
		query := fmt.Sprintf(
			"SELECT DISTINCT %s FROM invoice_rows%s ORDER BY %s",
			col, andNotNull(whereClause, col), col)

		rows, err := s.pool.Query(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("distinct %s: %w", q.column, err)
		}
		for rows.Next() {
			var v string
			if err := rows.Scan(&v); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan %s: %w", q.column, err)
			}
			*q.dest = append(*q.dest, v)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("distinct %s: %w", q.column, err)
		}
	}

	return opts, nil
}

// andNotNull appends a NOT NULL condition to an existing (possibly empty)
// WHERE clause.
func andNotNull(whereClause, col string) string {
	if whereClause == "" {
		return " WHERE " + col + " IS NOT NULL"
	}
	return whereClause + " AND " + col + " IS NOT NULL"
}

// ExportCSV streams every row matching the filter as CSV. The header row
// uses canonical column names.
func (s *Service) ExportCSV(ctx context.Context, filter RowFilter, w io.Writer) error {
	wb := NewWhereBuilder()
	wb.AddFilter(filter, searchColumns)
	whereClause, args := wb.Build()

	query := fmt.Sprintf(
		"SELECT %s FROM invoice_rows%s ORDER BY %s asc NULLS LAST, id asc",
		strings.Join(quoteColumns(selectColumns), ", "),
		whereClause,
		quoteIdentifier(catalog.InvoiceDate),
	)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()

	cw := csv.NewWriter(w)
	if err := cw.Write(selectColumns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	record := make([]string, len(selectColumns))
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return fmt.Errorf("read row values: %w", err)
		}
		for i, v := range values {
			record[i] = formatCSVValue(v)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows error: %w", err)
	}

	cw.Flush()
	return cw.Error()
}

// formatCSVValue renders a scanned value for CSV output. Dates come out as
// YYYY-MM-DD, numerics as plain decimals; NULLs become empty cells.
func formatCSVValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case time.Time:
		return val.Format("2006-01-02")
	case pgtype.Numeric:
		if !val.Valid {
			return ""
		}
		f, err := val.Float64Value()
		if err != nil || !f.Valid {
			return ""
		}
		if f.Float64 == float64(int64(f.Float64)) {
			return fmt.Sprintf("%.0f", f.Float64)
		}
		return fmt.Sprintf("%.2f", f.Float64)
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}

// quoteColumns quotes each column name in the slice.
func quoteColumns(cols []string) []string {
	quoted := make([]string, len(cols))
	for i, col := range cols {
		quoted[i] = quoteIdentifier(col)
	}
	return quoted
}
