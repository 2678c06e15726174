package core

// reports.go computes the dashboard KPIs and report tables. Aggregation
// happens in SQL over the filtered row set; shaping that benefits from unit
// tests (histogram binning, weekday matrix layout) happens in Go.

import (
	"context"
	"fmt"
	"time"
)

// DefaultReportLimit caps the top-N reports when the caller asks for nothing.
const DefaultReportLimit = 10

// histogramBinWidth is the day span of each delivery-time bucket before the
// open-ended tail.
const histogramBinWidth = 3

// histogramMaxBins bounds the histogram; everything past the last full bin
// lands in a "N+" bucket.
const histogramMaxBins = 5

// weekdays in dashboard display order.
var weekdays = []string{
	"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
}

// GetKPIs returns the headline figures for the filtered row set.
func (s *Service) GetKPIs(ctx context.Context, filter RowFilter) (*KPIs, error) {
	wb := NewWhereBuilder()
	wb.AddFilter(filter, searchColumns)
	whereClause, args := wb.Build()

	query := `
		SELECT
			COUNT(*),
			COUNT(DISTINCT invoice_number),
			COALESCE(SUM(amount), 0),
			AVG(delivery_time_days),
			COALESCE(SUM(closing_balance), 0)
		FROM invoice_rows` + whereClause

	k := &KPIs{}
	err := s.pool.QueryRow(ctx, query, args...).Scan(
		&k.RowCount, &k.InvoiceCount, &k.TotalAmount, &k.AvgDeliveryDays, &k.TotalClosingBalance)
	if err != nil {
		return nil, fmt.Errorf("kpis: %w", err)
	}
	return k, nil
}

// GetWeeklySeries returns the invoiced amount per ISO week, oldest first.
// Rows without an invoice date are excluded.
func (s *Service) GetWeeklySeries(ctx context.Context, filter RowFilter) ([]WeeklyPoint, error) {
	wb := NewWhereBuilder()
	wb.AddFilter(filter, searchColumns)
	whereClause, args := wb.Build()

	query := fmt.Sprintf(`
		SELECT date_trunc('week', invoice_date)::date, COALESCE(SUM(amount), 0), COUNT(*)
		FROM invoice_rows%s
		GROUP BY 1
		ORDER BY 1`, andNotNull(whereClause, "invoice_date"))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("weekly series: %w", err)
	}
	defer rows.Close()

	points := make([]WeeklyPoint, 0)
	for rows.Next() {
		var p WeeklyPoint
		if err := rows.Scan(&p.WeekStart, &p.Amount, &p.Rows); err != nil {
			return nil, fmt.Errorf("scan weekly point: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// GetTopCustomers returns the customers with the highest invoiced amount.
func (s *Service) GetTopCustomers(ctx context.Context, filter RowFilter, limit int) ([]CustomerTotal, error) {
	if limit <= 0 {
		limit = DefaultReportLimit
	}

	wb := NewWhereBuilder()
	wb.AddFilter(filter, searchColumns)
	whereClause, args := wb.Build()

	query := fmt.Sprintf(`
		SELECT customer_name, COALESCE(SUM(amount), 0), COUNT(*)
		FROM invoice_rows%s
		GROUP BY customer_name
		ORDER BY 2 DESC
		LIMIT $%d`, andNotNull(whereClause, "customer_name"), wb.NextArgIndex())
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("top customers: %w", err)
	}
	defer rows.Close()

	totals := make([]CustomerTotal, 0, limit)
	for rows.Next() {
		var c CustomerTotal
		if err := rows.Scan(&c.Customer, &c.Amount, &c.Rows); err != nil {
			return nil, fmt.Errorf("scan customer total: %w", err)
		}
		totals = append(totals, c)
	}
	return totals, rows.Err()
}

// GetDeliveryHistogram buckets rows by their delivery time in days.
func (s *Service) GetDeliveryHistogram(ctx context.Context, filter RowFilter) ([]HistogramBin, error) {
	wb := NewWhereBuilder()
	wb.AddFilter(filter, searchColumns)
	whereClause, args := wb.Build()

	query := fmt.Sprintf(`
		SELECT delivery_time_days, COUNT(*)
		FROM invoice_rows%s
		GROUP BY delivery_time_days`, andNotNull(whereClause, "delivery_time_days"))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("delivery histogram: %w", err)
	}
	defer rows.Close()

	counts := make(map[int]int64)
	for rows.Next() {
		var days int
		var count int64
		if err := rows.Scan(&days, &count); err != nil {
			return nil, fmt.Errorf("scan histogram row: %w", err)
		}
		counts[days] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return binDeliveryDays(counts, histogramBinWidth, histogramMaxBins), nil
}

// binDeliveryDays folds per-day counts into fixed-width buckets with an
// open-ended last bucket. Bins are always emitted, empty ones included, so
// the chart's shape is stable across filters.
func binDeliveryDays(counts map[int]int64, width, maxBins int) []HistogramBin {
	bins := make([]HistogramBin, maxBins)
	for i := 0; i < maxBins-1; i++ {
		from := i * width
		to := from + width - 1
		bins[i] = HistogramBin{
			Label: fmt.Sprintf("%d-%d", from, to),
			From:  from,
			To:    to,
		}
	}
	tailFrom := (maxBins - 1) * width
	bins[maxBins-1] = HistogramBin{
		Label: fmt.Sprintf("%d+", tailFrom),
		From:  tailFrom,
		To:    -1,
	}

	for days, count := range counts {
		if days < 0 {
			continue
		}
		idx := days / width
		if idx >= maxBins {
			idx = maxBins - 1
		}
		bins[idx].Count += count
	}

	return bins
}

// GetTopItems returns the items with the most rows, with their stock
// movement totals.
func (s *Service) GetTopItems(ctx context.Context, filter RowFilter, limit int) ([]ItemMovement, error) {
	if limit <= 0 {
		limit = DefaultReportLimit
	}

	wb := NewWhereBuilder()
	wb.AddFilter(filter, searchColumns)
	whereClause, args := wb.Build()

	query := fmt.Sprintf(`
		SELECT
			item_code,
			COALESCE(MAX(description), ''),
			COALESCE(SUM(in_qty), 0),
			COALESCE(SUM(out_qty), 0),
			COALESCE(SUM(closing_balance), 0),
			COUNT(*)
		FROM invoice_rows%s
		GROUP BY item_code
		ORDER BY 6 DESC
		LIMIT $%d`, andNotNull(whereClause, "item_code"), wb.NextArgIndex())
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("top items: %w", err)
	}
	defer rows.Close()

	items := make([]ItemMovement, 0, limit)
	for rows.Next() {
		var it ItemMovement
		if err := rows.Scan(&it.ItemCode, &it.Description, &it.InQty, &it.OutQty, &it.ClosingBalance, &it.Rows); err != nil {
			return nil, fmt.Errorf("scan item movement: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// GetBrandShare returns each brand's share of the total invoiced amount,
// largest first.
func (s *Service) GetBrandShare(ctx context.Context, filter RowFilter) ([]BrandShare, error) {
	wb := NewWhereBuilder()
	wb.AddFilter(filter, searchColumns)
	whereClause, args := wb.Build()

	query := fmt.Sprintf(`
		SELECT brand, COALESCE(SUM(amount), 0)
		FROM invoice_rows%s
		GROUP BY brand
		ORDER BY 2 DESC`, andNotNull(whereClause, "brand"))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("brand share: %w", err)
	}
	defer rows.Close()

	shares := make([]BrandShare, 0)
	for rows.Next() {
		var b BrandShare
		if err := rows.Scan(&b.Brand, &b.Amount); err != nil {
			return nil, fmt.Errorf("scan brand share: %w", err)
		}
		shares = append(shares, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	applyBrandPercents(shares)
	return shares, nil
}

// applyBrandPercents fills the Percent field from each brand's slice of the
// summed amount. All-zero totals leave percents at zero.
func applyBrandPercents(shares []BrandShare) {
	var total float64
	for _, b := range shares {
		total += b.Amount
	}
	if total == 0 {
		return
	}
	for i := range shares {
		shares[i].Percent = shares[i].Amount / total * 100
	}
}

// GetDayMatrix counts rows by dispatch weekday crossed with delivery
// weekday.
func (s *Service) GetDayMatrix(ctx context.Context, filter RowFilter) (*DayMatrix, error) {
	wb := NewWhereBuilder()
	wb.AddFilter(filter, searchColumns)
	whereClause, args := wb.Build()

	where := whereClause
	if where == "" {
		where = " WHERE dispatch_day IS NOT NULL AND delivery_day IS NOT NULL"
	} else {
		where += " AND dispatch_day IS NOT NULL AND delivery_day IS NOT NULL"
	}

	query := `
		SELECT dispatch_day, delivery_day, COUNT(*)
		FROM invoice_rows` + where + `
		GROUP BY dispatch_day, delivery_day`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("day matrix: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]map[string]int64)
	for rows.Next() {
		var dispatch, delivery string
		var count int64
		if err := rows.Scan(&dispatch, &delivery, &count); err != nil {
			return nil, fmt.Errorf("scan day matrix row: %w", err)
		}
		if counts[dispatch] == nil {
			counts[dispatch] = make(map[string]int64)
		}
		counts[dispatch][delivery] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return buildDayMatrix(counts), nil
}

// buildDayMatrix lays out dispatch-by-delivery counts on a fixed
// Monday-through-Sunday grid. Unknown day names are dropped.
func buildDayMatrix(counts map[string]map[string]int64) *DayMatrix {
	m := &DayMatrix{
		Days:  append([]string(nil), weekdays...),
		Cells: make([][]int64, len(weekdays)),
	}
	for i := range m.Cells {
		m.Cells[i] = make([]int64, len(weekdays))
	}

	index := make(map[string]int, len(weekdays))
	for i, d := range weekdays {
		index[d] = i
	}

	for dispatch, byDelivery := range counts {
		di, ok := index[dispatch]
		if !ok {
			continue
		}
		for delivery, count := range byDelivery {
			dj, ok := index[delivery]
			if !ok {
				continue
			}
			m.Cells[di][dj] = count
		}
	}

	return m
}

// GetDateRange returns the earliest and latest invoice dates in the
// filtered set, or nils when no row carries a date.
func (s *Service) GetDateRange(ctx context.Context, filter RowFilter) (min, max *time.Time, err error) {
	wb := NewWhereBuilder()
	wb.AddFilter(filter, searchColumns)
	whereClause, args := wb.Build()

	query := "SELECT MIN(invoice_date), MAX(invoice_date) FROM invoice_rows" + whereClause
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&min, &max); err != nil {
		return nil, nil, fmt.Errorf("date range: %w", err)
	}
	return min, max, nil
}
